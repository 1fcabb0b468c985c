package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToolRunner simulates the downloader and encoder by writing artifact
// files of a configurable size.
type fakeToolRunner struct {
	downloadSize int
	downloadErr  error
	encodeSize   int
	encodeErr    error
	invocations  []string
}

func (f *fakeToolRunner) Run(ctx context.Context, name string, args ...string) error {
	f.invocations = append(f.invocations, name)

	switch name {
	case "you-get":
		if f.downloadErr != nil {
			return f.downloadErr
		}
		// downloadArgs: --output-dir <dir> --output-filename <name> <url>
		dir, base := args[1], args[3]
		return os.WriteFile(filepath.Join(dir, base+".mp4"), make([]byte, f.downloadSize), 0o644)
	case "ffmpeg":
		if f.encodeErr != nil {
			return f.encodeErr
		}
		// encodeArgs put the output file last
		out := args[len(args)-1]
		return os.WriteFile(out, make([]byte, f.encodeSize), 0o644)
	}
	return nil
}

type fakeRecognizer struct {
	transcript []string
	err        error
	calls      int
	lastPath   string
}

func (f *fakeRecognizer) RecognizeFile(ctx context.Context, path string) ([]string, error) {
	f.calls++
	f.lastPath = path
	return f.transcript, f.err
}

func newTestPipeline(t *testing.T, runner CommandRunner, rec Recognizer) *SpeechPipeline {
	t.Helper()
	return NewSpeechPipeline(runner, rec, t.TempDir(), "you-get", "ffmpeg", false)
}

func TestDownloadArgs(t *testing.T) {
	args := downloadArgs("https://www.bilibili.com/video/BV1xx411c7mD", "/tmp/work", "BV1xx411c7mD")
	assert.Equal(t, []string{
		"--output-dir", "/tmp/work",
		"--output-filename", "BV1xx411c7mD",
		"https://www.bilibili.com/video/BV1xx411c7mD",
	}, args)
}

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("/tmp/in.mp4", "/tmp/out.mp3")
	assert.Equal(t, "-i", args[0])
	assert.Equal(t, "/tmp/in.mp4", args[1])
	assert.Contains(t, args, "-vn")
	assert.Contains(t, args, "128k")
	assert.Equal(t, "/tmp/out.mp3", args[len(args)-1])
}

func TestTranscribeHappyPath(t *testing.T) {
	runner := &fakeToolRunner{downloadSize: 20 * 1024, encodeSize: 15 * 1024}
	rec := &fakeRecognizer{transcript: []string{"大家好"}}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	assert.Equal(t, []string{"大家好"}, transcript)
	assert.Equal(t, []string{"you-get", "ffmpeg"}, runner.invocations)
	assert.True(t, strings.HasSuffix(rec.lastPath, ".mp3"))
}

func TestTranscribeDownloadFailureShortCircuits(t *testing.T) {
	runner := &fakeToolRunner{
		downloadErr: &ToolInvocationError{Tool: "you-get", ExitCode: 1, Stderr: "403 Forbidden"},
	}
	rec := &fakeRecognizer{transcript: []string{"never"}}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	assert.Nil(t, transcript)
	// The encoder and recognizer must never run after a failed download
	assert.Equal(t, []string{"you-get"}, runner.invocations)
	assert.Zero(t, rec.calls)
}

func TestTranscribeRejectsUndersizedDownload(t *testing.T) {
	runner := &fakeToolRunner{downloadSize: 512}
	rec := &fakeRecognizer{}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	assert.Nil(t, transcript)
	assert.Equal(t, []string{"you-get"}, runner.invocations)
}

func TestTranscribeRejectsUndersizedAudio(t *testing.T) {
	runner := &fakeToolRunner{downloadSize: 20 * 1024, encodeSize: 100}
	rec := &fakeRecognizer{}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	assert.Nil(t, transcript)
	assert.Equal(t, []string{"you-get", "ffmpeg"}, runner.invocations)
	assert.Zero(t, rec.calls)
}

func TestTranscribeRecognizerFailureYieldsNil(t *testing.T) {
	runner := &fakeToolRunner{downloadSize: 20 * 1024, encodeSize: 15 * 1024}
	rec := &fakeRecognizer{err: &RemoteAPIError{Code: 4001, Message: "bad audio"}}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)
	assert.Nil(t, transcript)
}

func TestTranscribeEmptyRecognitionStaysValid(t *testing.T) {
	runner := &fakeToolRunner{downloadSize: 20 * 1024, encodeSize: 15 * 1024}
	rec := &fakeRecognizer{transcript: nil}
	p := newTestPipeline(t, runner, rec)

	transcript, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	// Successful recognition of silence is an empty, non-nil transcript
	assert.NotNil(t, transcript)
	assert.Empty(t, transcript)
}

func TestTranscribeCleansUpWorkDir(t *testing.T) {
	workDir := t.TempDir()
	runner := &fakeToolRunner{downloadSize: 20 * 1024, encodeSize: 15 * 1024}
	p := NewSpeechPipeline(runner, &fakeRecognizer{transcript: []string{"ok"}}, workDir, "you-get", "ffmpeg", false)

	_, err := p.Transcribe(context.Background(), testVideo(""))
	require.NoError(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewestVideoFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.flv"), []byte("new"), 0o644))

	older := filepath.Join(dir, "a.mp4")
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(older, past, past))

	got, err := newestVideoFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.flv"), got)
}

func TestNewestVideoFileEmptyDir(t *testing.T) {
	_, err := newestVideoFile(t.TempDir())
	assert.Error(t, err)
}
