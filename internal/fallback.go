package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// toolTimeout caps each external tool invocation. Downloads of long
	// videos routinely take minutes; ten is the cutoff before the tool is
	// considered stuck.
	toolTimeout = 600 * time.Second

	// minArtifactSize rejects truncated downloads and silent encodes. Tools
	// sometimes exit zero after writing an error page or an empty container.
	minArtifactSize = 10 * 1024

	audioBitrate = "128k"
)

// Recognizer turns an audio file into a transcript.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) ([]string, error)
}

// SpeechPipeline obtains a transcript for videos without subtitles by
// downloading the video, extracting an MP3 track and running speech
// recognition on it. Any stage failing yields a nil transcript rather than
// an error; the caller degrades to comment- or description-based content.
type SpeechPipeline struct {
	runner     CommandRunner
	recognizer Recognizer
	workDir    string
	downloader string
	encoder    string
	verbose    bool
}

// NewSpeechPipeline creates a pipeline using the given tools. downloader
// and encoder are the executable names (or paths) for the video fetcher and
// ffmpeg respectively.
func NewSpeechPipeline(runner CommandRunner, recognizer Recognizer, workDir, downloader, encoder string, verbose bool) *SpeechPipeline {
	return &SpeechPipeline{
		runner:     runner,
		recognizer: recognizer,
		workDir:    workDir,
		downloader: downloader,
		encoder:    encoder,
		verbose:    verbose,
	}
}

// downloadArgs builds the argv tail for fetching a video into dir.
func downloadArgs(videoURL, dir, name string) []string {
	return []string{"--output-dir", dir, "--output-filename", name, videoURL}
}

// encodeArgs builds the argv tail for extracting a mono MP3 track.
func encodeArgs(input, output string) []string {
	return []string{
		"-i", input,
		"-vn",
		"-ac", "1",
		"-b:a", audioBitrate,
		"-y",
		output,
	}
}

// Transcribe runs the full fallback: download, transcode, recognize. A nil
// result with nil error means no transcript could be produced; a non-nil
// empty result means recognition ran and heard nothing, which is valid.
func (p *SpeechPipeline) Transcribe(ctx context.Context, video *VideoRecord) ([]string, error) {
	dir, err := os.MkdirTemp(p.workDir, "speech-"+video.BVID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	videoPath, err := p.download(ctx, video, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logf("Download failed for %s: %v\n", video.BVID, err)
		return nil, nil
	}

	audioPath, err := p.extractAudio(ctx, videoPath, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logf("Audio extraction failed for %s: %v\n", video.BVID, err)
		return nil, nil
	}

	transcript, err := p.recognizer.RecognizeFile(ctx, audioPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logf("Speech recognition failed for %s: %v\n", video.BVID, err)
		return nil, nil
	}
	if transcript == nil {
		transcript = []string{}
	}
	return transcript, nil
}

// download fetches the video and returns the downloaded file path after
// checking it is plausibly complete.
func (p *SpeechPipeline) download(ctx context.Context, video *VideoRecord, dir string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	videoURL := "https://www.bilibili.com/video/" + video.BVID
	p.logf("Downloading %s for speech fallback...\n", video.BVID)
	if err := p.runner.Run(runCtx, p.downloader, downloadArgs(videoURL, dir, video.BVID)...); err != nil {
		return "", err
	}

	path, err := newestVideoFile(dir)
	if err != nil {
		return "", err
	}
	if err := checkArtifactSize(path); err != nil {
		return "", err
	}
	return path, nil
}

// extractAudio transcodes the video into an MP3 file next to it.
func (p *SpeechPipeline) extractAudio(ctx context.Context, videoPath, dir string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	audioPath := filepath.Join(dir, strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))+".mp3")
	if err := p.runner.Run(runCtx, p.encoder, encodeArgs(videoPath, audioPath)...); err != nil {
		return "", err
	}
	if err := checkArtifactSize(audioPath); err != nil {
		return "", err
	}
	return audioPath, nil
}

// newestVideoFile returns the most recently modified video container in dir.
// Download tools pick their own extension, so we match the usual set.
func newestVideoFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading download dir: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp4", ".flv", ".mkv", ".webm":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", errors.New("no video file produced by download")
	}
	return newest, nil
}

// checkArtifactSize rejects files too small to be real media.
func checkArtifactSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking artifact: %w", err)
	}
	if info.Size() < minArtifactSize {
		return fmt.Errorf("artifact %s is %d bytes, below the %d byte minimum", filepath.Base(path), info.Size(), minArtifactSize)
	}
	return nil
}

func (p *SpeechPipeline) logf(format string, args ...any) {
	if p.verbose {
		fmt.Printf(format, args...)
	}
}
