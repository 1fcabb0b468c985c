package internal

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = ASRCredentials{
	AppID:     "1250000000",
	SecretID:  "test-secret-id",
	SecretKey: "test-secret-key",
}

func TestASRCredentialsConfigured(t *testing.T) {
	assert.True(t, testCreds.Configured())
	assert.False(t, ASRCredentials{}.Configured())
	assert.False(t, ASRCredentials{AppID: "1", SecretID: "2"}.Configured())
}

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0o644))
	return path
}

func newTestRecognizer(t *testing.T, handler http.HandlerFunc) *FlashRecognizer {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	return NewFlashRecognizer(testCreds,
		WithASRHost(server.Listener.Addr().String()),
		WithASRHTTPClient(server.Client()),
		WithASRClock(func() time.Time { return time.Unix(1756339200, 0) }),
	)
}

func TestRecognizeFileRequestShape(t *testing.T) {
	var gotQuery, gotAuth, gotPath string
	var gotBody []byte

	rec := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"code":0,"message":"success","flash_result":[{"text":"今天的新闻"}]}`)
	})

	transcript, err := rec.RecognizeFile(context.Background(), writeTestAudio(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"今天的新闻"}, transcript)

	assert.Equal(t, "/asr/flash/v1/1250000000", gotPath)
	assert.Equal(t, []byte("fake mp3 bytes"), gotBody)

	// Sorted query with filtering off and numeral normalization on
	wantQuery := "convert_num_mode=1&engine_type=16k_zh&filter_dirty=0&filter_modal=0" +
		"&filter_punc=0&secretid=test-secret-id&timestamp=1756339200&voice_format=mp3&word_info=0"
	assert.Equal(t, wantQuery, gotQuery)

	// Authorization is HMAC-SHA1 over "POST" + host + path + "?" + query
	mac := hmac.New(sha1.New, []byte(testCreds.SecretKey))
	mac.Write([]byte("POST" + rec.host + gotPath + "?" + wantQuery))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), gotAuth)
}

func TestRecognizeFileRemoteError(t *testing.T) {
	rec := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":4008,"message":"audio decode failed"}`)
	})

	_, err := rec.RecognizeFile(context.Background(), writeTestAudio(t))
	require.Error(t, err)

	var apiErr *RemoteAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 4008, apiErr.Code)
}

func TestRecognizeFileEmptyResultIsValid(t *testing.T) {
	rec := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"message":"success","flash_result":[{"text":""}]}`)
	})

	transcript, err := rec.RecognizeFile(context.Background(), writeTestAudio(t))
	require.NoError(t, err)
	assert.NotNil(t, transcript)
	assert.Empty(t, transcript)
}

func TestRecognizeFileMissingAudio(t *testing.T) {
	rec := NewFlashRecognizer(testCreds)
	_, err := rec.RecognizeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
