package internal

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultASRHost = "asr.cloud.tencent.com"

// ASRCredentials holds the cloud speech recognition account. All three
// fields must be set for the speech fallback to be available.
type ASRCredentials struct {
	AppID     string
	SecretID  string
	SecretKey string
}

// Configured reports whether every credential field is present.
func (c ASRCredentials) Configured() bool {
	return c.AppID != "" && c.SecretID != "" && c.SecretKey != ""
}

// FlashRecognizer submits audio to the flash recognition endpoint in a
// single synchronous request. The request is authenticated by signing the
// canonical request string with HMAC-SHA1 over the secret key.
type FlashRecognizer struct {
	creds ASRCredentials
	host  string
	http  *http.Client
	now   func() time.Time
}

// FlashOption customizes recognizer creation.
type FlashOption func(*FlashRecognizer)

// WithASRHost points the recognizer at a different host (tests).
func WithASRHost(host string) FlashOption {
	return func(r *FlashRecognizer) { r.host = host }
}

// WithASRHTTPClient replaces the underlying HTTP client.
func WithASRHTTPClient(hc *http.Client) FlashOption {
	return func(r *FlashRecognizer) { r.http = hc }
}

// WithASRClock replaces the timestamp clock (tests).
func WithASRClock(now func() time.Time) FlashOption {
	return func(r *FlashRecognizer) { r.now = now }
}

// NewFlashRecognizer creates a recognizer for the given credentials.
func NewFlashRecognizer(creds ASRCredentials, options ...FlashOption) *FlashRecognizer {
	r := &FlashRecognizer{
		creds: creds,
		host:  defaultASRHost,
		http:  &http.Client{Timeout: 120 * time.Second},
		now:   time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// requestQuery builds the sorted query string. Filtering is disabled so the
// transcript stays faithful to the audio; numerals are normalized to a
// smart mix of digits and words.
func (r *FlashRecognizer) requestQuery() string {
	params := map[string]string{
		"secretid":         r.creds.SecretID,
		"timestamp":        strconv.FormatInt(r.now().Unix(), 10),
		"engine_type":      "16k_zh",
		"voice_format":     "mp3",
		"filter_dirty":     "0",
		"filter_modal":     "0",
		"filter_punc":      "0",
		"convert_num_mode": "1",
		"word_info":        "0",
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}

// sign produces the Authorization header for a signable request string.
func (r *FlashRecognizer) sign(signable string) string {
	mac := hmac.New(sha1.New, []byte(r.creds.SecretKey))
	mac.Write([]byte(signable))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type flashResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	RequestID   string `json:"request_id"`
	FlashResult []struct {
		Text string `json:"text"`
	} `json:"flash_result"`
}

// RecognizeFile reads the audio file and returns one transcript string per
// channel. An empty transcript is a valid result for silent audio.
func (r *FlashRecognizer) RecognizeFile(ctx context.Context, path string) ([]string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	urlPath := "/asr/flash/v1/" + r.creds.AppID
	query := r.requestQuery()
	signable := "POST" + r.host + urlPath + "?" + query

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+r.host+urlPath+"?"+query, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("building recognition request: %w", err)
	}
	req.Header.Set("Authorization", r.sign(signable))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "speech recognition", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read recognition response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteAPIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var result flashResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding recognition response: %w", err)
	}
	if result.Code != 0 {
		return nil, &RemoteAPIError{Code: result.Code, Message: result.Message}
	}

	transcript := make([]string, 0, len(result.FlashResult))
	for _, channel := range result.FlashResult {
		if text := strings.TrimSpace(channel.Text); text != "" {
			transcript = append(transcript, text)
		}
	}
	return transcript, nil
}
