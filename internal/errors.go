package internal

import (
	"errors"
	"fmt"
)

// ErrInsufficientContent is terminal for a video: the selected scenario was
// assembled but yielded no usable text. The caller skips artifact generation
// entirely; this is an expected outcome, not a bug.
var ErrInsufficientContent = errors.New("no usable content for selected scenario")

// RemoteAPIError is a structured failure returned by the upstream platform
// or the speech-recognition service (non-zero status in the response body).
// It is never retried automatically by the client.
type RemoteAPIError struct {
	Code    int
	Message string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Code, e.Message)
}

// TransportError is a connection or timeout failure talking to the upstream
// or the speech-recognition service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToolInvocationError is an external downloader/encoder run that exited
// non-zero, timed out, or produced an undersized artifact.
type ToolInvocationError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolInvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }
