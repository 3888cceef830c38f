package repository

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRemote            = errors.New("remote error")
	ErrTransport         = errors.New("transport error")
	ErrTimedOut          = errors.New("timed out")
	ErrJobFailed         = errors.New("job failed")
)

// InputError reports a form field that could not be turned into a request.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// MalformedResponseError is returned when an upstream body is not valid JSON.
// Body keeps the raw bytes; Summary is a short human hint such as an HTML page title.
type MalformedResponseError struct {
	URL        string
	StatusCode int
	Body       []byte
	Summary    string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("invalid JSON response from %s (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	if e.Summary != "" {
		msg += fmt.Sprintf(" [%s]", e.Summary)
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// RemoteError is a non-2xx upstream answer that carried a JSON body.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// ReasonMessage is the fallback message used when the body names no error.
func ReasonMessage(code int) string {
	return fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
}

// TransportError means the upstream could not be reached at all.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: cannot connect to %s, make sure the server is running: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// JobFailedError is a job the upstream reported as failed.
type JobFailedError struct {
	JobID   string
	Message string
	Raw     []byte
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.JobID, e.Message)
}

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// TimeoutError is a job still pending after the last allowed attempt.
type TimeoutError struct {
	JobID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s did not complete within %d attempts", e.JobID, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimedOut }
