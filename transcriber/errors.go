package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
)

// ErrorKind classifies a failed transcription attempt. The retry policy
// and the user-facing hint both key off it.
type ErrorKind int

const (
	ErrFileNotReady ErrorKind = iota // source artifact missing or empty
	ErrFileTooLarge
	ErrUnauthorized
	ErrNetwork
	ErrTimeout
	ErrServer
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFileNotReady:
		return "file_not_ready"
	case ErrFileTooLarge:
		return "file_too_large"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNetwork:
		return "network"
	case ErrTimeout:
		return "timeout"
	case ErrServer:
		return "server"
	default:
		return "unknown"
	}
}

// ExecError is the terminal error type of the transcription pipeline.
// Status is set only for ErrServer; Reason carries the transport reason
// for ErrNetwork or the server message for ErrServer.
type ExecError struct {
	Kind   ErrorKind
	Status int
	Reason string
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case ErrServer:
		return fmt.Sprintf("transcribe: server error %d: %s", e.Status, e.Reason)
	case ErrNetwork:
		return fmt.Sprintf("transcribe: network error: %s", e.Reason)
	default:
		return "transcribe: " + e.Kind.String()
	}
}

func serverError(status int, message string) *ExecError {
	switch status {
	case 401, 403:
		return &ExecError{Kind: ErrUnauthorized, Status: status}
	case 413:
		return &ExecError{Kind: ErrFileTooLarge, Status: status}
	default:
		return &ExecError{Kind: ErrServer, Status: status, Reason: message}
	}
}

// classifyTransport maps a transport-level failure to timeout or network.
// Context cancellation is passed through untouched so callers can tell
// a user-initiated cancel from a real failure.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &ExecError{Kind: ErrTimeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ExecError{Kind: ErrTimeout}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &ExecError{Kind: ErrTimeout}
		}
		return &ExecError{Kind: ErrNetwork, Reason: urlErr.Err.Error()}
	}
	return &ExecError{Kind: ErrNetwork, Reason: err.Error()}
}
