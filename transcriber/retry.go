package transcriber

import (
	"errors"
	"time"
)

// RetryConfig bounds the attempt loop in Pipeline.Transcribe. The policy
// functions below only classify and compute delays; the caller owns the
// attempt count and the actual waiting.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxAttempts  int
}

// ShouldRetry reports whether a failed attempt is worth repeating.
// Retryable: timeouts, transport errors, 429 and any 5xx. Everything
// else (auth, payload size, remaining 4xx, validation) is terminal.
func ShouldRetry(err error) bool {
	var ee *ExecError
	if !errors.As(err, &ee) {
		return false
	}
	switch ee.Kind {
	case ErrTimeout, ErrNetwork:
		return true
	case ErrServer:
		return ee.Status == 429 || (ee.Status >= 500 && ee.Status <= 599)
	default:
		return false
	}
}

// NextDelay doubles the previous backoff delay. No jitter, no cap.
func NextDelay(previous time.Duration) time.Duration {
	return previous * 2
}
