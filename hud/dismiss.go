package hud

import (
	"strings"
	"time"
)

// Policy decides how long a transient result stays on screen. Longer
// results stay visible longer, bounded both ends so the HUD never
// flashes imperceptibly nor lingers indefinitely.
type Policy struct {
	CharsPerSec float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	ErrDelay    time.Duration
}

// DefaultPolicy matches a comfortable reading speed.
var DefaultPolicy = Policy{
	CharsPerSec: 15,
	MinDelay:    1500 * time.Millisecond,
	MaxDelay:    4 * time.Second,
	ErrDelay:    4 * time.Second,
}

// SuccessDelay maps result length to a display duration. Empty or
// whitespace-only text yields the minimum.
func (p Policy) SuccessDelay(text string) time.Duration {
	n := len(strings.TrimSpace(text))
	if n == 0 {
		return p.MinDelay
	}
	d := time.Duration(float64(n) / p.CharsPerSec * float64(time.Second))
	if d < p.MinDelay {
		return p.MinDelay
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) ErrorDelay() time.Duration {
	return p.ErrDelay
}
