package session

import (
	"sync/atomic"
	"time"

	"vox/audio"
)

// DetectorConfig tunes the silence auto-stop detector. Immutable per
// session, supplied at session start.
type DetectorConfig struct {
	SilenceThresholdDB float64
	SilenceDuration    time.Duration
	StartGuard         time.Duration
	RequireSpeechFirst bool
	SpeechActivateDB   float64
	EMAAlpha           float64 // in (0,1]
}

// DefaultDetectorConfig works well for dictation at 16 kHz.
var DefaultDetectorConfig = DetectorConfig{
	SilenceThresholdDB: -40,
	SilenceDuration:    1200 * time.Millisecond,
	StartGuard:         800 * time.Millisecond,
	RequireSpeechFirst: true,
	SpeechActivateDB:   -30,
	EMAAlpha:           0.3,
}

// DecisionDebug exposes detector internals for introspection. Populated
// on every evaluation while auto-stop is enabled.
type DecisionDebug struct {
	Elapsed            time.Duration // since session start, never negative
	SmoothedDB         float64
	ConsecutiveSilence time.Duration
}

type Decision struct {
	ShouldAutoStop bool
	Debug          *DecisionDebug
}

// Session owns one recording session's lifecycle: the one-shot stop
// gate and the auto-stop detector state. Begin resets everything, so a
// superseded session can never leak state into the next one.
//
// Begin and EvaluateAutoStop must be called from a single owner
// goroutine. BeginStop and AbortStop may race from concurrent stop
// triggers; the gate arbitrates.
type Session struct {
	now func() time.Duration // monotonic-ish uptime source

	stopEngaged atomic.Bool

	start        time.Duration
	lastNow      int64 // atomic, nanoseconds; shared with producer-context readers
	smoothed     float64
	haveSample   bool
	spoke        bool
	inSilence    bool
	silenceStart time.Duration
}

// NewSession takes an uptime source. The source may be called from any
// context and need not be monotonic; readings are clamped so elapsed
// time never decreases. nil selects the wall clock anchored at process
// start.
func NewSession(now func() time.Duration) *Session {
	if now == nil {
		base := time.Now()
		now = func() time.Duration { return time.Since(base) }
	}
	return &Session{now: now}
}

// uptime returns a clamped reading: a backward-jumping clock yields the
// last non-decreasing value instead of a negative delta.
func (s *Session) uptime() time.Duration {
	n := int64(s.now())
	for {
		last := atomic.LoadInt64(&s.lastNow)
		if n < last {
			return time.Duration(last)
		}
		if atomic.CompareAndSwapInt64(&s.lastNow, last, n) {
			return time.Duration(n)
		}
	}
}

// Begin resets all session state and re-arms the stop gate. Call exactly
// once per physical recording.
func (s *Session) Begin() {
	s.start = s.uptime()
	s.smoothed = 0
	s.haveSample = false
	s.spoke = false
	s.inSilence = false
	s.silenceStart = 0
	s.stopEngaged.Store(false)
}

// BeginStop engages the one-shot stop gate and reports whether this
// call won the race. At most one stop path executes per session even if
// manual release and auto-silence fire concurrently.
func (s *Session) BeginStop(Trigger) bool {
	return s.stopEngaged.CompareAndSwap(false, true)
}

// AbortStop re-arms the gate after a provisional stop was rolled back;
// a subsequent BeginStop may succeed again.
func (s *Session) AbortStop() {
	s.stopEngaged.Store(false)
}

// Elapsed is the clamped time since Begin.
func (s *Session) Elapsed() time.Duration {
	return s.uptime() - s.start
}

// EvaluateAutoStop processes one meter sample. Called once per audio
// frame while listening. It smooths loudness with an EMA, ignores the
// start guard window, optionally waits for speech before arming, then
// tracks contiguous time below the silence threshold and signals on the
// first frame that reaches SilenceDuration.
func (s *Session) EvaluateAutoStop(sample audio.MeterSample, enabled bool, cfg DetectorConfig) Decision {
	if !enabled {
		return Decision{}
	}

	now := s.uptime()
	elapsed := now - s.start

	if s.haveSample {
		s.smoothed = cfg.EMAAlpha*sample.DB + (1-cfg.EMAAlpha)*s.smoothed
	} else {
		s.smoothed = sample.DB
		s.haveSample = true
	}

	debug := &DecisionDebug{Elapsed: elapsed, SmoothedDB: s.smoothed}

	if elapsed < cfg.StartGuard {
		return Decision{Debug: debug}
	}

	if cfg.RequireSpeechFirst && !s.spoke {
		if s.smoothed > cfg.SpeechActivateDB {
			s.spoke = true
		} else {
			return Decision{Debug: debug}
		}
	}

	if s.smoothed < cfg.SilenceThresholdDB {
		if !s.inSilence {
			s.inSilence = true
			s.silenceStart = now
		}
		debug.ConsecutiveSilence = now - s.silenceStart
		if debug.ConsecutiveSilence >= cfg.SilenceDuration {
			return Decision{ShouldAutoStop: true, Debug: debug}
		}
	} else {
		s.inSilence = false
	}
	return Decision{Debug: debug}
}
