package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"vox/audio"
	"vox/hud"
	"vox/log"
	"vox/transcriber"
)

// KeySource delivers push-to-talk key transitions.
type KeySource interface {
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// AudioRecorder captures one recording at a time into a WAV artifact.
type AudioRecorder interface {
	RequestPermission() bool
	Start(onSample audio.MeterFunc) error
	Stop() (path string, recorded time.Duration, err error)
}

// Pipeline converts a recorded artifact into text (see
// transcriber.Pipeline).
type Pipeline interface {
	Transcribe(ctx context.Context, path string, recordedSeconds float64, onDelta transcriber.DeltaFunc) (string, error)
	KeepWarm()
}

type Clipboard interface {
	Copy(text string) error
	Paste() error
}

type Config struct {
	Detector    DetectorConfig
	AutoStop    bool
	MinDuration time.Duration
	MaxDuration time.Duration
	AutoPaste   bool
	PasteGap    time.Duration // delay between clipboard copy and paste
	Dismiss     hud.Policy
}

var DefaultConfig = Config{
	Detector:    DefaultDetectorConfig,
	AutoStop:    true,
	MinDuration: 300 * time.Millisecond,
	MaxDuration: 60 * time.Second,
	AutoPaste:   true,
	PasteGap:    120 * time.Millisecond,
	Dismiss:     hud.DefaultPolicy,
}

// User-facing hints; raw error text never reaches the HUD.
const (
	hintNetwork  = "network issue, check your connection and try again"
	hintNoSpeech = "no speech detected"
	hintGeneric  = "transcription failed, try again"
)

type result struct {
	gen  int
	text string
	err  error
}

type preview struct {
	gen  int
	text string
}

// Controller is the top-level phase state machine. All phase and
// session mutations happen on the Run goroutine; meter samples and
// transcription results are marshaled onto it via channels. The only
// suspending operations (remote call, backoff waits) run on a worker
// goroutine under a cancellable context.
type Controller struct {
	keys      KeySource
	rec       AudioRecorder
	pipeline  Pipeline
	presenter hud.Presenter
	clip      Clipboard
	cfg       Config

	sess      *Session
	phase     Phase
	observers []func(Phase)

	ctx          context.Context
	samples      chan audio.MeterSample
	results      chan result
	previews     chan preview
	maxTimer     *time.Timer
	dismissTimer *time.Timer

	gen    int // increments whenever an outstanding transcription is superseded
	cancel context.CancelFunc

	sleep func(time.Duration) // paste gap; swapped in tests
}

func NewController(keys KeySource, rec AudioRecorder, pipeline Pipeline, presenter hud.Presenter, clip Clipboard, cfg Config) *Controller {
	c := &Controller{
		keys:      keys,
		rec:       rec,
		pipeline:  pipeline,
		presenter: presenter,
		clip:      clip,
		cfg:       cfg,
		sess:      NewSession(nil),
		samples:   make(chan audio.MeterSample, 64),
		results:   make(chan result, 4),
		previews:  make(chan preview, 16),
		sleep:     time.Sleep,
	}
	c.maxTimer = newStoppedTimer()
	c.dismissTimer = newStoppedTimer()
	return c
}

// Observe registers a phase observer. Must be called before Run;
// observers fire on the run goroutine for every transition.
func (c *Controller) Observe(fn func(Phase)) {
	c.observers = append(c.observers, fn)
}

func (c *Controller) Phase() Phase { return c.phase }

// Run processes events until ctx is cancelled. It is the single owner
// of all session state.
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			if c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
			return
		case <-c.keys.Keydown():
			c.handleKeydown()
		case <-c.keys.Keyup():
			c.handleKeyup()
		case s := <-c.samples:
			c.handleSample(s)
		case <-c.maxTimer.C:
			c.handleMaxDuration()
		case p := <-c.previews:
			if p.gen == c.gen && c.phase == PhaseTranscribing {
				c.presenter.UpdateTranscribingPreview(p.text)
			}
		case r := <-c.results:
			c.handleResult(r)
		case <-c.dismissTimer.C:
			c.presenter.Dismiss()
		}
	}
}

func (c *Controller) handleKeydown() {
	switch c.phase {
	case PhaseListening:
		return
	case PhaseTranscribing:
		// A new push-to-talk supersedes the outstanding transcription:
		// cancel it, drop its eventual result, clear the HUD, go idle.
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.gen++
		stopTimer(c.dismissTimer)
		c.presenter.Dismiss()
		c.setPhase(PhaseIdle)
		return
	}

	if !c.rec.RequestPermission() {
		log.Warn("microphone permission denied")
		return
	}

	c.sess.Begin()
	err := c.rec.Start(func(s audio.MeterSample) {
		// Audio producer context: hand off to the run goroutine. Drop
		// when the loop is behind; meter samples are disposable.
		select {
		case c.samples <- s:
		default:
		}
	})
	if err != nil {
		log.Errorf("start recording: %v", err)
		return
	}

	c.pipeline.KeepWarm()
	stopTimer(c.dismissTimer)
	c.presenter.ShowListening()
	c.setPhase(PhaseListening)
	resetTimer(c.maxTimer, c.cfg.MaxDuration)
	log.Info("recording_start")
}

func (c *Controller) handleKeyup() {
	if c.phase != PhaseListening {
		return
	}
	if !c.sess.BeginStop(TriggerManualRelease) {
		return
	}
	c.stopAndTranscribe(TriggerManualRelease)
}

func (c *Controller) handleSample(s audio.MeterSample) {
	if c.phase != PhaseListening {
		return
	}
	d := c.sess.EvaluateAutoStop(s, c.cfg.AutoStop, c.cfg.Detector)
	if d.ShouldAutoStop && c.sess.BeginStop(TriggerAutoSilence) {
		c.stopAndTranscribe(TriggerAutoSilence)
	}
}

func (c *Controller) handleMaxDuration() {
	if c.phase != PhaseListening {
		return
	}
	if !c.sess.BeginStop(TriggerMaxDuration) {
		return
	}
	c.stopAndTranscribe(TriggerMaxDuration)
}

func (c *Controller) stopAndTranscribe(trigger Trigger) {
	stopTimer(c.maxTimer)

	path, recorded, err := c.rec.Stop()
	if err != nil {
		log.Errorf("stop recording: %v", err)
		c.presenter.Dismiss()
		c.setPhase(PhaseIdle)
		return
	}

	if recorded < c.cfg.MinDuration {
		// Too short to mean anything: discard silently, no error path.
		os.Remove(path)
		c.sess.AbortStop()
		c.presenter.Dismiss()
		c.setPhase(PhaseIdle)
		return
	}

	log.Info("recording_stop: " + trigger.String())
	c.presenter.ShowTranscribing()
	c.setPhase(PhaseTranscribing)

	c.gen++
	gen := c.gen
	cctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel

	go func() {
		var acc strings.Builder
		text, err := c.pipeline.Transcribe(cctx, path, recorded.Seconds(), func(delta string) {
			acc.WriteString(delta)
			select {
			case c.previews <- preview{gen: gen, text: acc.String()}:
			default:
			}
		})
		select {
		case c.results <- result{gen: gen, text: text, err: err}:
		case <-c.ctx.Done():
		}
	}()
}

func (c *Controller) handleResult(r result) {
	if r.gen != c.gen {
		return // superseded session; artifact cleanup already happened
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if r.err != nil {
		if errors.Is(r.err, context.Canceled) {
			c.setPhase(PhaseIdle)
			return
		}
		log.Errorf("transcription failed: %v", r.err)
		c.presenter.ShowError(errorHint(r.err))
		resetTimer(c.dismissTimer, c.cfg.Dismiss.ErrorDelay())
		c.setPhase(PhaseIdle)
		return
	}

	text := strings.TrimSpace(r.text)
	if text == "" {
		c.presenter.ShowError(hintNoSpeech)
		resetTimer(c.dismissTimer, c.cfg.Dismiss.ErrorDelay())
		c.setPhase(PhaseIdle)
		return
	}

	copyErr := c.clip.Copy(text)
	if copyErr != nil {
		log.Warnf("clipboard copy failed: %v", copyErr)
	}
	if c.cfg.AutoPaste && copyErr == nil {
		gap := c.cfg.PasteGap
		go func() {
			// The copy above is already committed; the gap keeps slow
			// clipboard managers from pasting stale content.
			c.sleep(gap)
			if err := c.clip.Paste(); err != nil {
				log.Warnf("auto-paste failed: %v", err)
			}
		}()
	}

	log.TranscriptionText(text)
	c.presenter.ShowSuccess(text)
	resetTimer(c.dismissTimer, c.cfg.Dismiss.SuccessDelay(text))
	c.setPhase(PhaseIdle)
}

func (c *Controller) setPhase(p Phase) {
	if c.phase == p {
		return
	}
	c.phase = p
	for _, fn := range c.observers {
		fn(p)
	}
}

func errorHint(err error) string {
	var ee *transcriber.ExecError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case transcriber.ErrNetwork, transcriber.ErrTimeout:
			return hintNetwork
		case transcriber.ErrFileNotReady:
			return hintNoSpeech
		}
	}
	return hintGeneric
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
