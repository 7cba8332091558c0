package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vox/audio"
	"vox/hud"
	"vox/transcriber"
)

type fakeKeys struct {
	down chan struct{}
	up   chan struct{}
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{down: make(chan struct{}), up: make(chan struct{})}
}

func (k *fakeKeys) Keydown() <-chan struct{} { return k.down }
func (k *fakeKeys) Keyup() <-chan struct{}   { return k.up }

func (k *fakeKeys) press(t *testing.T) {
	t.Helper()
	select {
	case k.down <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("controller never consumed keydown")
	}
}

func (k *fakeKeys) release(t *testing.T) {
	t.Helper()
	select {
	case k.up <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("controller never consumed keyup")
	}
}

type fakeRec struct {
	mu       sync.Mutex
	denied   bool
	startErr error
	stopErr  error
	recorded time.Duration
	dir      string
	path     string
	onSample audio.MeterFunc
}

func (r *fakeRec) RequestPermission() bool { return !r.denied }

func (r *fakeRec) Start(onSample audio.MeterFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.onSample = onSample
	return nil
}

func (r *fakeRec) Stop() (string, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSample = nil
	if r.stopErr != nil {
		return "", 0, r.stopErr
	}
	r.path = filepath.Join(r.dir, "rec.wav")
	if err := os.WriteFile(r.path, []byte("RIFF"), 0o600); err != nil {
		return "", 0, err
	}
	return r.path, r.recorded, nil
}

func (r *fakeRec) feed(db float64) {
	r.mu.Lock()
	fn := r.onSample
	r.mu.Unlock()
	if fn != nil {
		fn(audio.MeterSample{DB: db, FrameDur: 20 * time.Millisecond})
	}
}

type fakePipe struct {
	mu        sync.Mutex
	text      string
	err       error
	deltas    []string
	block     chan struct{} // when set, Transcribe waits on it
	ignoreCtx bool          // keep waiting on block even after cancel
	calls     int
	warmed    int
}

func (p *fakePipe) KeepWarm() {
	p.mu.Lock()
	p.warmed++
	p.mu.Unlock()
}

func (p *fakePipe) Transcribe(ctx context.Context, path string, recordedSeconds float64, onDelta transcriber.DeltaFunc) (string, error) {
	p.mu.Lock()
	p.calls++
	text, err := p.text, p.err
	deltas, block, ignoreCtx := p.deltas, p.block, p.ignoreCtx
	p.mu.Unlock()

	for _, d := range deltas {
		if onDelta != nil {
			onDelta(d)
		}
	}
	if block != nil {
		if ignoreCtx {
			<-block
		} else {
			select {
			case <-block:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return text, err
}

func (p *fakePipe) stats() (calls, warmed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.warmed
}

type fakeClip struct {
	mu      sync.Mutex
	copied  []string
	pasted  int
	pasteCh chan struct{}
}

func (c *fakeClip) Copy(text string) error {
	c.mu.Lock()
	c.copied = append(c.copied, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeClip) Paste() error {
	c.mu.Lock()
	c.pasted++
	ch := c.pasteCh
	c.mu.Unlock()
	if ch != nil {
		ch <- struct{}{}
	}
	return nil
}

type harness struct {
	t      *testing.T
	keys   *fakeKeys
	rec    *fakeRec
	pipe   *fakePipe
	pres   *hud.FakePresenter
	clip   *fakeClip
	ctrl   *Controller
	phases chan Phase
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		keys:   newFakeKeys(),
		rec:    &fakeRec{recorded: time.Second, dir: t.TempDir()},
		pipe:   &fakePipe{text: "hello world"},
		pres:   &hud.FakePresenter{},
		clip:   &fakeClip{},
		phases: make(chan Phase, 64),
	}
	h.ctrl = NewController(h.keys, h.rec, h.pipe, h.pres, h.clip, cfg)
	h.ctrl.Observe(func(p Phase) { h.phases <- p })
	return h
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.t.Cleanup(cancel)
	go h.ctrl.Run(ctx)
}

// waitPhase asserts the next observed transition. Using the strict next
// transition keeps phase adjacency under test as well.
func (h *harness) waitPhase(want Phase) {
	h.t.Helper()
	select {
	case p := <-h.phases:
		if p != want {
			h.t.Fatalf("next phase = %v, want %v", p, want)
		}
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for phase %v", want)
	}
}

func (h *harness) waitNoPhase() {
	h.t.Helper()
	select {
	case p := <-h.phases:
		h.t.Fatalf("unexpected phase transition to %v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func testConfig() Config {
	cfg := DefaultConfig
	cfg.AutoStop = false
	cfg.AutoPaste = false
	cfg.MinDuration = 300 * time.Millisecond
	return cfg
}

func TestManualFlow(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseTranscribing)
	h.waitPhase(PhaseIdle)

	listening, transcribe, _, errs, successes := h.pres.Snapshot()
	if listening != 1 || transcribe != 1 {
		t.Fatalf("listening=%d transcribe=%d, want 1/1", listening, transcribe)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(successes) != 1 || successes[0] != "hello world" {
		t.Fatalf("successes = %v, want [hello world]", successes)
	}

	h.clip.mu.Lock()
	copied := append([]string(nil), h.clip.copied...)
	pasted := h.clip.pasted
	h.clip.mu.Unlock()
	if len(copied) != 1 || copied[0] != "hello world" {
		t.Fatalf("copied = %v, want [hello world]", copied)
	}
	if pasted != 0 {
		t.Fatalf("pasted = %d, want 0 with auto-paste off", pasted)
	}

	if _, warmed := h.pipe.stats(); warmed != 1 {
		t.Fatalf("warmed = %d, want 1", warmed)
	}
}

func TestPreviewReachesPresenter(t *testing.T) {
	h := newHarness(t, testConfig())
	h.pipe.deltas = []string{"Hello", " world"}
	h.pipe.text = "Hello world"
	h.pipe.block = make(chan struct{})
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseTranscribing)

	deadline := time.Now().Add(2 * time.Second)
	for {
		previews := h.pres.PreviewTexts()
		if len(previews) > 0 {
			last := previews[len(previews)-1]
			if last != "Hello" && last != "Hello world" {
				t.Fatalf("preview = %q, want accumulated text", last)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no preview reached the presenter")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(h.pipe.block)
	h.waitPhase(PhaseIdle)
}

func TestShortRecordingDiscarded(t *testing.T) {
	h := newHarness(t, testConfig())
	h.rec.recorded = 100 * time.Millisecond
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseIdle) // straight to idle, no transcribing

	_, _, dismissals, errs, successes := h.pres.Snapshot()
	if dismissals != 1 {
		t.Fatalf("dismissals = %d, want exactly 1", dismissals)
	}
	if len(errs) != 0 || len(successes) != 0 {
		t.Fatalf("errors=%v successes=%v, want none", errs, successes)
	}
	if calls, _ := h.pipe.stats(); calls != 0 {
		t.Fatalf("pipeline calls = %d, want 0", calls)
	}
	if _, err := os.Stat(h.rec.path); !os.IsNotExist(err) {
		t.Fatalf("artifact %s should be removed", h.rec.path)
	}
}

func TestKeydownSupersedesTranscription(t *testing.T) {
	h := newHarness(t, testConfig())
	h.pipe.text = "late"
	h.pipe.block = make(chan struct{})
	h.pipe.ignoreCtx = true
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseTranscribing)

	// New push-to-talk while the result is outstanding.
	h.keys.press(t)
	h.waitPhase(PhaseIdle)

	_, _, dismissals, errs, _ := h.pres.Snapshot()
	if dismissals != 1 {
		t.Fatalf("dismissals = %d, want exactly 1", dismissals)
	}
	if len(errs) != 0 {
		t.Fatalf("errors = %v, want none", errs)
	}

	// The stale result must have no effect once it arrives.
	close(h.pipe.block)
	time.Sleep(100 * time.Millisecond)
	_, _, _, errs, successes := h.pres.Snapshot()
	if len(errs) != 0 || len(successes) != 0 {
		t.Fatalf("stale result leaked: errors=%v successes=%v", errs, successes)
	}

	// A fresh session still works end to end.
	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseTranscribing)
	h.waitPhase(PhaseIdle)
	_, _, _, _, successes = h.pres.Snapshot()
	if len(successes) != 1 || successes[0] != "late" {
		t.Fatalf("successes = %v, want [late]", successes)
	}
}

func TestErrorHints(t *testing.T) {
	cases := []struct {
		name string
		err  error
		text string
		want string
	}{
		{"network", &transcriber.ExecError{Kind: transcriber.ErrNetwork, Reason: "dial tcp"}, "", hintNetwork},
		{"timeout", &transcriber.ExecError{Kind: transcriber.ErrTimeout, Reason: "deadline"}, "", hintNetwork},
		{"server", &transcriber.ExecError{Kind: transcriber.ErrServer, Status: 500}, "", hintGeneric},
		{"unknown", errors.New("boom"), "", hintGeneric},
		{"empty text", nil, "   ", hintNoSpeech},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			h.pipe.err = tc.err
			h.pipe.text = tc.text
			h.start()

			h.keys.press(t)
			h.waitPhase(PhaseListening)
			h.keys.release(t)
			h.waitPhase(PhaseTranscribing)
			h.waitPhase(PhaseIdle)

			_, _, _, errs, successes := h.pres.Snapshot()
			if len(successes) != 0 {
				t.Fatalf("successes = %v, want none", successes)
			}
			if len(errs) != 1 || errs[0] != tc.want {
				t.Fatalf("errors = %v, want [%s]", errs, tc.want)
			}
		})
	}
}

func TestAutoPasteAfterGap(t *testing.T) {
	cfg := testConfig()
	cfg.AutoPaste = true
	cfg.PasteGap = 120 * time.Millisecond

	h := newHarness(t, cfg)
	h.clip.pasteCh = make(chan struct{}, 1)
	gapCh := make(chan time.Duration, 1)
	h.ctrl.sleep = func(d time.Duration) { gapCh <- d }
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseTranscribing)
	h.waitPhase(PhaseIdle)

	select {
	case gap := <-gapCh:
		if gap < cfg.PasteGap {
			t.Fatalf("paste gap = %v, want >= %v", gap, cfg.PasteGap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("paste gap wait never happened")
	}
	select {
	case <-h.clip.pasteCh:
	case <-time.After(2 * time.Second):
		t.Fatal("paste never happened")
	}

	h.clip.mu.Lock()
	copied, pasted := len(h.clip.copied), h.clip.pasted
	h.clip.mu.Unlock()
	if copied != 1 || pasted != 1 {
		t.Fatalf("copied=%d pasted=%d, want 1/1", copied, pasted)
	}
}

func TestAutoSilenceStops(t *testing.T) {
	cfg := testConfig()
	cfg.AutoStop = true
	cfg.Detector = DetectorConfig{
		SilenceThresholdDB: -40,
		SilenceDuration:    50 * time.Millisecond,
		StartGuard:         0,
		RequireSpeechFirst: false,
		EMAAlpha:           1.0,
	}

	h := newHarness(t, cfg)
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)

	h.rec.feed(-60)
	time.Sleep(80 * time.Millisecond)
	h.rec.feed(-60)

	h.waitPhase(PhaseTranscribing)
	h.waitPhase(PhaseIdle)

	_, _, _, _, successes := h.pres.Snapshot()
	if len(successes) != 1 {
		t.Fatalf("successes = %v, want one", successes)
	}
}

func TestMaxDurationStops(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 50 * time.Millisecond

	h := newHarness(t, cfg)
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.waitPhase(PhaseTranscribing) // timer fired, no keyup
	h.waitPhase(PhaseIdle)
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t, testConfig())
	h.rec.denied = true
	h.start()

	h.keys.press(t)
	h.waitNoPhase()
	if calls, warmed := h.pipe.stats(); calls != 0 || warmed != 0 {
		t.Fatalf("calls=%d warmed=%d, want 0/0", calls, warmed)
	}
}

func TestKeyupWhileIdleIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start()

	h.keys.release(t)
	h.waitNoPhase()
}

func TestStopErrorGoesIdle(t *testing.T) {
	h := newHarness(t, testConfig())
	h.rec.stopErr = errors.New("device vanished")
	h.start()

	h.keys.press(t)
	h.waitPhase(PhaseListening)
	h.keys.release(t)
	h.waitPhase(PhaseIdle)

	_, _, dismissals, errs, _ := h.pres.Snapshot()
	if dismissals != 1 {
		t.Fatalf("dismissals = %d, want 1", dismissals)
	}
	if len(errs) != 0 {
		t.Fatalf("errors = %v, want none", errs)
	}
	if calls, _ := h.pipe.stats(); calls != 0 {
		t.Fatalf("pipeline calls = %d, want 0", calls)
	}
}
