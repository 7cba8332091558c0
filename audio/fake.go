package audio

import "sync"

// FakeCapture is a test double; PCM is pushed in with Feed.
type FakeCapture struct {
	StartErr error

	mu      sync.Mutex
	cb      DataCallback
	started bool
}

func NewFakeCapture() *FakeCapture {
	return &FakeCapture{}
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Feed delivers PCM to the registered callback as one capture frame.
func (f *FakeCapture) Feed(pcm []byte) {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if cb != nil && started {
		cb(pcm, uint32(len(pcm)/2))
	}
}
