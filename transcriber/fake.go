package transcriber

import (
	"context"
	"sync"
	"time"
)

// FakeResult scripts the outcome of one FakeRemote attempt.
type FakeResult struct {
	Text string
	Err  error
}

// FakeRemote returns scripted results per attempt; the last result
// repeats once the script is exhausted.
type FakeRemote struct {
	Results []FakeResult
	Deltas  []string      // delivered before each result
	Delay   time.Duration // per-call latency, cancellable

	mu     sync.Mutex
	calls  int
	warmed int
}

func (f *FakeRemote) Name() string { return "fake" }

func (f *FakeRemote) KeepWarm() {
	f.mu.Lock()
	f.warmed++
	f.mu.Unlock()
}

func (f *FakeRemote) Transcribe(ctx context.Context, path string, opts Options, apiKey string, onDelta DeltaFunc) (string, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.mu.Unlock()

	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if onDelta != nil {
		for _, d := range f.Deltas {
			onDelta(d)
		}
	}

	if len(f.Results) == 0 {
		return "", nil
	}
	if n >= len(f.Results) {
		n = len(f.Results) - 1
	}
	return f.Results[n].Text, f.Results[n].Err
}

func (f *FakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeRemote) Warmed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warmed
}
