package hud

import "sync"

// Presenter is the transient status display. Calls are one-way
// notifications; implementations must be safe to call from the session
// owner goroutine and must never block it.
type Presenter interface {
	ShowListening()
	ShowTranscribing()
	UpdateTranscribingPreview(text string)
	ShowSuccess(text string)
	ShowError(reason string)
	Dismiss()
}

// FakePresenter records calls for tests.
type FakePresenter struct {
	mu         sync.Mutex
	Listening  int
	Transcribe int
	Previews   []string
	Successes  []string
	Errors     []string
	Dismissals int
}

func (f *FakePresenter) ShowListening() {
	f.mu.Lock()
	f.Listening++
	f.mu.Unlock()
}

func (f *FakePresenter) ShowTranscribing() {
	f.mu.Lock()
	f.Transcribe++
	f.mu.Unlock()
}

func (f *FakePresenter) UpdateTranscribingPreview(text string) {
	f.mu.Lock()
	f.Previews = append(f.Previews, text)
	f.mu.Unlock()
}

func (f *FakePresenter) ShowSuccess(text string) {
	f.mu.Lock()
	f.Successes = append(f.Successes, text)
	f.mu.Unlock()
}

func (f *FakePresenter) ShowError(reason string) {
	f.mu.Lock()
	f.Errors = append(f.Errors, reason)
	f.mu.Unlock()
}

func (f *FakePresenter) Dismiss() {
	f.mu.Lock()
	f.Dismissals++
	f.mu.Unlock()
}

// PreviewTexts returns a copy of the preview updates seen so far.
func (f *FakePresenter) PreviewTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Previews...)
}

// Snapshot returns a copy of the recorded counters.
func (f *FakePresenter) Snapshot() (listening, transcribe, dismissals int, errors, successes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Listening, f.Transcribe, f.Dismissals,
		append([]string(nil), f.Errors...), append([]string(nil), f.Successes...)
}
