// Package clipboard copies transcripts to the system clipboard and
// optionally pastes them into the focused application by synthesizing
// the platform paste chord.
package clipboard

import cb "github.com/atotto/clipboard"

func Copy(text string) error {
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}

// System bundles copy and paste behind the controller's collaborator
// interface.
type System struct{}

func (System) Copy(text string) error { return Copy(text) }
func (System) Paste() error           { return Paste() }
