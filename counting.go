package main

import (
	"sync"

	"vox/hud"
)

// countingPresenter tracks completed transcriptions for session-end
// accounting while delegating display to the wrapped presenter.
type countingPresenter struct {
	hud.Presenter

	mu    sync.Mutex
	count int
}

func (c *countingPresenter) ShowSuccess(text string) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	c.Presenter.ShowSuccess(text)
}

func (c *countingPresenter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
