package hotkey

import (
	"fmt"
	"sync"
)

// Factory builds an unregistered platform hotkey for a shortcut.
type Factory func(Shortcut) Hotkey

// Manager owns the live binding and presents stable Keydown/Keyup
// channels across rebinds, so the session controller never has to
// re-select on new channels.
type Manager struct {
	factory Factory

	keydown chan struct{}
	keyup   chan struct{}

	mu       sync.Mutex
	current  Hotkey
	shortcut Shortcut
	stop     chan struct{}
}

func NewManager(factory Factory) *Manager {
	return &Manager{
		factory: factory,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (m *Manager) Keydown() <-chan struct{} { return m.keydown }
func (m *Manager) Keyup() <-chan struct{}   { return m.keyup }

// Shortcut returns the currently bound shortcut.
func (m *Manager) Shortcut() Shortcut {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shortcut
}

// Bind registers the first binding. Fails if one is already active.
func (m *Manager) Bind(s Shortcut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return fmt.Errorf("shortcut already bound: %s", m.shortcut)
	}
	return m.bindLocked(s)
}

// Rebind swaps the active binding for a new shortcut. On failure the
// previous shortcut is restored, so the user is never left without a
// working binding.
func (m *Manager) Rebind(s Shortcut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return m.bindLocked(s)
	}

	prev := m.shortcut
	m.unbindLocked()
	if err := m.bindLocked(s); err != nil {
		if rberr := m.bindLocked(prev); rberr != nil {
			return fmt.Errorf("rebind to %s failed (%v) and rollback to %s failed: %w", s, err, prev, rberr)
		}
		return fmt.Errorf("rebind to %s failed, kept %s: %w", s, prev, err)
	}
	return nil
}

// Close unregisters the active binding, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbindLocked()
}

func (m *Manager) bindLocked(s Shortcut) error {
	hk := m.factory(s)
	if err := hk.Register(); err != nil {
		return err
	}
	stop := make(chan struct{})
	go forward(hk.Keydown(), m.keydown, stop)
	go forward(hk.Keyup(), m.keyup, stop)
	m.current = hk
	m.shortcut = s
	m.stop = stop
	return nil
}

func (m *Manager) unbindLocked() {
	if m.current == nil {
		return
	}
	close(m.stop)
	m.current.Unregister()
	m.current = nil
	m.stop = nil
}

func forward(src <-chan struct{}, dst chan<- struct{}, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case _, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- struct{}{}:
			default:
			}
		}
	}
}
