package hotkey

// Hotkey is a registered push-to-talk binding. Keydown and Keyup fire
// on physical press and release of the bound shortcut.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
