package hotkey

// FakeHotkey is a test double; presses are injected with SimKeydown and
// SimKeyup.
type FakeHotkey struct {
	RegisterErr  error
	Registered   bool
	Unregistered bool

	keydown chan struct{}
	keyup   chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.Registered = true
	return nil
}

func (f *FakeHotkey) Unregister() { f.Unregistered = true }

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }
