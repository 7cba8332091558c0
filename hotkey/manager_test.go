package hotkey

import (
	"errors"
	"testing"
	"time"
)

// scriptedFactory hands out pre-built fakes keyed by shortcut string.
type scriptedFactory struct {
	fakes map[string]*FakeHotkey
}

func (f *scriptedFactory) build(s Shortcut) Hotkey {
	hk, ok := f.fakes[s.String()]
	if !ok {
		hk = NewFake()
		f.fakes[s.String()] = hk
	}
	return hk
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestManagerBindForwards(t *testing.T) {
	f := &scriptedFactory{fakes: map[string]*FakeHotkey{}}
	m := NewManager(f.build)
	defer m.Close()

	sc := Shortcut{Ctrl: true, Shift: true, Key: "space"}
	if err := m.Bind(sc); err != nil {
		t.Fatal(err)
	}
	if m.Shortcut() != sc {
		t.Fatalf("Shortcut = %v, want %v", m.Shortcut(), sc)
	}

	fake := f.fakes[sc.String()]
	fake.SimKeydown()
	waitSignal(t, m.Keydown(), "keydown")
	fake.SimKeyup()
	waitSignal(t, m.Keyup(), "keyup")
}

func TestManagerRebindSwaps(t *testing.T) {
	f := &scriptedFactory{fakes: map[string]*FakeHotkey{}}
	m := NewManager(f.build)
	defer m.Close()

	first := Shortcut{Ctrl: true, Shift: true, Key: "space"}
	second := Shortcut{Alt: true, Key: "f8"}
	if err := m.Bind(first); err != nil {
		t.Fatal(err)
	}
	if err := m.Rebind(second); err != nil {
		t.Fatal(err)
	}
	if m.Shortcut() != second {
		t.Fatalf("Shortcut = %v, want %v", m.Shortcut(), second)
	}
	if !f.fakes[first.String()].Unregistered {
		t.Fatal("old binding was not unregistered")
	}

	// The stable channels keep working through the new binding.
	f.fakes[second.String()].SimKeydown()
	waitSignal(t, m.Keydown(), "keydown after rebind")
}

func TestManagerRebindRollsBack(t *testing.T) {
	f := &scriptedFactory{fakes: map[string]*FakeHotkey{}}
	m := NewManager(f.build)
	defer m.Close()

	good := Shortcut{Ctrl: true, Shift: true, Key: "space"}
	bad := Shortcut{Alt: true, Key: "f8"}
	f.fakes[bad.String()] = NewFake()
	f.fakes[bad.String()].RegisterErr = errors.New("grabbed by another app")

	if err := m.Bind(good); err != nil {
		t.Fatal(err)
	}
	if err := m.Rebind(bad); err == nil {
		t.Fatal("Rebind should surface the registration error")
	}
	if m.Shortcut() != good {
		t.Fatalf("Shortcut = %v, rollback should keep %v", m.Shortcut(), good)
	}

	// The rolled-back binding is live again.
	f.fakes[good.String()].SimKeydown()
	waitSignal(t, m.Keydown(), "keydown after rollback")
}

func TestManagerDoubleBind(t *testing.T) {
	f := &scriptedFactory{fakes: map[string]*FakeHotkey{}}
	m := NewManager(f.build)
	defer m.Close()

	sc := Shortcut{Ctrl: true, Shift: true, Key: "space"}
	if err := m.Bind(sc); err != nil {
		t.Fatal(err)
	}
	if err := m.Bind(Shortcut{Alt: true, Key: "a"}); err == nil {
		t.Fatal("second Bind should fail")
	}
}
