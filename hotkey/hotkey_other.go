//go:build !linux

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

var xKeys = map[string]xhotkey.Key{
	"space": xhotkey.KeySpace, "tab": xhotkey.KeyTab,
	"enter": xhotkey.KeyReturn, "escape": xhotkey.KeyEscape,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3,
	"f4": xhotkey.KeyF4, "f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6,
	"f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8, "f9": xhotkey.KeyF9,
	"f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
}

type xHotkey struct {
	shortcut Shortcut
	hk       *xhotkey.Hotkey
	keydown  chan struct{}
	keyup    chan struct{}
	stop     chan struct{}
}

func New(s Shortcut) Hotkey {
	return &xHotkey{
		shortcut: s,
		keydown:  make(chan struct{}, 1),
		keyup:    make(chan struct{}, 1),
	}
}

func (h *xHotkey) Register() error {
	key, ok := xKeys[h.shortcut.Key]
	if !ok {
		return fmt.Errorf("key %q has no hotkey mapping", h.shortcut.Key)
	}
	h.hk = xhotkey.New(platformMods(h.shortcut), key)
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.hk.Keydown():
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			}
		}
	}()
	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.hk.Keyup():
				select {
				case h.keyup <- struct{}{}:
				default:
				}
			}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	if h.hk != nil {
		h.hk.Unregister()
	}
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}
