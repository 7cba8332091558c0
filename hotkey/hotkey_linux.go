//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keyLAlt   = 56
	keyRAlt   = 100
	keyLSuper = 125
	keyRSuper = 126
)

const inputEventSize = 24

// evdev codes for the portable key set.
var evdevKeys = map[string]uint16{
	"escape": 1, "tab": 15, "enter": 28, "space": 57,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65,
	"f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

// linuxHotkey reads raw evdev events so it sees real press and release
// transitions regardless of display server.
type linuxHotkey struct {
	shortcut Shortcut
	keyCode  uint16
	keydown  chan struct{}
	keyup    chan struct{}
	files    []*os.File
	stop     chan struct{}
	once     sync.Once
}

func New(s Shortcut) Hotkey {
	return &linuxHotkey{
		shortcut: s,
		keyCode:  evdevKeys[s.Key],
		keydown:  make(chan struct{}, 1),
		keyup:    make(chan struct{}, 1),
	}
}

func (h *linuxHotkey) Register() error {
	if h.keyCode == 0 {
		return fmt.Errorf("key %q has no evdev mapping", h.shortcut.Key)
	}
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

type modState struct {
	ctrl, shift, alt, super bool
}

func (m modState) satisfies(s Shortcut) bool {
	return (!s.Ctrl || m.ctrl) && (!s.Shift || m.shift) && (!s.Alt || m.alt) && (!s.Super || m.super)
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var mods modState
	var keyHeld bool

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			pressed := evValue == keyPress
			released := evValue == keyRelease

			switch evCode {
			case keyLCtrl, keyRCtrl:
				mods.ctrl = pressed || (!released && mods.ctrl)
			case keyLShift, keyRShift:
				mods.shift = pressed || (!released && mods.shift)
			case keyLAlt, keyRAlt:
				mods.alt = pressed || (!released && mods.alt)
			case keyLSuper, keyRSuper:
				mods.super = pressed || (!released && mods.super)
			case h.keyCode:
				if pressed && !keyHeld && mods.satisfies(h.shortcut) {
					keyHeld = true
					select {
					case h.keydown <- struct{}{}:
					default:
					}
				} else if released && keyHeld {
					keyHeld = false
					select {
					case h.keyup <- struct{}{}:
					default:
					}
				}
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}
