//go:build windows

package hotkey

import xhotkey "golang.design/x/hotkey"

func platformMods(s Shortcut) []xhotkey.Modifier {
	var mods []xhotkey.Modifier
	if s.Ctrl {
		mods = append(mods, xhotkey.ModCtrl)
	}
	if s.Shift {
		mods = append(mods, xhotkey.ModShift)
	}
	if s.Alt {
		mods = append(mods, xhotkey.ModAlt)
	}
	if s.Super {
		mods = append(mods, xhotkey.ModWin)
	}
	return mods
}
