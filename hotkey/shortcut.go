package hotkey

import (
	"fmt"
	"strings"
)

// Shortcut is a parsed key combination like "ctrl+shift+space".
type Shortcut struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
	Key   string // lowercase key name: "space", "f8", "a"
}

var DefaultShortcut = Shortcut{Ctrl: true, Shift: true, Key: "space"}

// ParseShortcut accepts "+"-joined modifier and key names. The last
// token is the key; everything before it must be a modifier. At least
// one modifier is required so a bare letter can never hijack typing.
func ParseShortcut(s string) (Shortcut, error) {
	var sc Shortcut
	tokens := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(tokens) < 2 {
		return sc, fmt.Errorf("shortcut %q needs at least one modifier and a key", s)
	}
	for _, tok := range tokens[:len(tokens)-1] {
		switch strings.TrimSpace(tok) {
		case "ctrl", "control":
			sc.Ctrl = true
		case "shift":
			sc.Shift = true
		case "alt", "option":
			sc.Alt = true
		case "super", "cmd", "meta", "win":
			sc.Super = true
		default:
			return sc, fmt.Errorf("unknown modifier %q in shortcut %q", tok, s)
		}
	}
	sc.Key = strings.TrimSpace(tokens[len(tokens)-1])
	if sc.Key == "" {
		return sc, fmt.Errorf("shortcut %q is missing a key", s)
	}
	if !keyKnown(sc.Key) {
		return sc, fmt.Errorf("unknown key %q in shortcut %q", sc.Key, s)
	}
	return sc, nil
}

func (s Shortcut) String() string {
	var parts []string
	if s.Ctrl {
		parts = append(parts, "ctrl")
	}
	if s.Shift {
		parts = append(parts, "shift")
	}
	if s.Alt {
		parts = append(parts, "alt")
	}
	if s.Super {
		parts = append(parts, "super")
	}
	parts = append(parts, s.Key)
	return strings.Join(parts, "+")
}

// keyNames is the portable key set; each platform maps these to its own
// codes.
var keyNames = map[string]struct{}{
	"space": {}, "tab": {}, "enter": {}, "escape": {},
}

func init() {
	for r := 'a'; r <= 'z'; r++ {
		keyNames[string(r)] = struct{}{}
	}
	for r := '0'; r <= '9'; r++ {
		keyNames[string(r)] = struct{}{}
	}
	for i := 1; i <= 12; i++ {
		keyNames[fmt.Sprintf("f%d", i)] = struct{}{}
	}
}

func keyKnown(name string) bool {
	_, ok := keyNames[name]
	return ok
}
