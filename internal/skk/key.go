package skk

import "fmt"

// Kind is the category a key event is dispatched on.
type Kind int

const (
	LowerAlpha Kind = iota
	UpperAlpha
	Number
	Symbol
	Space
	Enter
	Backspace
	CtrlJ
	CtrlG
)

var kindNames = [...]string{
	LowerAlpha: "lowerAlpha",
	UpperAlpha: "upperAlpha",
	Number:     "number",
	Symbol:     "symbol",
	Space:      "space",
	Enter:      "enter",
	Backspace:  "backspace",
	CtrlJ:      "ctrlJ",
	CtrlG:      "ctrlG",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Key is a classified key event. Rune is set for the printable kinds.
type Key struct {
	Kind Kind
	Rune rune
}

func (k Key) String() string {
	switch k.Kind {
	case LowerAlpha, UpperAlpha, Number, Symbol:
		return fmt.Sprintf("%s(%q)", k.Kind, k.Rune)
	}
	return k.Kind.String()
}

// Lower returns the lowercase letter of an alphabetic key.
func (k Key) Lower() rune {
	if k.Rune >= 'A' && k.Rune <= 'Z' {
		return k.Rune + ('a' - 'A')
	}
	return k.Rune
}

// NamedKey returns the key for a non-printable kind.
func NamedKey(kind Kind) Key {
	switch kind {
	case Space:
		return Key{Kind: Space, Rune: ' '}
	case Enter:
		return Key{Kind: Enter, Rune: '\n'}
	}
	return Key{Kind: kind}
}

// Classify maps a character, optionally typed with Control held, to a key.
// It reports false for characters the engine does not handle.
func Classify(r rune, ctrl bool) (Key, bool) {
	if ctrl {
		switch r {
		case 'j', 'J':
			return Key{Kind: CtrlJ}, true
		case 'g', 'G':
			return Key{Kind: CtrlG}, true
		case 'h', 'H':
			return Key{Kind: Backspace}, true
		case 'm', 'M':
			return NamedKey(Enter), true
		}
		return Key{}, false
	}

	switch {
	case r == '\r' || r == '\n':
		return NamedKey(Enter), true
	case r == '\b' || r == 0x7f:
		return Key{Kind: Backspace}, true
	case r == 0x07:
		return Key{Kind: CtrlG}, true
	case r == ' ':
		return NamedKey(Space), true
	case r >= 'a' && r <= 'z':
		return Key{Kind: LowerAlpha, Rune: r}, true
	case r >= 'A' && r <= 'Z':
		return Key{Kind: UpperAlpha, Rune: r}, true
	case r >= '0' && r <= '9':
		return Key{Kind: Number, Rune: r}, true
	case r > ' ' && r < 0x7f:
		return Key{Kind: Symbol, Rune: r}, true
	}
	return Key{}, false
}

// Keys classifies every character of s. Characters that cannot be
// classified are skipped.
func Keys(s string) []Key {
	keys := make([]Key, 0, len(s))
	for _, r := range s {
		if k, ok := Classify(r, false); ok {
			keys = append(keys, k)
		}
	}
	return keys
}
