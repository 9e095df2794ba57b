package ime

import "skkime/internal/skk"

// Key event state masks, as sent by IBus.
const (
	ShiftMask   uint32 = 1 << 0
	LockMask    uint32 = 1 << 1
	ControlMask uint32 = 1 << 2
	Mod1Mask    uint32 = 1 << 3 // Alt
	Mod4Mask    uint32 = 1 << 6 // Super/Meta
	SuperMask   uint32 = 1 << 26
	HyperMask   uint32 = 1 << 27
	MetaMask    uint32 = 1 << 28
	ReleaseMask uint32 = 1 << 30
)

// X11 keysyms for the named keys the engine handles.
const (
	KeyBackSpace = 0xff08
	KeyTab       = 0xff09
	KeyReturn    = 0xff0d
	KeyEscape    = 0xff1b
	KeyKPEnter   = 0xff8d
	KeyDelete    = 0xffff
	KeySpace     = 0x0020
)

// keyvalToRune converts X11 keysym to Unicode rune.
func keyvalToRune(keyval uint32) rune {
	// Direct Unicode mapping for Latin-1 range
	if keyval >= 0x20 && keyval <= 0x7e {
		return rune(keyval)
	}

	// Extended Latin (ISO 8859-1)
	if keyval >= 0xa0 && keyval <= 0xff {
		return rune(keyval)
	}

	// Unicode keysyms (0x01000000 + codepoint)
	if keyval >= 0x01000000 && keyval <= 0x0110ffff {
		return rune(keyval - 0x01000000)
	}

	return 0
}

// KeyFromKeysym classifies an IBus key event. It reports false for key
// releases, chords with Alt or Super, and keys the engine has no use for;
// those go to the application untouched.
func KeyFromKeysym(keyval, state uint32) (skk.Key, bool) {
	if state&ReleaseMask != 0 {
		return skk.Key{}, false
	}
	if state&(Mod1Mask|Mod4Mask|SuperMask|HyperMask|MetaMask) != 0 {
		return skk.Key{}, false
	}

	switch keyval {
	case KeyReturn, KeyKPEnter:
		return skk.NamedKey(skk.Enter), true
	case KeyBackSpace:
		return skk.NamedKey(skk.Backspace), true
	case KeyEscape:
		return skk.NamedKey(skk.CtrlG), true
	}

	r := keyvalToRune(keyval)
	if r == 0 {
		return skk.Key{}, false
	}
	return skk.Classify(r, state&ControlMask != 0)
}
