package skk

import (
	"fmt"
	"strings"
)

// InputMode is the top-level mode of a session.
type InputMode int

const (
	ModeAscii InputMode = iota
	ModeZenei
	ModeHiragana
	ModeKatakana
)

func (m InputMode) String() string {
	switch m {
	case ModeAscii:
		return "ascii"
	case ModeZenei:
		return "zenei"
	case ModeHiragana:
		return "hiragana"
	case ModeKatakana:
		return "katakana"
	}
	return fmt.Sprintf("InputMode(%d)", int(m))
}

// Indicator returns the short label hosts show for the mode.
func (m InputMode) Indicator() string {
	switch m {
	case ModeAscii:
		return "SKK"
	case ModeZenei:
		return "全英"
	case ModeHiragana:
		return "かな"
	case ModeKatakana:
		return "カナ"
	}
	return "?"
}

// IsKana reports whether the mode runs the conversion submodes.
func (m InputMode) IsKana() bool {
	return m == ModeHiragana || m == ModeKatakana
}

// ParseInputMode accepts the names returned by String.
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(s) {
	case "ascii":
		return ModeAscii, nil
	case "zenei":
		return ModeZenei, nil
	case "hiragana":
		return ModeHiragana, nil
	case "katakana":
		return ModeKatakana, nil
	}
	return 0, fmt.Errorf("skk: unknown input mode %q", s)
}

// Submode identifies the conversion state of a kana mode.
type Submode int

const (
	SubmodeKakutei Submode = iota
	SubmodeMidashigo
	SubmodeOkurigana
	SubmodeInlineHenkan
	SubmodeMenuHenkan
	SubmodeCandidateDeletion
	SubmodeAbbrev
)

func (s Submode) String() string {
	switch s {
	case SubmodeKakutei:
		return "kakutei"
	case SubmodeMidashigo:
		return "midashigo"
	case SubmodeOkurigana:
		return "okurigana"
	case SubmodeInlineHenkan:
		return "inline-henkan"
	case SubmodeMenuHenkan:
		return "menu-henkan"
	case SubmodeCandidateDeletion:
		return "candidate-deletion"
	case SubmodeAbbrev:
		return "abbrev"
	}
	return fmt.Sprintf("Submode(%d)", int(s))
}
