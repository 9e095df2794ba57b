package romaji

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

const (
	hiraganaFirst = 'ぁ'
	hiraganaLast  = 'ゖ'
	katakanaFirst = 'ァ'
	katakanaLast  = 'ヶ'
	kanaOffset    = katakanaFirst - hiraganaFirst
)

// IsHiragana reports whether r is in the convertible hiragana range.
func IsHiragana(r rune) bool {
	return r >= hiraganaFirst && r <= hiraganaLast
}

// IsKatakana reports whether r is in the convertible katakana range.
func IsKatakana(r rune) bool {
	return r >= katakanaFirst && r <= katakanaLast
}

// IsKana reports whether r is hiragana, katakana or the prolonged sound mark.
func IsKana(r rune) bool {
	return IsHiragana(r) || IsKatakana(r) || r == 'ー'
}

// ToKatakana maps every hiragana in s to katakana.
func ToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if IsHiragana(r) {
			return r + kanaOffset
		}
		return r
	}, s)
}

// ToHiragana maps every katakana in s to hiragana.
func ToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if IsKatakana(r) {
			return r - kanaOffset
		}
		return r
	}, s)
}

// Widen converts printable ASCII in s to full-width forms.
func Widen(s string) string {
	return width.Widen.String(s)
}

// Narrow converts full-width ASCII forms in s to their ASCII equivalents.
// Kana are left alone.
func Narrow(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '　' {
			return ' '
		}
		if r >= '！' && r <= '～' {
			return []rune(width.Narrow.String(string(r)))[0]
		}
		return r
	}, s)
}

// ToggleCharType flips the character class of s. Text starting with
// hiragana becomes katakana and vice versa; any other text toggles between
// printable ASCII and full-width ASCII.
func ToggleCharType(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	switch {
	case s == "":
		return s
	case IsHiragana(r):
		return ToKatakana(s)
	case IsKatakana(r) || r == 'ー':
		return ToHiragana(s)
	case r < utf8.RuneSelf:
		return Widen(s)
	default:
		return Narrow(s)
	}
}
