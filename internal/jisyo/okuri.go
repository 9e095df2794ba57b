package jisyo

import (
	"unicode/utf8"

	"skkime/internal/romaji"
)

// okuriConsonants maps the first hiragana of an okurigana mora to the romaji
// letter that keys okuri-ari entries.
var okuriConsonants = map[rune]byte{}

func init() {
	rows := []struct {
		letter byte
		kana   string
	}{
		{'a', "あぁ"},
		{'i', "いぃ"},
		{'u', "うぅゔ"},
		{'e', "えぇ"},
		{'o', "おぉ"},
		{'k', "かきくけこ"},
		{'g', "がぎぐげご"},
		{'s', "さしすせそ"},
		{'z', "ざじずぜぞ"},
		{'t', "たちつてとっ"},
		{'d', "だぢづでど"},
		{'n', "なにぬねのん"},
		{'h', "はひふへほ"},
		{'b', "ばびぶべぼ"},
		{'p', "ぱぴぷぺぽ"},
		{'m', "まみむめも"},
		{'y', "やゆよゃゅょ"},
		{'r', "らりるれろ"},
		{'w', "わゐゑをゎ"},
	}
	for _, row := range rows {
		for _, r := range row.kana {
			okuriConsonants[r] = row.letter
		}
	}
}

// OkuriConsonant returns the letter that keys an okuri-ari entry whose
// okurigana starts with mora, e.g. "さ" → 's' and "って" → 't'. Katakana is
// accepted as well.
func OkuriConsonant(mora string) (byte, bool) {
	r, _ := utf8.DecodeRuneInString(romaji.ToHiragana(mora))
	c, ok := okuriConsonants[r]
	return c, ok
}

// IsOkuriAriKey reports whether key is an okuri-ari headword, i.e. a kana
// stem followed by a single ASCII letter.
func IsOkuriAriKey(key string) bool {
	if len(key) < 2 {
		return false
	}
	last := key[len(key)-1]
	if last < 'a' || last > 'z' {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(key[:len(key)-1])
	return r >= utf8.RuneSelf
}
