// Package romaji converts incrementally typed Latin key sequences into kana.
//
// A Table holds the static romaji rules. An Engine keeps only the unconsumed
// remainder of the typed sequence and turns each keystroke into zero or more
// committed kana.
package romaji

import (
	"fmt"
	"sync"
)

// Rule maps a romaji pattern to its conversion result.
type Rule struct {
	// Pattern is the typed sequence (1-4 ASCII characters).
	Pattern string

	// Remainder is left in the buffer after the rule fires. It is used by
	// sokuon rules such as "kk" -> "っ" + "k".
	Remainder string

	// Hiragana is the output in hiragana mode.
	Hiragana string

	// Katakana is the output in katakana mode. When empty it is derived
	// from Hiragana.
	Katakana string
}

// Output returns the rule's kana for the given kana mode.
func (r Rule) Output(k Kana) string {
	if k == Katakana {
		if r.Katakana != "" {
			return r.Katakana
		}
		return ToKatakana(r.Hiragana)
	}
	return r.Hiragana
}

// Kana selects which syllabary rules emit.
type Kana int

const (
	Hiragana Kana = iota
	Katakana
)

func (k Kana) String() string {
	if k == Katakana {
		return "katakana"
	}
	return "hiragana"
}

// Table is an immutable set of rules indexed by pattern.
type Table struct {
	rules    map[string]Rule
	prefixes map[string]struct{}
}

// NewTable builds a table. Patterns must be unique, non-empty and at most
// four characters long.
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{
		rules:    make(map[string]Rule, len(rules)),
		prefixes: make(map[string]struct{}, len(rules)*2),
	}
	for _, r := range rules {
		if r.Pattern == "" || len(r.Pattern) > 4 {
			return nil, fmt.Errorf("romaji: invalid pattern %q", r.Pattern)
		}
		if _, dup := t.rules[r.Pattern]; dup {
			return nil, fmt.Errorf("romaji: duplicate pattern %q", r.Pattern)
		}
		t.rules[r.Pattern] = r
		for i := 1; i <= len(r.Pattern); i++ {
			t.prefixes[r.Pattern[:i]] = struct{}{}
		}
	}
	return t, nil
}

// Lookup returns the rule whose pattern equals s.
func (t *Table) Lookup(s string) (Rule, bool) {
	r, ok := t.rules[s]
	return r, ok
}

// IsPrefix reports whether some pattern starts with s. Full patterns count
// as their own prefix.
func (t *Table) IsPrefix(s string) bool {
	_, ok := t.prefixes[s]
	return ok
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns the process-wide standard SKK rule table.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		t, err := NewTable(defaultRules())
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// DefaultRules returns a fresh copy of the standard rule list.
func DefaultRules() []Rule {
	return defaultRules()
}

// Merge returns base with every rule in overrides replacing the base rule of
// the same pattern, or appended when the pattern is new.
func Merge(base, overrides []Rule) []Rule {
	out := make([]Rule, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base))
	for _, r := range base {
		index[r.Pattern] = len(out)
		out = append(out, r)
	}
	for _, r := range overrides {
		if i, ok := index[r.Pattern]; ok {
			out[i] = r
			continue
		}
		index[r.Pattern] = len(out)
		out = append(out, r)
	}
	return out
}

// sokuonConsonants double into "っ" when typed twice.
const sokuonConsonants = "kstmhyrwgzdbpcfjv"

func kana(pattern, hira string) Rule {
	return Rule{Pattern: pattern, Hiragana: hira}
}

func defaultRules() []Rule {
	rows := []struct {
		prefix string
		kana   [5]string // a i u e o
	}{
		{"", [5]string{"あ", "い", "う", "え", "お"}},
		{"k", [5]string{"か", "き", "く", "け", "こ"}},
		{"s", [5]string{"さ", "し", "す", "せ", "そ"}},
		{"t", [5]string{"た", "ち", "つ", "て", "と"}},
		{"n", [5]string{"な", "に", "ぬ", "ね", "の"}},
		{"h", [5]string{"は", "ひ", "ふ", "へ", "ほ"}},
		{"m", [5]string{"ま", "み", "む", "め", "も"}},
		{"y", [5]string{"や", "い", "ゆ", "いぇ", "よ"}},
		{"r", [5]string{"ら", "り", "る", "れ", "ろ"}},
		{"w", [5]string{"わ", "うぃ", "う", "うぇ", "を"}},
		{"g", [5]string{"が", "ぎ", "ぐ", "げ", "ご"}},
		{"z", [5]string{"ざ", "じ", "ず", "ぜ", "ぞ"}},
		{"d", [5]string{"だ", "ぢ", "づ", "で", "ど"}},
		{"b", [5]string{"ば", "び", "ぶ", "べ", "ぼ"}},
		{"p", [5]string{"ぱ", "ぴ", "ぷ", "ぺ", "ぽ"}},
		{"f", [5]string{"ふぁ", "ふぃ", "ふ", "ふぇ", "ふぉ"}},
		{"v", [5]string{"ゔぁ", "ゔぃ", "ゔ", "ゔぇ", "ゔぉ"}},
		{"ky", [5]string{"きゃ", "きぃ", "きゅ", "きぇ", "きょ"}},
		{"sy", [5]string{"しゃ", "しぃ", "しゅ", "しぇ", "しょ"}},
		{"sh", [5]string{"しゃ", "し", "しゅ", "しぇ", "しょ"}},
		{"ty", [5]string{"ちゃ", "ちぃ", "ちゅ", "ちぇ", "ちょ"}},
		{"ch", [5]string{"ちゃ", "ち", "ちゅ", "ちぇ", "ちょ"}},
		{"cy", [5]string{"ちゃ", "ちぃ", "ちゅ", "ちぇ", "ちょ"}},
		{"ts", [5]string{"つぁ", "つぃ", "つ", "つぇ", "つぉ"}},
		{"th", [5]string{"てゃ", "てぃ", "てゅ", "てぇ", "てょ"}},
		{"dh", [5]string{"でゃ", "でぃ", "でゅ", "でぇ", "でょ"}},
		{"ny", [5]string{"にゃ", "にぃ", "にゅ", "にぇ", "にょ"}},
		{"hy", [5]string{"ひゃ", "ひぃ", "ひゅ", "ひぇ", "ひょ"}},
		{"my", [5]string{"みゃ", "みぃ", "みゅ", "みぇ", "みょ"}},
		{"ry", [5]string{"りゃ", "りぃ", "りゅ", "りぇ", "りょ"}},
		{"gy", [5]string{"ぎゃ", "ぎぃ", "ぎゅ", "ぎぇ", "ぎょ"}},
		{"zy", [5]string{"じゃ", "じぃ", "じゅ", "じぇ", "じょ"}},
		{"jy", [5]string{"じゃ", "じぃ", "じゅ", "じぇ", "じょ"}},
		{"j", [5]string{"じゃ", "じ", "じゅ", "じぇ", "じょ"}},
		{"dy", [5]string{"ぢゃ", "ぢぃ", "ぢゅ", "ぢぇ", "ぢょ"}},
		{"by", [5]string{"びゃ", "びぃ", "びゅ", "びぇ", "びょ"}},
		{"py", [5]string{"ぴゃ", "ぴぃ", "ぴゅ", "ぴぇ", "ぴょ"}},
		{"wh", [5]string{"うぁ", "うぃ", "う", "うぇ", "うぉ"}},
		{"x", [5]string{"ぁ", "ぃ", "ぅ", "ぇ", "ぉ"}},
	}

	var rules []Rule
	for _, row := range rows {
		for i, v := range "aiueo" {
			rules = append(rules, kana(row.prefix+string(v), row.kana[i]))
		}
	}

	rules = append(rules,
		kana("n", "ん"),
		kana("nn", "ん"),
		kana("n'", "ん"),
		kana("xtu", "っ"),
		kana("xtsu", "っ"),
		kana("xya", "ゃ"),
		kana("xyu", "ゅ"),
		kana("xyo", "ょ"),
		kana("xwa", "ゎ"),
		kana("xka", "ゕ"),
		kana("xke", "ゖ"),
		kana("-", "ー"),
		kana(",", "、"),
		kana(".", "。"),
		kana("[", "「"),
		kana("]", "」"),
		kana("z,", "‥"),
		kana("z-", "～"),
		kana("z.", "…"),
		kana("z/", "・"),
		kana("z[", "『"),
		kana("z]", "』"),
		kana("zh", "←"),
		kana("zj", "↓"),
		kana("zk", "↑"),
		kana("zl", "→"),
	)
	for i := 0; i < len(sokuonConsonants); i++ {
		c := sokuonConsonants[i]
		rules = append(rules, Rule{
			Pattern:   string([]byte{c, c}),
			Remainder: string(c),
			Hiragana:  "っ",
		})
	}
	return rules
}
