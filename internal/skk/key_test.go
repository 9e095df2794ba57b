package skk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skkime/internal/skk"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		r    rune
		ctrl bool
		want skk.Key
		ok   bool
	}{
		{'a', false, skk.Key{Kind: skk.LowerAlpha, Rune: 'a'}, true},
		{'Q', false, skk.Key{Kind: skk.UpperAlpha, Rune: 'Q'}, true},
		{'7', false, skk.Key{Kind: skk.Number, Rune: '7'}, true},
		{'@', false, skk.Key{Kind: skk.Symbol, Rune: '@'}, true},
		{' ', false, skk.NamedKey(skk.Space), true},
		{'\r', false, skk.NamedKey(skk.Enter), true},
		{0x7f, false, skk.Key{Kind: skk.Backspace}, true},
		{'j', true, skk.Key{Kind: skk.CtrlJ}, true},
		{'g', true, skk.Key{Kind: skk.CtrlG}, true},
		{'h', true, skk.Key{Kind: skk.Backspace}, true},
		{'x', true, skk.Key{}, false},
		{'あ', false, skk.Key{}, false},
		{'\t', false, skk.Key{}, false},
	}
	for _, tt := range tests {
		got, ok := skk.Classify(tt.r, tt.ctrl)
		assert.Equal(t, tt.ok, ok, "%q ctrl=%v", tt.r, tt.ctrl)
		assert.Equal(t, tt.want, got, "%q ctrl=%v", tt.r, tt.ctrl)
	}
}

func TestKeysSkipsUnknown(t *testing.T) {
	keys := skk.Keys("Aあ b")
	require.Len(t, keys, 3)
	assert.Equal(t, skk.UpperAlpha, keys[0].Kind)
	assert.Equal(t, skk.Space, keys[1].Kind)
	assert.Equal(t, 'b', keys[2].Rune)
	assert.Equal(t, 'b', skk.Key{Kind: skk.UpperAlpha, Rune: 'B'}.Lower())
}

func TestInputModeParse(t *testing.T) {
	for _, m := range []skk.InputMode{skk.ModeAscii, skk.ModeZenei, skk.ModeHiragana, skk.ModeKatakana} {
		got, err := skk.ParseInputMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := skk.ParseInputMode("romaji")
	assert.Error(t, err)
	assert.True(t, skk.ModeKatakana.IsKana())
	assert.False(t, skk.ModeZenei.IsKana())
}

func TestParseRegistration(t *testing.T) {
	key, cand, err := skk.ParseRegistration(skk.RegistrationTemplate("かんじ") + "漢字;kanji\n")
	require.NoError(t, err)
	assert.Equal(t, "かんじ", key)
	assert.Equal(t, "漢字", cand.Word)
	assert.Equal(t, "kanji", cand.Annotation)
}
