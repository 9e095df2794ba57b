package skk_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skkime/internal/editor"
	"skkime/internal/jisyo"
	"skkime/internal/skk"
)

type fixture struct {
	t      *testing.T
	buf    *editor.Buffer
	system *jisyo.MapLayer
	dict   *jisyo.Dictionary
	sess   *skk.Session
}

func newFixture(t *testing.T, entries map[string][]string, configure ...func(*skk.Options)) *fixture {
	t.Helper()
	system := jisyo.NewMapLayer()
	for key, words := range entries {
		for _, w := range words {
			system.Append(key, jisyo.ParseCandidate(w))
		}
	}
	f := &fixture{
		t:      t,
		buf:    editor.New(),
		system: system,
		dict:   jisyo.New(nil, []jisyo.Layer{system}),
	}
	opts := skk.Options{
		Editor:      f.buf,
		Dictionary:  f.dict,
		InitialMode: skk.ModeHiragana,
		Now: func() time.Time {
			return time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local)
		},
	}
	for _, fn := range configure {
		fn(&opts)
	}
	sess, err := skk.NewSession(opts)
	require.NoError(t, err)
	f.sess = sess
	return f
}

// typ feeds every character of s and fails on unexpected errors.
func (f *fixture) typ(s string) {
	f.t.Helper()
	for _, k := range skk.Keys(s) {
		require.NoError(f.t, f.sess.HandleKey(k), "key %s", k)
	}
}

func (f *fixture) press(kind skk.Kind) error {
	return f.sess.HandleKey(skk.NamedKey(kind))
}

func (f *fixture) assertKakuteiClean() {
	f.t.Helper()
	assert.Equal(f.t, skk.SubmodeKakutei, f.sess.Submode())
	assert.NotContains(f.t, f.buf.String(), skk.MarkerMidashigo)
	assert.NotContains(f.t, f.buf.String(), skk.MarkerHenkan)
	assert.Empty(f.t, f.sess.PendingRomaji())
	_, hasMarker := f.buf.Marker()
	assert.False(f.t, hasMarker)
}

func TestConvertAndCommit(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"候補1"}})

	f.typ("Kanji")
	assert.Equal(t, "▽かんじ", f.buf.String())
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())

	f.typ(" ")
	assert.Equal(t, "▼候補1", f.buf.String())
	assert.Equal(t, skk.SubmodeInlineHenkan, f.sess.Submode())

	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, "候補1", f.buf.String())
	f.assertKakuteiClean()
}

func TestSokuonDoubling(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("kka")
	assert.Equal(t, "っか", f.buf.String())
	f.assertKakuteiClean()
}

func TestPendingRomajiOverlay(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("ky")
	assert.Equal(t, "", f.buf.String())
	assert.Equal(t, "ky", f.buf.RemainingRomaji().Text)

	require.NoError(t, f.press(skk.Backspace))
	assert.Equal(t, "k", f.buf.RemainingRomaji().Text)
	assert.Equal(t, "", f.buf.String())
}

func TestAmbiguousNFlushedBySpace(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("kan ")
	assert.Equal(t, "かん ", f.buf.String())
}

func TestPendingNThenUnmappedSymbol(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("kan!")
	assert.Equal(t, "かん!", f.buf.String())
	f.typ("n?")
	assert.Equal(t, "かん!ん?", f.buf.String())
}

func TestPendingNThenClosingPunctuationInHeadword(t *testing.T) {
	f := newFixture(t, map[string][]string{"かん": {"缶"}})
	f.typ("Kan!")
	assert.Equal(t, "▼缶!", f.buf.String())
	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, "缶!", f.buf.String())
}

func TestCtrlGReachesKakuteiFromEverySubmode(t *testing.T) {
	entries := map[string][]string{
		"かんじ": {"漢字", "感じ", "幹事", "監事", "完治"},
		"かk":  {"書"},
		"abc":  {"ABC"},
	}
	setups := []struct {
		name    string
		keys    string
		submode skk.Submode
	}{
		{"kakutei", "k", skk.SubmodeKakutei},
		{"midashigo", "Kanjik", skk.SubmodeMidashigo},
		{"okurigana", "KaK", skk.SubmodeOkurigana},
		{"abbrev", "/abc", skk.SubmodeAbbrev},
		{"inline", "Kanji ", skk.SubmodeInlineHenkan},
		{"menu", "Kanji    ", skk.SubmodeMenuHenkan},
		{"deletion", "Kanji X", skk.SubmodeCandidateDeletion},
	}
	for _, s := range setups {
		t.Run(s.name, func(t *testing.T) {
			f := newFixture(t, entries, func(o *skk.Options) { o.CancelToKakutei = true })
			require.NoError(t, f.buf.InsertOrReplaceSelection("前"))
			f.typ(s.keys)
			require.Equal(t, s.submode, f.sess.Submode())

			require.NoError(t, f.press(skk.CtrlG))
			f.assertKakuteiClean()
			assert.Equal(t, "前", f.buf.String())
			list, _ := f.buf.CandidateList()
			assert.Empty(t, list)
		})
	}
}

func TestCtrlGStepsBackToHeadword(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}})
	f.typ("Kanji ")

	require.NoError(t, f.press(skk.CtrlG))
	assert.Equal(t, "▽かんじ", f.buf.String())
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())

	require.NoError(t, f.press(skk.CtrlG))
	assert.Equal(t, "", f.buf.String())
	f.assertKakuteiClean()
}

func TestOkuriganaLookup(t *testing.T) {
	f := newFixture(t, map[string][]string{"かk": {"書", "描"}})

	f.typ("KaK")
	assert.Equal(t, skk.SubmodeOkurigana, f.sess.Submode())
	assert.Equal(t, editor.Romaji{Text: "k", Okuri: true}, f.buf.RemainingRomaji())

	f.typ("u")
	assert.Equal(t, "▼書く", f.buf.String())

	f.typ(" ")
	assert.Equal(t, "▼描く", f.buf.String())

	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, "描く", f.buf.String())
}

func TestOkuriganaSokuon(t *testing.T) {
	f := newFixture(t, map[string][]string{"かt": {"勝"}})
	f.typ("KaTTe")
	assert.Equal(t, "▼勝って", f.buf.String())
}

func TestOkuriganaBackspaceReturnsToStem(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("KaK")
	require.NoError(t, f.press(skk.Backspace))
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())
	assert.Equal(t, "▽か", f.buf.String())
}

func TestKatakanaHeadwordUsesHiraganaKey(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}}, func(o *skk.Options) {
		o.InitialMode = skk.ModeKatakana
	})
	f.typ("Kanji")
	assert.Equal(t, "▽カンジ", f.buf.String())
	f.typ(" ")
	assert.Equal(t, "▼漢字", f.buf.String())
}

func TestPromotionOnSelection(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字", "感じ", "幹事"}})

	f.typ("Kanji  ")
	assert.Equal(t, "▼感じ", f.buf.String())
	require.NoError(t, f.press(skk.CtrlJ))

	entry, ok := f.dict.LookupCandidates("かんじ")
	require.True(t, ok)
	assert.Equal(t, "感じ", entry.At(0).Word)
	assert.Equal(t, "漢字", entry.At(1).Word)

	// The system layer is untouched.
	raw, _ := f.system.Get("かんじ")
	assert.Equal(t, "漢字", raw[0].Word)
}

func TestSelectingFirstCandidateDoesNotWrite(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字", "感じ"}})
	f.typ("Kanji ")
	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, 0, f.dict.UserLayer().Len())
}

func TestInlineRetreatRestoresHeadword(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字", "感じ"}})
	f.typ("Kanji  x")
	assert.Equal(t, "▼漢字", f.buf.String())

	f.typ("x")
	assert.Equal(t, "▽かんじ", f.buf.String())
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())
}

func TestInlineOtherKeyCommitsAndRedispatches(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}})
	f.typ("Kanji ka")
	assert.Equal(t, "漢字か", f.buf.String())
	f.assertKakuteiClean()
}

func TestInlineEnterInsertsNewline(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}})
	f.typ("Kanji ")
	require.NoError(t, f.press(skk.Enter))
	assert.Equal(t, "漢字\n", f.buf.String())
}

func TestMenuHenkan(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"c1", "c2", "c3", "c4", "c5"}})

	f.typ("Kanji    ")
	require.Equal(t, skk.SubmodeMenuHenkan, f.sess.Submode())
	list, keys := f.buf.CandidateList()
	require.Len(t, list, 2)
	assert.Equal(t, "c4", list[0].Word)
	assert.Equal(t, []rune{'a', 's'}, keys)

	err := f.sess.HandleKey(skk.Key{Kind: skk.LowerAlpha, Rune: 'd'})
	assert.ErrorIs(t, err, skk.ErrInvalidInput)
	assert.NotEmpty(t, f.buf.LastError())
	assert.Equal(t, skk.SubmodeMenuHenkan, f.sess.Submode())

	assert.ErrorIs(t, f.press(skk.Enter), skk.ErrInvalidInput)
	assert.ErrorIs(t, f.press(skk.CtrlJ), skk.ErrInvalidInput)

	f.typ("S")
	assert.Equal(t, "c5", f.buf.String())
	f.assertKakuteiClean()

	entry, _ := f.dict.LookupCandidates("かんじ")
	assert.Equal(t, "c5", entry.At(0).Word)
}

func TestMenuPagingAndBack(t *testing.T) {
	words := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9", "c10", "c11"}
	f := newFixture(t, map[string][]string{"かんじ": words})

	f.typ("Kanji     ")
	list, _ := f.buf.CandidateList()
	require.Len(t, list, 1)
	assert.Equal(t, "c11", list[0].Word)

	f.typ("x")
	list, _ = f.buf.CandidateList()
	assert.Len(t, list, 7)

	require.NoError(t, f.press(skk.Backspace))
	assert.Equal(t, skk.SubmodeInlineHenkan, f.sess.Submode())
	assert.Equal(t, "▼c3", f.buf.String())
	list, _ = f.buf.CandidateList()
	assert.Empty(t, list)
}

func TestMenuRegistrationShortcut(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"c1", "c2", "c3", "c4"}})
	f.typ("Kanji    .")

	req, ok := f.buf.TakeRegistrationRequest()
	require.True(t, ok)
	assert.Equal(t, "かんじ", req.Key)
	f.assertKakuteiClean()
}

func TestAdvancingPastLastOpensRegistration(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"c1"}})
	f.typ("Kanji  ")

	req, ok := f.buf.TakeRegistrationRequest()
	require.True(t, ok)
	assert.Equal(t, editor.RegistrationRequest{Key: "かんじ"}, req)
	assert.Equal(t, "", f.buf.String())

	reg, ok := f.sess.AwaitingRegistration()
	require.True(t, ok)
	assert.Equal(t, "かんじ", reg.Headword)

	require.NoError(t, f.sess.ResumeAfterRegistration(skk.RegistrationTemplate("かんじ")+"漢字"))
	assert.Equal(t, "漢字", f.buf.String())
	entry, _ := f.dict.LookupCandidates("かんじ")
	assert.Equal(t, "漢字", entry.At(0).Word)

	_, ok = f.sess.AwaitingRegistration()
	assert.False(t, ok)
}

func TestMissWithOkuriRegistersAndSplicesOkuri(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("KaKu")

	req, ok := f.buf.TakeRegistrationRequest()
	require.True(t, ok)
	assert.Equal(t, editor.RegistrationRequest{Key: "かk", Okuri: "く"}, req)

	require.NoError(t, f.sess.ResumeAfterRegistration("読み:かk\n単語:書"))
	assert.Equal(t, "書く", f.buf.String())
}

func TestCancelRegistrationRestoresKana(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kanji.")

	reg, ok := f.sess.AwaitingRegistration()
	require.True(t, ok)
	assert.Equal(t, "。", reg.Suffix)

	require.NoError(t, f.sess.CancelRegistration())
	assert.Equal(t, "かんじ。", f.buf.String())
	assert.ErrorIs(t, f.sess.CancelRegistration(), skk.ErrNoRegistration)
}

func TestMalformedRegistration(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kanji ")

	for _, text := range []string{
		"漢字",
		"読み:かんじ\n単語:",
		"読み:\n単語:漢字",
		"よみ:かんじ\n単語:漢字",
	} {
		err := f.sess.ResumeAfterRegistration(text)
		var formatErr *skk.RegistrationFormatError
		assert.True(t, errors.As(err, &formatErr), text)
	}
	_, ok := f.sess.AwaitingRegistration()
	assert.True(t, ok)
	assert.False(t, f.dict.Has("かんじ"))
}

func TestClosingPunctuationSuffix(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}})
	f.typ("Kanji.")
	assert.Equal(t, "▼漢字。", f.buf.String())
	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, "漢字。", f.buf.String())
}

func TestPrefixConversion(t *testing.T) {
	f := newFixture(t, map[string][]string{"ちょう>": {"超"}})
	f.typ("Tyou>")
	assert.Equal(t, "▼超", f.buf.String())
}

func TestAbbrev(t *testing.T) {
	f := newFixture(t, map[string][]string{"github": {"GitHub"}})
	f.typ("/github")
	assert.Equal(t, "▽github", f.buf.String())
	assert.Equal(t, skk.SubmodeAbbrev, f.sess.Submode())

	f.typ(" ")
	assert.Equal(t, "▼GitHub", f.buf.String())
}

func TestAbbrevEnterFixates(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("/abc")
	require.NoError(t, f.press(skk.Enter))
	assert.Equal(t, "abc\n", f.buf.String())
	f.assertKakuteiClean()
}

func TestToday(t *testing.T) {
	f := newFixture(t, map[string][]string{"today": {"本日"}})
	f.typ("@")
	assert.Equal(t, "▼2026年10月17日(土)", f.buf.String())

	f.typ(" ")
	assert.Equal(t, "▼本日", f.buf.String())
	f.typ("x")
	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, "2026年10月17日(土)", f.buf.String())
	assert.Equal(t, 0, f.dict.UserLayer().Len())
}

func TestCandidateDeletion(t *testing.T) {
	f := newFixture(t, nil)
	f.dict.Set("かんじ", []jisyo.Candidate{{Word: "漢字"}, {Word: "感じ"}})

	f.typ("Kanji X")
	require.Equal(t, skk.SubmodeCandidateDeletion, f.sess.Submode())
	c, ok := f.buf.Candidate()
	require.True(t, ok)
	assert.Equal(t, "漢字", c.Word)
	assert.NotEmpty(t, c.Annotation)

	err := f.sess.HandleKey(skk.Key{Kind: skk.UpperAlpha, Rune: 'Z'})
	assert.ErrorIs(t, err, skk.ErrInvalidInput)
	assert.Equal(t, skk.SubmodeCandidateDeletion, f.sess.Submode())

	f.typ("Y")
	assert.Equal(t, "", f.buf.String())
	f.assertKakuteiClean()

	entry, _ := f.dict.LookupCandidates("かんじ")
	assert.Equal(t, []jisyo.Candidate{{Word: "感じ"}}, entry.Candidates)
}

func TestCandidateDeletionDeclined(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字", "感じ"}})
	f.typ("Kanji  X")
	f.typ("N")
	assert.Equal(t, skk.SubmodeInlineHenkan, f.sess.Submode())
	assert.Equal(t, "▼感じ", f.buf.String())
}

func TestModeSwitching(t *testing.T) {
	f := newFixture(t, nil)

	f.typ("kaq")
	assert.Equal(t, skk.ModeKatakana, f.sess.Mode())
	f.typ("ka")
	assert.Equal(t, "かカ", f.buf.String())

	f.typ("l")
	assert.Equal(t, skk.ModeAscii, f.sess.Mode())
	assert.Equal(t, skk.ModeAscii, f.buf.CurrentInputMode())
	f.typ("l A1")
	assert.Equal(t, "かカl A1", f.buf.String())

	require.NoError(t, f.press(skk.CtrlJ))
	assert.Equal(t, skk.ModeHiragana, f.sess.Mode())

	f.typ("L")
	assert.Equal(t, skk.ModeZenei, f.sess.Mode())
	f.typ("a!")
	assert.Equal(t, "かカl A1ａ！", f.buf.String())
}

func TestPendingNFlushedBeforeModeSwitch(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("kanl")
	assert.Equal(t, "かん", f.buf.String())
	assert.Equal(t, skk.ModeAscii, f.sess.Mode())
}

func TestZLIsRomajiNotModeSwitch(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("zl")
	assert.Equal(t, "→", f.buf.String())
	assert.Equal(t, skk.ModeHiragana, f.sess.Mode())
}

func TestKakuteiSymbols(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("n.!1")
	assert.Equal(t, "ん。!1", f.buf.String())
}

func TestMidashigoToggleCharType(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kanjiq")
	assert.Equal(t, "カンジ", f.buf.String())
	f.assertKakuteiClean()
	assert.Equal(t, skk.ModeHiragana, f.sess.Mode())
}

func TestMidashigoLFixatesAndSwitches(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kanl")
	assert.Equal(t, "かん", f.buf.String())
	assert.Equal(t, skk.ModeAscii, f.sess.Mode())
}

func TestMidashigoRejectsNumbers(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Ka")
	err := f.sess.HandleKey(skk.Key{Kind: skk.Number, Rune: '1'})
	assert.ErrorIs(t, err, skk.ErrInvalidInput)
	assert.Equal(t, "▽か", f.buf.String())
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())
}

func TestMidashigoBackspaceOverMarker(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Ka")
	require.NoError(t, f.press(skk.Backspace))
	assert.Equal(t, "▽", f.buf.String())
	require.NoError(t, f.press(skk.Backspace))
	assert.Equal(t, "", f.buf.String())
	f.assertKakuteiClean()
}

func TestMidashigoEnterFixates(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kan")
	require.NoError(t, f.press(skk.Enter))
	assert.Equal(t, "かん\n", f.buf.String())
	f.assertKakuteiClean()
}

func TestEmptyHeadwordSpaceDoesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("K ")
	assert.Equal(t, "▽", f.buf.String())
	assert.Equal(t, skk.SubmodeMidashigo, f.sess.Submode())
	_, ok := f.sess.AwaitingRegistration()
	assert.False(t, ok)
}

func TestMarkerDesyncRecovers(t *testing.T) {
	f := newFixture(t, nil)
	f.typ("Kanji")
	require.NoError(t, f.buf.ReplaceRange(skk.Range{Start: 0, End: 1}, "x"))

	err := f.press(skk.Space)
	assert.ErrorIs(t, err, skk.ErrMarkerDesync)
	assert.Equal(t, skk.SubmodeKakutei, f.sess.Submode())
	assert.Equal(t, "xかんじ", f.buf.String())
}

func TestFixateOnFocusLoss(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"漢字"}})
	f.typ("Kanji ")
	f.sess.Fixate()
	assert.Equal(t, "漢字", f.buf.String())
	f.assertKakuteiClean()

	f.typ("Kan")
	f.sess.Fixate()
	assert.Equal(t, "漢字かん", f.buf.String())
}

func TestFixateInMenuKeepsShownCandidate(t *testing.T) {
	f := newFixture(t, map[string][]string{"かんじ": {"c1", "c2", "c3", "c4", "c5"}})
	f.typ("Kanji    ")
	require.Equal(t, skk.SubmodeMenuHenkan, f.sess.Submode())
	assert.Equal(t, "▼c3", f.buf.String())

	f.sess.Fixate()
	assert.Equal(t, "c3", f.buf.String())
	f.assertKakuteiClean()
}

func TestOptionsValidate(t *testing.T) {
	buf := editor.New()
	dict := jisyo.New(nil, nil)

	_, err := skk.NewSession(skk.Options{Dictionary: dict})
	assert.Error(t, err)
	_, err = skk.NewSession(skk.Options{Editor: buf})
	assert.Error(t, err)
	_, err = skk.NewSession(skk.Options{Editor: buf, Dictionary: dict, SelectionKeys: "asdx"})
	assert.Error(t, err)
	_, err = skk.NewSession(skk.Options{Editor: buf, Dictionary: dict, SelectionKeys: "aa"})
	assert.Error(t, err)

	s, err := skk.NewSession(skk.Options{Editor: buf, Dictionary: dict})
	require.NoError(t, err)
	assert.Equal(t, skk.ModeAscii, s.Mode())
}
