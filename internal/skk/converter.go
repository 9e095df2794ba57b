package skk

import (
	"unicode/utf8"

	"skkime/internal/jisyo"
	"skkime/internal/romaji"
)

// state is one conversion submode. A fresh value is allocated on every
// transition; variants never outlive the episode they were created for.
type state interface {
	kind() Submode
}

type kakutei struct{}

// midashigo captures a headword after ▽. okuri is non-nil in the okurigana
// phase; okuriKana holds kana already produced for it (a sokuon) while the
// final mora is still being typed.
type midashigo struct {
	okuri     *romaji.Engine
	okuriKana string
}

type abbrev struct{}

// conversion is the immutable context shared by the candidate submodes of
// one conversion episode.
type conversion struct {
	key    string
	stem   string
	okuri  string
	suffix string
	entry  *jisyo.Entry
	abbrev bool
}

func (cv *conversion) headword() string {
	return cv.stem + cv.okuri + cv.suffix
}

type inlineHenkan struct {
	conv  *conversion
	index int
}

// menuHenkan shows page of the candidates that follow the inline ones.
type menuHenkan struct {
	conv *conversion
	page int
}

type candidateDeletion struct {
	from      *inlineHenkan
	candidate jisyo.Candidate
}

func (*kakutei) kind() Submode           { return SubmodeKakutei }
func (*midashigo) kind() Submode         { return SubmodeMidashigo }
func (*abbrev) kind() Submode            { return SubmodeAbbrev }
func (*inlineHenkan) kind() Submode      { return SubmodeInlineHenkan }
func (*menuHenkan) kind() Submode        { return SubmodeMenuHenkan }
func (*candidateDeletion) kind() Submode { return SubmodeCandidateDeletion }

// converter runs the submode machine for one kana mode.
type converter struct {
	s      *Session
	engine *romaji.Engine
	state  state
}

func newConverter(s *Session, k romaji.Kana) *converter {
	return &converter{
		s:      s,
		engine: romaji.NewEngine(s.opts.Rules, k),
		state:  &kakutei{},
	}
}

func (c *converter) submode() Submode {
	if m, ok := c.state.(*midashigo); ok && m.okuri != nil {
		return SubmodeOkurigana
	}
	return c.state.kind()
}

func (c *converter) handle(k Key) error {
	var err error
	switch st := c.state.(type) {
	case *kakutei:
		err = c.handleKakutei(k)
	case *midashigo:
		err = c.handleMidashigo(st, k)
	case *abbrev:
		err = c.handleAbbrev(k)
	case *inlineHenkan:
		err = c.handleInline(st, k)
	case *menuHenkan:
		err = c.handleMenu(st, k)
	case *candidateDeletion:
		err = c.handleDeletion(st, k)
	}
	c.refreshRomaji()
	return err
}

func (c *converter) refreshRomaji() {
	if m, ok := c.state.(*midashigo); ok && m.okuri != nil {
		c.s.editor.ShowRemainingRomaji(m.okuriKana+m.okuri.Remainder(), true, utf8.RuneCountInString(m.okuriKana))
		return
	}
	c.s.editor.ShowRemainingRomaji(c.engine.Remainder(), false, 0)
}

func (c *converter) insert(text string) error {
	if text == "" {
		return nil
	}
	return c.s.editor.InsertOrReplaceSelection(text)
}

// flushPending commits an ambiguous "n" and drops any other pending romaji.
func (c *converter) flushPending() error {
	return c.insert(c.engine.ForceCommitPending())
}

func (c *converter) toKakutei() {
	c.engine.Reset()
	c.state = &kakutei{}
}

func (c *converter) desync() error {
	c.s.logger.Warn("headword marker lost, returning to kakutei", "submode", c.state.kind().String())
	c.s.editor.HideCandidateList()
	c.toKakutei()
	return ErrMarkerDesync
}

// headword returns the text after ▽.
func (c *converter) headword() (string, error) {
	text, ok := c.s.editor.ExtractMidashigo()
	if !ok {
		return "", c.desync()
	}
	return text, nil
}

func (c *converter) lookup(key string) (*jisyo.Entry, bool) {
	entry, ok := c.s.dict.LookupCandidates(key)
	if key == todayKey {
		if !ok {
			entry = &jisyo.Entry{Key: key}
		}
		return entry.Prepend(todayCandidate(c.s.opts.Now())), true
	}
	return entry, ok
}

// convert looks key up and enters InlineHenkan on a hit or hands off to
// registration on a miss.
func (c *converter) convert(key, stem, okuri, suffix string, isAbbrev bool) error {
	c.engine.Reset()
	entry, ok := c.lookup(key)
	if !ok || entry.Len() == 0 {
		c.s.logger.Debug("dictionary miss", "okuri", okuri != "")
		if !c.s.editor.ClearMidashigo() {
			return c.desync()
		}
		c.startRegistration(Registration{
			Key:      key,
			Okuri:    okuri,
			Suffix:   suffix,
			Headword: stem + okuri + suffix,
		})
		return nil
	}

	h := &inlineHenkan{conv: &conversion{
		key:    key,
		stem:   stem,
		okuri:  okuri,
		suffix: suffix,
		entry:  entry.WithOkuri(okuri),
		abbrev: isAbbrev,
	}}
	c.state = h
	c.showInline(h)
	return nil
}

func (c *converter) showInline(h *inlineHenkan) {
	cand := h.conv.entry.At(h.index)
	c.s.editor.ShowCandidate(&cand, h.conv.okuri, h.conv.suffix)
}

func (c *converter) startRegistration(r Registration) {
	c.s.awaiting = &r
	c.s.editor.HideCandidateList()
	c.toKakutei()
	c.s.logger.Debug("registration requested", "okuri", r.Okuri != "")
	c.s.editor.OpenRegistrationEditor(r.Key, r.Okuri)
}

// registerFrom abandons a displayed conversion in favour of registration.
func (c *converter) registerFrom(cv *conversion) error {
	c.s.editor.HideCandidateList()
	if !c.s.editor.ClearCandidate() {
		return c.desync()
	}
	c.startRegistration(Registration{
		Key:      cv.key,
		Okuri:    cv.okuri,
		Suffix:   cv.suffix,
		Headword: cv.headword(),
	})
	return nil
}

// restore puts the headword back as ▽stem+okuri+suffix in the stem phase.
func (c *converter) restore(cv *conversion) error {
	c.s.editor.HideCandidateList()
	rng, ok := c.s.editor.CalcMidashigoRange()
	if !ok {
		return c.desync()
	}
	if err := c.s.editor.ReplaceRange(rng, MarkerMidashigo+cv.headword()); err != nil {
		return err
	}
	c.s.editor.ShowCandidate(nil, "", "")
	c.engine.Reset()
	if cv.abbrev {
		c.state = &abbrev{}
	} else {
		c.state = &midashigo{}
	}
	return nil
}

// cancelConversion handles ctrlG in a candidate submode.
func (c *converter) cancelConversion(cv *conversion) error {
	if !c.s.opts.CancelToKakutei {
		return c.restore(cv)
	}
	c.s.editor.HideCandidateList()
	if !c.s.editor.ClearCandidate() {
		return c.desync()
	}
	c.toKakutei()
	return nil
}

// promote moves the selected candidate to the front of the user layer.
// Generated candidates and the current first candidate are left alone.
func (c *converter) promote(cv *conversion, index int) {
	if index < cv.entry.Synthetic {
		return
	}
	word := cv.entry.At(index).Word
	fresh, ok := c.s.dict.LookupCandidates(cv.key)
	if !ok {
		return
	}
	for i, cand := range fresh.Candidates {
		if cand.Word != word {
			continue
		}
		if i > 0 && !c.s.dict.ReorderCandidate(cv.key, i) {
			c.s.logger.Warn("candidate promotion not persisted", "index", i)
		}
		return
	}
}

// fixateConversion commits candidate index and returns to Kakutei.
func (c *converter) fixateConversion(cv *conversion, index int) error {
	c.promote(cv, index)
	c.s.editor.HideCandidateList()
	if !c.s.editor.FixateCandidate(cv.entry.At(index).Word + cv.okuri + cv.suffix) {
		return c.desync()
	}
	c.toKakutei()
	return nil
}

// fixate commits whatever is displayed, as on focus loss.
func (c *converter) fixate() {
	switch st := c.state.(type) {
	case *kakutei:
		c.flushPending()
	case *midashigo:
		c.flushPending()
		if st.okuri != nil {
			c.insert(st.okuriKana)
		}
		c.s.editor.FixateMidashigo()
	case *abbrev:
		c.s.editor.FixateMidashigo()
	case *inlineHenkan:
		c.fixateConversion(st.conv, st.index)
	case *menuHenkan:
		// The ▼ text stays on the last inline candidate while the menu is open.
		c.fixateConversion(st.conv, c.s.opts.InlineCount-1)
	case *candidateDeletion:
		c.fixateConversion(st.from.conv, st.from.index)
	}
	c.toKakutei()
	c.refreshRomaji()
}

// cancel discards the conversion in progress.
func (c *converter) cancel() {
	switch c.state.(type) {
	case *midashigo, *abbrev:
		c.s.editor.ClearMidashigo()
	case *inlineHenkan, *menuHenkan, *candidateDeletion:
		c.s.editor.HideCandidateList()
		c.s.editor.ClearCandidate()
	}
	c.toKakutei()
	c.refreshRomaji()
}
