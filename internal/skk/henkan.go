package skk

import "skkime/internal/jisyo"

const deletionPrompt = "削除しますか？(Y/N)"

func (c *converter) handleInline(st *inlineHenkan, k Key) error {
	cv := st.conv

	switch k.Kind {
	case Space:
		next := st.index + 1
		switch {
		case next >= cv.entry.Len():
			return c.registerFrom(cv)
		case next >= c.s.opts.InlineCount:
			m := &menuHenkan{conv: cv}
			c.state = m
			c.showMenu(m)
		default:
			h := &inlineHenkan{conv: cv, index: next}
			c.state = h
			c.showInline(h)
		}
		return nil

	case LowerAlpha:
		switch k.Rune {
		case 'x':
			if st.index == 0 {
				return c.restore(cv)
			}
			h := &inlineHenkan{conv: cv, index: st.index - 1}
			c.state = h
			c.showInline(h)
			return nil
		case 'l':
			if err := c.fixateConversion(cv, st.index); err != nil {
				return err
			}
			c.s.switchMode(ModeAscii)
			return nil
		case 'q':
			if err := c.fixateConversion(cv, st.index); err != nil {
				return err
			}
			c.s.switchMode(c.otherKana())
			return nil
		}

	case UpperAlpha:
		switch k.Rune {
		case 'X':
			return c.startDeletion(st)
		case 'L':
			if err := c.fixateConversion(cv, st.index); err != nil {
				return err
			}
			c.s.switchMode(ModeZenei)
			return nil
		}

	case Enter:
		if err := c.fixateConversion(cv, st.index); err != nil {
			return err
		}
		return c.insert("\n")

	case Backspace:
		if err := c.fixateConversion(cv, st.index); err != nil {
			return err
		}
		c.s.editor.DeleteLeft()
		return nil

	case CtrlJ:
		return c.fixateConversion(cv, st.index)

	case CtrlG:
		return c.cancelConversion(cv)
	}

	// Any other printable key commits the candidate and starts afresh.
	if err := c.fixateConversion(cv, st.index); err != nil {
		return err
	}
	return c.handle(k)
}

// pageBounds returns the candidate span shown on page.
func (c *converter) pageBounds(cv *conversion, page int) (start, end int) {
	size := len(c.s.selKeys)
	start = c.s.opts.InlineCount + page*size
	end = min(start+size, cv.entry.Len())
	return start, end
}

func (c *converter) showMenu(m *menuHenkan) {
	start, end := c.pageBounds(m.conv, m.page)
	cooked := m.conv.entry.Cooked()
	c.s.editor.ShowCandidateList(cooked[start:end], c.s.selKeys[:end-start])
}

func (c *converter) selectionIndex(r rune) int {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	for i, k := range c.s.selKeys {
		if k == r {
			return i
		}
	}
	return -1
}

func (c *converter) handleMenu(st *menuHenkan, k Key) error {
	cv := st.conv
	start, end := c.pageBounds(cv, st.page)

	switch k.Kind {
	case Space:
		next := &menuHenkan{conv: cv, page: st.page + 1}
		if s, _ := c.pageBounds(cv, next.page); s >= cv.entry.Len() {
			return c.registerFrom(cv)
		}
		c.state = next
		c.showMenu(next)
		return nil

	case Backspace:
		return c.menuBack(st)

	case LowerAlpha, UpperAlpha:
		if k.Rune == 'x' {
			return c.menuBack(st)
		}
		i := c.selectionIndex(k.Rune)
		if i < 0 {
			return c.s.invalid("%c は候補の選択キーではありません", k.Rune)
		}
		if start+i >= end {
			return c.s.invalid("%c に対応する候補はありません", k.Rune)
		}
		return c.fixateConversion(cv, start+i)

	case Symbol:
		if k.Rune == '.' {
			return c.registerFrom(cv)
		}

	case CtrlG:
		return c.cancelConversion(cv)
	}
	return c.s.invalid("候補を選択してください")
}

func (c *converter) menuBack(st *menuHenkan) error {
	if st.page == 0 {
		c.s.editor.HideCandidateList()
		h := &inlineHenkan{conv: st.conv, index: c.s.opts.InlineCount - 1}
		c.state = h
		c.showInline(h)
		return nil
	}
	m := &menuHenkan{conv: st.conv, page: st.page - 1}
	c.state = m
	c.showMenu(m)
	return nil
}

// startDeletion asks for confirmation before deleting the displayed
// candidate from the user dictionary.
func (c *converter) startDeletion(st *inlineHenkan) error {
	cv := st.conv
	if st.index < cv.entry.Synthetic {
		return c.s.invalid("この候補は削除できません")
	}
	word := cv.entry.At(st.index).Word
	fresh, ok := c.s.dict.LookupCandidates(cv.key)
	if !ok {
		return c.s.invalid("辞書に登録されていません")
	}
	var target *jisyo.Candidate
	for _, cand := range fresh.Candidates {
		if cand.Word == word {
			target = &cand
			break
		}
	}
	if target == nil {
		return c.s.invalid("辞書に登録されていません")
	}

	d := &candidateDeletion{from: st, candidate: *target}
	c.state = d
	prompt := jisyo.Candidate{Word: target.Word, Annotation: deletionPrompt}
	c.s.editor.ShowCandidate(&prompt, cv.okuri, cv.suffix)
	return nil
}

func (c *converter) handleDeletion(st *candidateDeletion, k Key) error {
	switch {
	case k.Kind == UpperAlpha && k.Rune == 'Y':
		cv := st.from.conv
		if !c.s.dict.DeleteCandidate(cv.key, st.candidate) {
			c.s.logger.Warn("candidate deletion had no effect on the user dictionary")
		}
		if !c.s.editor.ClearCandidate() {
			return c.desync()
		}
		c.toKakutei()
		return nil

	case k.Kind == CtrlG && c.s.opts.CancelToKakutei:
		return c.cancelConversion(st.from.conv)

	case k.Kind == UpperAlpha && k.Rune == 'N', k.Kind == CtrlG:
		h := &inlineHenkan{conv: st.from.conv, index: st.from.index}
		c.state = h
		c.showInline(h)
		return nil
	}
	return c.s.invalid("Y か N を入力してください")
}
