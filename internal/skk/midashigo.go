package skk

import (
	"strings"

	"skkime/internal/jisyo"
	"skkime/internal/romaji"
)

// closingPunctuation ends a headword; the mark is kept as a suffix that
// follows the converted word.
const closingPunctuation = "。、．，」』］!！:：;；"

func (c *converter) handleMidashigo(st *midashigo, k Key) error {
	if st.okuri != nil {
		return c.handleOkurigana(st, k)
	}

	switch k.Kind {
	case LowerAlpha:
		if (k.Rune == 'l' || k.Rune == 'q') && !c.engine.CanExtend(k.Rune) {
			if err := c.flushPending(); err != nil {
				return err
			}
			if k.Rune == 'q' {
				if !c.s.editor.ToggleCharTypeInMidashigoAndFixateMidashigo() {
					return c.desync()
				}
				c.toKakutei()
				return nil
			}
			if !c.s.editor.FixateMidashigo() {
				return c.desync()
			}
			c.toKakutei()
			c.s.switchMode(ModeAscii)
			return nil
		}
		return c.insert(c.engine.Input(k.Rune))

	case UpperAlpha:
		stem, err := c.headword()
		if err != nil {
			return err
		}
		if stem == "" {
			return c.insert(c.engine.Input(k.Lower()))
		}
		if err := c.flushPending(); err != nil {
			return err
		}
		m := &midashigo{okuri: romaji.NewEngine(c.s.opts.Rules, c.engine.Kana())}
		c.state = m
		return c.feedOkurigana(m, k.Lower())

	case Symbol:
		if k.Rune == '>' && !c.engine.CanExtend(k.Rune) {
			if err := c.flushPending(); err != nil {
				return err
			}
			if err := c.insert(">"); err != nil {
				return err
			}
			return c.convertStem("")
		}
		var out string
		if c.engine.Accepts(k.Rune) {
			out = c.engine.Input(k.Rune)
		} else {
			out = c.engine.ForceCommitPending() + string(k.Rune)
		}
		if i := strings.IndexAny(out, closingPunctuation); i >= 0 {
			if err := c.insert(out[:i]); err != nil {
				return err
			}
			return c.convertStem(out[i:])
		}
		return c.insert(out)

	case Number:
		return c.s.invalid("数字は見出し語に使えません")

	case Space:
		if err := c.flushPending(); err != nil {
			return err
		}
		return c.convertStem("")

	case Enter:
		if err := c.fixateHeadword(); err != nil {
			return err
		}
		return c.insert("\n")

	case CtrlJ:
		return c.fixateHeadword()

	case CtrlG:
		return c.clearHeadword()

	case Backspace:
		if c.engine.Backspace() {
			return nil
		}
		return c.deleteInHeadword()
	}
	return nil
}

// convertStem converts the current headword with no okurigana. With a
// suffix and an empty headword the suffix is inserted as plain text.
func (c *converter) convertStem(suffix string) error {
	stem, err := c.headword()
	if err != nil {
		return err
	}
	if stem == "" {
		if suffix == "" {
			return nil
		}
		if err := c.clearHeadword(); err != nil {
			return err
		}
		return c.insert(suffix)
	}
	return c.convert(romaji.ToHiragana(stem), stem, "", suffix, false)
}

func (c *converter) handleOkurigana(st *midashigo, k Key) error {
	switch k.Kind {
	case LowerAlpha, UpperAlpha:
		return c.feedOkurigana(st, k.Lower())

	case Space:
		if st.okuriKana != "" {
			return c.convertOkurigana(st)
		}
		c.state = &midashigo{}
		return c.convertStem("")

	case Enter, CtrlJ:
		if err := c.insert(st.okuriKana); err != nil {
			return err
		}
		if err := c.fixateHeadword(); err != nil {
			return err
		}
		if k.Kind == Enter {
			return c.insert("\n")
		}
		return nil

	case CtrlG:
		return c.clearHeadword()

	case Backspace:
		if st.okuri.Backspace() {
			if !st.okuri.Pending() && st.okuriKana == "" {
				c.state = &midashigo{}
			}
			return nil
		}
		c.state = &midashigo{}
		return nil
	}
	return c.s.invalid("送り仮名の入力中です")
}

func (c *converter) feedOkurigana(st *midashigo, r rune) error {
	out := st.okuri.Input(r)
	if out == "" {
		return nil
	}
	st.okuriKana += out
	if st.okuri.Pending() {
		// A sokuon keeps its consonant pending; wait for the mora.
		return nil
	}
	return c.convertOkurigana(st)
}

// convertOkurigana looks up stem + okuri letter, e.g. "か" + "k" for 書く.
func (c *converter) convertOkurigana(st *midashigo) error {
	stem, err := c.headword()
	if err != nil {
		return err
	}
	letter, ok := jisyo.OkuriConsonant(st.okuriKana)
	if !ok {
		c.state = &midashigo{}
		if err := c.insert(st.okuriKana); err != nil {
			return err
		}
		return c.s.invalid("送り仮名にできない文字です")
	}
	return c.convert(romaji.ToHiragana(stem)+string(letter), stem, st.okuriKana, "", false)
}

func (c *converter) fixateHeadword() error {
	if err := c.flushPending(); err != nil {
		return err
	}
	if !c.s.editor.FixateMidashigo() {
		return c.desync()
	}
	c.toKakutei()
	return nil
}

func (c *converter) clearHeadword() error {
	c.engine.Reset()
	if !c.s.editor.ClearMidashigo() {
		return c.desync()
	}
	c.toKakutei()
	return nil
}

// deleteInHeadword deletes one character left of the cursor. Deleting the
// sentinel itself ends the headword.
func (c *converter) deleteInHeadword() error {
	switch c.s.editor.DeleteLeft() {
	case MarkerDeleted:
		c.toKakutei()
	case MarkerNotFound, NoEditor:
		return c.desync()
	}
	return nil
}

func (c *converter) handleAbbrev(k Key) error {
	switch k.Kind {
	case LowerAlpha, UpperAlpha, Number, Symbol:
		return c.insert(string(k.Rune))

	case Space:
		text, err := c.headword()
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return c.convert(text, text, "", "", true)

	case Enter:
		if err := c.fixateHeadword(); err != nil {
			return err
		}
		return c.insert("\n")

	case CtrlJ:
		return c.fixateHeadword()

	case CtrlG:
		return c.clearHeadword()

	case Backspace:
		return c.deleteInHeadword()
	}
	return nil
}
