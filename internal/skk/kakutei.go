package skk

func (c *converter) otherKana() InputMode {
	if c.s.mode == ModeKatakana {
		return ModeHiragana
	}
	return ModeKatakana
}

func (c *converter) handleKakutei(k Key) error {
	switch k.Kind {
	case LowerAlpha:
		if (k.Rune == 'l' || k.Rune == 'q') && !c.engine.CanExtend(k.Rune) {
			if err := c.flushPending(); err != nil {
				return err
			}
			if k.Rune == 'l' {
				c.s.switchMode(ModeAscii)
			} else {
				c.s.switchMode(c.otherKana())
			}
			return nil
		}
		return c.insert(c.engine.Input(k.Rune))

	case UpperAlpha:
		if k.Rune == 'L' {
			if err := c.flushPending(); err != nil {
				return err
			}
			c.s.switchMode(ModeZenei)
			return nil
		}
		return c.startMidashigo(k)

	case Symbol:
		if !c.engine.CanExtend(k.Rune) {
			switch k.Rune {
			case '@':
				return c.startToday()
			case '/':
				if err := c.flushPending(); err != nil {
					return err
				}
				c.s.editor.SetMidashigoStartToCurrentPosition()
				c.state = &abbrev{}
				return nil
			}
		}
		if !c.engine.Accepts(k.Rune) {
			if err := c.flushPending(); err != nil {
				return err
			}
			return c.insert(string(k.Rune))
		}
		return c.insert(c.engine.Input(k.Rune))

	case Number:
		if err := c.flushPending(); err != nil {
			return err
		}
		return c.insert(string(k.Rune))

	case Space:
		if err := c.flushPending(); err != nil {
			return err
		}
		return c.insert(" ")

	case Enter:
		if err := c.flushPending(); err != nil {
			return err
		}
		return c.insert("\n")

	case Backspace:
		if c.engine.Backspace() {
			return nil
		}
		c.s.editor.DeleteLeft()

	case CtrlJ, CtrlG:
		c.engine.Reset()
	}
	return nil
}

// startMidashigo opens a headword at the cursor and feeds the lowercased
// letter into it. Pending romaji the letter extends is carried over; any
// other pending input is flushed before the sentinel.
func (c *converter) startMidashigo(k Key) error {
	lower := k.Lower()
	if !c.engine.CanExtend(lower) {
		if err := c.flushPending(); err != nil {
			return err
		}
	}
	c.s.editor.SetMidashigoStartToCurrentPosition()
	c.state = &midashigo{}
	return c.insert(c.engine.Input(lower))
}

// startToday opens an abbrev headword "today" and converts it at once.
func (c *converter) startToday() error {
	if err := c.flushPending(); err != nil {
		return err
	}
	c.s.editor.SetMidashigoStartToCurrentPosition()
	c.state = &abbrev{}
	if err := c.insert(todayKey); err != nil {
		return err
	}
	return c.convert(todayKey, todayKey, "", "", true)
}
