package main

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"skkime/internal/ime"
	"skkime/internal/skk"
)

const helpLine = "C-j かな | q カナ | l ASCII | L 全英 | / abbrev | C-c quit"

// terminal is a minimal text area fed through a Composer. Committed text
// goes into doc; the preedit is drawn after it.
type terminal struct {
	composer *ime.Composer
	doc      []rune
	message  string
}

func newTerminal(c *ime.Composer) *terminal {
	return &terminal{composer: c}
}

// text returns the committed document.
func (t *terminal) text() string {
	return string(t.doc)
}

func (t *terminal) commit() {
	t.doc = append(t.doc, []rune(t.composer.Flush())...)
}

// handleKey applies one key event and reports whether the loop should keep
// running.
func (t *terminal) handleKey(ev *tcell.EventKey) bool {
	t.message = ""
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ:
		t.doc = append(t.doc, []rune(t.composer.Fixate())...)
		return false
	}

	k, ok := keyFromEvent(ev)
	if !ok {
		if !t.composer.Empty() {
			t.doc = append(t.doc, []rune(t.composer.Fixate())...)
		}
		if ev.Key() == tcell.KeyTab {
			t.doc = append(t.doc, '\t')
		}
		return true
	}

	res := t.composer.HandleKey(k)
	t.commit()
	if res.Registered {
		t.message = "登録しました"
	}
	if !res.Consumed {
		t.edit(k)
	}
	return true
}

// edit performs the plain text action of a key the engine passed on.
func (t *terminal) edit(k skk.Key) {
	switch k.Kind {
	case skk.Enter:
		t.doc = append(t.doc, '\n')
	case skk.Backspace:
		if len(t.doc) > 0 {
			t.doc = t.doc[:len(t.doc)-1]
		}
	case skk.LowerAlpha, skk.UpperAlpha, skk.Number, skk.Symbol, skk.Space:
		t.doc = append(t.doc, k.Rune)
	}
}

// keyFromEvent maps terminal keys onto engine keys. Escape cancels like
// ctrl-g. Alt chords are left to the terminal.
func keyFromEvent(ev *tcell.EventKey) (skk.Key, bool) {
	switch ev.Key() {
	case tcell.KeyRune:
		if ev.Modifiers()&tcell.ModAlt != 0 {
			return skk.Key{}, false
		}
		return skk.Classify(ev.Rune(), false)
	case tcell.KeyEnter:
		return skk.NamedKey(skk.Enter), true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return skk.NamedKey(skk.Backspace), true
	case tcell.KeyCtrlJ:
		return skk.NamedKey(skk.CtrlJ), true
	case tcell.KeyCtrlG, tcell.KeyEscape:
		return skk.NamedKey(skk.CtrlG), true
	}
	return skk.Key{}, false
}

func (t *terminal) draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()
	if w < 10 || h < 3 {
		s.Show()
		return
	}

	base := tcell.StyleDefault
	preeditStyle := base.Underline(true)
	statusStyle := base.Reverse(true)
	helpStyle := base.Foreground(tcell.ColorGray)

	contentH := h - 2
	lines := strings.Split(string(t.doc), "\n")
	start := max(0, len(lines)-contentH)
	visible := lines[start:]
	for row, line := range visible {
		drawText(s, 0, row, w, line, base)
	}

	lastRow := len(visible) - 1
	x := runewidth.StringWidth(visible[lastRow])
	preedit, cursor := t.composer.Preedit()
	drawText(s, x, lastRow, w, preedit, preeditStyle)
	cx := x + runewidth.StringWidth(string([]rune(preedit)[:cursor]))
	if cx < w {
		s.ShowCursor(cx, lastRow)
	} else {
		s.HideCursor()
	}

	status := "[" + t.composer.Mode().Indicator() + "]"
	if aux := t.composer.Aux(); aux != "" {
		status += " " + aux
	}
	if t.message != "" {
		status += " " + t.message
	}
	fillRow(s, h-2, w, statusStyle)
	drawText(s, 0, h-2, w, status, statusStyle)
	drawText(s, 0, h-1, w, helpLine, helpStyle)
	s.Show()
}

// drawText draws text from x, clipping at width, and returns the column
// after the last cell drawn.
func drawText(s tcell.Screen, x, y, width int, text string, st tcell.Style) int {
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if r == '\t' {
			rw = 1
			r = ' '
		}
		if rw <= 0 {
			continue
		}
		if x+rw > width {
			break
		}
		s.SetContent(x, y, r, nil, st)
		x += rw
	}
	return x
}

func fillRow(s tcell.Screen, y, w int, st tcell.Style) {
	for x := range w {
		s.SetContent(x, y, ' ', nil, st)
	}
}
