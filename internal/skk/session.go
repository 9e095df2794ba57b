// Package skk implements the SKK conversion state machine.
//
// A Session owns the top-level input mode. Hiragana and katakana each own a
// converter whose state is one of the conversion submodes (kakutei,
// midashigo, inline henkan, menu henkan, candidate deletion, abbrev). Key
// events are processed one at a time to completion; callers must serialize
// them.
package skk

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skkime/internal/romaji"
)

// DefaultSelectionKeys label the candidates of one menu page.
const DefaultSelectionKeys = "asdfjkl"

// DefaultInlineCount is the number of candidates cycled inline before the
// menu opens.
const DefaultInlineCount = 3

// Options configures a Session.
type Options struct {
	Editor     Editor
	Dictionary Provider

	// Rules is the romaji table. Nil selects romaji.DefaultTable.
	Rules *romaji.Table

	Logger *slog.Logger

	// SelectionKeys label menu candidates; the page size is its length.
	SelectionKeys string

	InlineCount int

	// CancelToKakutei makes ctrlG in a candidate submode discard the
	// conversion outright instead of stepping back to the headword.
	CancelToKakutei bool

	// Now is the clock used for the date candidate.
	Now func() time.Time

	InitialMode InputMode
}

func (o *Options) setDefaults() {
	if o.Rules == nil {
		o.Rules = romaji.DefaultTable()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.SelectionKeys == "" {
		o.SelectionKeys = DefaultSelectionKeys
	}
	if o.InlineCount <= 0 {
		o.InlineCount = DefaultInlineCount
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.Editor == nil {
		return errors.New("skk: editor is required")
	}
	if o.Dictionary == nil {
		return errors.New("skk: dictionary is required")
	}
	if err := ValidateSelectionKeys(o.SelectionKeys); err != nil {
		return err
	}
	if o.InitialMode < ModeAscii || o.InitialMode > ModeKatakana {
		return fmt.Errorf("skk: invalid initial mode %d", o.InitialMode)
	}
	return nil
}

// ValidateSelectionKeys checks a menu label set: distinct lowercase letters
// other than x, which pages back.
func ValidateSelectionKeys(keys string) error {
	seen := make(map[rune]bool)
	for _, r := range keys {
		if r < 'a' || r > 'z' {
			return fmt.Errorf("skk: selection key %q is not a lowercase letter", r)
		}
		if r == 'x' {
			return errors.New("skk: x cannot be a selection key")
		}
		if seen[r] {
			return fmt.Errorf("skk: duplicate selection key %q", r)
		}
		seen[r] = true
	}
	return nil
}

// Registration is a lookup miss waiting for the user to supply a word.
type Registration struct {
	// Key is the dictionary headword, including the okuri letter.
	Key string
	// Okuri and Suffix are appended after the registered word.
	Okuri  string
	Suffix string
	// Headword is the kana text to restore when registration is cancelled.
	Headword string
}

// Session is a single SKK input context.
type Session struct {
	opts     Options
	editor   Editor
	dict     Provider
	logger   *slog.Logger
	selKeys  []rune
	mode     InputMode
	hiragana *converter
	katakana *converter
	awaiting *Registration
}

// NewSession creates a session in opts.InitialMode.
func NewSession(opts Options) (*Session, error) {
	opts.setDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		opts:    opts,
		editor:  opts.Editor,
		dict:    opts.Dictionary,
		logger:  opts.Logger,
		selKeys: []rune(opts.SelectionKeys),
		mode:    opts.InitialMode,
	}
	s.hiragana = newConverter(s, romaji.Hiragana)
	s.katakana = newConverter(s, romaji.Katakana)
	s.editor.SetInputMode(s.mode)
	return s, nil
}

// Mode returns the current top-level mode.
func (s *Session) Mode() InputMode {
	return s.mode
}

// Submode returns the conversion state of the current kana mode, or
// SubmodeKakutei in Ascii and Zenei.
func (s *Session) Submode() Submode {
	if c := s.active(); c != nil {
		return c.submode()
	}
	return SubmodeKakutei
}

// PendingRomaji returns unconverted input of the active converter.
func (s *Session) PendingRomaji() string {
	if c := s.active(); c != nil {
		return c.engine.Remainder()
	}
	return ""
}

func (s *Session) active() *converter {
	switch s.mode {
	case ModeHiragana:
		return s.hiragana
	case ModeKatakana:
		return s.katakana
	}
	return nil
}

// SetMode switches the top-level mode after fixating any conversion in
// progress.
func (s *Session) SetMode(m InputMode) {
	if c := s.active(); c != nil {
		c.fixate()
	}
	s.switchMode(m)
}

func (s *Session) switchMode(m InputMode) {
	if m == s.mode {
		return
	}
	s.logger.Debug("input mode changed", "from", s.mode.String(), "to", m.String())
	s.mode = m
	s.editor.SetInputMode(m)
	if c := s.active(); c != nil {
		c.refreshRomaji()
	}
}

// HandleKey processes one key event to completion.
func (s *Session) HandleKey(k Key) error {
	switch s.mode {
	case ModeAscii:
		return s.handleLatin(k, false)
	case ModeZenei:
		return s.handleLatin(k, true)
	default:
		return s.active().handle(k)
	}
}

func (s *Session) handleLatin(k Key, wide bool) error {
	switch k.Kind {
	case LowerAlpha, UpperAlpha, Number, Symbol, Space:
		text := string(k.Rune)
		if wide {
			text = romaji.Widen(text)
		}
		return s.editor.InsertOrReplaceSelection(text)
	case Enter:
		return s.editor.InsertOrReplaceSelection("\n")
	case Backspace:
		s.editor.DeleteLeft()
	case CtrlJ:
		s.switchMode(ModeHiragana)
	}
	return nil
}

// Fixate commits any conversion in progress as it is displayed.
func (s *Session) Fixate() {
	if c := s.active(); c != nil {
		c.fixate()
	}
}

// Cancel discards any conversion in progress and returns to Kakutei.
func (s *Session) Cancel() {
	if c := s.active(); c != nil {
		c.cancel()
	}
}

// AwaitingRegistration returns the pending registration, if any.
func (s *Session) AwaitingRegistration() (Registration, bool) {
	if s.awaiting == nil {
		return Registration{}, false
	}
	return *s.awaiting, true
}

func (s *Session) invalid(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	s.editor.ShowErrorMessage(msg)
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
