package ime

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"skkime/internal/editor"
	"skkime/internal/skk"
)

// MaxRegistrationDepth bounds how many registrations may be nested inside
// each other.
const MaxRegistrationDepth = 3

const registrationTooDeep = "これ以上辞書登録を入れ子にできません"

// Result describes what a key did.
type Result struct {
	// Consumed is false when the key should reach the application.
	Consumed bool

	// Converted is set when the key started a conversion.
	Converted bool

	// Registered is set when the key completed a dictionary registration.
	Registered bool
}

// Composer hosts a Session over an in-memory buffer for frontends that only
// see preedit and commit text. A lookup miss opens a child composer in
// which the user types the new word; Enter submits it and ctrl-g on an
// empty child abandons it.
type Composer struct {
	opts    skk.Options
	buf     *editor.Buffer
	session *skk.Session
	logger  *slog.Logger
	depth   int

	child  *Composer
	regKey string
}

// NewComposer creates a top-level composer. opts.Editor is ignored.
func NewComposer(opts skk.Options) (*Composer, error) {
	return newComposer(opts, 0)
}

func newComposer(opts skk.Options, depth int) (*Composer, error) {
	buf := editor.New()
	opts.Editor = buf
	if depth > 0 {
		opts.InitialMode = skk.ModeHiragana
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	session, err := skk.NewSession(opts)
	if err != nil {
		return nil, err
	}
	return &Composer{
		opts:    opts,
		buf:     buf,
		session: session,
		logger:  opts.Logger,
		depth:   depth,
	}, nil
}

// HandleKey processes one key. Callers take the finished text with Flush
// afterwards.
func (c *Composer) HandleKey(k skk.Key) Result {
	if c.child != nil {
		return c.handleChild(k)
	}

	c.buf.ClearError()
	if c.depth == 0 && c.passThrough(k) {
		return Result{}
	}

	before := c.session.Submode()
	if err := c.session.HandleKey(k); err != nil {
		c.report(err, k)
	}
	res := Result{Consumed: true}
	if before != skk.SubmodeInlineHenkan && c.session.Submode() == skk.SubmodeInlineHenkan {
		res.Converted = true
	}
	c.openRegistration()
	return res
}

func (c *Composer) passThrough(k skk.Key) bool {
	if c.session.Mode() == skk.ModeAscii {
		return k.Kind != skk.CtrlJ
	}
	if !c.Empty() {
		return false
	}
	switch k.Kind {
	case skk.Enter, skk.Backspace, skk.CtrlG:
		return true
	}
	return false
}

func (c *Composer) report(err error, k skk.Key) {
	switch {
	case errors.Is(err, skk.ErrInvalidInput):
		c.logger.Debug("key rejected", "key", k.String(), "submode", c.session.Submode().String())
	case errors.Is(err, skk.ErrMarkerDesync):
		c.logger.Warn("composition reset", "error", err)
	default:
		c.logger.Error("key handling failed", "key", k.String(), "error", err)
	}
}

// openRegistration starts a child composer when the session asked for a
// registration editor.
func (c *Composer) openRegistration() {
	req, ok := c.buf.TakeRegistrationRequest()
	if !ok {
		return
	}
	if c.depth >= MaxRegistrationDepth {
		c.cancelRegistration()
		c.buf.ShowErrorMessage(registrationTooDeep)
		return
	}
	child, err := newComposer(c.opts, c.depth+1)
	if err != nil {
		c.logger.Error("could not open registration", "error", err)
		c.cancelRegistration()
		return
	}
	c.child = child
	c.regKey = req.Key
	c.logger.Debug("registration opened", "depth", child.depth)
}

func (c *Composer) handleChild(k skk.Key) Result {
	ch := c.child
	if ch.child == nil {
		switch k.Kind {
		case skk.Enter:
			return c.submitRegistration()
		case skk.CtrlG:
			if ch.Empty() {
				c.cancelRegistration()
				return Result{Consumed: true}
			}
		}
	}
	res := ch.HandleKey(k)
	return Result{Consumed: true, Converted: res.Converted}
}

func (c *Composer) submitRegistration() Result {
	ch := c.child
	ch.session.Fixate()
	word := strings.TrimSpace(ch.buf.String())
	if word == "" {
		c.cancelRegistration()
		return Result{Consumed: true}
	}

	c.child = nil
	if err := c.session.ResumeAfterRegistration(skk.RegistrationTemplate(c.regKey) + word); err != nil {
		// The child keeps its text so the word can be corrected.
		c.child = ch
		ch.buf.ShowErrorMessage(err.Error())
		c.logger.Debug("registration rejected", "error", err)
		return Result{Consumed: true}
	}
	c.logger.Debug("registration submitted", "depth", ch.depth)
	return Result{Consumed: true, Registered: true}
}

// cancelRegistration drops the child chain and puts the headword back.
func (c *Composer) cancelRegistration() {
	c.child = nil
	c.regKey = ""
	if err := c.session.CancelRegistration(); err != nil && !errors.Is(err, skk.ErrNoRegistration) {
		c.logger.Error("cancel registration", "error", err)
	}
}

// Empty reports whether nothing is being composed.
func (c *Composer) Empty() bool {
	return c.child == nil &&
		c.buf.Len() == 0 &&
		c.session.PendingRomaji() == "" &&
		c.session.Submode() == skk.SubmodeKakutei
}

// Registering reports whether a registration is open.
func (c *Composer) Registering() bool {
	return c.child != nil
}

// Flush removes and returns the text that can no longer change.
func (c *Composer) Flush() string {
	return c.buf.TakeCommitted()
}

// Preedit renders the composition with pending romaji at the cursor. The
// cursor is returned in runes. An open registration is shown after the
// composition as [登録:reading] followed by the child's own preedit.
func (c *Composer) Preedit() (string, int) {
	text := []rune(c.buf.String())
	cur := min(c.buf.Cursor(), len(text))

	var overlay string
	if r := c.buf.RemainingRomaji(); r.Text != "" {
		if r.Okuri {
			overlay = "*"
		}
		overlay += r.Text
	}

	out := string(text[:cur]) + overlay + string(text[cur:])
	cursor := cur + utf8.RuneCountInString(overlay)

	if c.child != nil {
		prefix := out + "[登録:" + c.regKey + "]"
		childText, childCursor := c.child.Preedit()
		out = prefix + childText
		cursor = utf8.RuneCountInString(prefix) + childCursor
	}
	return out, cursor
}

// Aux returns the auxiliary line: an error, the candidate menu, or the
// annotation of the shown candidate.
func (c *Composer) Aux() string {
	if c.child != nil {
		return c.child.Aux()
	}
	if msg := c.buf.LastError(); msg != "" {
		return msg
	}
	if list, keys := c.buf.CandidateList(); len(list) > 0 {
		var b strings.Builder
		for i, cand := range list {
			if i >= len(keys) {
				break
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(keys[i])
			b.WriteByte(':')
			b.WriteString(cand.Word)
		}
		return b.String()
	}
	if cand, ok := c.buf.Candidate(); ok && cand.Annotation != "" {
		return cand.Annotation
	}
	return ""
}

// Mode returns the input mode of the innermost composer.
func (c *Composer) Mode() skk.InputMode {
	if c.child != nil {
		return c.child.Mode()
	}
	return c.session.Mode()
}

// SetMode switches the top-level mode, committing the composition.
func (c *Composer) SetMode(m skk.InputMode) string {
	commit := c.Fixate()
	c.session.SetMode(m)
	return commit
}

// Fixate abandons any registration, commits the composition as displayed
// and returns all remaining text.
func (c *Composer) Fixate() string {
	if c.child != nil {
		c.cancelRegistration()
	}
	c.session.Fixate()
	c.buf.ClearError()
	return c.Flush()
}

// Cancel abandons any registration, discards the conversion in progress and
// returns the text left over, such as a restored headword.
func (c *Composer) Cancel() string {
	if c.child != nil {
		c.cancelRegistration()
	}
	c.session.Cancel()
	c.buf.ClearError()
	return c.Fixate()
}

// Reconfigure commits the composition and replaces the session options,
// keeping the current mode.
func (c *Composer) Reconfigure(opts skk.Options) (string, error) {
	commit := c.Fixate()
	opts.Editor = c.buf
	opts.InitialMode = c.session.Mode()
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	session, err := skk.NewSession(opts)
	if err != nil {
		return commit, err
	}
	c.opts = opts
	c.session = session
	c.logger = opts.Logger
	return commit, nil
}
