package skk

import "skkime/internal/jisyo"

// Headword sentinels.
const (
	MarkerMidashigo = "▽"
	MarkerHenkan    = "▼"
)

// Range is a half-open span of rune offsets in the host text.
type Range struct {
	Start, End int
}

// Len returns the number of runes in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// DeleteLeftResult reports what Editor.DeleteLeft removed.
type DeleteLeftResult int

const (
	// MarkerDeleted means the character removed was the headword sentinel.
	MarkerDeleted DeleteLeftResult = iota
	// MarkerNotFound means a marker was recorded but its sentinel was
	// gone; another character was deleted.
	MarkerNotFound
	// OtherDeleted means an ordinary character was deleted.
	OtherDeleted
	// NoEditor means there was nothing to delete.
	NoEditor
)

// Editor is the host text buffer the engine edits. Offsets are runes.
//
// The headword marker is the position of the sentinel character that starts
// the current headword. While a marker is set, the cursor is after it.
type Editor interface {
	InsertOrReplaceSelection(text string) error
	ReplaceRange(r Range, text string) error
	GetTextInRange(r Range) (string, error)
	DeleteLeft() DeleteLeftResult

	// SetMidashigoStartToCurrentPosition inserts the ▽ sentinel at the
	// cursor and records it as the headword marker.
	SetMidashigoStartToCurrentPosition()

	// ExtractMidashigo returns the text between the sentinel and the
	// cursor. It reports false when no marker is set or the sentinel is
	// missing.
	ExtractMidashigo() (string, bool)

	// CalcMidashigoRange returns the span from the sentinel to the cursor,
	// sentinel included.
	CalcMidashigoRange() (Range, bool)

	// FixateMidashigo removes the sentinel, keeping the headword text.
	FixateMidashigo() bool

	// ClearMidashigo removes the sentinel and the headword text.
	ClearMidashigo() bool

	ToggleCharTypeInMidashigoAndFixateMidashigo() bool

	// ShowCandidate replaces the headword span with ▼word+okuri+suffix and
	// displays the annotation. A nil candidate hides the annotation only.
	ShowCandidate(c *jisyo.Candidate, okuri, suffix string)

	ShowCandidateList(cands []jisyo.Candidate, selectionKeys []rune)
	HideCandidateList()

	// FixateCandidate replaces the headword span with text and clears the
	// marker.
	FixateCandidate(text string) bool

	// ClearCandidate removes the headword span and clears the marker.
	ClearCandidate() bool

	// ShowRemainingRomaji displays unconverted input. For okurigana the
	// text holds completed okuri kana followed by romaji starting at offset.
	ShowRemainingRomaji(text string, isOkuri bool, offset int)

	ShowErrorMessage(msg string)
	OpenRegistrationEditor(key, okuri string)

	SetInputMode(m InputMode)
	CurrentInputMode() InputMode
}

// Provider is the dictionary the engine converts against. It is satisfied by
// *jisyo.Dictionary.
type Provider interface {
	LookupCandidates(key string) (*jisyo.Entry, bool)
	RegisterCandidate(key string, c jisyo.Candidate) bool
	ReorderCandidate(key string, index int) bool
	DeleteCandidate(key string, c jisyo.Candidate) bool
}

var _ Provider = (*jisyo.Dictionary)(nil)
