// Package editor provides an in-memory host for the conversion engine: a
// rune buffer with a cursor, the headword marker, and the overlays a real
// editor would render (pending romaji, annotations, candidate lists).
package editor

import (
	"fmt"

	"skkime/internal/jisyo"
	"skkime/internal/romaji"
	"skkime/internal/skk"
)

// RegistrationRequest records a call to OpenRegistrationEditor.
type RegistrationRequest struct {
	Key   string
	Okuri string
}

// Romaji is the pending-romaji overlay.
type Romaji struct {
	Text   string
	Okuri  bool
	Offset int
}

// Buffer implements skk.Editor over a rune slice.
type Buffer struct {
	text   []rune
	cursor int
	marker int

	romaji       Romaji
	candidate    *jisyo.Candidate
	list         []jisyo.Candidate
	listKeys     []rune
	lastError    string
	registration *RegistrationRequest
	mode         skk.InputMode
}

var _ skk.Editor = (*Buffer)(nil)

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{marker: -1}
}

// NewWithText returns a buffer holding text with the cursor at the end.
func NewWithText(text string) *Buffer {
	b := New()
	b.text = []rune(text)
	b.cursor = len(b.text)
	return b
}

// String returns the whole text, sentinels included.
func (b *Buffer) String() string {
	return string(b.text)
}

// Len returns the text length in runes.
func (b *Buffer) Len() int {
	return len(b.text)
}

// Cursor returns the cursor offset.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// SetCursor moves the cursor, clamped to the text. Moving the cursor in
// front of the marker drops the marker.
func (b *Buffer) SetCursor(pos int) {
	b.cursor = max(0, min(pos, len(b.text)))
	if b.marker >= 0 && b.cursor <= b.marker {
		b.marker = -1
	}
}

// Marker returns the headword marker offset.
func (b *Buffer) Marker() (int, bool) {
	return b.marker, b.marker >= 0
}

// Reset clears text and overlays.
func (b *Buffer) Reset() {
	mode := b.mode
	*b = *New()
	b.mode = mode
}

// TakeCommitted removes and returns the text that can no longer change:
// everything before the marker, or all text when there is no marker.
func (b *Buffer) TakeCommitted() string {
	end := len(b.text)
	if b.marker >= 0 {
		end = b.marker
	}
	if end == 0 {
		return ""
	}
	out := string(b.text[:end])
	b.text = append([]rune(nil), b.text[end:]...)
	b.cursor = max(0, b.cursor-end)
	if b.marker >= 0 {
		b.marker -= end
	}
	return out
}

// Composition returns the text from the marker on, or "" without a marker.
func (b *Buffer) Composition() string {
	if b.marker < 0 {
		return ""
	}
	return string(b.text[b.marker:])
}

func (b *Buffer) markerValid() bool {
	if b.marker < 0 || b.marker >= len(b.text) || b.marker >= b.cursor {
		return false
	}
	s := string(b.text[b.marker])
	return s == skk.MarkerMidashigo || s == skk.MarkerHenkan
}

func isSentinel(text []rune) bool {
	if len(text) == 0 {
		return false
	}
	s := string(text[0])
	return s == skk.MarkerMidashigo || s == skk.MarkerHenkan
}

// InsertOrReplaceSelection inserts text at the cursor.
func (b *Buffer) InsertOrReplaceSelection(text string) error {
	ins := []rune(text)
	if len(ins) == 0 {
		return nil
	}
	b.splice(b.cursor, b.cursor, ins)
	return nil
}

// splice replaces [start, end) with ins and keeps cursor and marker on the
// same logical characters.
func (b *Buffer) splice(start, end int, ins []rune) {
	delta := len(ins) - (end - start)
	out := make([]rune, 0, len(b.text)+delta)
	out = append(out, b.text[:start]...)
	out = append(out, ins...)
	out = append(out, b.text[end:]...)
	b.text = out

	switch {
	case b.cursor >= end:
		b.cursor += delta
	case b.cursor > start:
		b.cursor = start + len(ins)
	}

	// An insertion exactly at the marker pushes it right.
	switch {
	case b.marker < 0 || b.marker < start:
	case b.marker >= end:
		b.marker += delta
	default:
		if isSentinel(ins) {
			b.marker = start
		} else {
			b.marker = -1
		}
	}
}

// ReplaceRange implements skk.Editor.
func (b *Buffer) ReplaceRange(r skk.Range, text string) error {
	if r.Start < 0 || r.End < r.Start || r.End > len(b.text) {
		return fmt.Errorf("editor: range [%d,%d) out of bounds (len %d)", r.Start, r.End, len(b.text))
	}
	b.splice(r.Start, r.End, []rune(text))
	return nil
}

// GetTextInRange implements skk.Editor.
func (b *Buffer) GetTextInRange(r skk.Range) (string, error) {
	if r.Start < 0 || r.End < r.Start || r.End > len(b.text) {
		return "", fmt.Errorf("editor: range [%d,%d) out of bounds (len %d)", r.Start, r.End, len(b.text))
	}
	return string(b.text[r.Start:r.End]), nil
}

// DeleteLeft implements skk.Editor.
func (b *Buffer) DeleteLeft() skk.DeleteLeftResult {
	if b.cursor == 0 {
		return skk.NoEditor
	}
	pos := b.cursor - 1
	hadMarker := b.marker >= 0
	valid := b.markerValid()
	atMarker := pos == b.marker

	b.text = append(b.text[:pos], b.text[pos+1:]...)
	b.cursor = pos

	switch {
	case !hadMarker:
		return skk.OtherDeleted
	case !valid:
		b.marker = -1
		return skk.MarkerNotFound
	case atMarker:
		b.marker = -1
		b.candidate = nil
		return skk.MarkerDeleted
	}
	return skk.OtherDeleted
}

// SetMidashigoStartToCurrentPosition implements skk.Editor.
func (b *Buffer) SetMidashigoStartToCurrentPosition() {
	pos := b.cursor
	b.splice(pos, pos, []rune(skk.MarkerMidashigo))
	b.marker = pos
}

// ExtractMidashigo implements skk.Editor.
func (b *Buffer) ExtractMidashigo() (string, bool) {
	if !b.markerValid() {
		return "", false
	}
	return string(b.text[b.marker+1 : b.cursor]), true
}

// CalcMidashigoRange implements skk.Editor.
func (b *Buffer) CalcMidashigoRange() (skk.Range, bool) {
	if !b.markerValid() {
		return skk.Range{}, false
	}
	return skk.Range{Start: b.marker, End: b.cursor}, true
}

// FixateMidashigo implements skk.Editor.
func (b *Buffer) FixateMidashigo() bool {
	if !b.markerValid() {
		return false
	}
	m := b.marker
	b.marker = -1
	b.splice(m, m+1, nil)
	return true
}

// ClearMidashigo implements skk.Editor.
func (b *Buffer) ClearMidashigo() bool {
	return b.clearSpan()
}

func (b *Buffer) clearSpan() bool {
	if !b.markerValid() {
		return false
	}
	m := b.marker
	b.marker = -1
	b.splice(m, b.cursor, nil)
	b.candidate = nil
	return true
}

// ToggleCharTypeInMidashigoAndFixateMidashigo implements skk.Editor.
func (b *Buffer) ToggleCharTypeInMidashigoAndFixateMidashigo() bool {
	head, ok := b.ExtractMidashigo()
	if !ok {
		return false
	}
	m := b.marker
	b.marker = -1
	b.splice(m, b.cursor, []rune(romaji.ToggleCharType(head)))
	return true
}

// ShowCandidate implements skk.Editor.
func (b *Buffer) ShowCandidate(c *jisyo.Candidate, okuri, suffix string) {
	if c == nil {
		b.candidate = nil
		return
	}
	if !b.markerValid() {
		return
	}
	cp := *c
	b.candidate = &cp
	b.splice(b.marker, b.cursor, []rune(skk.MarkerHenkan+c.Word+okuri+suffix))
}

// ShowCandidateList implements skk.Editor.
func (b *Buffer) ShowCandidateList(cands []jisyo.Candidate, selectionKeys []rune) {
	b.list = append([]jisyo.Candidate(nil), cands...)
	b.listKeys = append([]rune(nil), selectionKeys...)
}

// HideCandidateList implements skk.Editor.
func (b *Buffer) HideCandidateList() {
	b.list = nil
	b.listKeys = nil
}

// FixateCandidate implements skk.Editor.
func (b *Buffer) FixateCandidate(text string) bool {
	if !b.markerValid() {
		return false
	}
	m := b.marker
	b.marker = -1
	b.splice(m, b.cursor, []rune(text))
	b.candidate = nil
	return true
}

// ClearCandidate implements skk.Editor.
func (b *Buffer) ClearCandidate() bool {
	return b.clearSpan()
}

// ShowRemainingRomaji implements skk.Editor.
func (b *Buffer) ShowRemainingRomaji(text string, isOkuri bool, offset int) {
	b.romaji = Romaji{Text: text, Okuri: isOkuri, Offset: offset}
}

// ShowErrorMessage implements skk.Editor.
func (b *Buffer) ShowErrorMessage(msg string) {
	b.lastError = msg
}

// OpenRegistrationEditor implements skk.Editor.
func (b *Buffer) OpenRegistrationEditor(key, okuri string) {
	b.registration = &RegistrationRequest{Key: key, Okuri: okuri}
}

// SetInputMode implements skk.Editor.
func (b *Buffer) SetInputMode(m skk.InputMode) {
	b.mode = m
}

// CurrentInputMode implements skk.Editor.
func (b *Buffer) CurrentInputMode() skk.InputMode {
	return b.mode
}

// RemainingRomaji returns the pending-romaji overlay.
func (b *Buffer) RemainingRomaji() Romaji {
	return b.romaji
}

// Candidate returns the candidate currently shown, if any.
func (b *Buffer) Candidate() (jisyo.Candidate, bool) {
	if b.candidate == nil {
		return jisyo.Candidate{}, false
	}
	return *b.candidate, true
}

// CandidateList returns the visible menu and its selection keys.
func (b *Buffer) CandidateList() ([]jisyo.Candidate, []rune) {
	return b.list, b.listKeys
}

// LastError returns the most recent error message.
func (b *Buffer) LastError() string {
	return b.lastError
}

// ClearError forgets the last error message.
func (b *Buffer) ClearError() {
	b.lastError = ""
}

// TakeRegistrationRequest returns and clears the pending registration
// request.
func (b *Buffer) TakeRegistrationRequest() (RegistrationRequest, bool) {
	if b.registration == nil {
		return RegistrationRequest{}, false
	}
	r := *b.registration
	b.registration = nil
	return r, true
}
