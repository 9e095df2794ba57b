package skk

import (
	"strings"

	"skkime/internal/jisyo"
)

const (
	readingLabel = "読み:"
	wordLabel    = "単語:"
)

// RegistrationTemplate returns the text a registration editor starts with.
// The user types the word after the second label.
func RegistrationTemplate(key string) string {
	return readingLabel + key + "\n" + wordLabel
}

// ParseRegistration extracts the reading and the candidate from a filled
// registration template. The word may carry an annotation after ";".
func ParseRegistration(text string) (string, jisyo.Candidate, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 2 {
		return "", jisyo.Candidate{}, &RegistrationFormatError{Reason: "expected two lines"}
	}
	key, ok := strings.CutPrefix(lines[0], readingLabel)
	if !ok {
		return "", jisyo.Candidate{}, &RegistrationFormatError{Reason: "first line must start with " + readingLabel}
	}
	word, ok := strings.CutPrefix(lines[1], wordLabel)
	if !ok {
		return "", jisyo.Candidate{}, &RegistrationFormatError{Reason: "second line must start with " + wordLabel}
	}
	key = strings.TrimSpace(key)
	cand := jisyo.ParseCandidate(strings.TrimSpace(word))
	if key == "" {
		return "", jisyo.Candidate{}, &RegistrationFormatError{Reason: "reading is empty"}
	}
	if cand.Word == "" {
		return "", jisyo.Candidate{}, &RegistrationFormatError{Reason: "word is empty"}
	}
	return key, cand, nil
}

// ResumeAfterRegistration completes the pending registration with the
// filled template: the word is registered and inserted followed by the
// okurigana and suffix of the original headword. A malformed template is
// reported and leaves both the dictionary and the pending registration
// untouched.
func (s *Session) ResumeAfterRegistration(text string) error {
	if s.awaiting == nil {
		return ErrNoRegistration
	}
	key, cand, err := ParseRegistration(text)
	if err != nil {
		s.editor.ShowErrorMessage(err.Error())
		return err
	}
	r := *s.awaiting
	s.awaiting = nil

	if !s.dict.RegisterCandidate(key, cand) {
		s.logger.Warn("registered word was not persisted")
	}
	s.logger.Info("word registered", "okuri", r.Okuri != "")

	s.Fixate()
	return s.editor.InsertOrReplaceSelection(cand.Word + r.Okuri + r.Suffix)
}

// CancelRegistration abandons the pending registration and puts the kana
// headword back as plain text.
func (s *Session) CancelRegistration() error {
	if s.awaiting == nil {
		return ErrNoRegistration
	}
	r := *s.awaiting
	s.awaiting = nil

	s.Fixate()
	if r.Headword == "" {
		return nil
	}
	return s.editor.InsertOrReplaceSelection(r.Headword)
}
