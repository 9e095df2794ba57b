// Package jisyo implements the layered SKK dictionary.
//
// A Dictionary stacks one mutable user layer on top of any number of
// read-only system layers. Lookups merge all layers in order and drop later
// duplicates; mutations only ever touch the user layer and are written
// through to the configured persisters.
package jisyo

import "strings"

// Candidate is one conversion result for a headword.
type Candidate struct {
	Word       string `json:"word"`
	Annotation string `json:"annotation,omitempty"`
}

// ParseCandidate splits the dictionary form "word;annotation".
func ParseCandidate(s string) Candidate {
	word, annotation, _ := strings.Cut(s, ";")
	return Candidate{Word: word, Annotation: annotation}
}

// String returns the dictionary form of c.
func (c Candidate) String() string {
	if c.Annotation == "" {
		return c.Word
	}
	return c.Word + ";" + c.Annotation
}

// Entry is an immutable view over one lookup result.
type Entry struct {
	// Key is the headword the candidates were found under.
	Key string

	// Candidates is the merged list as stored, without okurigana.
	Candidates []Candidate

	// Okuri is appended to every word by Cooked.
	Okuri string

	// Synthetic is the number of generated candidates at the front of
	// Candidates that do not exist in any layer.
	Synthetic int
}

// Len returns the number of candidates.
func (e *Entry) Len() int {
	return len(e.Candidates)
}

// At returns the raw candidate at i.
func (e *Entry) At(i int) Candidate {
	return e.Candidates[i]
}

// Cooked returns the candidates with Okuri appended to each word. The stored
// candidates are not modified.
func (e *Entry) Cooked() []Candidate {
	out := make([]Candidate, len(e.Candidates))
	for i, c := range e.Candidates {
		out[i] = Candidate{Word: c.Word + e.Okuri, Annotation: c.Annotation}
	}
	return out
}

// WithOkuri returns a copy of e carrying okuri.
func (e *Entry) WithOkuri(okuri string) *Entry {
	cp := *e
	cp.Okuri = okuri
	return &cp
}

// Prepend returns a copy of e with synthetic candidates in front. Words
// already present are removed from the dictionary part.
func (e *Entry) Prepend(cands ...Candidate) *Entry {
	merged := mergeCandidates(cands, e.Candidates)
	return &Entry{
		Key:        e.Key,
		Candidates: merged,
		Okuri:      e.Okuri,
		Synthetic:  e.Synthetic + len(cands),
	}
}

// indexOf returns the position of word in cands, or -1.
func indexOf(cands []Candidate, word string) int {
	for i, c := range cands {
		if c.Word == word {
			return i
		}
	}
	return -1
}

// mergeCandidates concatenates lists keeping the first occurrence of each word.
func mergeCandidates(lists ...[]Candidate) []Candidate {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Candidate, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, c := range l {
			if _, dup := seen[c.Word]; dup {
				continue
			}
			seen[c.Word] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
