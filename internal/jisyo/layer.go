package jisyo

import "sort"

// Layer is a read-only headword to candidate-list map.
type Layer interface {
	// Get returns the candidates stored under key.
	Get(key string) ([]Candidate, bool)

	// Keys returns every headword in the layer.
	Keys() []string

	// Len returns the number of headwords.
	Len() int
}

// MapLayer is an in-memory Layer that can also be mutated.
type MapLayer struct {
	entries map[string][]Candidate
}

// NewMapLayer creates an empty layer.
func NewMapLayer() *MapLayer {
	return &MapLayer{entries: make(map[string][]Candidate)}
}

// NewMapLayerFrom creates a layer holding a copy of entries.
func NewMapLayerFrom(entries map[string][]Candidate) *MapLayer {
	l := NewMapLayer()
	for k, v := range entries {
		l.Set(k, v)
	}
	return l
}

// Get implements Layer. The returned slice is a copy.
func (l *MapLayer) Get(key string) ([]Candidate, bool) {
	cands, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	return append([]Candidate(nil), cands...), true
}

// Set replaces the candidates for key. An empty list removes the key.
func (l *MapLayer) Set(key string, cands []Candidate) {
	if len(cands) == 0 {
		delete(l.entries, key)
		return
	}
	l.entries[key] = mergeCandidates(cands)
}

// Append adds candidates after the existing ones for key, skipping words
// that are already present.
func (l *MapLayer) Append(key string, cands ...Candidate) {
	l.entries[key] = mergeCandidates(l.entries[key], cands)
}

// Delete removes key and reports whether it existed.
func (l *MapLayer) Delete(key string) bool {
	if _, ok := l.entries[key]; !ok {
		return false
	}
	delete(l.entries, key)
	return true
}

// Keys implements Layer. Keys are returned sorted.
func (l *MapLayer) Keys() []string {
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len implements Layer.
func (l *MapLayer) Len() int {
	return len(l.entries)
}
