package jisyo

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Persister receives every mutation of the user layer.
type Persister interface {
	// SaveEntry stores the full candidate list for key.
	SaveEntry(key string, cands []Candidate) error

	// DeleteEntry removes key.
	DeleteEntry(key string) error
}

// Dictionary is the layered SKK dictionary. Layer 0 is the mutable user
// layer; the system layers are never modified.
type Dictionary struct {
	mu         sync.RWMutex
	user       *MapLayer
	system     []Layer
	persisters []Persister
	logger     *slog.Logger
}

// Option configures a Dictionary.
type Option func(*Dictionary)

// WithPersister adds a write-through target for user layer mutations.
func WithPersister(p Persister) Option {
	return func(d *Dictionary) {
		d.persisters = append(d.persisters, p)
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dictionary) {
		d.logger = l
	}
}

// New creates a dictionary over a user layer and system layers in priority
// order. A nil user layer starts empty.
func New(user *MapLayer, system []Layer, opts ...Option) *Dictionary {
	if user == nil {
		user = NewMapLayer()
	}
	d := &Dictionary{
		user:   user,
		system: append([]Layer(nil), system...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddPersister registers an additional write-through target.
func (d *Dictionary) AddPersister(p Persister) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.persisters = append(d.persisters, p)
}

// UserLayer returns the mutable layer.
func (d *Dictionary) UserLayer() *MapLayer {
	return d.user
}

// LayerCount returns the number of layers including the user layer.
func (d *Dictionary) LayerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return 1 + len(d.system)
}

// ReplaceSystem swaps system layer i (0-based among system layers).
func (d *Dictionary) ReplaceSystem(i int, l Layer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.system) {
		return fmt.Errorf("jisyo: system layer %d out of range", i)
	}
	d.system[i] = l
	return nil
}

// Get returns the merged candidates for key: every layer's candidates in
// layer order with later duplicate words removed.
func (d *Dictionary) Get(key string) []Candidate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.getLocked(key)
}

func (d *Dictionary) getLocked(key string) []Candidate {
	var lists [][]Candidate
	if c, ok := d.user.Get(key); ok {
		lists = append(lists, c)
	}
	for _, l := range d.system {
		if c, ok := l.Get(key); ok {
			lists = append(lists, c)
		}
	}
	if len(lists) == 0 {
		return nil
	}
	return mergeCandidates(lists...)
}

// Has reports whether any layer holds key.
func (d *Dictionary) Has(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.user.Get(key); ok {
		return true
	}
	for _, l := range d.system {
		if _, ok := l.Get(key); ok {
			return true
		}
	}
	return false
}

// Keys returns the union of headwords across all layers, sorted.
func (d *Dictionary) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, k := range d.user.Keys() {
		seen[k] = struct{}{}
	}
	for _, l := range d.system {
		for _, k := range l.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LookupCandidates returns the merged entry for key, or false when no layer
// holds it.
func (d *Dictionary) LookupCandidates(key string) (*Entry, bool) {
	cands := d.Get(key)
	if len(cands) == 0 {
		return nil, false
	}
	return &Entry{Key: key, Candidates: cands}, true
}

// Set replaces the user layer's candidates for key.
func (d *Dictionary) Set(key string, cands []Candidate) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.user.Set(key, cands)
	if stored, ok := d.user.Get(key); ok {
		return d.saveLocked(key, stored)
	}
	return d.deleteLocked(key)
}

// RegisterCandidate puts c at the front of the user layer's list for key,
// moving it there if it is already present.
func (d *Dictionary) RegisterCandidate(key string, c Candidate) bool {
	if key == "" || c.Word == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerLocked(key, c)
}

func (d *Dictionary) registerLocked(key string, c Candidate) bool {
	current, _ := d.user.Get(key)
	if i := indexOf(current, c.Word); i >= 0 {
		if c.Annotation == "" {
			c.Annotation = current[i].Annotation
		}
		current = append(current[:i], current[i+1:]...)
	}
	updated := append([]Candidate{c}, current...)
	d.user.Set(key, updated)
	return d.saveLocked(key, updated)
}

// ReorderCandidate moves the candidate at index of the merged list for key
// to the front. The reordering is recorded in the user layer only, so
// candidates that come from a system layer are copied into it.
func (d *Dictionary) ReorderCandidate(key string, index int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	merged := d.getLocked(key)
	if index < 0 || index >= len(merged) {
		return false
	}
	if index == 0 {
		return true
	}
	return d.registerLocked(key, merged[index])
}

// DeleteCandidate removes c (by word) from the user layer. The key is
// dropped once its list is empty. System layers are untouched, so a word
// that also lives there still appears in lookups.
func (d *Dictionary) DeleteCandidate(key string, c Candidate) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.user.Get(key)
	if !ok {
		return false
	}
	i := indexOf(current, c.Word)
	if i < 0 {
		return false
	}
	current = append(current[:i], current[i+1:]...)
	if len(current) == 0 {
		d.user.Delete(key)
		return d.deleteLocked(key)
	}
	d.user.Set(key, current)
	return d.saveLocked(key, current)
}

// Delete removes key from the user layer.
func (d *Dictionary) Delete(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.user.Delete(key) {
		return false
	}
	return d.deleteLocked(key)
}

func (d *Dictionary) saveLocked(key string, cands []Candidate) bool {
	ok := true
	for _, p := range d.persisters {
		if err := p.SaveEntry(key, cands); err != nil {
			d.logger.Error("persist dictionary entry", "reading", key, "error", err)
			ok = false
		}
	}
	return ok
}

func (d *Dictionary) deleteLocked(key string) bool {
	ok := true
	for _, p := range d.persisters {
		if err := p.DeleteEntry(key); err != nil {
			d.logger.Error("persist dictionary deletion", "reading", key, "error", err)
			ok = false
		}
	}
	return ok
}
