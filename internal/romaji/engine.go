package romaji

// Process converts buffer against t and returns the kana committed by it
// together with the buffer that remains pending.
//
// The buffer is resolved as follows:
//  1. An exact pattern match commits the rule's kana and leaves the rule's
//     remainder pending. A lone "n" is never committed here.
//  2. A buffer that no pattern starts with is trimmed from the front until a
//     suffix matches or is a valid prefix. Nothing is committed for the
//     trimmed characters.
//  3. Otherwise the buffer is a valid unfinished prefix and stays pending.
//
// An "n" followed by a character that cannot extend it commits "ん" and the
// following character is resolved on its own.
func Process(t *Table, buffer string, k Kana) (committed, remainder string) {
	if buffer == "" {
		return "", ""
	}
	if buffer == "n" {
		return "", buffer
	}
	if r, ok := t.Lookup(buffer); ok {
		return r.Output(k), r.Remainder
	}
	if t.IsPrefix(buffer) {
		return "", buffer
	}
	if len(buffer) == 2 && buffer[0] == 'n' {
		n, _ := t.Lookup("n")
		rest, rem := Process(t, buffer[1:], k)
		return n.Output(k) + rest, rem
	}
	for i := 1; i < len(buffer); i++ {
		suffix := buffer[i:]
		if suffix == "n" {
			return "", suffix
		}
		if r, ok := t.Lookup(suffix); ok {
			return r.Output(k), r.Remainder
		}
		if t.IsPrefix(suffix) {
			return "", suffix
		}
	}
	return "", ""
}

// Engine accumulates typed characters and emits kana as rules complete.
// It holds no committed text; only the pending remainder is buffered.
type Engine struct {
	table  *Table
	kana   Kana
	buffer string
}

// NewEngine creates an engine over t. A nil table selects DefaultTable.
func NewEngine(t *Table, k Kana) *Engine {
	if t == nil {
		t = DefaultTable()
	}
	return &Engine{table: t, kana: k}
}

// Input appends r to the pending buffer and returns any committed kana.
func (e *Engine) Input(r rune) string {
	committed, rem := Process(e.table, e.buffer+string(r), e.kana)
	e.buffer = rem
	return committed
}

// CanExtend reports whether appending r keeps the buffer convertible, either
// as an exact match or as a prefix of some pattern.
func (e *Engine) CanExtend(r rune) bool {
	return e.table.IsPrefix(e.buffer + string(r))
}

// Accepts reports whether r can be fed to the engine, either extending the
// pending buffer or starting a new pattern. A rejected key would only flush
// the buffer and vanish.
func (e *Engine) Accepts(r rune) bool {
	return e.CanExtend(r) || e.table.IsPrefix(string(r))
}

// Remainder returns the pending, not yet converted characters.
func (e *Engine) Remainder() string {
	return e.buffer
}

// Pending reports whether characters are buffered.
func (e *Engine) Pending() bool {
	return e.buffer != ""
}

// Backspace removes the last buffered character. It reports false when the
// buffer was already empty.
func (e *Engine) Backspace() bool {
	if e.buffer == "" {
		return false
	}
	e.buffer = e.buffer[:len(e.buffer)-1]
	return true
}

// Reset discards the pending buffer.
func (e *Engine) Reset() {
	e.buffer = ""
}

// ForceCommitPending flushes the buffer. A buffer that is itself a complete
// pattern (the ambiguous "n") yields its kana; anything else is dropped.
func (e *Engine) ForceCommitPending() string {
	buf := e.buffer
	e.buffer = ""
	if r, ok := e.table.Lookup(buf); ok && r.Remainder == "" {
		return r.Output(e.kana)
	}
	return ""
}

// Kana returns the engine's output syllabary.
func (e *Engine) Kana() Kana {
	return e.kana
}

// SetKana switches the output syllabary for subsequent rules.
func (e *Engine) SetKana(k Kana) {
	e.kana = k
}
