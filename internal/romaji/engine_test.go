package romaji

import "testing"

func TestProcess(t *testing.T) {
	tests := []struct {
		buffer    string
		committed string
		remainder string
	}{
		{"a", "あ", ""},
		{"k", "", "k"},
		{"ki", "き", ""},
		{"n", "", "n"},
		{"nn", "ん", ""},
		{"ne", "ね", ""},
		{"nk", "ん", "k"},
		{"ny", "", "ny"},
		{"tyu", "ちゅ", ""},
		{"yy", "っ", "y"},
		{"kk", "っ", "k"},
		{"ht", "", "t"},
		{"cht", "", "t"},
		{"qq", "", ""},
		{"n.", "ん。", ""},
		{"-", "ー", ""},
		{"z,", "‥", ""},
		{"", "", ""},
	}

	table := DefaultTable()
	for _, test := range tests {
		t.Run(test.buffer, func(t *testing.T) {
			committed, remainder := Process(table, test.buffer, Hiragana)
			if committed != test.committed || remainder != test.remainder {
				t.Errorf("Process(%q) = (%q, %q), want (%q, %q)",
					test.buffer, committed, remainder, test.committed, test.remainder)
			}
		})
	}
}

func TestProcessKatakana(t *testing.T) {
	committed, remainder := Process(DefaultTable(), "kyo", Katakana)
	if committed != "キョ" || remainder != "" {
		t.Errorf("got (%q, %q), want (キョ, \"\")", committed, remainder)
	}
}

func TestTrimmedRemainderIsLongestValidPrefix(t *testing.T) {
	table := DefaultTable()
	for _, buffer := range []string{"qky", "vvq", "xxxx", "bcd"} {
		committed, remainder := Process(table, buffer, Hiragana)
		if committed != "" {
			continue
		}
		if remainder != "" && !table.IsPrefix(remainder) {
			t.Errorf("Process(%q) remainder %q is not a valid prefix", buffer, remainder)
		}
		for i := 1; i < len(buffer)-len(remainder); i++ {
			if table.IsPrefix(buffer[i:]) {
				t.Errorf("Process(%q) = %q but longer suffix %q is a prefix", buffer, remainder, buffer[i:])
			}
		}
	}
}

func TestEngineSokuonChain(t *testing.T) {
	e := NewEngine(nil, Hiragana)

	var out string
	for _, r := range "kka" {
		out += e.Input(r)
	}
	if out != "っか" {
		t.Errorf("expected っか, got %q", out)
	}
	if e.Pending() {
		t.Errorf("expected empty remainder, got %q", e.Remainder())
	}
}

func TestEngineAmbiguousN(t *testing.T) {
	e := NewEngine(nil, Hiragana)

	if got := e.Input('n'); got != "" {
		t.Fatalf("lone n committed %q", got)
	}
	if got := e.ForceCommitPending(); got != "ん" {
		t.Errorf("ForceCommitPending = %q, want ん", got)
	}
	if e.Pending() {
		t.Error("buffer should be empty after force commit")
	}

	e.Input('k')
	if got := e.ForceCommitPending(); got != "" {
		t.Errorf("pending k should be dropped, got %q", got)
	}
}

func TestEngineAccepts(t *testing.T) {
	e := NewEngine(nil, Hiragana)
	if !e.Accepts('-') || !e.Accepts('k') {
		t.Error("rule-starting keys should be accepted")
	}
	e.Input('n')
	if e.Accepts('!') {
		t.Error("! neither extends n nor starts a rule")
	}
	if !e.Accepts('y') {
		t.Error("ny extends the pending n")
	}
	if e.Remainder() != "n" {
		t.Errorf("Accepts changed the buffer to %q", e.Remainder())
	}
}

func TestEngineBackspace(t *testing.T) {
	e := NewEngine(nil, Hiragana)
	e.Input('k')
	e.Input('y')

	if !e.Backspace() {
		t.Fatal("Backspace on non-empty buffer returned false")
	}
	if e.Remainder() != "k" {
		t.Errorf("expected remainder k, got %q", e.Remainder())
	}
	e.Backspace()
	if e.Backspace() {
		t.Error("Backspace on empty buffer returned true")
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Rule{{Pattern: "a", Hiragana: "あ"}, {Pattern: "a", Hiragana: "ア"}})
	if err == nil {
		t.Error("expected duplicate pattern error")
	}
	if _, err := NewTable([]Rule{{Pattern: "abcde"}}); err == nil {
		t.Error("expected pattern length error")
	}
}

func TestToggleCharType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"かんじ", "カンジ"},
		{"カンジ", "かんじ"},
		{"abc", "ａｂｃ"},
		{"ａｂｃ", "abc"},
		{"", ""},
	}
	for _, test := range tests {
		if got := ToggleCharType(test.in); got != test.want {
			t.Errorf("ToggleCharType(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestMergeOverridesAndAppends(t *testing.T) {
	rules := Merge(DefaultRules(), []Rule{
		{Pattern: "la", Hiragana: "ぁ"},
		{Pattern: "ka", Hiragana: "カ"},
	})
	table, err := NewTable(rules)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if table.Len() != DefaultTable().Len()+1 {
		t.Errorf("expected one extra rule, got %d vs %d", table.Len(), DefaultTable().Len())
	}
	if r, _ := table.Lookup("ka"); r.Hiragana != "カ" {
		t.Errorf("ka not overridden: %+v", r)
	}
	if committed, _ := Process(table, "la", Hiragana); committed != "ぁ" {
		t.Errorf("la gave %q", committed)
	}
}
