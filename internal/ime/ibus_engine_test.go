package ime

import (
	"strings"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skkime/internal/jisyo"
	"skkime/internal/skk"
)

type signal struct {
	path dbus.ObjectPath
	name string
	args []any
}

// fakeBus records exports and emitted signals.
type fakeBus struct {
	mu      sync.Mutex
	exports map[string]any
	signals []signal
}

func newFakeBus() *fakeBus {
	return &fakeBus{exports: make(map[string]any)}
}

func (b *fakeBus) Emit(path dbus.ObjectPath, name string, values ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, signal{path: path, name: name, args: values})
	return nil
}

func (b *fakeBus) Export(v any, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := string(path) + " " + iface
	if v == nil {
		delete(b.exports, key)
		return nil
	}
	b.exports[key] = v
	return nil
}

// take returns and clears the recorded signals.
func (b *fakeBus) take() []signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.signals
	b.signals = nil
	return s
}

func signalText(t *testing.T, s signal) string {
	t.Helper()
	require.NotEmpty(t, s.args)
	v, ok := s.args[0].(dbus.Variant)
	require.True(t, ok)
	text, ok := v.Value().(ibusText)
	require.True(t, ok)
	return text.Text
}

// commits collects the text of CommitText signals.
func commits(t *testing.T, signals []signal) string {
	t.Helper()
	var b strings.Builder
	for _, s := range signals {
		if s.name == IBusEngineInterface+".CommitText" {
			b.WriteString(signalText(t, s))
		}
	}
	return b.String()
}

func lastNamed(signals []signal, suffix string) (signal, bool) {
	for i := len(signals) - 1; i >= 0; i-- {
		if strings.HasSuffix(signals[i].name, "."+suffix) {
			return signals[i], true
		}
	}
	return signal{}, false
}

func newTestFactory(t *testing.T, entries map[string][]string) (*IBusFactory, *fakeBus) {
	t.Helper()
	system := jisyo.NewMapLayer()
	for key, words := range entries {
		for _, w := range words {
			system.Append(key, jisyo.ParseCandidate(w))
		}
	}
	bus := newFakeBus()
	f, err := NewIBusFactory(bus, FactoryConfig{
		EngineName: "skkime",
		Options: skk.Options{
			Dictionary:  jisyo.New(nil, []jisyo.Layer{system}),
			InitialMode: skk.ModeHiragana,
		},
	})
	require.NoError(t, err)
	return f, bus
}

func createEngine(t *testing.T, f *IBusFactory, bus *fakeBus) *IBusEngine {
	t.Helper()
	path, derr := f.CreateEngine("skkime")
	require.Nil(t, derr)
	e, ok := bus.exports[string(path)+" "+IBusEngineInterface].(*IBusEngine)
	require.True(t, ok)
	return e
}

func typeKeys(e *IBusEngine, s string) {
	for _, r := range s {
		var state uint32
		if r >= 'A' && r <= 'Z' {
			state = ShiftMask
		}
		e.ProcessKeyEvent(uint32(r), 0, state)
	}
}

func TestIBusFactory(t *testing.T) {
	f, bus := newTestFactory(t, nil)

	_, derr := f.CreateEngine("other")
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.IBus.NoEngine", derr.Name)

	p1, derr := f.CreateEngine("skkime")
	require.Nil(t, derr)
	p2, derr := f.CreateEngine("skkime")
	require.Nil(t, derr)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/IBus/Engine/1"), p1)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/IBus/Engine/2"), p2)
	assert.Contains(t, bus.exports, string(p1)+" "+IBusServiceInterface)
	assert.Equal(t, 2, f.Engines())
	assert.Equal(t, uint64(2), f.GetStats().EnginesCreated)
}

func TestNewIBusFactoryValidates(t *testing.T) {
	_, err := NewIBusFactory(newFakeBus(), FactoryConfig{Options: skk.Options{Dictionary: jisyo.New(nil, nil)}})
	assert.Error(t, err)
	_, err = NewIBusFactory(newFakeBus(), FactoryConfig{EngineName: "skkime"})
	assert.Error(t, err)
}

func TestIBusEngineConversion(t *testing.T) {
	f, bus := newTestFactory(t, map[string][]string{"かんじ": {"漢字"}})
	e := createEngine(t, f, bus)

	typeKeys(e, "Kanji")
	signals := bus.take()
	preedit, ok := lastNamed(signals, "UpdatePreeditText")
	require.True(t, ok)
	assert.Equal(t, "▽かんじ", signalText(t, preedit))
	assert.Equal(t, uint32(4), preedit.args[1])
	assert.Equal(t, "", commits(t, signals))

	handled, _ := e.ProcessKeyEvent(KeySpace, 0, 0)
	assert.True(t, handled)
	preedit, ok = lastNamed(bus.take(), "UpdatePreeditText")
	require.True(t, ok)
	assert.Equal(t, "▼漢字", signalText(t, preedit))

	handled, _ = e.ProcessKeyEvent('j', 0, ControlMask)
	assert.True(t, handled)
	signals = bus.take()
	assert.Equal(t, "漢字", commits(t, signals))
	_, hidden := lastNamed(signals, "HidePreeditText")
	assert.True(t, hidden)

	stats := f.GetStats()
	assert.Equal(t, uint64(7), stats.Keys)
	assert.Equal(t, uint64(1), stats.Conversions)
	assert.Equal(t, uint64(1), stats.Commits)
}

func TestIBusEnginePreeditAttributes(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	typeKeys(e, "K")
	preedit, ok := lastNamed(bus.take(), "UpdatePreeditText")
	require.True(t, ok)
	v := preedit.args[0].(dbus.Variant)
	text := v.Value().(ibusText)
	assert.Equal(t, "IBusText", text.Name)
	attrs := text.Attrs.Value().(ibusAttrList)
	assert.Equal(t, "IBusAttrList", attrs.Name)
	require.Len(t, attrs.Attrs, 1)
	attr := attrs.Attrs[0].Value().(ibusAttribute)
	assert.Equal(t, uint32(attrTypeUnderline), attr.Type)
	assert.Equal(t, uint32(len([]rune(text.Text))), attr.End)
}

func TestIBusEnginePassThrough(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	tests := []struct {
		name   string
		keyval uint32
		state  uint32
	}{
		{"release", 'a', ReleaseMask},
		{"alt chord", 'a', Mod1Mask},
		{"empty return", KeyReturn, 0},
		{"empty backspace", KeyBackSpace, 0},
		{"tab", KeyTab, 0},
		{"shift alone", 0xffe1, ShiftMask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handled, derr := e.ProcessKeyEvent(tt.keyval, 0, tt.state)
			assert.Nil(t, derr)
			assert.False(t, handled)
		})
	}
	assert.Empty(t, commits(t, bus.take()))
}

func TestIBusEngineUnhandledKeyCommits(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	typeKeys(e, "Kana")
	bus.take()

	handled, _ := e.ProcessKeyEvent(KeyTab, 0, 0)
	assert.False(t, handled)
	assert.Equal(t, "かな", commits(t, bus.take()))
}

func TestIBusEngineFocusOutCommits(t *testing.T) {
	f, bus := newTestFactory(t, map[string][]string{"かんじ": {"漢字"}})
	e := createEngine(t, f, bus)

	typeKeys(e, "Kanji ")
	bus.take()
	assert.Nil(t, e.FocusOut())
	signals := bus.take()
	assert.Equal(t, "漢字", commits(t, signals))
	_, hidden := lastNamed(signals, "HidePreeditText")
	assert.True(t, hidden)

	typeKeys(e, "Ka")
	bus.take()
	assert.Nil(t, e.Reset())
	assert.Equal(t, "か", commits(t, bus.take()))
}

func TestIBusEnginePasswordField(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	typeKeys(e, "Ka")
	bus.take()
	assert.Nil(t, e.SetContentType(inputPurposePassword, 0))
	assert.Equal(t, "か", commits(t, bus.take()))

	handled, _ := e.ProcessKeyEvent('a', 0, 0)
	assert.False(t, handled)

	assert.Nil(t, e.SetContentType(0, 0))
	handled, _ = e.ProcessKeyEvent('a', 0, 0)
	assert.True(t, handled)
}

func TestIBusEngineRegistration(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	typeKeys(e, "Kanji ")
	preedit, ok := lastNamed(bus.take(), "UpdatePreeditText")
	require.True(t, ok)
	assert.Equal(t, "[登録:かんじ]", signalText(t, preedit))

	typeKeys(e, "ka")
	handled, _ := e.ProcessKeyEvent(KeyReturn, 0, 0)
	assert.True(t, handled)
	assert.Equal(t, "か", commits(t, bus.take()))
	assert.Equal(t, uint64(1), f.GetStats().Registrations)
}

func TestIBusEngineAuxiliaryText(t *testing.T) {
	f, bus := newTestFactory(t, map[string][]string{"かんじ": {"c1", "c2", "c3", "c4"}})
	e := createEngine(t, f, bus)

	typeKeys(e, "Kanji    ")
	aux, ok := lastNamed(bus.take(), "UpdateAuxiliaryText")
	require.True(t, ok)
	assert.Equal(t, "a:c4", signalText(t, aux))

	typeKeys(e, "a")
	signals := bus.take()
	assert.Equal(t, "c4", commits(t, signals))
	_, hidden := lastNamed(signals, "HideAuxiliaryText")
	assert.True(t, hidden)
}

func TestIBusEngineDestroy(t *testing.T) {
	f, bus := newTestFactory(t, nil)
	e := createEngine(t, f, bus)

	typeKeys(e, "Ka")
	bus.take()
	assert.Nil(t, e.Destroy())
	assert.Equal(t, "か", commits(t, bus.take()))
	assert.Equal(t, 0, f.Engines())
	assert.NotContains(t, bus.exports, string(e.Path())+" "+IBusEngineInterface)
}

func TestIBusFactoryReconfigure(t *testing.T) {
	f, bus := newTestFactory(t, map[string][]string{"かんじ": {"c1", "c2", "c3", "c4"}})
	e := createEngine(t, f, bus)

	typeKeys(e, "Ka")
	bus.take()
	dict := f.opts.Dictionary
	require.NoError(t, f.Reconfigure(skk.Options{Dictionary: dict, SelectionKeys: "jk"}))
	assert.Equal(t, "か", commits(t, bus.take()))

	typeKeys(e, "Kanji    ")
	aux, ok := lastNamed(bus.take(), "UpdateAuxiliaryText")
	require.True(t, ok)
	assert.Equal(t, "j:c4", signalText(t, aux))

	assert.Error(t, f.Reconfigure(skk.Options{Dictionary: dict, SelectionKeys: "x"}))
}

func TestIBusModifierMasks(t *testing.T) {
	assert.True(t, isModifierKeysym(0xffe1), "Shift_L")
	assert.True(t, isModifierKeysym(0xffe3), "Control_L")
	assert.True(t, isModifierKeysym(0xfe03), "ISO_Level3_Shift")
	assert.False(t, isModifierKeysym(KeyTab))
	assert.False(t, isModifierKeysym('a'))
}
