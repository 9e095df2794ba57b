package ime

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"skkime/internal/logging"
	"skkime/internal/skk"
)

// IBus D-Bus constants
const (
	IBusService          = "org.freedesktop.IBus"
	IBusPath             = "/org/freedesktop/IBus"
	IBusFactoryPath      = "/org/freedesktop/IBus/Factory"
	IBusFactoryInterface = "org.freedesktop.IBus.Factory"
	IBusEngineInterface  = "org.freedesktop.IBus.Engine"
	IBusServiceInterface = "org.freedesktop.IBus.Service"
)

// Input purposes for which the engine stays out of the way.
const (
	inputPurposePassword = 8
	inputPurposePIN      = 9
)

const (
	attrTypeUnderline   = 1
	attrUnderlineSingle = 1
	preeditModeClear    = 0
)

// Bus is the part of a D-Bus connection the engines use.
type Bus interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
	Export(v any, path dbus.ObjectPath, iface string) error
}

// ibusText is the IBusText serializable: (sa{sv}sv).
type ibusText struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	Attrs       dbus.Variant
}

// ibusAttrList is the IBusAttrList serializable: (sa{sv}av).
type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attrs       []dbus.Variant
}

// ibusAttribute is the IBusAttribute serializable: (sa{sv}uuuu).
type ibusAttribute struct {
	Name        string
	Attachments map[string]dbus.Variant
	Type        uint32
	Value       uint32
	Start       uint32
	End         uint32
}

func newIBusText(text string, underline bool) dbus.Variant {
	attrs := ibusAttrList{
		Name:        "IBusAttrList",
		Attachments: map[string]dbus.Variant{},
		Attrs:       []dbus.Variant{},
	}
	if n := uint32(len([]rune(text))); underline && n > 0 {
		attrs.Attrs = append(attrs.Attrs, dbus.MakeVariant(ibusAttribute{
			Name:        "IBusAttribute",
			Attachments: map[string]dbus.Variant{},
			Type:        attrTypeUnderline,
			Value:       attrUnderlineSingle,
			Start:       0,
			End:         n,
		}))
	}
	return dbus.MakeVariant(ibusText{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        text,
		Attrs:       dbus.MakeVariant(attrs),
	})
}

// IBusEngineStats tracks engine statistics.
type IBusEngineStats struct {
	EnginesCreated uint64
	Keys           uint64
	Commits        uint64
	Conversions    uint64
	Registrations  uint64
}

type engineCounters struct {
	enginesCreated atomic.Uint64
	keys           atomic.Uint64
	commits        atomic.Uint64
	conversions    atomic.Uint64
	registrations  atomic.Uint64
}

// IBusFactory implements the IBus Factory D-Bus interface. It creates one
// IBusEngine per input context.
type IBusFactory struct {
	bus        Bus
	engineName string
	logger     *slog.Logger
	crash      *logging.CrashHandler

	mu      sync.Mutex
	opts    skk.Options
	nextID  uint32
	engines map[dbus.ObjectPath]*IBusEngine

	stats engineCounters
}

// FactoryConfig configures an IBusFactory.
type FactoryConfig struct {
	EngineName string

	// Options are copied into every new engine; Editor is ignored.
	Options skk.Options

	Logger *slog.Logger
	Crash  *logging.CrashHandler
}

// NewIBusFactory creates a factory exporting engines on bus.
func NewIBusFactory(bus Bus, cfg FactoryConfig) (*IBusFactory, error) {
	if cfg.EngineName == "" {
		return nil, fmt.Errorf("engine name is required")
	}
	if cfg.Options.Dictionary == nil {
		return nil, fmt.Errorf("dictionary is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	crash := cfg.Crash
	if crash == nil {
		crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{Component: "ibus", Logger: logger})
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = logger
	}
	return &IBusFactory{
		bus:        bus,
		engineName: cfg.EngineName,
		logger:     logger,
		crash:      crash,
		opts:       cfg.Options,
		engines:    make(map[dbus.ObjectPath]*IBusEngine),
	}, nil
}

// CreateEngine creates a new engine instance for IBus.
func (f *IBusFactory) CreateEngine(engineName string) (dbus.ObjectPath, *dbus.Error) {
	defer f.crash.Recover("CreateEngine", map[string]any{"engine": engineName})

	if engineName != f.engineName {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine",
			[]any{"Unknown engine: " + engineName})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	composer, err := NewComposer(f.opts)
	if err != nil {
		f.logger.Error("create composer", "error", err)
		return "", dbus.MakeFailedError(err)
	}

	f.nextID++
	path := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/IBus/Engine/%d", f.nextID))
	e := &IBusEngine{
		path:     path,
		factory:  f,
		composer: composer,
		logger:   f.logger.With("engine", string(path)),
	}
	if err := f.bus.Export(e, path, IBusEngineInterface); err != nil {
		return "", dbus.MakeFailedError(err)
	}
	if err := f.bus.Export(e, path, IBusServiceInterface); err != nil {
		f.bus.Export(nil, path, IBusEngineInterface)
		return "", dbus.MakeFailedError(err)
	}
	f.engines[path] = e
	f.stats.enginesCreated.Add(1)
	f.logger.Debug("engine created", "path", string(path))
	return path, nil
}

// Reconfigure replaces the options of new and existing engines. Existing
// engines commit their composition first.
func (f *IBusFactory) Reconfigure(opts skk.Options) error {
	if opts.Logger == nil {
		opts.Logger = f.logger
	}
	if _, err := NewComposer(opts); err != nil {
		return err
	}

	f.mu.Lock()
	f.opts = opts
	engines := make([]*IBusEngine, 0, len(f.engines))
	for _, e := range f.engines {
		engines = append(engines, e)
	}
	f.mu.Unlock()

	var firstErr error
	for _, e := range engines {
		if err := e.reconfigure(opts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *IBusFactory) remove(path dbus.ObjectPath) {
	f.mu.Lock()
	delete(f.engines, path)
	f.mu.Unlock()
	f.bus.Export(nil, path, IBusEngineInterface)
	f.bus.Export(nil, path, IBusServiceInterface)
}

// Engines returns the number of live engines.
func (f *IBusFactory) Engines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

// FixateAll commits every live composition, as on shutdown.
func (f *IBusFactory) FixateAll() {
	f.mu.Lock()
	engines := make([]*IBusEngine, 0, len(f.engines))
	for _, e := range f.engines {
		engines = append(engines, e)
	}
	f.mu.Unlock()
	for _, e := range engines {
		e.fixate()
	}
}

// GetStats returns engine statistics.
func (f *IBusFactory) GetStats() IBusEngineStats {
	return IBusEngineStats{
		EnginesCreated: f.stats.enginesCreated.Load(),
		Keys:           f.stats.keys.Load(),
		Commits:        f.stats.commits.Load(),
		Conversions:    f.stats.conversions.Load(),
		Registrations:  f.stats.registrations.Load(),
	}
}

// IBusEngine is one IBus input context. ibus-daemon calls its methods over
// D-Bus; the mutex serializes them so keys are processed one at a time.
type IBusEngine struct {
	path    dbus.ObjectPath
	factory *IBusFactory
	logger  *slog.Logger

	mu       sync.Mutex
	composer *Composer
	enabled  bool
	focused  bool
	hidden   bool // password field
	caps     uint32

	preeditShown bool
	auxShown     bool
}

// Path returns the engine's object path.
func (e *IBusEngine) Path() dbus.ObjectPath {
	return e.path
}

// ProcessKeyEvent handles key press/release events from IBus.
// Returns true if the key was consumed, false to pass through.
func (e *IBusEngine) ProcessKeyEvent(keyval, keycode, state uint32) (handled bool, _ *dbus.Error) {
	defer e.factory.crash.Recover("ProcessKeyEvent", map[string]any{"keyval": keyval, "state": state})

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hidden {
		return false, nil
	}

	key, ok := KeyFromKeysym(keyval, state)
	if !ok {
		// Keys the engine does not handle end the composition unless they
		// are modifiers or releases.
		if state&ReleaseMask == 0 && !isModifierKeysym(keyval) && !e.composer.Empty() {
			e.commit(e.composer.Fixate())
			e.update()
		}
		return false, nil
	}

	e.factory.stats.keys.Add(1)
	res := e.composer.HandleKey(key)
	if res.Converted {
		e.factory.stats.conversions.Add(1)
	}
	if res.Registered {
		e.factory.stats.registrations.Add(1)
	}
	e.commit(e.composer.Flush())
	e.update()
	return res.Consumed, nil
}

// isModifierKeysym reports Shift_L through Hyper_R and the ISO level keys.
func isModifierKeysym(keyval uint32) bool {
	return (keyval >= 0xffe1 && keyval <= 0xffee) || (keyval >= 0xfe01 && keyval <= 0xfe13)
}

func (e *IBusEngine) commit(text string) {
	if text == "" {
		return
	}
	e.factory.stats.commits.Add(1)
	e.emit("CommitText", newIBusText(text, false))
}

// update sends the preedit and auxiliary text.
func (e *IBusEngine) update() {
	preedit, cursor := e.composer.Preedit()
	switch {
	case preedit != "":
		e.emit("UpdatePreeditText", newIBusText(preedit, true), uint32(cursor), true, uint32(preeditModeClear))
		e.preeditShown = true
	case e.preeditShown:
		e.emit("HidePreeditText")
		e.preeditShown = false
	}

	aux := e.composer.Aux()
	switch {
	case aux != "":
		e.emit("UpdateAuxiliaryText", newIBusText(aux, false), true)
		e.auxShown = true
	case e.auxShown:
		e.emit("HideAuxiliaryText")
		e.auxShown = false
	}
}

func (e *IBusEngine) emit(signal string, values ...any) {
	if err := e.factory.bus.Emit(e.path, IBusEngineInterface+"."+signal, values...); err != nil {
		e.logger.Warn("emit signal", "signal", signal, "error", err)
	}
}

func (e *IBusEngine) fixate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(e.composer.Fixate())
	e.update()
}

func (e *IBusEngine) reconfigure(opts skk.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	commit, err := e.composer.Reconfigure(opts)
	e.commit(commit)
	e.update()
	return err
}

// FocusIn is called when the engine gains input focus.
func (e *IBusEngine) FocusIn() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = true
	e.update()
	return nil
}

// FocusOut is called when the engine loses input focus. The composition
// is committed as displayed.
func (e *IBusEngine) FocusOut() *dbus.Error {
	defer e.factory.crash.Recover("FocusOut", nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = false
	e.commit(e.composer.Fixate())
	e.update()
	return nil
}

// Enable is called when the engine is enabled.
func (e *IBusEngine) Enable() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	e.logger.Debug("enabled")
	return nil
}

// Disable is called when the engine is disabled.
func (e *IBusEngine) Disable() *dbus.Error {
	defer e.factory.crash.Recover("Disable", nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.commit(e.composer.Fixate())
	e.update()
	e.logger.Debug("disabled")
	return nil
}

// Reset is called when the client resets the input context.
func (e *IBusEngine) Reset() *dbus.Error {
	defer e.factory.crash.Recover("Reset", nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(e.composer.Fixate())
	e.update()
	return nil
}

// SetCapabilities informs about client capabilities.
func (e *IBusEngine) SetCapabilities(caps uint32) *dbus.Error {
	e.mu.Lock()
	e.caps = caps
	e.mu.Unlock()
	return nil
}

// SetContentType informs about the type of content being edited. Password
// and PIN fields bypass conversion.
func (e *IBusEngine) SetContentType(purpose, hints uint32) *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hidden := purpose == inputPurposePassword || purpose == inputPurposePIN
	if hidden && !e.hidden {
		e.commit(e.composer.Fixate())
		e.update()
	}
	e.hidden = hidden
	return nil
}

// SetCursorLocation informs about cursor position.
func (e *IBusEngine) SetCursorLocation(x, y, w, h int32) *dbus.Error {
	return nil
}

// SetSurroundingText provides context around the cursor.
func (e *IBusEngine) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	return nil
}

// PropertyActivate handles property activations.
func (e *IBusEngine) PropertyActivate(propName string, state uint32) *dbus.Error {
	return nil
}

// PageUp handles page up in candidate list.
func (e *IBusEngine) PageUp() *dbus.Error {
	return nil
}

// PageDown handles page down in candidate list.
func (e *IBusEngine) PageDown() *dbus.Error {
	return nil
}

// CursorUp handles cursor up in candidate list.
func (e *IBusEngine) CursorUp() *dbus.Error {
	return nil
}

// CursorDown handles cursor down in candidate list.
func (e *IBusEngine) CursorDown() *dbus.Error {
	return nil
}

// CandidateClicked handles candidate selection.
func (e *IBusEngine) CandidateClicked(index, button, state uint32) *dbus.Error {
	return nil
}

// Destroy is called through org.freedesktop.IBus.Service when the input
// context goes away.
func (e *IBusEngine) Destroy() *dbus.Error {
	defer e.factory.crash.Recover("Destroy", nil)
	e.mu.Lock()
	e.commit(e.composer.Fixate())
	e.mu.Unlock()
	e.factory.remove(e.path)
	e.logger.Debug("engine destroyed")
	return nil
}
