package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"skkime/internal/app"
	"skkime/internal/config"
	"skkime/internal/ime"
	"skkime/internal/jisyo"
	"skkime/internal/logging"
	"skkime/internal/skk"
	"skkime/internal/store"
)

// toolLogger keeps library chatter on stderr below warnings out of the
// command output.
func toolLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LevelWarn
	cfg.Component = "skkctl"
	return logging.NewWithWriter(os.Stderr, cfg)
}

func openApp(cfg *config.Config) (*app.App, error) {
	return app.Open(cfg, toolLogger().Logger)
}

func cmdLookup(w io.Writer, cfg *config.Config, reading string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, ok := a.Dictionary.LookupCandidates(reading)
	if !ok {
		return fmt.Errorf("no candidates for %s", reading)
	}
	user, _ := a.Dictionary.UserLayer().Get(reading)
	inUser := make(map[string]bool, len(user))
	for _, c := range user {
		inUser[c.Word] = true
	}

	fmt.Fprintln(w, jisyo.FormatLine(entry.Key, entry.Candidates))
	for i, c := range entry.Candidates {
		source := "system"
		if inUser[c.Word] {
			source = "user"
		}
		line := fmt.Sprintf("%3d. %s", i+1, c.Word)
		if c.Annotation != "" {
			line += "  ; " + c.Annotation
		}
		fmt.Fprintf(w, "%-30s [%s]\n", line, source)
	}
	return nil
}

func cmdRegister(w io.Writer, cfg *config.Config, reading, word string) error {
	key, cand, err := skk.ParseRegistration(skk.RegistrationTemplate(reading) + word)
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Dictionary.RegisterCandidate(key, cand) {
		return errors.New("registration was not saved")
	}
	fmt.Fprintf(w, "Registered %s /%s/\n", key, cand)
	return nil
}

func cmdDelete(w io.Writer, cfg *config.Config, reading, word string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.Dictionary.UserLayer().Get(reading); !ok {
		return fmt.Errorf("%s is not in the user dictionary", reading)
	}
	if word == "" {
		if !a.Dictionary.Delete(reading) {
			return errors.New("deletion was not saved")
		}
		fmt.Fprintf(w, "Deleted %s\n", reading)
		return nil
	}
	if !a.Dictionary.DeleteCandidate(reading, jisyo.ParseCandidate(word)) {
		return fmt.Errorf("%s is not a user candidate of %s", word, reading)
	}
	fmt.Fprintf(w, "Deleted %s from %s\n", word, reading)
	return nil
}

// cmdImport merges a dictionary file into the user dictionary. Words the
// user already has keep their position; new ones are appended.
func cmdImport(w io.Writer, cfg *config.Config, path, encoding string) (err error) {
	enc, err := jisyo.ParseEncoding(encoding)
	if err != nil {
		return err
	}

	audit, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if audit != nil {
		defer audit.Close()
	}

	imported := 0
	defer func() {
		if audit != nil {
			audit.LogImport(path, imported, err)
		}
	}()

	incoming, err := jisyo.LoadFile(path, enc)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.UserDBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := store.LoadUserLayer(st)
	if err != nil {
		return err
	}
	merged := jisyo.NewMapLayer()
	for _, key := range incoming.Keys() {
		cands, _ := incoming.Get(key)
		existing, _ := user.Get(key)
		merged.Set(key, existing)
		merged.Append(key, cands...)
		user.Set(key, candidatesOf(merged, key))
	}
	if imported, err = st.ImportLayer(merged); err != nil {
		return err
	}

	if exportPath := cfg.ExportFilePath(); exportPath != "" {
		if err := jisyo.NewFileExporter(exportPath, user).Export(); err != nil {
			return fmt.Errorf("refresh %s: %w", exportPath, err)
		}
	}
	fmt.Fprintf(w, "Imported %d readings from %s\n", imported, path)
	return nil
}

func candidatesOf(l jisyo.Layer, key string) []jisyo.Candidate {
	cands, _ := l.Get(key)
	return cands
}

// cmdExport writes the user dictionary to output, or stdout when output is
// empty. A .json output selects the JSON layout.
func cmdExport(w io.Writer, cfg *config.Config, output string) (err error) {
	st, err := store.Open(cfg.UserDBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := store.LoadUserLayer(st)
	if err != nil {
		return err
	}

	write := jisyo.WriteJisyo
	if filepath.Ext(output) == ".json" {
		write = jisyo.WriteJSON
	}

	if output == "" {
		return write(w, user)
	}

	audit, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if audit != nil {
		defer audit.Close()
		defer func() { audit.LogExport(output, user.Len(), err) }()
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := write(f, user); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %d readings to %s\n", user.Len(), output)
	return nil
}

func openAudit(cfg *config.Config) (*logging.AuditLogger, error) {
	auditCfg := cfg.AuditConfig()
	if auditCfg == nil {
		return nil, nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	auditCfg.Component = "skkctl"
	return logging.NewAuditLogger(auditCfg)
}

func cmdStats(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "=== skkime Dictionaries ===")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "User Dictionary:")
	dbPath := cfg.UserDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(w, "  No database found at %s\n", dbPath)
	} else {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		stats, err := st.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Path: %s\n", dbPath)
		fmt.Fprintf(w, "  Readings: %d\n", stats.Entries)
		fmt.Fprintf(w, "  Candidates: %d\n", stats.Candidates)
		fmt.Fprintf(w, "  Changes recorded: %d\n", stats.Registrations)
		fmt.Fprintf(w, "  Schema version: %d\n", stats.SchemaVersion)
	}
	if export := cfg.ExportFilePath(); export != "" {
		fmt.Fprintf(w, "  Export: %s\n", export)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System Dictionaries:")
	sources, err := cfg.SystemSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "  (none configured)")
	}
	for _, src := range sources {
		var status string
		if info, err := os.Stat(src.Path); err != nil {
			status = "MISSING"
		} else {
			status = formatBytes(info.Size())
		}
		fmt.Fprintf(w, "  - %s (%s, %s)\n", src.Path, src.Encoding, status)
	}
	return nil
}

func cmdHistory(w io.Writer, cfg *config.Config, limit int) error {
	st, err := store.Open(cfg.UserDBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	regs, err := st.RecentRegistrations(limit)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		fmt.Fprintln(w, "No dictionary changes recorded.")
		return nil
	}
	for _, r := range regs {
		fmt.Fprintf(w, "%s  %-6s  %s  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Action, r.Midashigo, r.Word)
	}
	return nil
}

// cmdConvert types keys into a fresh engine over a scratch copy of the
// dictionaries, so registrations made here are not saved.
func cmdConvert(w io.Writer, cfg *config.Config, typed string) error {
	keys, err := parseKeys(typed)
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.SessionOptions(cfg)
	if err != nil {
		return err
	}
	opts.Dictionary = a.Scratch()
	if opts.InitialMode == skk.ModeAscii {
		opts.InitialMode = skk.ModeHiragana
	}
	c, err := ime.NewComposer(opts)
	if err != nil {
		return err
	}

	var committed strings.Builder
	for _, k := range keys {
		c.HandleKey(k)
		committed.WriteString(c.Flush())
	}
	preedit, _ := c.Preedit()

	fmt.Fprintf(w, "committed: %s\n", committed.String())
	fmt.Fprintf(w, "preedit:   %s\n", preedit)
	if aux := c.Aux(); aux != "" {
		fmt.Fprintf(w, "aux:       %s\n", aux)
	}
	fmt.Fprintf(w, "mode:      %s\n", c.Mode().Indicator())
	return nil
}

var namedKeys = map[string]skk.Key{
	"C-j": skk.NamedKey(skk.CtrlJ),
	"C-g": skk.NamedKey(skk.CtrlG),
	"RET": skk.NamedKey(skk.Enter),
	"BS":  skk.NamedKey(skk.Backspace),
	"SPC": skk.NamedKey(skk.Space),
}

// parseKeys reads literal characters with <name> escapes for the keys in
// namedKeys. A "<" that does not start a known name is typed as itself.
func parseKeys(typed string) ([]skk.Key, error) {
	var keys []skk.Key
	for len(typed) > 0 {
		if typed[0] == '<' {
			if end := strings.IndexByte(typed, '>'); end > 0 {
				if k, ok := namedKeys[typed[1:end]]; ok {
					keys = append(keys, k)
					typed = typed[end+1:]
					continue
				}
			}
		}
		r := []rune(typed)[0]
		k, ok := skk.Classify(r, false)
		if !ok {
			return nil, fmt.Errorf("cannot type %q", r)
		}
		keys = append(keys, k)
		typed = typed[len(string(r)):]
	}
	return keys, nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
