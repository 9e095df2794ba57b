package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skkime/internal/config"
	"skkime/internal/jisyo"
	"skkime/internal/skk"
)

const systemJisyo = `;; -*- coding: utf-8 -*-
;; okuri-ari entries.
かk /書/
;; okuri-nasi entries.
かんじ /漢字/感じ/
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sys := filepath.Join(dir, "SKK-JISYO.test")
	require.NoError(t, os.WriteFile(sys, []byte(systemJisyo), 0644))

	cfg := config.DefaultConfig()
	cfg.Dictionary.UserDB = filepath.Join(dir, "data", "user.db")
	cfg.Dictionary.ExportPath = filepath.Join(dir, "data", "SKK-JISYO.user")
	cfg.Dictionary.System = []config.SystemDictionary{
		{Path: filepath.Join(dir, "missing.L"), Encoding: "euc-jp"},
		{Path: sys, Encoding: "utf-8"},
	}
	cfg.Dictionary.WatchSystem = false
	cfg.Dictionary.AuditPath = filepath.Join(dir, "state", "audit.log")
	cfg.Logging.FilePath = filepath.Join(dir, "state", "skkime.log")
	return cfg
}

func TestOpenSkipsMissingSystemDictionaries(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	sources := a.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, 0, sources[0].Index)
	assert.Equal(t, 2, a.Dictionary.LayerCount())

	entry, ok := a.Dictionary.LookupCandidates("かんじ")
	require.True(t, ok)
	assert.Equal(t, "漢字", entry.At(0).Word)
	assert.Nil(t, a.Audit)
}

func TestRegistrationPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.Audit = true

	a, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Audit)
	require.True(t, a.Dictionary.RegisterCandidate("とうろく", jisyo.ParseCandidate("登録")))
	require.NoError(t, a.Close())

	exported, err := os.ReadFile(cfg.Dictionary.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "とうろく /登録/")

	audit, err := os.ReadFile(cfg.Dictionary.AuditPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(audit), "startup"))

	b, err := Open(cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	entry, ok := b.Dictionary.LookupCandidates("とうろく")
	require.True(t, ok, "user entries survive a restart")
	assert.Equal(t, "登録", entry.At(0).Word)
}

func TestSessionOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.InitialMode = "katakana"
	cfg.Input.SelectionKeys = "jkl"

	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	opts, err := a.SessionOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, skk.ModeKatakana, opts.InitialMode)
	assert.Equal(t, "jkl", opts.SelectionKeys)
	assert.Same(t, a.Dictionary, opts.Dictionary)

	bad := cfg.Clone()
	bad.Input.InitialMode = "romaji"
	_, err = a.SessionOptions(bad)
	assert.Error(t, err)
}

func TestWatchSystemDisabled(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.WatchSystem(t.Context()))
	assert.Nil(t, a.watcher)
}

func TestWatchSystemStopsOnClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.WatchSystem = true
	a, err := Open(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.WatchSystem(t.Context()))
	assert.NotNil(t, a.watcher)
	require.NoError(t, a.Close())
	assert.Nil(t, a.watcher)
}

func TestScratchDoesNotPersist(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.True(t, a.Dictionary.RegisterCandidate("かんじ", jisyo.ParseCandidate("幹事")))

	scratch := a.Scratch()
	entry, ok := scratch.LookupCandidates("かんじ")
	require.True(t, ok)
	assert.Equal(t, "幹事", entry.At(0).Word, "user words come first")
	assert.Equal(t, "漢字", entry.At(1).Word)

	require.True(t, scratch.RegisterCandidate("ためし", jisyo.ParseCandidate("試し")))
	_, ok = a.Dictionary.LookupCandidates("ためし")
	assert.False(t, ok)
	stored, err := a.Store.Lookup("ためし")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
