package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skkime/internal/config"
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
	cfg.Dictionary.System = []config.SystemDictionary{{Path: sys, Encoding: "utf-8"}}
	cfg.Dictionary.WatchSystem = false
	cfg.Dictionary.Audit = true
	cfg.Dictionary.AuditPath = filepath.Join(dir, "state", "audit.log")
	cfg.Logging.FilePath = filepath.Join(dir, "state", "skkime.log")
	return cfg
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		typed string
		want []skk.Key
	}{
		{"ka", []skk.Key{{Kind: skk.LowerAlpha, Rune: 'k'}, {Kind: skk.LowerAlpha, Rune: 'a'}}},
		{"K<SPC>", []skk.Key{{Kind: skk.UpperAlpha, Rune: 'K'}, skk.NamedKey(skk.Space)}},
		{"<C-j><C-g><BS><RET>", []skk.Key{
			skk.NamedKey(skk.CtrlJ), skk.NamedKey(skk.CtrlG),
			skk.NamedKey(skk.Backspace), skk.NamedKey(skk.Enter),
		}},
		{"<x>", []skk.Key{
			{Kind: skk.Symbol, Rune: '<'}, {Kind: skk.LowerAlpha, Rune: 'x'}, {Kind: skk.Symbol, Rune: '>'},
		}},
		{"<", []skk.Key{{Kind: skk.Symbol, Rune: '<'}}},
	}
	for _, tt := range tests {
		t.Run(tt.typed, func(t *testing.T) {
			got, err := parseKeys(tt.typed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseKeys("か")
	assert.Error(t, err)
}

func TestRegisterLookupDelete(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, cmdRegister(&out, cfg, "かんじ", "幹事;organizer"))
	assert.Contains(t, out.String(), "かんじ /幹事;organizer/")

	out.Reset()
	require.NoError(t, cmdLookup(&out, cfg, "かんじ"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "かんじ /幹事;organizer/漢字/感じ/", lines[0])
	assert.Contains(t, lines[1], "幹事")
	assert.Contains(t, lines[1], "[user]")
	assert.Contains(t, lines[2], "[system]")

	assert.Error(t, cmdRegister(&out, cfg, "", "空"))
	assert.Error(t, cmdLookup(&out, cfg, "ないよ"))

	out.Reset()
	assert.Error(t, cmdDelete(&out, cfg, "かんじ", "漢字"), "system words cannot be deleted")
	require.NoError(t, cmdDelete(&out, cfg, "かんじ", "幹事"))
	assert.Error(t, cmdDelete(&out, cfg, "かんじ", ""), "the reading is gone once its last word is")

	exported, err := os.ReadFile(cfg.Dictionary.ExportPath)
	require.NoError(t, err)
	assert.NotContains(t, string(exported), "幹事")
}

func TestImportMergesAndExports(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, cmdRegister(&out, cfg, "へんかん", "返還"))

	src := filepath.Join(t.TempDir(), "extra.json")
	require.NoError(t, os.WriteFile(src, []byte(`{
  "okuri_ari": {"かえs": ["返"]},
  "okuri_nasi": {"へんかん": ["変換", "返還"], "じしょ": ["辞書"]}
}`), 0644))

	out.Reset()
	require.NoError(t, cmdImport(&out, cfg, src, "auto"))
	assert.Contains(t, out.String(), "Imported 3 readings")

	out.Reset()
	require.NoError(t, cmdExport(&out, cfg, ""))
	exported := out.String()
	assert.Contains(t, exported, "へんかん /返還/変換/")
	assert.Contains(t, exported, "じしょ /辞書/")
	assert.Contains(t, exported, "かえs /返/")

	jsonOut := filepath.Join(t.TempDir(), "user.json")
	out.Reset()
	require.NoError(t, cmdExport(&out, cfg, jsonOut))
	data, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "変換")

	file, err := os.ReadFile(cfg.Dictionary.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(file), "じしょ /辞書/", "the export file is refreshed after import")

	audit, err := os.ReadFile(cfg.Dictionary.AuditPath)
	require.NoError(t, err)
	assert.Contains(t, string(audit), src)
	assert.Contains(t, string(audit), jsonOut)
}

func TestStatsAndHistory(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, cmdStats(&out, cfg))
	assert.Contains(t, out.String(), "No database found")

	require.NoError(t, cmdRegister(&out, cfg, "とうろく", "登録"))

	out.Reset()
	require.NoError(t, cmdStats(&out, cfg))
	assert.Contains(t, out.String(), "Readings: 1")
	assert.Contains(t, out.String(), "SKK-JISYO.test (utf-8, ")

	out.Reset()
	require.NoError(t, cmdHistory(&out, cfg, 5))
	assert.Contains(t, out.String(), "とうろく")
	assert.Contains(t, out.String(), "登録")
}

func TestConvert(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, cmdConvert(&out, cfg, "Kanji<SPC>"))
	assert.Contains(t, out.String(), "committed: \n")
	assert.Contains(t, out.String(), "preedit:   ▼漢字\n")
	assert.Contains(t, out.String(), "mode:      かな\n")

	out.Reset()
	require.NoError(t, cmdConvert(&out, cfg, "Kanji<SPC><SPC><RET>"))
	assert.Contains(t, out.String(), "committed: 感じ\n")

	out.Reset()
	require.NoError(t, cmdConvert(&out, cfg, "Touroku<SPC><RET>"))
	assert.Contains(t, out.String(), "committed: とうろく\n", "an empty registration puts the reading back")

	out.Reset()
	require.NoError(t, cmdHistory(&out, cfg, 5))
	assert.Contains(t, out.String(), "No dictionary changes recorded.")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.n))
	}
}
