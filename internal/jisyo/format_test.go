package jisyo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const sampleJisyo = `;; -*- coding: utf-8 -*-
;; okuri-ari entries.
かk /書/描;drawing/[く/書/]/
;; okuri-nasi entries.
かんじ /漢字/感じ;feeling/
かんじ /幹事/漢字/

url /(concat "http:\057\057example.com")/
`

func TestParseJisyo(t *testing.T) {
	layer, err := ParseJisyo(strings.NewReader(sampleJisyo))
	require.NoError(t, err)

	got, ok := layer.Get("かんじ")
	require.True(t, ok)
	assert.Equal(t, []string{"漢字", "感じ", "幹事"}, words(got))
	assert.Equal(t, "feeling", got[1].Annotation)

	got, ok = layer.Get("かk")
	require.True(t, ok)
	assert.Equal(t, []string{"書", "描"}, words(got))

	got, ok = layer.Get("url")
	require.True(t, ok)
	assert.Equal(t, "http://example.com", got[0].Word)
}

func TestParseJisyoMalformed(t *testing.T) {
	text := "かんじ /漢字/\nかんじ 漢字\nstray\nいぬ /犬/\n"
	layer, skipped, err := parseJisyo(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, skipped)
	assert.Equal(t, 2, layer.Len(), "good lines around bad ones still load")

	layer, err = ParseJisyo(strings.NewReader(text))
	require.NoError(t, err)
	got, ok := layer.Get("いぬ")
	require.True(t, ok)
	assert.Equal(t, "犬", got[0].Word)
}

func TestLoadFileSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SKK-JISYO.broken")
	require.NoError(t, os.WriteFile(path, []byte("かんじ /漢字/\n壊れた行\n"), 0644))

	layer, err := LoadFile(path, EncodingUTF8)
	require.NoError(t, err)
	got, ok := layer.Get("かんじ")
	require.True(t, ok)
	assert.Equal(t, "漢字", got[0].Word)
}

func TestWriteJisyoSections(t *testing.T) {
	layer := NewMapLayer()
	layer.Set("あi", cands("会"))
	layer.Set("かk", cands("書"))
	layer.Set("いぬ", cands("犬"))
	layer.Set("あめ", cands("雨", "a/b"))

	var buf bytes.Buffer
	require.NoError(t, WriteJisyo(&buf, layer))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, okuriAriHeader, lines[1])
	assert.Equal(t, "かk /書/", lines[2])
	assert.Equal(t, "あi /会/", lines[3])
	assert.Equal(t, okuriNasiHeader, lines[4])
	assert.Equal(t, `あめ /雨/(concat "a\057b")/`, lines[5])
	assert.Equal(t, "いぬ /犬/", lines[6])

	again, err := ParseJisyo(&buf)
	require.NoError(t, err)
	got, _ := again.Get("あめ")
	assert.Equal(t, []string{"雨", "a/b"}, words(got))
}

func TestLoadFileEUCJP(t *testing.T) {
	text := ";; okuri-nasi entries.\nかんじ /漢字/\n"
	encoded, _, err := transform.String(japanese.EUCJP.NewEncoder(), text)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "SKK-JISYO.S")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0600))

	assert.Equal(t, EncodingEUCJP, DetectEncoding([]byte(encoded)))

	layer, err := LoadFile(path, EncodingAuto)
	require.NoError(t, err)
	got, ok := layer.Get("かんじ")
	require.True(t, ok)
	assert.Equal(t, "漢字", got[0].Word)
}

func TestDetectEncodingCookie(t *testing.T) {
	assert.Equal(t, EncodingShiftJIS, DetectEncoding([]byte(";; -*- coding: shift_jis -*-\n")))
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("かんじ /漢字/\n")))
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("EUC-JP")
	require.NoError(t, err)
	assert.Equal(t, EncodingEUCJP, enc)

	_, err = ParseEncoding("latin1")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestJSONRoundTrip(t *testing.T) {
	layer := NewMapLayer()
	layer.Set("かk", cands("書"))
	layer.Set("かんじ", []Candidate{{Word: "漢字"}, {Word: "感じ", Annotation: "feeling"}})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, layer))

	loaded, err := ParseJSON(buf.Bytes())
	require.NoError(t, err)
	got, _ := loaded.Get("かんじ")
	assert.Equal(t, layer.entries["かんじ"], got)
	assert.Equal(t, 2, loaded.Len())
}

func TestJSONSchemaRejects(t *testing.T) {
	bad := []string{
		`{"okuri_ari": {}}`,
		`{"okuri_ari": {}, "okuri_nasi": {"かんじ": []}}`,
		`{"okuri_ari": {}, "okuri_nasi": {"かんじ": [1]}}`,
		`[]`,
	}
	for _, data := range bad {
		_, err := ParseJSON([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestFileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user", "skk-jisyo")
	d := New(nil, nil)
	exp := NewFileExporter(path, d.UserLayer())
	d.AddPersister(exp)

	require.True(t, d.RegisterCandidate("かんじ", Candidate{Word: "漢字"}))

	layer, err := LoadFile(path, EncodingAuto)
	require.NoError(t, err)
	got, ok := layer.Get("かんじ")
	require.True(t, ok)
	assert.Equal(t, "漢字", got[0].Word)

	require.True(t, d.DeleteCandidate("かんじ", Candidate{Word: "漢字"}))
	layer, err = LoadFile(path, EncodingAuto)
	require.NoError(t, err)
	assert.Equal(t, 0, layer.Len())

	matches, _ := filepath.Glob(path + ".tmp.*")
	assert.Empty(t, matches)
}
