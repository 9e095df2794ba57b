package jisyo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a dictionary file character set.
type Encoding string

const (
	EncodingAuto     Encoding = "auto"
	EncodingUTF8     Encoding = "utf-8"
	EncodingEUCJP    Encoding = "euc-jp"
	EncodingShiftJIS Encoding = "shift_jis"
)

// ErrUnknownEncoding is returned for an encoding name LoadFile does not know.
var ErrUnknownEncoding = errors.New("jisyo: unknown encoding")

const (
	okuriAriHeader  = ";; okuri-ari entries."
	okuriNasiHeader = ";; okuri-nasi entries."
)

var codingCookie = regexp.MustCompile(`coding:\s*([A-Za-z0-9_-]+)`)

// ParseEncoding normalizes the common spellings of the supported encodings.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return EncodingAuto, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	case "euc-jp", "eucjp", "euc-jp-unix", "euc-japan", "euc-japan-unix", "euc-jisx0213":
		return EncodingEUCJP, nil
	case "shift_jis", "shift-jis", "sjis", "cp932", "japanese-shift-jis":
		return EncodingShiftJIS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

func (e Encoding) decoder() encoding.Encoding {
	switch e {
	case EncodingEUCJP:
		return japanese.EUCJP
	case EncodingShiftJIS:
		return japanese.ShiftJIS
	default:
		return unicode.UTF8
	}
}

// DetectEncoding inspects the first line for an Emacs coding cookie and
// falls back to UTF-8 for valid UTF-8 input and EUC-JP otherwise.
func DetectEncoding(data []byte) Encoding {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if m := codingCookie.FindSubmatch(first); m != nil {
		if enc, err := ParseEncoding(string(m[1])); err == nil && enc != EncodingAuto {
			return enc
		}
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingEUCJP
}

// LoadFile reads a dictionary file in the given encoding.
func LoadFile(path string, enc Encoding) (*MapLayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		return ParseJSON(data)
	}
	if enc == "" || enc == EncodingAuto {
		enc = DetectEncoding(data)
	}
	r := transform.NewReader(bytes.NewReader(data), enc.decoder().NewDecoder())
	layer, skipped, err := parseJisyo(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(skipped) > 0 {
		slog.Default().Warn("skipped malformed dictionary lines",
			"path", path, "count", len(skipped), "first_line", skipped[0])
	}
	return layer, nil
}

// ParseJisyo reads the SKK text format:
//
//	midashigo /word1;annotation1/word2/
//
// Lines starting with ";;" are comments. Repeated headwords accumulate
// candidates in file order. Okuri blocks ("[く/書/]") are skipped, and so
// are malformed lines, which are logged.
func ParseJisyo(r io.Reader) (*MapLayer, error) {
	layer, skipped, err := parseJisyo(r)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		slog.Default().Warn("skipped malformed dictionary lines",
			"count", len(skipped), "first_line", skipped[0])
	}
	return layer, nil
}

// parseJisyo returns the parsed layer and the numbers of the lines it could
// not read.
func parseJisyo(r io.Reader) (*MapLayer, []int, error) {
	layer := NewMapLayer()
	var skipped []int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ";;") {
			continue
		}
		key, rest, ok := strings.Cut(line, " ")
		rest = strings.TrimLeft(rest, " ")
		if !ok || key == "" || !strings.HasPrefix(rest, "/") {
			skipped = append(skipped, lineNo)
			continue
		}
		cands := parseCandidates(rest)
		if len(cands) > 0 {
			layer.Append(key, cands...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return layer, skipped, nil
}

func parseCandidates(field string) []Candidate {
	var cands []Candidate
	inBlock := false
	for _, item := range strings.Split(strings.Trim(field, "/"), "/") {
		switch {
		case item == "":
			continue
		case strings.HasPrefix(item, "["):
			inBlock = true
			continue
		case item == "]":
			inBlock = false
			continue
		case inBlock:
			continue
		}
		c := ParseCandidate(item)
		c.Word = decodeConcat(c.Word)
		c.Annotation = decodeConcat(c.Annotation)
		if c.Word != "" {
			cands = append(cands, c)
		}
	}
	return cands
}

// decodeConcat expands the (concat "...") form used for words containing
// "/" or ";". Other text is returned unchanged.
func decodeConcat(s string) string {
	if !strings.HasPrefix(s, "(concat ") || !strings.HasSuffix(s, ")") {
		return s
	}
	body := strings.TrimSpace(s[len("(concat ") : len(s)-1])
	var b strings.Builder
	for body != "" {
		if body[0] != '"' {
			return s
		}
		end := 1
		for end < len(body) && body[end] != '"' {
			if body[end] == '\\' {
				end++
			}
			end++
		}
		if end >= len(body) {
			return s
		}
		lit, ok := unescapeLisp(body[1:end])
		if !ok {
			return s
		}
		b.WriteString(lit)
		body = strings.TrimSpace(body[end+1:])
	}
	return b.String()
}

func unescapeLisp(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", false
		}
		if s[i] >= '0' && s[i] <= '7' {
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, err := strconv.ParseUint(s[i:j], 8, 8)
			if err != nil {
				return "", false
			}
			b.WriteByte(byte(n))
			i = j - 1
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

func encodeConcat(s string) string {
	if !strings.ContainsAny(s, "/;") {
		return s
	}
	var b strings.Builder
	b.WriteString(`(concat "`)
	for _, r := range s {
		switch r {
		case '/':
			b.WriteString(`\057`)
		case ';':
			b.WriteString(`\073`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString(`")`)
	return b.String()
}

// FormatLine renders one dictionary line without the trailing newline.
func FormatLine(key string, cands []Candidate) string {
	var b strings.Builder
	b.WriteString(key)
	b.WriteString(" /")
	for _, c := range cands {
		b.WriteString(encodeConcat(c.Word))
		if c.Annotation != "" {
			b.WriteByte(';')
			b.WriteString(encodeConcat(c.Annotation))
		}
		b.WriteByte('/')
	}
	return b.String()
}

// WriteJisyo writes l in the SKK text format: okuri-ari entries in
// descending key order followed by okuri-nasi entries in ascending order.
func WriteJisyo(w io.Writer, l Layer) error {
	var ari, nasi []string
	for _, k := range l.Keys() {
		if IsOkuriAriKey(k) {
			ari = append(ari, k)
		} else {
			nasi = append(nasi, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ari)))
	sort.Strings(nasi)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ";; -*- mode: fundamental; coding: utf-8 -*-")
	for _, section := range []struct {
		header string
		keys   []string
	}{
		{okuriAriHeader, ari},
		{okuriNasiHeader, nasi},
	} {
		fmt.Fprintln(bw, section.header)
		for _, k := range section.keys {
			cands, ok := l.Get(k)
			if !ok || len(cands) == 0 {
				continue
			}
			fmt.Fprintln(bw, FormatLine(k, cands))
		}
	}
	return bw.Flush()
}
