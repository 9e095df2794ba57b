package jisyo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed jisyo.schema.json
var jsonSchemaData []byte

const jsonSchemaURL = "jisyo.schema.json"

var (
	jsonSchemaOnce sync.Once
	jsonSchema     *jsonschema.Schema
	jsonSchemaErr  error
)

// jsonDict is the skk-dev/dict JSON layout. Candidates are stored in the
// text form "word;annotation".
type jsonDict struct {
	OkuriAri  map[string][]string `json:"okuri_ari"`
	OkuriNasi map[string][]string `json:"okuri_nasi"`
}

func compiledSchema() (*jsonschema.Schema, error) {
	jsonSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(jsonSchemaURL, bytes.NewReader(jsonSchemaData)); err != nil {
			jsonSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		jsonSchema, jsonSchemaErr = compiler.Compile(jsonSchemaURL)
	})
	return jsonSchema, jsonSchemaErr
}

// ValidateJSON checks data against the dictionary schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal dictionary: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("dictionary schema: %w", err)
	}
	return nil
}

// ParseJSON validates and loads a JSON dictionary.
func ParseJSON(data []byte) (*MapLayer, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var d jsonDict
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	layer := NewMapLayer()
	for _, section := range []map[string][]string{d.OkuriAri, d.OkuriNasi} {
		for key, items := range section {
			for _, item := range items {
				c := ParseCandidate(item)
				if c.Word != "" {
					layer.Append(key, c)
				}
			}
		}
	}
	return layer, nil
}

// WriteJSON writes l in the JSON layout, split by okuri kind.
func WriteJSON(w io.Writer, l Layer) error {
	d := jsonDict{
		OkuriAri:  make(map[string][]string),
		OkuriNasi: make(map[string][]string),
	}
	for _, k := range l.Keys() {
		cands, ok := l.Get(k)
		if !ok {
			continue
		}
		items := make([]string, len(cands))
		for i, c := range cands {
			items[i] = c.String()
		}
		if IsOkuriAriKey(k) {
			d.OkuriAri[k] = items
		} else {
			d.OkuriNasi[k] = items
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
