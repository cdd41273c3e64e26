package masking

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONFieldMasker masks string values of sensitive fields at any depth of a
// JSON document. Non-JSON or truncated input is returned unchanged.
type JSONFieldMasker struct {
	keys map[string]bool
}

// NewJSONFieldMasker creates a masker for the given field names.
func NewJSONFieldMasker(keys []string) *JSONFieldMasker {
	return &JSONFieldMasker{keys: keySet(keys)}
}

// Name returns the unique identifier for this masker.
func (m *JSONFieldMasker) Name() string { return "json_fields" }

// AppliesTo reports whether data looks like a JSON object or array.
func (m *JSONFieldMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	return len(trimmed) > 1 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Mask parses data, masks matching fields and re-encodes it compactly.
func (m *JSONFieldMasker) Mask(data string) string {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return data
	}
	if dec.More() {
		return data
	}
	if !m.walk(doc) {
		return data
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return data
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// walk masks in place and reports whether anything changed.
func (m *JSONFieldMasker) walk(v any) bool {
	changed := false
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if _, isString := child.(string); isString && m.keys[strings.ToLower(k)] {
				node[k] = MaskedValue
				changed = true
				continue
			}
			if m.walk(child) {
				changed = true
			}
		}
	case []any:
		for _, child := range node {
			if m.walk(child) {
				changed = true
			}
		}
	}
	return changed
}
