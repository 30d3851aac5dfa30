package rowstore

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FieldKind tags the shape of a raw field value
type FieldKind int

const (
	FieldAbsent     FieldKind = iota // null, missing, empty list or unrecognised shape
	FieldScalar                      // string, number or boolean
	FieldSelect                      // object carrying a "value"
	FieldScalarList                  // list of scalars
	FieldSelectList                  // list of objects carrying a "value"
)

func (k FieldKind) String() string {
	switch k {
	case FieldScalar:
		return "scalar"
	case FieldSelect:
		return "select"
	case FieldScalarList:
		return "scalar-list"
	case FieldSelectList:
		return "select-list"
	default:
		return "absent"
	}
}

// FieldValue is a remote cell value reduced to text
type FieldValue struct {
	Kind FieldKind
	text string
}

// Text returns the value, or false when the field is absent
func (v FieldValue) Text() (string, bool) {
	if v.Kind == FieldAbsent {
		return "", false
	}
	return v.text, true
}

// String returns the value or an empty string
func (v FieldValue) String() string {
	return v.text
}

// ParseField classifies a raw JSON cell. Lists are flattened into a
// comma-joined string.
func ParseField(raw json.RawMessage) FieldValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return FieldValue{}
	}

	switch raw[0] {
	case '[':
		return parseList(raw)
	case '{':
		text, ok := selectValue(raw)
		if !ok {
			return FieldValue{}
		}
		return FieldValue{Kind: FieldSelect, text: text}
	default:
		text, ok := scalarText(raw)
		if !ok {
			return FieldValue{}
		}
		return FieldValue{Kind: FieldScalar, text: text}
	}
}

// parseList decides the variant from the first entry, as lookups and links
// are homogeneous
func parseList(raw json.RawMessage) FieldValue {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
		return FieldValue{}
	}

	first := bytes.TrimSpace(entries[0])
	if len(first) > 0 && first[0] == '{' {
		if !hasValueKey(first) {
			return FieldValue{}
		}
		var parts []string
		for _, entry := range entries {
			if text, ok := selectValue(entry); ok && text != "" {
				parts = append(parts, text)
			}
		}
		return FieldValue{Kind: FieldSelectList, text: strings.Join(parts, ", ")}
	}

	if _, ok := scalarText(first); !ok {
		return FieldValue{}
	}
	var parts []string
	for _, entry := range entries {
		if text, ok := scalarText(entry); ok {
			parts = append(parts, text)
		}
	}
	return FieldValue{Kind: FieldScalarList, text: strings.Join(parts, ", ")}
}

func hasValueKey(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj["value"]
	return ok
}

// selectValue extracts the "value" of a select-like object. Lookups of
// select fields nest one object inside another.
func selectValue(raw json.RawMessage) (string, bool) {
	var obj struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	inner := bytes.TrimSpace(obj.Value)
	if len(inner) > 0 && inner[0] == '{' {
		return selectValue(inner)
	}
	return scalarText(inner)
}

func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// Price reads a unit price. Leading numeric text is accepted ("12.5 EUR");
// anything unparseable or negative is 0.
func Price(v FieldValue) float64 {
	match := leadingFloat.FindString(strings.TrimSpace(v.text))
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Quantity reads an item count. Anything unparseable or below 1 is 1.
func Quantity(v FieldValue) int {
	match := leadingInt.FindString(strings.TrimSpace(v.text))
	if match == "" {
		return 1
	}
	n, err := strconv.Atoi(match)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
