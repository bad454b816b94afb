package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Expected requirement keys, in the order the parse prompt asks for them.
const (
	KeyRequirements       = "requirements"
	KeyComplianceNeeds    = "compliance_needs"
	KeyDeadlines          = "deadlines"
	KeyEvaluationCriteria = "evaluation_criteria"
	KeyRequiredSections   = "required_sections"
)

// Fallback record keys.
const (
	FallbackErrorKey = "error"
	FallbackRawKey   = "raw_response"
)

// RequirementKeys lists the expected requirement keys in prompt order.
var RequirementKeys = []string{
	KeyRequirements,
	KeyComplianceNeeds,
	KeyDeadlines,
	KeyEvaluationCriteria,
	KeyRequiredSections,
}

// RequirementSet is the result of the parsing stage: either the object the
// model returned, or a fallback record carrying an error and the raw reply.
type RequirementSet struct {
	// Fields holds the parsed object. Nil for a fallback record.
	Fields map[string]any

	// Keys preserves the key order of Fields as the model wrote them.
	Keys []string

	// Error describes why the reply could not be used. Empty on success.
	Error string

	// RawResponse is the unparsed model reply for a fallback record.
	RawResponse string
}

// FallbackRequirements builds the fallback record for an unusable reply.
func FallbackRequirements(reason, raw string) RequirementSet {
	return RequirementSet{Error: reason, RawResponse: raw}
}

// IsFallback returns true if the set is an error record.
func (r RequirementSet) IsFallback() bool {
	return r.Error != ""
}

// Get returns the value stored under key.
func (r RequirementSet) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Len returns the number of parsed fields.
func (r RequirementSet) Len() int {
	return len(r.Keys)
}

// String renders the set as indented JSON in key order.
// This text is the payload handed to the later stages.
func (r RequirementSet) String() string {
	data, err := r.marshal("  ")
	if err != nil {
		return fmt.Sprintf("{%q: %q}", FallbackErrorKey, err.Error())
	}
	return string(data)
}

// MarshalJSON encodes the set as a single object, preserving key order.
func (r RequirementSet) MarshalJSON() ([]byte, error) {
	return r.marshal("")
}

// UnmarshalJSON decodes an object written by MarshalJSON.
// An object holding only fallback keys decodes as a fallback record.
func (r *RequirementSet) UnmarshalJSON(data []byte) error {
	fields, keys, err := DecodeObject(data)
	if err != nil {
		return err
	}
	if isFallbackShape(keys) {
		errMsg, _ := fields[FallbackErrorKey].(string)
		raw, _ := fields[FallbackRawKey].(string)
		*r = FallbackRequirements(errMsg, raw)
		return nil
	}
	*r = RequirementSet{Fields: fields, Keys: keys}
	return nil
}

func (r RequirementSet) marshal(indent string) ([]byte, error) {
	var buf bytes.Buffer
	nl, pad := "", ""
	if indent != "" {
		nl, pad = "\n", indent
	}

	write := func(i int, key string, value any) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(nl + pad)
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if indent != "" {
			buf.WriteByte(' ')
		}
		var v []byte
		if indent != "" {
			v, err = json.MarshalIndent(value, pad, indent)
		} else {
			v, err = json.Marshal(value)
		}
		if err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
		buf.Write(v)
		return nil
	}

	buf.WriteByte('{')
	if r.IsFallback() {
		if err := write(0, FallbackErrorKey, r.Error); err != nil {
			return nil, err
		}
		if r.RawResponse != "" {
			if err := write(1, FallbackRawKey, r.RawResponse); err != nil {
				return nil, err
			}
		}
	} else {
		for i, key := range r.Keys {
			if err := write(i, key, r.Fields[key]); err != nil {
				return nil, err
			}
		}
	}
	if buf.Len() > 1 {
		buf.WriteString(nl)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isFallbackShape(keys []string) bool {
	hasError := false
	for _, k := range keys {
		switch k {
		case FallbackErrorKey:
			hasError = true
		case FallbackRawKey:
		default:
			return false
		}
	}
	return hasError
}

// RequirementSection is one displayable entry of a requirement set.
type RequirementSection struct {
	// Title is the key in title case.
	Title string

	// Text holds a scalar or object value as text. Empty for lists.
	Text string

	// Items holds list values, one entry per element.
	Items []string
}

// Sections returns the display view of a parsed set, in key order.
// A fallback record has no sections.
func (r RequirementSet) Sections() []RequirementSection {
	if r.IsFallback() {
		return nil
	}
	sections := make([]RequirementSection, 0, len(r.Keys))
	for _, key := range r.Keys {
		section := RequirementSection{Title: TitleCase(key)}
		switch v := r.Fields[key].(type) {
		case []any:
			section.Items = make([]string, 0, len(v))
			for _, item := range v {
				section.Items = append(section.Items, displayValue(item))
			}
		default:
			section.Text = displayValue(v)
		}
		sections = append(sections, section)
	}
	return sections
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest. Any non-letter starts a new word, so "compliance_needs" becomes
// "Compliance_Needs".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// errNotObject is returned by DecodeObject for valid JSON that is not an object.
var errNotObject = errors.New("JSON value is not an object")

// DecodeObject decodes a JSON object and reports its top-level keys in the
// order they appear. Duplicate keys keep the last value and first position.
// Nested values decode the way encoding/json decodes into any.
func DecodeObject(data []byte) (map[string]any, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errNotObject
	}

	fields := make(map[string]any)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("decode %q: %w", key, err)
		}
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	// Only whitespace may follow, stray closers included.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("trailing data after JSON object")
	}
	return fields, keys, nil
}
