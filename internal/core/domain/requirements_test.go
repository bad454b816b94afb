package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject_PreservesOrder(t *testing.T) {
	fields, keys, err := DecodeObject([]byte(`{"deadlines": "June", "requirements": ["a", "b"], "evaluation_criteria": {"price": 40}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"deadlines", "requirements", "evaluation_criteria"}, keys)
	assert.Equal(t, "June", fields["deadlines"])
	assert.Equal(t, []any{"a", "b"}, fields["requirements"])
	assert.Equal(t, map[string]any{"price": float64(40)}, fields["evaluation_criteria"])
}

func TestDecodeObject_DuplicateKey(t *testing.T) {
	fields, keys, err := DecodeObject([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, float64(3), fields["a"])
}

func TestDecodeObject_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"array", `["a"]`},
		{"string", `"a"`},
		{"truncated", `{"a": 1`},
		{"trailing value", `{"a": 1} {"b": 2}`},
		{"trailing text", `{"a": 1} trailing`},
		{"extra closing brace", `{"a": 1}}`},
		{"extra closing bracket", `{"a": 1} ]`},
		{"extra closers after nested object", `{"a": {"b": 1}}}}`},
		{"bad value", `{"a": tru}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeObject([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRequirementSet_String(t *testing.T) {
	set := RequirementSet{
		Fields: map[string]any{"deadlines": "2025-06-01", "requirements": []any{"IT consulting"}},
		Keys:   []string{"requirements", "deadlines"},
	}

	expected := "{\n  \"requirements\": [\n    \"IT consulting\"\n  ],\n  \"deadlines\": \"2025-06-01\"\n}"
	assert.Equal(t, expected, set.String())
}

func TestRequirementSet_Fallback(t *testing.T) {
	set := FallbackRequirements("no JSON object in reply", "Sorry, I cannot comply.")
	assert.True(t, set.IsFallback())
	assert.Nil(t, set.Sections())
	assert.Equal(t, 0, set.Len())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(set.String()), &decoded))
	assert.Equal(t, map[string]any{
		"error":        "no JSON object in reply",
		"raw_response": "Sorry, I cannot comply.",
	}, decoded)
}

func TestRequirementSet_JSONRoundTrip(t *testing.T) {
	t.Run("parsed set keeps order", func(t *testing.T) {
		set := RequirementSet{
			Fields: map[string]any{"z": "last", "a": []any{"x"}},
			Keys:   []string{"z", "a"},
		}
		data, err := json.Marshal(set)
		require.NoError(t, err)
		assert.Equal(t, `{"z":"last","a":["x"]}`, string(data))

		var got RequirementSet
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, set, got)
	})

	t.Run("fallback stays a fallback", func(t *testing.T) {
		set := FallbackRequirements("bad", "raw")
		data, err := json.Marshal(set)
		require.NoError(t, err)

		var got RequirementSet
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, got.IsFallback())
		assert.Equal(t, set, got)
	})

	t.Run("inside a run", func(t *testing.T) {
		run := completedRun(t)
		data, err := json.Marshal(run)
		require.NoError(t, err)

		var got Run
		require.NoError(t, json.Unmarshal(data, &got))
		require.NotNil(t, got.Requirements)
		assert.Equal(t, run.Requirements.Keys, got.Requirements.Keys)
		assert.Equal(t, run.Draft, got.Draft)
		assert.Equal(t, StageDone, got.Stage)
	})
}

func TestRequirementSet_Sections(t *testing.T) {
	set := RequirementSet{
		Fields: map[string]any{
			"compliance_needs": []any{"ISO 27001", float64(9001)},
			"deadlines":        "2025-06-01",
			"evaluation":       map[string]any{"price": "40%"},
		},
		Keys: []string{"compliance_needs", "deadlines", "evaluation"},
	}

	sections := set.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, RequirementSection{Title: "Compliance_Needs", Items: []string{"ISO 27001", "9001"}}, sections[0])
	assert.Equal(t, RequirementSection{Title: "Deadlines", Text: "2025-06-01"}, sections[1])
	assert.Equal(t, RequirementSection{Title: "Evaluation", Text: `{"price":"40%"}`}, sections[2])
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"requirements":          "Requirements",
		"compliance_needs":      "Compliance_Needs",
		"Key Requirements":      "Key Requirements",
		"EVALUATION criteria":   "Evaluation Criteria",
		"1. deadlines":          "1. Deadlines",
		"required sections2for": "Required Sections2For",
		"":                      "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, TitleCase(in))
		})
	}
}
