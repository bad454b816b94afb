package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// Fallback reasons recorded in RequirementSet.Error.
const (
	reasonNoJSON      = "Could not extract proper JSON format from response"
	reasonParseError  = "Error parsing response"
	reasonSchemaError = "Response does not match the requirement schema"
)

// requirementValue accepts any non-null JSON value.
type requirementValue struct{}

// JSONSchema implements jsonschema.JSONSchemer.
func (requirementValue) JSONSchema() *jsonschema.Schema {
	return nonNullSchema()
}

// requirementDocument describes the object the parse prompt asks for.
type requirementDocument struct {
	Requirements       requirementValue `json:"requirements,omitempty" jsonschema_description:"Key requirements and deliverables"`
	ComplianceNeeds    requirementValue `json:"compliance_needs,omitempty" jsonschema_description:"Compliance needs"`
	Deadlines          requirementValue `json:"deadlines,omitempty" jsonschema_description:"Deadlines"`
	EvaluationCriteria requirementValue `json:"evaluation_criteria,omitempty" jsonschema_description:"Evaluation criteria"`
	RequiredSections   requirementValue `json:"required_sections,omitempty" jsonschema_description:"Required sections for the response"`
}

func nonNullSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "number"},
			{Type: "boolean"},
			{Type: "array"},
			{Type: "object"},
		},
	}
}

// RequirementSchema returns the JSON Schema a usable parse reply must match.
// The object must carry at least one expected key; other keys are allowed
// but no value may be null.
func RequirementSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true, Anonymous: true, AllowAdditionalProperties: true}
	schema := r.Reflect(&requirementDocument{})
	schema.Title = "RFP requirements"
	schema.AdditionalProperties = nonNullSchema()
	schema.AnyOf = make([]*jsonschema.Schema, 0, len(domain.RequirementKeys))
	for _, key := range domain.RequirementKeys {
		schema.AnyOf = append(schema.AnyOf, &jsonschema.Schema{Required: []string{key}})
	}
	return schema
}

var (
	compileOnce    sync.Once
	compiledSchema *validator.Schema
	compileErr     error
)

func requirementValidator() (*validator.Schema, error) {
	compileOnce.Do(func() {
		data, err := json.Marshal(RequirementSchema())
		if err != nil {
			compileErr = fmt.Errorf("encode requirement schema: %w", err)
			return
		}
		compiler := validator.NewCompiler()
		if err := compiler.AddResource("requirements.json", bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("requirements.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile requirement schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// requirementAliases maps normalised key spellings to expected keys.
var requirementAliases = map[string]string{
	"key_requirements":                   domain.KeyRequirements,
	"key_requirements_and_deliverables":  domain.KeyRequirements,
	"requirements_and_deliverables":      domain.KeyRequirements,
	"deliverables":                       domain.KeyRequirements,
	"compliance":                         domain.KeyComplianceNeeds,
	"compliance_requirements":            domain.KeyComplianceNeeds,
	"deadline":                           domain.KeyDeadlines,
	"key_dates":                          domain.KeyDeadlines,
	"timeline":                           domain.KeyDeadlines,
	"evaluation":                         domain.KeyEvaluationCriteria,
	"criteria":                           domain.KeyEvaluationCriteria,
	"required_sections_for_the_response": domain.KeyRequiredSections,
	"required_sections_for_response":     domain.KeyRequiredSections,
	"required_response_sections":         domain.KeyRequiredSections,
	"response_sections":                  domain.KeyRequiredSections,
	"sections":                           domain.KeyRequiredSections,
}

// CanonicalRequirementKey maps a key as the model wrote it to an expected
// key. The boolean is false when the key is not recognised.
func CanonicalRequirementKey(key string) (string, bool) {
	norm := normaliseKey(key)
	for _, expected := range domain.RequirementKeys {
		if norm == expected {
			return expected, true
		}
	}
	canonical, ok := requirementAliases[norm]
	return canonical, ok
}

// normaliseKey lower-cases a key, joins words with underscores and drops a
// leading list number, so "1. Key Requirements" becomes "key_requirements".
func normaliseKey(key string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	norm := b.String()
	if i := strings.IndexByte(norm, '_'); i > 0 && strings.Trim(norm[:i], "0123456789") == "" {
		norm = norm[i+1:]
	}
	return norm
}

// ExtractJSONObject returns the text from the first '{' to the last '}'.
// The boolean is false when no such span exists.
func ExtractJSONObject(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

// ParseRequirements turns the parsing stage's reply into a requirement set.
// It never fails: an unusable reply yields a fallback record holding the
// reason and the raw reply.
func ParseRequirements(reply string) domain.RequirementSet {
	span, ok := ExtractJSONObject(reply)
	if !ok {
		return domain.FallbackRequirements(reasonNoJSON, reply)
	}

	fields, keys, err := domain.DecodeObject([]byte(span))
	if err != nil {
		return domain.FallbackRequirements(fmt.Sprintf("%s: %v", reasonParseError, err), reply)
	}

	if err := validateRequirements(fields); err != nil {
		return domain.FallbackRequirements(fmt.Sprintf("%s: %v", reasonSchemaError, err), reply)
	}

	return domain.RequirementSet{Fields: fields, Keys: keys}
}

// validateRequirements checks the decoded object against the schema with
// alias keys renamed to their expected spelling.
func validateRequirements(fields map[string]any) error {
	schema, err := requirementValidator()
	if err != nil {
		return err
	}

	canonical := make(map[string]any, len(fields))
	for key, value := range fields {
		if expected, ok := CanonicalRequirementKey(key); ok {
			if _, taken := canonical[expected]; !taken {
				canonical[expected] = value
				continue
			}
		}
		canonical[key] = value
	}

	if err := schema.Validate(canonical); err != nil {
		return firstLine(err.Error())
	}
	return nil
}

// firstLine trims a validator message to its summary line.
func firstLine(msg string) error {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return fmt.Errorf("%s", strings.TrimSpace(msg))
}
