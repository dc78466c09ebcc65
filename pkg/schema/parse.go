package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

var (
	structValidator = validator.New()
	textPolicy      = bluemonday.StrictPolicy()
)

// ParseDefinition decodes a form definition from JSON or YAML, strips any
// markup from user-facing text, and verifies structural integrity. YAML
// documents are converted through JSON so the struct tags stay authoritative.
func ParseDefinition(data []byte) (FormDefinition, error) {
	payload := bytes.TrimSpace(data)
	if len(payload) == 0 {
		return FormDefinition{}, fmt.Errorf("schema: definition payload is empty")
	}

	if payload[0] != '{' {
		var intermediate any
		if err := yaml.Unmarshal(payload, &intermediate); err != nil {
			return FormDefinition{}, fmt.Errorf("schema: decode yaml definition: %w", err)
		}
		converted, err := json.Marshal(normalizeYAML(intermediate))
		if err != nil {
			return FormDefinition{}, fmt.Errorf("schema: convert yaml definition: %w", err)
		}
		payload = converted
	}

	var def FormDefinition
	if err := json.Unmarshal(payload, &def); err != nil {
		return FormDefinition{}, fmt.Errorf("schema: decode definition: %w", err)
	}

	sanitizeDefinition(&def)
	if err := ValidateDefinition(def); err != nil {
		return FormDefinition{}, err
	}
	return def, nil
}

// ValidateDefinition checks the structural integrity of a definition: the
// required shape plus field-id uniqueness. Rule-level configuration is not
// checked here; malformed rules are inert at evaluation time.
func ValidateDefinition(def FormDefinition) error {
	if err := structValidator.Struct(def); err != nil {
		return fmt.Errorf("schema: invalid definition %q: %w", def.ID, err)
	}

	seen := make(map[string]struct{}, len(def.Fields))
	for _, field := range def.Fields {
		if _, dup := seen[field.ID]; dup {
			return fmt.Errorf("schema: definition %q declares duplicate field id %q", def.ID, field.ID)
		}
		seen[field.ID] = struct{}{}
	}
	return nil
}

// sanitizeDefinition strips markup from every string destined for display.
// Definitions can arrive from remote authoring tools, so labels and messages
// are treated as untrusted.
func sanitizeDefinition(def *FormDefinition) {
	def.Name = textPolicy.Sanitize(def.Name)
	def.Title = textPolicy.Sanitize(def.Title)
	def.Description = textPolicy.Sanitize(def.Description)

	for i := range def.Fields {
		field := &def.Fields[i]
		field.Label = textPolicy.Sanitize(field.Label)
		field.Placeholder = textPolicy.Sanitize(field.Placeholder)
		field.HelpText = textPolicy.Sanitize(field.HelpText)
		for j := range field.Validations {
			field.Validations[j].Message = textPolicy.Sanitize(field.Validations[j].Message)
		}
		for j := range field.Options {
			field.Options[j].Label = textPolicy.Sanitize(field.Options[j].Label)
		}
	}
	for i := range def.Sections {
		def.Sections[i].Title = textPolicy.Sanitize(def.Sections[i].Title)
		def.Sections[i].Description = textPolicy.Sanitize(def.Sections[i].Description)
	}
}

// normalizeYAML rewrites map[any]any nodes into map[string]any so the result
// can round-trip through encoding/json.
func normalizeYAML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[fmt.Sprint(key)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return value
	}
}
