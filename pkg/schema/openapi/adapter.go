// Package openapi derives form definitions from OpenAPI 3 documents, letting
// callers author forms as API operations instead of bespoke definition
// files. Only the request body of the selected operation is considered.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// FromData loads an OpenAPI document from raw bytes and derives the form
// definition for the operation with the given id.
func FromData(ctx context.Context, data []byte, operationID string) (schema.FormDefinition, error) {
	if len(data) == 0 {
		return schema.FormDefinition{}, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return schema.FormDefinition{}, fmt.Errorf("openapi: load document: %w", err)
	}
	return FromDocument(doc, operationID)
}

// FromDocument derives a form definition from a parsed OpenAPI document.
func FromDocument(doc *openapi3.T, operationID string) (schema.FormDefinition, error) {
	if doc == nil {
		return schema.FormDefinition{}, errors.New("openapi: document is nil")
	}
	if operationID == "" {
		return schema.FormDefinition{}, errors.New("openapi: operation id is required")
	}

	operation := findOperation(doc, operationID)
	if operation == nil {
		return schema.FormDefinition{}, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	body := requestSchema(operation.RequestBody)
	if body == nil {
		return schema.FormDefinition{}, fmt.Errorf("openapi: operation %q has no request body schema", operationID)
	}

	def := schema.FormDefinition{
		ID:          operationID,
		Title:       operation.Summary,
		Description: operation.Description,
		Version:     doc.Info.Version,
		Fields:      buildFields(body),
	}
	if err := schema.ValidateDefinition(def); err != nil {
		return schema.FormDefinition{}, err
	}
	return def, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestSchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func buildFields(body *openapi3.Schema) []schema.FieldDefinition {
	required := make(map[string]struct{}, len(body.Required))
	for _, name := range body.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]schema.FieldDefinition, 0, len(names))
	for _, name := range names {
		ref := body.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		_, isRequired := required[name]
		fields = append(fields, buildField(name, ref.Value, isRequired))
	}
	return fields
}

func buildField(name string, prop *openapi3.Schema, required bool) schema.FieldDefinition {
	field := schema.FieldDefinition{
		ID:           name,
		Label:        labelFor(name, prop),
		Type:         fieldType(prop),
		Required:     required,
		DefaultValue: prop.Default,
		HelpText:     prop.Description,
		Validations:  buildValidations(prop),
	}
	for _, value := range prop.Enum {
		field.Options = append(field.Options, schema.Option{
			Value: value,
			Label: fmt.Sprint(value),
		})
	}
	return field
}

func labelFor(name string, prop *openapi3.Schema) string {
	if prop.Title != "" {
		return prop.Title
	}
	return name
}

func fieldType(prop *openapi3.Schema) schema.FieldType {
	if len(prop.Enum) > 0 {
		return schema.FieldTypeSelect
	}
	switch schemaType(prop) {
	case "number", "integer":
		return schema.FieldTypeNumber
	case "boolean":
		return schema.FieldTypeCheckbox
	case "array":
		return schema.FieldTypeMultiSelect
	default:
		switch prop.Format {
		case "date":
			return schema.FieldTypeDate
		case "date-time":
			return schema.FieldTypeDateTime
		case "email":
			return schema.FieldTypeEmail
		default:
			return schema.FieldTypeText
		}
	}
}

func buildValidations(prop *openapi3.Schema) []schema.ValidationRule {
	var rules []schema.ValidationRule

	if prop.Min != nil {
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleMin, Value: *prop.Min})
	}
	if prop.Max != nil {
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleMax, Value: *prop.Max})
	}
	if prop.MinLength > 0 {
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleMinLength, Value: float64(prop.MinLength)})
	}
	if prop.MaxLength != nil {
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleMaxLength, Value: float64(*prop.MaxLength)})
	}
	if prop.Pattern != "" {
		rules = append(rules, schema.ValidationRule{Kind: schema.RulePattern, Value: prop.Pattern})
	}

	switch prop.Format {
	case "email":
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleEmail})
	case "uri", "url":
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleURL})
	}
	switch schemaType(prop) {
	case "integer":
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleInteger})
	case "number":
		rules = append(rules, schema.ValidationRule{Kind: schema.RuleNumber})
	}

	return rules
}

func schemaType(prop *openapi3.Schema) string {
	if prop.Type == nil {
		return ""
	}
	values := prop.Type.Slice()
	if len(values) == 0 {
		return ""
	}
	return strings.ToLower(values[0])
}
