// Package validation evaluates declarative field rules against current form
// values. Two policies are exposed deliberately: ValidateField accumulates
// every failing rule for field-level display, while ValidateForm stops at the
// first failing rule per field when gating a submission.
package validation

import (
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ValidateField returns every failing rule message for the field, in rule
// declaration order. A missing required value short-circuits and yields only
// the required message; a missing optional value yields nothing.
func ValidateField(field schema.FieldDefinition, value any) []string {
	return ValidateFieldAt(field, value, time.Now())
}

// ValidateFieldAt is ValidateField with an explicit reference time for
// date-sensitive rules.
func ValidateFieldAt(field schema.FieldDefinition, value any, at time.Time) []string {
	return evaluateField(field, value, at, false)
}

// ValidateForm evaluates every field in the visible set and returns the
// canonical error mapping plus an overall verdict. Hidden fields are exempt;
// the result never contains an entry for a field outside visible. Each field
// records at most its first failing rule.
func ValidateForm(def schema.FormDefinition, values map[string]any, visible map[string]struct{}) (map[string][]string, bool) {
	return ValidateFormAt(def, values, visible, time.Now())
}

// ValidateFormAt is ValidateForm with an explicit reference time.
func ValidateFormAt(def schema.FormDefinition, values map[string]any, visible map[string]struct{}, at time.Time) (map[string][]string, bool) {
	errs := make(map[string][]string)
	for _, field := range def.Fields {
		if _, ok := visible[field.ID]; !ok {
			continue
		}
		if failures := evaluateField(field, values[field.ID], at, true); len(failures) > 0 {
			errs[field.ID] = failures
		}
	}
	return errs, len(errs) == 0
}

func evaluateField(field schema.FieldDefinition, value any, at time.Time, stopAtFirst bool) []string {
	if !Present(value) {
		if field.Required {
			return []string{requiredMessage(field)}
		}
		return nil
	}

	var failures []string
	for _, rule := range field.Validations {
		msg, ok := Evaluate(rule, field, value, at)
		if ok {
			continue
		}
		failures = append(failures, msg)
		if stopAtFirst {
			break
		}
	}
	return failures
}

// Present reports whether a value counts as provided: non-nil, and for text
// non-blank after trimming, and for sequences non-empty.
func Present(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return rv.Len() > 0
		}
	}
	return true
}

func requiredMessage(field schema.FieldDefinition) string {
	label := strings.TrimSpace(field.Label)
	if label == "" {
		label = field.ID
	}
	return label + " is required"
}
