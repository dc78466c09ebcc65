// Package visibility recomputes the visible-field set of a form from its
// conditional rules and the current values. Evaluation is pure: calling
// Compute twice with identical inputs yields an identical set.
package visibility

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// Compute derives the set of visible field ids. Each field starts from its
// static default and applies its conditional rules in declaration order;
// later rules override earlier decisions for the same field. Malformed or
// unknown rules never match and are silently inert.
func Compute(def schema.FormDefinition, values map[string]any) map[string]struct{} {
	visible := make(map[string]struct{}, len(def.Fields))

	for _, field := range def.Fields {
		show := field.DefaultVisible()

		for _, rule := range field.ConditionalRules {
			if !Match(rule.Operator, values[rule.Field], rule.Value) {
				continue
			}
			switch rule.Action {
			case schema.ActionShow:
				show = true
			case schema.ActionHide:
				show = false
			}
		}

		if show {
			visible[field.ID] = struct{}{}
		}
	}

	return visible
}

// Match evaluates a single conditional operator against the referenced
// field's current value and the rule's configured value. The operator set is
// closed; anything outside it never matches.
func Match(op schema.Operator, fieldValue, ruleValue any) bool {
	switch op {
	case schema.OpEquals:
		return equal(fieldValue, ruleValue)
	case schema.OpNotEquals:
		return !equal(fieldValue, ruleValue)
	case schema.OpContains:
		return strings.Contains(coerceString(fieldValue), coerceString(ruleValue))
	case schema.OpGreaterThan:
		left, right, ok := numericPair(fieldValue, ruleValue)
		return ok && left > right
	case schema.OpLessThan:
		left, right, ok := numericPair(fieldValue, ruleValue)
		return ok && left < right
	case schema.OpIn:
		return member(fieldValue, ruleValue)
	default:
		return false
	}
}

// equal compares without cross-type coercion, except that numeric values
// compare as numbers regardless of their concrete Go type so JSON float64s
// and YAML ints line up.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := asNumber(a); ok {
		bn, ok := asNumber(b)
		return ok && an == bn
	}
	return reflect.DeepEqual(a, b)
}

// member reports whether value appears in ruleValue, which must be a
// sequence; any other shape never matches.
func member(value, ruleValue any) bool {
	seq := reflect.ValueOf(ruleValue)
	if !seq.IsValid() || (seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < seq.Len(); i++ {
		if equal(value, seq.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// numericPair coerces both operands to numbers. Non-numeric input behaves
// like NaN: the comparison fails and the rule does not match.
func numericPair(a, b any) (float64, float64, bool) {
	left, ok := coerceNumber(a)
	if !ok {
		return 0, 0, false
	}
	right, ok := coerceNumber(b)
	if !ok {
		return 0, 0, false
	}
	if math.IsNaN(left) || math.IsNaN(right) {
		return 0, 0, false
	}
	return left, right, true
}

// asNumber converts concrete numeric Go types without parsing strings.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func coerceNumber(value any) (float64, bool) {
	if n, ok := asNumber(value); ok {
		return n, true
	}
	if s, ok := value.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
