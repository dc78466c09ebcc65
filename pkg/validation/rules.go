package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/pkg/schema"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Evaluate runs a single rule against a value and returns the failure message
// when the rule does not hold. Unrecognized rule kinds and malformed rule
// configuration always pass: the engine trades strictness for robustness
// against bad schema authoring. Malformed values are a different matter and
// fail the rules that require a parseable shape.
func Evaluate(rule schema.ValidationRule, field schema.FieldDefinition, value any, at time.Time) (string, bool) {
	switch rule.Kind {
	case schema.RuleMin:
		return evalBound(rule, field, value, false)
	case schema.RuleMax:
		return evalBound(rule, field, value, true)
	case schema.RulePattern:
		return evalPattern(rule, value)
	case schema.RuleMinLength:
		limit, ok := coerceNumber(rule.Value)
		if !ok || float64(textLength(value)) >= limit {
			return "", true
		}
		return message(rule, fmt.Sprintf("must be at least %v characters", rule.Value)), false
	case schema.RuleMaxLength:
		limit, ok := coerceNumber(rule.Value)
		if !ok || float64(textLength(value)) <= limit {
			return "", true
		}
		return message(rule, fmt.Sprintf("must be at most %v characters", rule.Value)), false
	case schema.RuleEmail:
		if emailPattern.MatchString(coerceString(value)) {
			return "", true
		}
		return message(rule, "invalid email address"), false
	case schema.RulePhone:
		stripped := phoneStrip.Replace(coerceString(value))
		if phonePattern.MatchString(stripped) {
			return "", true
		}
		return message(rule, "invalid phone number (10-15 digits)"), false
	case schema.RuleDateRange:
		return evalDateRange(rule, value, at)
	case schema.RuleNumber:
		if _, ok := coerceNumber(value); ok {
			return "", true
		}
		return message(rule, "must be a valid number"), false
	case schema.RuleInteger:
		if n, ok := coerceNumber(value); ok && n == math.Trunc(n) {
			return "", true
		}
		return message(rule, "must be a whole number"), false
	case schema.RuleURL:
		raw := coerceString(value)
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			return "", true
		}
		return message(rule, "must be an http(s) URL"), false
	case schema.RuleFutureDate:
		// A value that does not parse as a date can never be after the
		// reference time, so it fails alongside past dates.
		date, ok := parseDate(value)
		if !ok {
			return message(rule, "invalid date"), false
		}
		if date.After(at) {
			return "", true
		}
		return message(rule, "date must be in the future"), false
	case schema.RulePastDate:
		date, ok := parseDate(value)
		if !ok {
			return message(rule, "invalid date"), false
		}
		if date.Before(at) {
			return "", true
		}
		return message(rule, "date must be in the past"), false
	default:
		return "", true
	}
}

// evalBound handles min/max, which compare numerically for numeric fields and
// by text length otherwise.
func evalBound(rule schema.ValidationRule, field schema.FieldDefinition, value any, upper bool) (string, bool) {
	limit, ok := coerceNumber(rule.Value)
	if !ok {
		return "", true
	}

	if field.Type.Numeric() {
		n, ok := coerceNumber(value)
		if !ok {
			return "", true
		}
		if upper && n > limit {
			return message(rule, fmt.Sprintf("maximum value is %v", rule.Value)), false
		}
		if !upper && n < limit {
			return message(rule, fmt.Sprintf("minimum value is %v", rule.Value)), false
		}
		return "", true
	}

	length := float64(textLength(value))
	if upper && length > limit {
		return message(rule, fmt.Sprintf("must be at most %v characters", rule.Value)), false
	}
	if !upper && length < limit {
		return message(rule, fmt.Sprintf("must be at least %v characters", rule.Value)), false
	}
	return "", true
}

func evalPattern(rule schema.ValidationRule, value any) (string, bool) {
	source, ok := rule.Value.(string)
	if !ok || source == "" {
		return "", true
	}
	pattern, err := regexp.Compile(source)
	if err != nil {
		// Malformed patterns are inert rather than fatal.
		return "", true
	}
	if pattern.MatchString(coerceString(value)) {
		return "", true
	}
	return message(rule, "invalid format"), false
}

// evalDateRange checks a {min, max} bound pair where either bound may be a
// literal date or the sentinel "today", resolved against the reference time.
func evalDateRange(rule schema.ValidationRule, value any, at time.Time) (string, bool) {
	bounds, ok := rule.Value.(map[string]any)
	if !ok {
		return "", true
	}
	date, ok := parseDate(value)
	if !ok {
		return "", true
	}

	if raw, exists := bounds["min"]; exists {
		if min, ok := resolveBound(raw, at); ok && date.Before(min) {
			return message(rule, fmt.Sprintf("date must not be before %s", min.Format("2006-01-02"))), false
		}
	}
	if raw, exists := bounds["max"]; exists {
		if max, ok := resolveBound(raw, at); ok && date.After(max) {
			return message(rule, fmt.Sprintf("date must not be after %s", max.Format("2006-01-02"))), false
		}
	}
	return "", true
}

// resolveBound turns a bound value into a time. The sentinel "today" resolves
// to the reference date at midnight so the current day sits inside the bound.
func resolveBound(raw any, at time.Time) (time.Time, bool) {
	if s, ok := raw.(string); ok && strings.EqualFold(strings.TrimSpace(s), "today") {
		year, month, day := at.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, at.Location()), true
	}
	return parseDate(raw)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		raw := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func message(rule schema.ValidationRule, fallback string) string {
	if strings.TrimSpace(rule.Message) != "" {
		return rule.Message
	}
	return fallback
}

func textLength(value any) int {
	return utf8.RuneCountInString(coerceString(value))
}

func coerceNumber(value any) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
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
