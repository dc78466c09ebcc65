package validation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/schema"
)

var refTime = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestRequiredField(t *testing.T) {
	t.Parallel()

	field := schema.FieldDefinition{ID: "name", Label: "Name", Type: schema.FieldTypeText, Required: true}

	missing := []any{nil, "", "   ", []any{}}
	for _, value := range missing {
		failures := ValidateFieldAt(field, value, refTime)
		if len(failures) != 1 || failures[0] != "Name is required" {
			t.Fatalf("value %#v: got %v, want single required message", value, failures)
		}
	}

	if failures := ValidateFieldAt(field, "ok", refTime); len(failures) != 0 {
		t.Fatalf("present value should pass, got %v", failures)
	}
	if failures := ValidateFieldAt(field, []any{"a"}, refTime); len(failures) != 0 {
		t.Fatalf("non-empty sequence should pass, got %v", failures)
	}
}

func TestOptionalEmptyValueSkipsRules(t *testing.T) {
	t.Parallel()

	field := schema.FieldDefinition{
		ID:   "email",
		Type: schema.FieldTypeText,
		Validations: []schema.ValidationRule{
			{Kind: schema.RuleEmail, Message: "bad email"},
		},
	}

	if failures := ValidateFieldAt(field, "", refTime); len(failures) != 0 {
		t.Fatalf("empty optional value must not run rules, got %v", failures)
	}
}

func TestMinMaxNumericVersusLength(t *testing.T) {
	t.Parallel()

	numberField := schema.FieldDefinition{
		ID:   "qty",
		Type: schema.FieldTypeNumber,
		Validations: []schema.ValidationRule{
			{Kind: schema.RuleMin, Value: float64(1), Message: "at least 1"},
			{Kind: schema.RuleMax, Value: float64(10), Message: "at most 10"},
		},
	}

	if failures := ValidateFieldAt(numberField, float64(0), refTime); len(failures) != 1 || failures[0] != "at least 1" {
		t.Fatalf("qty=0: got %v", failures)
	}
	if failures := ValidateFieldAt(numberField, float64(11), refTime); len(failures) != 1 || failures[0] != "at most 10" {
		t.Fatalf("qty=11: got %v", failures)
	}
	if failures := ValidateFieldAt(numberField, float64(5), refTime); len(failures) != 0 {
		t.Fatalf("qty=5: got %v", failures)
	}

	textField := schema.FieldDefinition{
		ID:   "code",
		Type: schema.FieldTypeText,
		Validations: []schema.ValidationRule{
			{Kind: schema.RuleMin, Value: float64(3), Message: "too short"},
		},
	}
	if failures := ValidateFieldAt(textField, "ab", refTime); len(failures) != 1 {
		t.Fatalf("text min compares length, got %v", failures)
	}
	if failures := ValidateFieldAt(textField, "abc", refTime); len(failures) != 0 {
		t.Fatalf("abc should satisfy min length, got %v", failures)
	}
}

func TestRuleKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rule  schema.ValidationRule
		field schema.FieldDefinition
		value any
		pass  bool
	}{
		{"pattern match", schema.ValidationRule{Kind: schema.RulePattern, Value: `^[A-Z]{3}$`}, schema.FieldDefinition{Type: schema.FieldTypeText}, "ABC", true},
		{"pattern miss", schema.ValidationRule{Kind: schema.RulePattern, Value: `^[A-Z]{3}$`}, schema.FieldDefinition{Type: schema.FieldTypeText}, "abc", false},
		{"malformed pattern is inert", schema.ValidationRule{Kind: schema.RulePattern, Value: `([`}, schema.FieldDefinition{Type: schema.FieldTypeText}, "anything", true},
		{"minLength", schema.ValidationRule{Kind: schema.RuleMinLength, Value: float64(5)}, schema.FieldDefinition{Type: schema.FieldTypeText}, "abcd", false},
		{"maxLength", schema.ValidationRule{Kind: schema.RuleMaxLength, Value: float64(3)}, schema.FieldDefinition{Type: schema.FieldTypeText}, "abcd", false},
		{"email ok", schema.ValidationRule{Kind: schema.RuleEmail}, schema.FieldDefinition{Type: schema.FieldTypeEmail}, "a@b.co", true},
		{"email bad", schema.ValidationRule{Kind: schema.RuleEmail}, schema.FieldDefinition{Type: schema.FieldTypeEmail}, "a@b", false},
		{"phone with separators", schema.ValidationRule{Kind: schema.RulePhone}, schema.FieldDefinition{Type: schema.FieldTypePhone}, "+57 (300) 123-4567", true},
		{"phone too short", schema.ValidationRule{Kind: schema.RulePhone}, schema.FieldDefinition{Type: schema.FieldTypePhone}, "12345", false},
		{"number ok", schema.ValidationRule{Kind: schema.RuleNumber}, schema.FieldDefinition{Type: schema.FieldTypeText}, "3.14", true},
		{"number bad", schema.ValidationRule{Kind: schema.RuleNumber}, schema.FieldDefinition{Type: schema.FieldTypeText}, "abc", false},
		{"integer ok", schema.ValidationRule{Kind: schema.RuleInteger}, schema.FieldDefinition{Type: schema.FieldTypeNumber}, float64(4), true},
		{"integer fraction", schema.ValidationRule{Kind: schema.RuleInteger}, schema.FieldDefinition{Type: schema.FieldTypeNumber}, float64(4.5), false},
		{"url http", schema.ValidationRule{Kind: schema.RuleURL}, schema.FieldDefinition{Type: schema.FieldTypeText}, "https://example.com", true},
		{"url bare", schema.ValidationRule{Kind: schema.RuleURL}, schema.FieldDefinition{Type: schema.FieldTypeText}, "example.com", false},
		{"futureDate ok", schema.ValidationRule{Kind: schema.RuleFutureDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "2026-04-01", true},
		{"futureDate past", schema.ValidationRule{Kind: schema.RuleFutureDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "2026-01-01", false},
		{"pastDate ok", schema.ValidationRule{Kind: schema.RulePastDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "2026-01-01", true},
		{"pastDate future", schema.ValidationRule{Kind: schema.RulePastDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "2026-04-01", false},
		{"futureDate unparseable value fails", schema.ValidationRule{Kind: schema.RuleFutureDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "not-a-date", false},
		{"pastDate unparseable value fails", schema.ValidationRule{Kind: schema.RulePastDate}, schema.FieldDefinition{Type: schema.FieldTypeDate}, "not-a-date", false},
		{"unknown kind always passes", schema.ValidationRule{Kind: schema.RuleKind("checksum")}, schema.FieldDefinition{Type: schema.FieldTypeText}, "whatever", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok := Evaluate(tc.rule, tc.field, tc.value, refTime)
			if ok != tc.pass {
				t.Fatalf("Evaluate(%v, %v) pass=%v, want %v", tc.rule.Kind, tc.value, ok, tc.pass)
			}
		})
	}
}

func TestDateRangeWithTodaySentinel(t *testing.T) {
	t.Parallel()

	rule := schema.ValidationRule{
		Kind:  schema.RuleDateRange,
		Value: map[string]any{"min": "today"},
	}
	field := schema.FieldDefinition{Type: schema.FieldTypeDate}

	if _, ok := Evaluate(rule, field, "2026-03-15", refTime); !ok {
		t.Fatalf("the reference day itself should satisfy min=today")
	}
	if _, ok := Evaluate(rule, field, "2026-03-14", refTime); ok {
		t.Fatalf("the day before should violate min=today")
	}

	bounded := schema.ValidationRule{
		Kind:  schema.RuleDateRange,
		Value: map[string]any{"max": "2026-06-30"},
	}
	if _, ok := Evaluate(bounded, field, "2026-07-01", refTime); ok {
		t.Fatalf("value past literal max should fail")
	}

	// An unparseable value violates no bound; directional rules like
	// futureDate are the ones that reject garbage dates.
	if _, ok := Evaluate(bounded, field, "not-a-date", refTime); !ok {
		t.Fatalf("unparseable values are inert for range bounds")
	}
}

func TestValidateFieldAccumulates(t *testing.T) {
	t.Parallel()

	field := schema.FieldDefinition{
		ID:   "code",
		Type: schema.FieldTypeText,
		Validations: []schema.ValidationRule{
			{Kind: schema.RuleMinLength, Value: float64(10), Message: "too short"},
			{Kind: schema.RulePattern, Value: `^[0-9]+$`, Message: "digits only"},
		},
	}

	failures := ValidateFieldAt(field, "abc", refTime)
	want := []string{"too short", "digits only"}
	if diff := cmp.Diff(want, failures); diff != "" {
		t.Fatalf("field-level validation must accumulate (-want +got):\n%s", diff)
	}
}

func TestValidateFormStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	def := schema.FormDefinition{
		ID: "f",
		Fields: []schema.FieldDefinition{
			{
				ID:   "code",
				Type: schema.FieldTypeText,
				Validations: []schema.ValidationRule{
					{Kind: schema.RuleMinLength, Value: float64(10), Message: "too short"},
					{Kind: schema.RulePattern, Value: `^[0-9]+$`, Message: "digits only"},
				},
			},
		},
	}
	visible := map[string]struct{}{"code": {}}

	errs, ok := ValidateFormAt(def, map[string]any{"code": "abc"}, visible, refTime)
	if ok {
		t.Fatalf("expected invalid form")
	}
	if diff := cmp.Diff(map[string][]string{"code": {"too short"}}, errs); diff != "" {
		t.Fatalf("form-level validation records only the first failure (-want +got):\n%s", diff)
	}
}

func TestValidateFormSkipsHiddenFields(t *testing.T) {
	t.Parallel()

	def := schema.FormDefinition{
		ID: "f",
		Fields: []schema.FieldDefinition{
			{ID: "shown", Type: schema.FieldTypeText, Required: true},
			{ID: "hidden", Type: schema.FieldTypeText, Required: true},
		},
	}
	visible := map[string]struct{}{"shown": {}}

	errs, ok := ValidateFormAt(def, map[string]any{}, visible, refTime)
	if ok {
		t.Fatalf("expected invalid form")
	}
	if _, present := errs["hidden"]; present {
		t.Fatalf("hidden fields must never appear in the error mapping: %v", errs)
	}
	if _, present := errs["shown"]; !present {
		t.Fatalf("visible required field should carry an error")
	}
}
