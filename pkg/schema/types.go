package schema

// FieldType enumerates the input kinds a form definition may declare.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeDateTime    FieldType = "datetime"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeFile        FieldType = "file"
	FieldTypeSignature   FieldType = "signature"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
)

// Numeric reports whether values of this field type compare as numbers for
// min/max rules rather than by text length.
func (t FieldType) Numeric() bool {
	return t == FieldTypeNumber
}

// Operator enumerates the comparison operators usable in conditional rules.
// The set is closed: visibility evaluation dispatches exhaustively over these
// values and treats anything else as a rule that never matches.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpIn          Operator = "in"
)

// RuleAction is the effect a matching conditional rule has on the owning
// field's visibility.
type RuleAction string

const (
	ActionShow RuleAction = "show"
	ActionHide RuleAction = "hide"
)

// RuleKind enumerates the validation rule types. Unknown kinds are treated as
// always passing; see validation.Evaluate for the rationale.
type RuleKind string

const (
	RuleMin        RuleKind = "min"
	RuleMax        RuleKind = "max"
	RulePattern    RuleKind = "pattern"
	RuleMinLength  RuleKind = "minLength"
	RuleMaxLength  RuleKind = "maxLength"
	RuleEmail      RuleKind = "email"
	RulePhone      RuleKind = "phone"
	RuleDateRange  RuleKind = "date_range"
	RuleNumber     RuleKind = "number"
	RuleInteger    RuleKind = "integer"
	RuleURL        RuleKind = "url"
	RuleFutureDate RuleKind = "futureDate"
	RulePastDate   RuleKind = "pastDate"
)

// ValidationRule is a single declarative constraint on a field value. Value
// carries rule-specific configuration: a numeric bound for min/max, a regex
// source for pattern, or a {min, max} mapping for date_range where either
// bound may be the sentinel "today".
type ValidationRule struct {
	Kind    RuleKind `json:"type"`
	Value   any      `json:"value,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ConditionalRule shows or hides the field that declares it based on another
// field's current value. Field is a weak reference resolved by id at
// evaluation time.
type ConditionalRule struct {
	Field    string     `json:"field"`
	Operator Operator   `json:"operator"`
	Value    any        `json:"value,omitempty"`
	Action   RuleAction `json:"action"`
}

// Option is one choice for select/multiselect/radio fields.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label,omitempty"`
}

// FieldDefinition describes one form input: its type, default, validation
// rules, and the conditional rules that toggle its visibility.
type FieldDefinition struct {
	ID               string            `json:"id" validate:"required"`
	Name             string            `json:"name,omitempty"`
	Label            string            `json:"label,omitempty"`
	Type             FieldType         `json:"type" validate:"required"`
	Required         bool              `json:"required,omitempty"`
	DefaultValue     any               `json:"default_value,omitempty"`
	Placeholder      string            `json:"placeholder,omitempty"`
	HelpText         string            `json:"help_text,omitempty"`
	Options          []Option          `json:"options,omitempty"`
	Validations      []ValidationRule  `json:"validations,omitempty"`
	ConditionalRules []ConditionalRule `json:"conditional_rules,omitempty"`
	Section          string            `json:"section,omitempty"`

	// Visible is the static default. nil means visible; conditional rules
	// may still override either way at runtime.
	Visible *bool `json:"visible,omitempty"`
}

// DefaultVisible reports the field's visibility before any conditional rules
// run: visible unless explicitly marked otherwise.
func (f FieldDefinition) DefaultVisible() bool {
	return f.Visible == nil || *f.Visible
}

// Section groups fields for layout purposes. The state engine ignores
// sections; they ride along for renderers.
type Section struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order,omitempty"`
	Collapsible bool   `json:"collapsible,omitempty"`
}

// FormDefinition is the complete declarative description of a form. It is
// immutable once loaded for a session; a fresh load replaces it wholesale.
type FormDefinition struct {
	ID               string            `json:"id" validate:"required"`
	Name             string            `json:"name,omitempty"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	Category         string            `json:"category,omitempty"`
	Version          string            `json:"version,omitempty"`
	Fields           []FieldDefinition `json:"fields" validate:"required,dive"`
	Sections         []Section         `json:"sections,omitempty"`
	AllowSaveDraft   bool              `json:"allow_save_draft,omitempty"`
	AllowAttachments bool              `json:"allow_attachments,omitempty"`
}

// Field returns the field definition with the given id.
func (d FormDefinition) Field(id string) (FieldDefinition, bool) {
	for _, field := range d.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// Defaults returns the initial value set declared by the definition.
func (d FormDefinition) Defaults() map[string]any {
	values := make(map[string]any)
	for _, field := range d.Fields {
		if field.DefaultValue != nil {
			values[field.ID] = field.DefaultValue
		}
	}
	return values
}
