// Package safety classifies hazardous-environment sensor readings against
// fixed thresholds. The classification is advisory and independent of
// pass/fail validation: a danger reading may still satisfy every ordinary
// rule on the field, and the two signals are surfaced separately.
package safety

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity grades a reading against its limits.
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Status is the advisory classification surfaced to the UI.
type Status struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Limits describes the closed safe interval for one sensor field plus the
// warning band inside it.
type Limits struct {
	Min              float64
	Max              float64
	Unit             string
	WarningThreshold float64
	DangerMessage    string
}

// Registry maps field ids to their hazardous-environment limits.
type Registry map[string]Limits

// DefaultRegistry returns the built-in limits for confined-space atmosphere
// readings: oxygen percentage, lower explosive limit, hydrogen sulfide, and
// carbon monoxide.
func DefaultRegistry() Registry {
	return Registry{
		"oxigeno": {
			Min: 19.5, Max: 23.5, Unit: "%", WarningThreshold: 0.5,
			DangerMessage: "DANGER: oxygen outside safe range (19.5-23.5%)",
		},
		"lel": {
			Min: 0, Max: 10, Unit: "%", WarningThreshold: 2,
			DangerMessage: "DANGER: LEL must be below 10%",
		},
		"h2s": {
			Min: 0, Max: 10, Unit: "ppm", WarningThreshold: 2,
			DangerMessage: "DANGER: H2S must be below 10 ppm",
		},
		"co": {
			Min: 0, Max: 35, Unit: "ppm", WarningThreshold: 5,
			DangerMessage: "DANGER: CO must be below 35 ppm",
		},
	}
}

// Classify grades a reading for the given field. The second return is false
// when the field has no registered limits or the value is not numeric.
func (r Registry) Classify(fieldID string, value any) (Status, bool) {
	limits, ok := r[fieldID]
	if !ok {
		return Status{}, false
	}
	reading, ok := toNumber(value)
	if !ok {
		return Status{}, false
	}

	if reading < limits.Min || reading > limits.Max {
		return Status{Severity: SeverityDanger, Message: limits.DangerMessage}, true
	}

	nearMin := reading < limits.Min+limits.WarningThreshold
	nearMax := reading > limits.Max-limits.WarningThreshold
	if nearMin || nearMax {
		boundary := "upper"
		if nearMin {
			boundary = "lower"
		}
		return Status{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("warning: reading close to %s limit", boundary),
		}, true
	}

	return Status{
		Severity: SeveritySafe,
		Message:  fmt.Sprintf("reading within safe range (%v-%v %s)", limits.Min, limits.Max, limits.Unit),
	}, true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
