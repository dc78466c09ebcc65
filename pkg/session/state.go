package session

import (
	"github.com/goliatone/go-formstate/pkg/safety"
)

// State is the observable form state: current values, the field-level error
// mapping, the visible-field set, advisory safety classifications, and which
// fields the user has touched. Snapshots handed to subscribers are copies;
// mutating them does not affect the session.
type State struct {
	Values  map[string]any
	Errors  map[string][]string
	Visible map[string]struct{}
	Safety  map[string]safety.Status
	Touched map[string]struct{}
}

// IsVisible reports whether the field is currently visible.
func (s State) IsVisible(fieldID string) bool {
	_, ok := s.Visible[fieldID]
	return ok
}

// Valid reports whether no visible field currently carries errors.
func (s State) Valid() bool {
	for fieldID, messages := range s.Errors {
		if len(messages) == 0 {
			continue
		}
		if _, visible := s.Visible[fieldID]; visible {
			return false
		}
	}
	return true
}

func newState() State {
	return State{
		Values:  make(map[string]any),
		Errors:  make(map[string][]string),
		Visible: make(map[string]struct{}),
		Safety:  make(map[string]safety.Status),
		Touched: make(map[string]struct{}),
	}
}

func (s State) clone() State {
	out := State{
		Values:  make(map[string]any, len(s.Values)),
		Errors:  make(map[string][]string, len(s.Errors)),
		Visible: make(map[string]struct{}, len(s.Visible)),
		Safety:  make(map[string]safety.Status, len(s.Safety)),
		Touched: make(map[string]struct{}, len(s.Touched)),
	}
	for key, value := range s.Values {
		out.Values[key] = value
	}
	for key, messages := range s.Errors {
		out.Errors[key] = append([]string(nil), messages...)
	}
	for key := range s.Visible {
		out.Visible[key] = struct{}{}
	}
	for key, status := range s.Safety {
		out.Safety[key] = status
	}
	for key := range s.Touched {
		out.Touched[key] = struct{}{}
	}
	return out
}
