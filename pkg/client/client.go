// Package client defines the remote contracts the form runtime depends on:
// definition and prefill fetching, draft persistence, and submission.
// Transport mechanics live in internal/client; callers may substitute any
// implementation of Client.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ErrNotFound reports that the remote side has no entity for the requested
// key. For drafts this is an expected outcome, not a failure.
var ErrNotFound = errors.New("client: not found")

// Submission is the finalized payload sent to the backing store. The
// submitting user is assigned server-side and intentionally absent here.
type Submission struct {
	FormID      string         `json:"form_id"`
	FormVersion string         `json:"form_version"`
	Data        map[string]any `json:"data"`
	Attachments []string       `json:"attachments"`
	Context     map[string]any `json:"context,omitempty"`
}

// FieldError is one server-rejected field from a structured validation
// rejection.
type FieldError struct {
	FieldID string `json:"field_id"`
	Message string `json:"message"`
}

// RejectionError carries the per-field messages of a structured validation
// rejection, as opposed to a plain transport failure.
type RejectionError struct {
	Errors []FieldError
}

func (e *RejectionError) Error() string {
	if len(e.Errors) == 0 {
		return "client: submission rejected"
	}
	ids := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		ids = append(ids, fieldErr.FieldID)
	}
	return fmt.Sprintf("client: submission rejected (%s)", strings.Join(ids, ", "))
}

// Client is the narrow remote contract the session consumes.
type Client interface {
	// FetchDefinition retrieves a form definition by id. Failure here is
	// fatal for the session: there is no form to show.
	FetchDefinition(ctx context.Context, formID string) (schema.FormDefinition, error)

	// FetchPrefill retrieves context-based prefill values. The result is a
	// partial fieldId->value mapping merged over existing values.
	FetchPrefill(ctx context.Context, formID string, formCtx map[string]any) (map[string]any, error)

	// FetchDraft retrieves the remote draft for a form, or ErrNotFound.
	FetchDraft(ctx context.Context, formID string) (map[string]any, error)

	// SaveDraft persists the draft remotely. Best-effort from the caller's
	// perspective; the durable local tier is the safety net.
	SaveDraft(ctx context.Context, formID string, data map[string]any) error

	// Submit sends the finalized payload. A structured validation rejection
	// is returned as *RejectionError; anything else is a transport failure.
	Submit(ctx context.Context, sub Submission) error
}
