// Package formstate is a schema-driven dynamic form runtime: it evaluates
// conditional visibility, validates values against declarative rules,
// classifies hazardous-environment readings, persists drafts across a
// two-tier store with autosave, and submits completed forms while
// reconciling server-side rejections into the field-level error set.
//
// The root package is a facade; the pieces live under pkg/ and can be used
// independently.
package formstate

import (
	internalclient "github.com/goliatone/go-formstate/internal/client"
	"github.com/goliatone/go-formstate/internal/schemaload"
	"github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/draft"
	"github.com/goliatone/go-formstate/pkg/safety"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/submit"
)

// FormDefinition re-exports the definition model for convenience.
type FormDefinition = schema.FormDefinition

// FieldDefinition re-exports the field model.
type FieldDefinition = schema.FieldDefinition

// State is the observable session state.
type State = session.State

// Session drives one form instance from load to submission.
type Session = session.Session

// Result is the terminal outcome of a submission attempt.
type Result = submit.Result

// SafetyStatus is the advisory hazardous-environment classification.
type SafetyStatus = safety.Status

// ParseDefinition decodes a form definition from JSON or YAML.
func ParseDefinition(data []byte) (schema.FormDefinition, error) {
	return schema.ParseDefinition(data)
}

// NewLoader builds a definition loader over file, fs.FS, and URL sources.
func NewLoader(options schema.LoaderOptions) schema.Loader {
	return schemaload.New(options)
}

// NewSession constructs a form session; see pkg/session for options.
func NewSession(formID string, remote client.Client, options ...session.Option) *session.Session {
	return session.New(formID, remote, options...)
}

// NewHTTPClient constructs the HTTP implementation of the remote contract
// while keeping the concrete type hidden from consumers.
func NewHTTPClient(baseURL string, options ...internalclient.Option) (client.Client, error) {
	return internalclient.New(baseURL, options...)
}

// NewDraftStore builds a two-tier draft store over the given local tier and
// an optional remote tier (any client.Client satisfies draft.Remote).
func NewDraftStore(local draft.Local, remote draft.Remote, options ...draft.StoreOption) *draft.Store {
	return draft.NewStore(local, remote, options...)
}
