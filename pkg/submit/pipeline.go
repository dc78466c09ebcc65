// Package submit orchestrates final validation, payload assembly, and
// submission, reconciling server-side validation rejections back into the
// field-level error mapping.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-formstate/internal/metrics"
	"github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Status is the terminal outcome of a submission attempt.
type Status string

const (
	// StatusAccepted means the remote side committed the submission.
	StatusAccepted Status = "accepted"
	// StatusInvalid means local validation failed; the transport was never
	// called.
	StatusInvalid Status = "invalid"
	// StatusRejected means the remote side returned a structured validation
	// rejection, merged into the error mapping.
	StatusRejected Status = "rejected"
	// StatusTransportFailure means the call failed for reasons other than
	// validation. The error mapping is left untouched so the caller can
	// offer a retry.
	StatusTransportFailure Status = "transport_failure"
)

// Result reports the outcome plus the canonical error mapping after the
// attempt. Err is set only for transport failures.
type Result struct {
	Status Status
	Errors map[string][]string
	Err    error
}

// Accepted is a convenience for checking the happy path.
func (r Result) Accepted() bool {
	return r.Status == StatusAccepted
}

// Pipeline submits validated form values through a client.
type Pipeline struct {
	client client.Client
	now    func() time.Time
}

// New builds a pipeline over the given client.
func New(remote client.Client) *Pipeline {
	return &Pipeline{client: remote, now: time.Now}
}

// Submit gates on whole-form validation, assembles the payload, and sends
// it. The returned error mapping supersedes the session's previous one:
// local failures replace it wholesale, remote rejections merge over it
// per field, and transport failures leave it as passed in.
func (p *Pipeline) Submit(ctx context.Context, def schema.FormDefinition, values map[string]any, visible map[string]struct{}, formCtx map[string]any) Result {
	errs, ok := validation.ValidateFormAt(def, values, visible, p.now())
	if !ok {
		metrics.Submissions.WithLabelValues(string(StatusInvalid)).Inc()
		return Result{Status: StatusInvalid, Errors: errs}
	}

	sub := client.Submission{
		FormID:      def.ID,
		FormVersion: def.Version,
		Data:        values,
		Attachments: []string{},
		Context:     formCtx,
	}

	err := p.client.Submit(ctx, sub)
	if err == nil {
		metrics.Submissions.WithLabelValues(string(StatusAccepted)).Inc()
		return Result{Status: StatusAccepted, Errors: errs}
	}

	var rejection *client.RejectionError
	if errors.As(err, &rejection) {
		for _, fieldErr := range rejection.Errors {
			errs[fieldErr.FieldID] = []string{fieldErr.Message}
		}
		metrics.Submissions.WithLabelValues(string(StatusRejected)).Inc()
		return Result{Status: StatusRejected, Errors: errs}
	}

	metrics.Submissions.WithLabelValues(string(StatusTransportFailure)).Inc()
	return Result{Status: StatusTransportFailure, Errors: errs, Err: err}
}
