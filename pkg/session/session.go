// Package session owns the mutable state of one form editing session. All
// re-derivation is explicit: ApplyEdit synchronously recomputes visibility,
// validation, and safety classification, then publishes the new state to
// subscribers. There is no implicit reactivity and no shared global timer;
// the autosave handle belongs to the session and dies with Dispose.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/draft"
	"github.com/goliatone/go-formstate/pkg/safety"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/submit"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Subscriber receives a state snapshot after every published mutation.
type Subscriber func(State)

// Session drives one form instance from load to submission. It is owned by a
// single caller; methods are safe against the session's own autosave timer
// but the session is not meant to be shared across goroutines otherwise.
type Session struct {
	id      string
	formID  string
	formCtx map[string]any

	remote   client.Client
	drafts   *draft.Store
	pipeline *submit.Pipeline
	registry safety.Registry
	logger   zerolog.Logger

	autosaveInterval time.Duration

	mu          sync.Mutex
	def         schema.FormDefinition
	state       State
	loaded      bool
	disposed    bool
	autosaver   *draft.Autosaver
	subscribers map[int]Subscriber
	nextSubID   int
}

// Option customises a Session.
type Option func(*Session)

// WithDraftStore enables draft persistence and autosave through the given
// store.
func WithDraftStore(store *draft.Store) Option {
	return func(s *Session) {
		s.drafts = store
	}
}

// WithFormContext attaches the context blob forwarded to prefill and
// submission (for example a task id).
func WithFormContext(formCtx map[string]any) Option {
	return func(s *Session) {
		s.formCtx = formCtx
	}
}

// WithSafetyRegistry overrides the hazardous-environment limits registry.
func WithSafetyRegistry(registry safety.Registry) Option {
	return func(s *Session) {
		s.registry = registry
	}
}

// WithLogger routes session logging. The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithAutosaveInterval overrides the autosave period.
func WithAutosaveInterval(interval time.Duration) Option {
	return func(s *Session) {
		s.autosaveInterval = interval
	}
}

// New constructs a session for formID backed by the given remote client.
func New(formID string, remote client.Client, options ...Option) *Session {
	s := &Session{
		id:               uuid.NewString(),
		formID:           formID,
		remote:           remote,
		registry:         safety.DefaultRegistry(),
		logger:           zerolog.Nop(),
		autosaveInterval: draft.DefaultAutosaveInterval,
		state:            newState(),
		subscribers:      make(map[int]Subscriber),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With().Str("session_id", s.id).Str("form_id", formID).Logger()
	s.pipeline = submit.New(remote)
	return s
}

// ID returns the session's correlation id.
func (s *Session) ID() string {
	return s.id
}

// Definition returns the loaded form definition.
func (s *Session) Definition() schema.FormDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// Load fetches the definition, applies defaults, merges prefill and any
// saved draft, derives the initial visible set, and activates autosave when
// the definition allows drafts. A definition fetch failure is fatal for the
// session; prefill and draft failures are absorbed.
func (s *Session) Load(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("session: remote client is required")
	}

	def, err := s.remote.FetchDefinition(ctx, s.formID)
	if err != nil {
		return fmt.Errorf("session: load definition: %w", err)
	}

	values := def.Defaults()

	if prefill, err := s.remote.FetchPrefill(ctx, s.formID, s.formCtx); err != nil {
		s.logger.Warn().Err(err).Msg("prefill fetch failed; continuing with defaults")
	} else {
		for fieldID, value := range prefill {
			values[fieldID] = value
		}
	}

	if s.drafts != nil {
		data, outcome := s.drafts.Load(ctx, s.formID)
		if outcome.Found {
			s.logger.Debug().Str("tier", string(outcome.Served)).Msg("draft restored")
			for fieldID, value := range data {
				values[fieldID] = value
			}
		}
	}

	s.mu.Lock()
	s.def = def
	s.state = newState()
	s.state.Values = values
	s.state.Visible = visibility.Compute(def, values)
	for fieldID, value := range values {
		if status, ok := s.registry.Classify(fieldID, value); ok {
			s.state.Safety[fieldID] = status
		}
	}
	s.loaded = true
	s.restartAutosaveLocked()
	snapshot, subscribers := s.snapshotLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return nil
}

// ApplyEdit records a user edit and synchronously re-derives the dependent
// state: the visible-field set, the edited field's error list (accumulating
// every failing rule for display), its safety classification, and the
// pruning of errors on fields the edit just hid.
func (s *Session) ApplyEdit(fieldID string, value any) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return errors.New("session: not loaded")
	}

	s.state.Values[fieldID] = value
	s.state.Touched[fieldID] = struct{}{}
	s.state.Visible = visibility.Compute(s.def, s.state.Values)

	if field, ok := s.def.Field(fieldID); ok {
		if failures := validation.ValidateField(field, value); len(failures) > 0 {
			s.state.Errors[fieldID] = failures
		} else {
			delete(s.state.Errors, fieldID)
		}
	}

	// Hidden fields are exempt from validation; drop their stale errors.
	for errFieldID := range s.state.Errors {
		if _, visible := s.state.Visible[errFieldID]; !visible {
			delete(s.state.Errors, errFieldID)
		}
	}

	if status, ok := s.registry.Classify(fieldID, value); ok {
		s.state.Safety[fieldID] = status
	} else {
		delete(s.state.Safety, fieldID)
	}

	snapshot, subscribers := s.snapshotLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return nil
}

// Touch marks a field as visited without changing its value and publishes
// the updated state.
func (s *Session) Touch(fieldID string) {
	s.mu.Lock()
	s.state.Touched[fieldID] = struct{}{}
	snapshot, subscribers := s.snapshotLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
}

// State returns a snapshot of the current form state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a subscriber and returns its removal function.
func (s *Session) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SaveDraft persists the current values through the draft store.
func (s *Session) SaveDraft(ctx context.Context) (draft.Outcome, error) {
	if s.drafts == nil {
		return draft.Outcome{Served: draft.TierNone}, errors.New("session: draft store not configured")
	}

	s.mu.Lock()
	values := cloneValues(s.state.Values)
	s.mu.Unlock()

	return s.drafts.Save(ctx, s.formID, values)
}

// Submit runs the submission pipeline against the current state. The
// resulting error mapping replaces the session's errors except on transport
// failure, which leaves state untouched so the caller can retry. An accepted
// submission discards the local draft.
func (s *Session) Submit(ctx context.Context) (submit.Result, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return submit.Result{}, errors.New("session: not loaded")
	}
	def := s.def
	values := cloneValues(s.state.Values)
	visible := cloneSet(s.state.Visible)
	s.mu.Unlock()

	result := s.pipeline.Submit(ctx, def, values, visible, s.formCtx)

	switch result.Status {
	case submit.StatusTransportFailure:
		s.logger.Warn().Err(result.Err).Msg("submission transport failure")
		return result, nil
	case submit.StatusAccepted:
		if s.drafts != nil {
			if err := s.drafts.Discard(ctx, s.formID); err != nil {
				s.logger.Warn().Err(err).Msg("discard draft after submit failed")
			}
		}
	}

	s.mu.Lock()
	s.state.Errors = result.Errors
	snapshot, subscribers := s.snapshotLocked()
	s.mu.Unlock()

	notify(subscribers, snapshot)
	return result, nil
}

// Dispose cancels the autosave timer and detaches subscribers. Mandatory on
// session teardown.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	if s.autosaver != nil {
		s.autosaver.Stop()
		s.autosaver = nil
	}
	s.subscribers = make(map[int]Subscriber)
}

// restartAutosaveLocked activates the periodic draft save when the loaded
// definition allows drafts. Any previous timer is cancelled first so only
// one is ever active per session. The timer outlives the Load call, so it
// runs on a background context until Stop.
func (s *Session) restartAutosaveLocked() {
	if s.autosaver != nil {
		s.autosaver.Stop()
		s.autosaver = nil
	}
	if s.disposed || s.drafts == nil || !s.def.AllowSaveDraft {
		return
	}

	s.autosaver = draft.NewAutosaver(s.autosaveInterval, func(saveCtx context.Context) {
		s.mu.Lock()
		values := cloneValues(s.state.Values)
		s.mu.Unlock()
		if len(values) == 0 {
			return
		}
		if _, err := s.drafts.Save(saveCtx, s.formID, values); err != nil {
			s.logger.Warn().Err(err).Msg("autosave failed")
		}
	})
	s.autosaver.Start(context.Background())
}

func (s *Session) snapshotLocked() (State, []Subscriber) {
	subscribers := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	return s.state.clone(), subscribers
}

func notify(subscribers []Subscriber, snapshot State) {
	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}

func cloneSet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for key := range set {
		out[key] = struct{}{}
	}
	return out
}
