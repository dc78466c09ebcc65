// Package draft persists work-in-progress form values across two tiers: a
// durable local cache and a best-effort remote store. The precedence and
// failure policy are explicit: loads try local first, saves always hit local
// synchronously, and remote failures are recorded and logged but never
// surfaced as save failures.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formstate/internal/metrics"
	"github.com/goliatone/go-formstate/pkg/client"
)

// Entry is the unit stored in the local tier. FormID is persisted alongside
// the data so a load can reject a stale or mismatched cache entry.
type Entry struct {
	FormID  string         `json:"formId"`
	Data    map[string]any `json:"data"`
	SavedAt time.Time      `json:"savedAt"`
}

// Local is the durable tier. Implementations must not lose writes silently;
// Put returns an error when persistence fails.
type Local interface {
	Get(ctx context.Context, formID string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, formID string) error
}

// Remote is the best-effort tier. Fetch returns client.ErrNotFound when the
// remote side has no draft, which is not a failure.
type Remote interface {
	FetchDraft(ctx context.Context, formID string) (map[string]any, error)
	SaveDraft(ctx context.Context, formID string, data map[string]any) error
}

// Tier names which backend served or stored the data.
type Tier string

const (
	TierNone   Tier = "none"
	TierLocal  Tier = "local"
	TierRemote Tier = "remote"
)

// Outcome reports what each tier did during a load or save instead of
// swallowing per-tier results.
type Outcome struct {
	// Served is the tier that produced the data on load, or TierNone.
	Served Tier
	// Found reports whether any tier had data on load.
	Found bool
	// LocalErr and RemoteErr record per-tier failures. RemoteErr set on a
	// save still means the save succeeded overall.
	LocalErr  error
	RemoteErr error
}

// Store coordinates the two tiers.
type Store struct {
	local  Local
	remote Remote
	logger zerolog.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithLogger routes tier-failure logging. The default logger is a no-op.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore builds a two-tier store. Remote may be nil for offline use.
func NewStore(local Local, remote Remote, options ...StoreOption) *Store {
	store := &Store{
		local:  local,
		remote: remote,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Load retrieves a draft, preferring the durable local cache. A local entry
// is trusted only when its FormID matches the requested key. Remote
// not-found is absorbed; any other remote failure is logged and recorded in
// the outcome without failing the load.
func (s *Store) Load(ctx context.Context, formID string) (map[string]any, Outcome) {
	var outcome Outcome

	if s.local != nil {
		entry, found, err := s.local.Get(ctx, formID)
		if err != nil {
			outcome.LocalErr = err
			s.logger.Warn().Err(err).Str("form_id", formID).Msg("local draft read failed")
		} else if found && entry.FormID == formID {
			outcome.Served = TierLocal
			outcome.Found = true
			return entry.Data, outcome
		}
	}

	if s.remote != nil {
		data, err := s.remote.FetchDraft(ctx, formID)
		switch {
		case err == nil && len(data) > 0:
			outcome.Served = TierRemote
			outcome.Found = true
			return data, outcome
		case err == nil || errors.Is(err, client.ErrNotFound):
			// No remote draft; fall through empty-handed.
		default:
			outcome.RemoteErr = err
			s.logger.Warn().Err(err).Str("form_id", formID).Msg("remote draft fetch failed")
		}
	}

	outcome.Served = TierNone
	return nil, outcome
}

// Save writes the draft to the durable local cache synchronously and then
// attempts the remote tier. A local failure fails the save; a remote failure
// is logged, counted, and recorded in the outcome only.
func (s *Store) Save(ctx context.Context, formID string, data map[string]any) (Outcome, error) {
	outcome := Outcome{Served: TierNone}

	if s.local != nil {
		entry := Entry{FormID: formID, Data: data, SavedAt: time.Now().UTC()}
		if err := s.local.Put(ctx, entry); err != nil {
			outcome.LocalErr = err
			return outcome, err
		}
		outcome.Served = TierLocal
		metrics.DraftSaves.WithLabelValues(string(TierLocal)).Inc()
	}

	if s.remote != nil {
		if err := s.remote.SaveDraft(ctx, formID, data); err != nil {
			outcome.RemoteErr = err
			s.logger.Warn().Err(err).Str("form_id", formID).Msg("remote draft save failed")
		} else {
			if outcome.Served == TierNone {
				outcome.Served = TierRemote
			}
			metrics.DraftSaves.WithLabelValues(string(TierRemote)).Inc()
		}
	}

	return outcome, nil
}

// Discard removes the local entry, typically after a successful submission.
func (s *Store) Discard(ctx context.Context, formID string) error {
	if s.local == nil {
		return nil
	}
	return s.local.Delete(ctx, formID)
}
