package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/draft"
	"github.com/goliatone/go-formstate/pkg/safety"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/submit"
)

type fakeClient struct {
	def        schema.FormDefinition
	defErr     error
	prefill    map[string]any
	prefillErr error
	draft      map[string]any
	submitErr  error

	submitCalls    atomic.Int64
	saveDraftCalls atomic.Int64
}

func (f *fakeClient) FetchDefinition(context.Context, string) (schema.FormDefinition, error) {
	if f.defErr != nil {
		return schema.FormDefinition{}, f.defErr
	}
	return f.def, nil
}

func (f *fakeClient) FetchPrefill(context.Context, string, map[string]any) (map[string]any, error) {
	if f.prefillErr != nil {
		return nil, f.prefillErr
	}
	return f.prefill, nil
}

func (f *fakeClient) FetchDraft(context.Context, string) (map[string]any, error) {
	if f.draft == nil {
		return nil, client.ErrNotFound
	}
	return f.draft, nil
}

func (f *fakeClient) SaveDraft(context.Context, string, map[string]any) error {
	f.saveDraftCalls.Add(1)
	return nil
}

func (f *fakeClient) Submit(context.Context, client.Submission) error {
	f.submitCalls.Add(1)
	return f.submitErr
}

func permitDefinition() schema.FormDefinition {
	hidden := false
	return schema.FormDefinition{
		ID:             "permit",
		Version:        "2.1",
		AllowSaveDraft: true,
		Fields: []schema.FieldDefinition{
			{
				ID:           "work_type",
				Label:        "Work type",
				Type:         schema.FieldTypeSelect,
				DefaultValue: "routine",
			},
			{
				ID:       "hot_work_permit",
				Label:    "Hot work permit",
				Type:     schema.FieldTypeText,
				Visible:  &hidden,
				Required: true,
				ConditionalRules: []schema.ConditionalRule{
					{Field: "work_type", Operator: schema.OpEquals, Value: "hot", Action: schema.ActionShow},
				},
			},
			{
				ID:       "qty",
				Label:    "Quantity",
				Type:     schema.FieldTypeNumber,
				Required: true,
				Validations: []schema.ValidationRule{
					{Kind: schema.RuleMin, Value: float64(1), Message: "quantity must be at least 1"},
				},
			},
		},
	}
}

func TestLoadMergesDefaultsPrefillAndDraft(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{
		def:     permitDefinition(),
		prefill: map[string]any{"work_type": "maintenance", "qty": float64(2)},
	}
	local := draft.NewMemory()
	if err := local.Put(context.Background(), draft.Entry{
		FormID:  "permit",
		Data:    map[string]any{"qty": float64(7)},
		SavedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	store := draft.NewStore(local, remote)

	session := New("permit", remote, WithDraftStore(store))
	defer session.Dispose()

	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	state := session.State()
	// Prefill beats defaults, draft beats prefill.
	if state.Values["work_type"] != "maintenance" {
		t.Fatalf("prefill should override the default, got %v", state.Values["work_type"])
	}
	if state.Values["qty"] != float64(7) {
		t.Fatalf("draft should override prefill, got %v", state.Values["qty"])
	}
}

func TestLoadSurvivesPrefillFailure(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{
		def:        permitDefinition(),
		prefillErr: errors.New("service unavailable"),
	}
	session := New("permit", remote)
	defer session.Dispose()

	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("prefill failures must not fail the load: %v", err)
	}
	if got := session.State().Values["work_type"]; got != "routine" {
		t.Fatalf("defaults should survive, got %v", got)
	}
}

func TestLoadFailsWhenDefinitionUnavailable(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{defErr: errors.New("boom")}
	session := New("permit", remote)
	defer session.Dispose()

	if err := session.Load(context.Background()); err == nil {
		t.Fatalf("definition failures are fatal")
	}
}

func TestApplyEditRecomputesVisibilityAndPrunesErrors(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition()}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if session.State().IsVisible("hot_work_permit") {
		t.Fatalf("conditional field must start hidden")
	}

	if err := session.ApplyEdit("work_type", "hot"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !session.State().IsVisible("hot_work_permit") {
		t.Fatalf("selecting hot work should reveal the permit field")
	}

	// Leave the revealed field invalid, then hide it again.
	if err := session.ApplyEdit("hot_work_permit", ""); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, present := session.State().Errors["hot_work_permit"]; !present {
		t.Fatalf("visible required field should carry an error")
	}

	if err := session.ApplyEdit("work_type", "routine"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	state := session.State()
	if state.IsVisible("hot_work_permit") {
		t.Fatalf("field should hide again")
	}
	if _, present := state.Errors["hot_work_permit"]; present {
		t.Fatalf("errors on hidden fields must be pruned: %v", state.Errors)
	}
}

func TestApplyEditClassifiesSafetyReadings(t *testing.T) {
	t.Parallel()

	def := permitDefinition()
	def.Fields = append(def.Fields, schema.FieldDefinition{
		ID: "oxigeno", Label: "O2", Type: schema.FieldTypeNumber,
	})
	remote := &fakeClient{def: def}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := session.ApplyEdit("oxigeno", float64(18)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	status, ok := session.State().Safety["oxigeno"]
	if !ok {
		t.Fatalf("oxygen reading should classify")
	}
	if status.Severity != safety.SeverityDanger {
		t.Fatalf("18%% oxygen is dangerous, got %s", status.Severity)
	}

	if err := session.ApplyEdit("oxigeno", nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, ok := session.State().Safety["oxigeno"]; ok {
		t.Fatalf("clearing the value should clear the classification")
	}
}

func TestSubmitInvalidKeepsTransportUntouched(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition()}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := session.ApplyEdit("qty", float64(0)); err != nil {
		t.Fatalf("edit: %v", err)
	}

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != submit.StatusInvalid {
		t.Fatalf("expected invalid, got %s", result.Status)
	}
	if remote.submitCalls.Load() != 0 {
		t.Fatalf("locally invalid forms must not hit the transport")
	}
	if msgs := session.State().Errors["qty"]; len(msgs) == 0 {
		t.Fatalf("session errors should reflect the rejection")
	}
}

func TestSubmitAcceptedDiscardsDraft(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	remote := &fakeClient{def: permitDefinition()}
	local := draft.NewMemory()
	store := draft.NewStore(local, remote)

	session := New("permit", remote, WithDraftStore(store))
	defer session.Dispose()
	if err := session.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := session.ApplyEdit("qty", float64(5)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := session.SaveDraft(ctx); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	result, err := session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Accepted() {
		t.Fatalf("expected accepted, got %s", result.Status)
	}
	if remote.submitCalls.Load() != 1 {
		t.Fatalf("expected one transport call, got %d", remote.submitCalls.Load())
	}
	if _, found, _ := local.Get(ctx, "permit"); found {
		t.Fatalf("accepted submission must discard the local draft")
	}
}

func TestSubmitTransportFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition(), submitErr: errors.New("timeout")}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := session.ApplyEdit("qty", float64(5)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	before := session.State()

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != submit.StatusTransportFailure {
		t.Fatalf("expected transport failure, got %s", result.Status)
	}
	after := session.State()
	if len(after.Errors) != len(before.Errors) {
		t.Fatalf("transport failures must not rewrite the error mapping")
	}
}

func TestAutosaveRunsOnlyWhenDraftsAllowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	def := permitDefinition()
	remote := &fakeClient{def: def}
	store := draft.NewStore(draft.NewMemory(), remote)

	session := New("permit", remote,
		WithDraftStore(store),
		WithAutosaveInterval(10*time.Millisecond),
	)
	if err := session.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for remote.saveDraftCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("autosave never pushed a draft")
		case <-time.After(5 * time.Millisecond):
		}
	}

	session.Dispose()
	time.Sleep(30 * time.Millisecond)
	after := remote.saveDraftCalls.Load()
	time.Sleep(60 * time.Millisecond)
	if got := remote.saveDraftCalls.Load(); got != after {
		t.Fatalf("autosave continued after Dispose: %d -> %d", after, got)
	}
}

func TestAutosaveDisabledWhenDefinitionForbidsDrafts(t *testing.T) {
	t.Parallel()

	def := permitDefinition()
	def.AllowSaveDraft = false
	remote := &fakeClient{def: def}
	store := draft.NewStore(draft.NewMemory(), remote)

	session := New("permit", remote,
		WithDraftStore(store),
		WithAutosaveInterval(10*time.Millisecond),
	)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if calls := remote.saveDraftCalls.Load(); calls != 0 {
		t.Fatalf("autosave must not run when the definition forbids drafts: %d calls", calls)
	}
}

func TestSubscribersReceiveSnapshots(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition()}
	session := New("permit", remote)
	defer session.Dispose()

	var published atomic.Int64
	unsubscribe := session.Subscribe(func(State) {
		published.Add(1)
	})

	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if published.Load() != 1 {
		t.Fatalf("load should publish once, got %d", published.Load())
	}

	if err := session.ApplyEdit("qty", float64(3)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if published.Load() != 2 {
		t.Fatalf("edits should publish, got %d", published.Load())
	}

	unsubscribe()
	if err := session.ApplyEdit("qty", float64(4)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if published.Load() != 2 {
		t.Fatalf("unsubscribed observers must not be notified, got %d", published.Load())
	}
}

func TestTouchMarksFieldAndPublishes(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition()}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var published atomic.Int64
	session.Subscribe(func(State) {
		published.Add(1)
	})

	session.Touch("qty")
	if _, touched := session.State().Touched["qty"]; !touched {
		t.Fatalf("field should be marked as touched")
	}
	if published.Load() != 1 {
		t.Fatalf("touch should publish a snapshot, got %d", published.Load())
	}
}

func TestSnapshotsDoNotAliasSessionState(t *testing.T) {
	t.Parallel()

	remote := &fakeClient{def: permitDefinition()}
	session := New("permit", remote)
	defer session.Dispose()
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	snapshot := session.State()
	snapshot.Values["work_type"] = "tampered"

	if got := session.State().Values["work_type"]; got != "routine" {
		t.Fatalf("mutating a snapshot must not affect the session, got %v", got)
	}
}
