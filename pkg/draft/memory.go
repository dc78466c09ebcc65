package draft

import (
	"context"
	"sync"
)

// Memory is an in-process Local tier: a keyed store shared across sessions
// for the same formID. Concurrent sessions are not coordinated; the last
// writer wins, which is an accepted limitation of the design.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ Local = (*Memory)(nil)

// NewMemory constructs an empty in-memory tier.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Get returns the entry for formID if present.
func (m *Memory) Get(_ context.Context, formID string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[formID]
	if !ok {
		return Entry{}, false, nil
	}
	return cloneEntry(entry), true, nil
}

// Put stores the entry, replacing any previous draft for the same form.
func (m *Memory) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.FormID] = cloneEntry(entry)
	return nil
}

// Delete removes the entry for formID.
func (m *Memory) Delete(_ context.Context, formID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, formID)
	return nil
}

// cloneEntry copies the value map so callers cannot mutate stored state.
func cloneEntry(entry Entry) Entry {
	if entry.Data == nil {
		return entry
	}
	data := make(map[string]any, len(entry.Data))
	for key, value := range entry.Data {
		data[key] = value
	}
	entry.Data = data
	return entry
}
