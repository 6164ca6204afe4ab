package history

import (
	"context"
	"sync"
	"time"

	"imaginationai/khawab/pkg/interpret"

	"github.com/google/uuid"
)

// MemoryStore keeps history in process memory. It is used by tests and by
// one-shot CLI runs configured with the "memory" backend.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []Entry // newest first
	language   interpret.Language
	count      int
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store capped at maxEntries
// (DefaultMaxEntries when <= 0).
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Save records a new entry and evicts the oldest beyond the cap.
func (s *MemoryStore) Save(ctx context.Context, dream, interpretation string, lang interpret.Language) (Entry, error) {
	entry := Entry{
		ID:             uuid.NewString(),
		Dream:          dream,
		Interpretation: interpretation,
		Timestamp:      nowMillis(s.now()),
		Language:       lang,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	return entry, nil
}

// List returns a copy of all entries, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Get returns the entry with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Delete removes the entry with the given ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// DeleteOlderThan removes entries saved before cutoff.
func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// Trim removes the oldest entries so at most max remain.
func (s *MemoryStore) Trim(ctx context.Context, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max < 0 || len(s.entries) <= max {
		return 0, nil
	}
	removed := len(s.entries) - max
	s.entries = s.entries[:max]
	return removed, nil
}

// Language returns the saved language, English when unset.
func (s *MemoryStore) Language(ctx context.Context) (interpret.Language, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.language.Valid() {
		return interpret.English, nil
	}
	return s.language, nil
}

// SetLanguage saves the interface language.
func (s *MemoryStore) SetLanguage(ctx context.Context, lang interpret.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return nil
}

// InterpretationCount returns the completed interpretation count.
func (s *MemoryStore) InterpretationCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count, nil
}

// IncrementInterpretationCount adds one and returns the new count.
func (s *MemoryStore) IncrementInterpretationCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return s.count, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
