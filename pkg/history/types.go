package history

import (
	"context"
	"time"

	"imaginationai/khawab/pkg/interpret"
)

// DefaultMaxEntries is the number of entries kept when no cap is configured.
const DefaultMaxEntries = 100

// Entry is one saved interpretation.
type Entry struct {
	ID             string             `json:"id"`
	Dream          string             `json:"dream"`
	Interpretation string             `json:"interpretation"`
	Timestamp      time.Time          `json:"timestamp"`
	Language       interpret.Language `json:"language"`
}

// Store persists interpretation history and the user preferences that
// travel with it.
//
// Entries are returned newest first. Save evicts the oldest entries beyond
// the store's cap. Deleting an unknown ID is not an error; Get of an unknown
// ID returns ErrNotFound.
type Store interface {
	// Save records a new entry with a fresh ID and the current time.
	Save(ctx context.Context, dream, interpretation string, lang interpret.Language) (Entry, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]Entry, error)

	// Get returns the entry with the given ID.
	Get(ctx context.Context, id string) (Entry, error)

	// Delete removes the entry with the given ID.
	Delete(ctx context.Context, id string) error

	// Clear removes every entry. Preferences are kept.
	Clear(ctx context.Context) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// DeleteOlderThan removes entries saved before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Trim removes the oldest entries so at most max remain.
	Trim(ctx context.Context, max int) (int, error)

	// Language returns the saved interface language, English when unset.
	Language(ctx context.Context) (interpret.Language, error)

	// SetLanguage saves the interface language.
	SetLanguage(ctx context.Context, lang interpret.Language) error

	// InterpretationCount returns how many interpretations were completed.
	InterpretationCount(ctx context.Context) (int, error)

	// IncrementInterpretationCount adds one and returns the new count.
	IncrementInterpretationCount(ctx context.Context) (int, error)

	// Ping verifies the backend is usable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Observer receives history gauges. *metrics.Collector satisfies it.
type Observer interface {
	ObserveHistoryEntries(count int)
	ObserveHistoryPruned(removed int)
}

// nowMillis returns t truncated to millisecond precision, the resolution
// entries are stored at.
func nowMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
