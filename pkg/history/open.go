package history

import (
	"fmt"

	"imaginationai/khawab/pkg/config"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates the store selected by cfg.Backend.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(cfg.MaxEntries), nil
	case BackendSQLite, "":
		return NewSQLiteStore(SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			BusyTimeout: cfg.SQLite.BusyTimeout,
			MaxEntries:  cfg.MaxEntries,
		})
	default:
		return nil, fmt.Errorf("unknown history backend %q (valid: %s, %s)", cfg.Backend, BackendMemory, BackendSQLite)
	}
}
