// Package history stores completed dream interpretations and the user
// preferences that go with them (interface language, interpretation count).
//
// # Backends
//
//   - MemoryStore: process memory, lost on exit
//   - SQLiteStore: a SQLite file through either the cgo driver ("sqlite3",
//     mattn/go-sqlite3) or the pure Go driver ("sqlite", modernc.org/sqlite)
//
// Both keep entries newest first and evict the oldest beyond the cap
// (100 by default) on every Save.
//
// # Retention
//
// Pruner removes entries by age and count; Scheduler runs it on a cron
// schedule:
//
//	store, err := history.Open(cfg.History)
//	pruner := history.NewPruner(store, history.RetentionFromConfig(cfg.History), collector)
//	err = history.NewScheduler(pruner).Start(ctx)
package history
