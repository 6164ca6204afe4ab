package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"imaginationai/khawab/pkg/interpret"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// Supported database/sql driver names.
const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// Driver is DriverCGO or DriverPure.
	// Default: DriverPure
	Driver string

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// MaxEntries caps the number of stored entries.
	// Default: DefaultMaxEntries
	MaxEntries int
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	config     SQLiteConfig
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database and its schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPure
	}
	if cfg.Driver != DriverCGO && cfg.Driver != DriverPure {
		return nil, fmt.Errorf("unsupported sqlite driver %q (valid: %s, %s)", cfg.Driver, DriverCGO, DriverPure)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "create_dir", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	// One connection keeps per-connection pragmas in force and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:         db,
		config:     cfg,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
		logger:     slog.Default().With("component", "history.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("history store initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"max_entries", cfg.MaxEntries,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError("sqlite", "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Save inserts a new entry and evicts the oldest beyond the cap in the same
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, dream, interpretation string, lang interpret.Language) (Entry, error) {
	entry := Entry{
		ID:             uuid.NewString(),
		Dream:          dream,
		Interpretation: interpretation,
		Timestamp:      nowMillis(s.now()),
		Language:       lang,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, NewStorageError("sqlite", "save", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, dream, interpretation, language, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Dream, entry.Interpretation, string(entry.Language), entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return Entry{}, NewStorageError("sqlite", "save", err)
	}

	evicted, err := trim(ctx, tx, s.maxEntries)
	if err != nil {
		return Entry{}, NewStorageError("sqlite", "save", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, NewStorageError("sqlite", "save", err)
	}

	if evicted > 0 {
		s.logger.Debug("evicted oldest history entries", "count", evicted)
	}
	return entry, nil
}

// List returns all entries, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dream, interpretation, language, created_at FROM entries ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dream, interpretation, language, created_at FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, NewStorageError("sqlite", "get", err)
	}
	return e, nil
}

// Delete removes the entry with the given ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return NewStorageError("sqlite", "delete", err)
	}
	return nil
}

// Clear removes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return NewStorageError("sqlite", "clear", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteOlderThan removes entries saved before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_older_than", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_older_than", err)
	}
	return int(n), nil
}

// Trim removes the oldest entries so at most max remain.
func (s *SQLiteStore) Trim(ctx context.Context, max int) (int, error) {
	if max < 0 {
		return 0, nil
	}
	n, err := trim(ctx, s.db, max)
	if err != nil {
		return 0, NewStorageError("sqlite", "trim", err)
	}
	return n, nil
}

// Language returns the saved language, English when unset.
func (s *SQLiteStore) Language(ctx context.Context) (interpret.Language, error) {
	value, err := s.preference(ctx, prefLanguage)
	if err != nil {
		return interpret.English, NewStorageError("sqlite", "get_language", err)
	}
	return interpret.ParseLanguage(value), nil
}

// SetLanguage saves the interface language.
func (s *SQLiteStore) SetLanguage(ctx context.Context, lang interpret.Language) error {
	if err := s.setPreference(ctx, s.db, prefLanguage, string(lang)); err != nil {
		return NewStorageError("sqlite", "set_language", err)
	}
	return nil
}

// InterpretationCount returns the completed interpretation count.
func (s *SQLiteStore) InterpretationCount(ctx context.Context) (int, error) {
	value, err := s.preference(ctx, prefInterpretationCount)
	if err != nil {
		return 0, NewStorageError("sqlite", "get_count", err)
	}
	return parseCount(value), nil
}

// IncrementInterpretationCount adds one and returns the new count.
func (s *SQLiteStore) IncrementInterpretationCount(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewStorageError("sqlite", "increment_count", err)
	}
	defer tx.Rollback()

	var value string
	err = tx.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, prefInterpretationCount).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, NewStorageError("sqlite", "increment_count", err)
	}

	count := parseCount(value) + 1
	if err := s.setPreference(ctx, tx, prefInterpretationCount, strconv.Itoa(count)); err != nil {
		return 0, NewStorageError("sqlite", "increment_count", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, NewStorageError("sqlite", "increment_count", err)
	}
	return count, nil
}

// Ping verifies the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		lang      string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.Dream, &e.Interpretation, &lang, &createdAt); err != nil {
		return Entry{}, err
	}
	e.Language = interpret.ParseLanguage(lang)
	e.Timestamp = time.UnixMilli(createdAt)
	return e, nil
}

func trim(ctx context.Context, db execer, max int) (int, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM entries WHERE rowid NOT IN (
			SELECT rowid FROM entries ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, max)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) preference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) setPreference(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// parseCount treats a missing or corrupt count as zero.
func parseCount(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
