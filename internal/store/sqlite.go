package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// DSN is the data source name (e.g., "file:proposals.db?mode=rwc").
	DSN string

	MaxOpenConns int

	// AutoMigrate creates the snapshots table if it doesn't exist.
	AutoMigrate bool

	// JournalMode sets the SQLite journal mode (e.g., "WAL").
	JournalMode string

	// BusyTimeout sets the busy timeout in milliseconds.
	BusyTimeout int
}

// SQLiteOption configures the SQLite store.
type SQLiteOption func(*SQLiteConfig)

func WithDSN(dsn string) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.DSN = dsn
	}
}

func WithJournalMode(mode string) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.JournalMode = mode
	}
}

func WithBusyTimeout(ms int) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.BusyTimeout = ms
	}
}

// DefaultSQLiteConfig returns the configuration used by the server.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		DSN:          "file:proposals.db?mode=rwc",
		MaxOpenConns: 4,
		AutoMigrate:  true,
		JournalMode:  "WAL",
		BusyTimeout:  5000,
	}
}

var (
	ErrConnectionFailed = errors.New("store: sqlite connection failed")
	ErrMigrationFailed  = errors.New("store: sqlite migration failed")
)

// SQLite keeps one row per snapshot key.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(cfg SQLiteConfig, opts ...SQLiteOption) (*SQLite, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func openDB(cfg SQLiteConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	var pragmas []string
	if cfg.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode="+cfg.JournalMode)
	}
	if cfg.BusyTimeout > 0 {
		pragmas = append(pragmas, "PRAGMA busy_timeout="+strconv.Itoa(cfg.BusyTimeout))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrMigrationFailed, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			body BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

func (s *SQLite) Save(ctx context.Context, key string, snap Snapshot) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	body, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, version, body, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   version = excluded.version,
		   body = excluded.body,
		   updated_at = excluded.updated_at`,
		key, snap.Version, body, time.Now().Unix(),
	)
	return err
}

func (s *SQLite) Load(ctx context.Context, key string) (Snapshot, error) {
	if err := checkKey(ctx, key); err != nil {
		return Snapshot{}, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM snapshots WHERE key = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Decode(body)
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
