package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open builds the named backend wrapped in Resilient. The returned close func is
// never nil.
func Open(kind, dataDir string) (Store, func() error, error) {
	noop := func() error { return nil }

	switch kind {
	case "", KindMemory:
		return NewResilient(NewMemory(), DefaultResilientConfig()), noop, nil
	case KindFile:
		f, err := NewFile(dataDir)
		if err != nil {
			return nil, noop, err
		}
		return NewResilient(f, DefaultResilientConfig()), noop, nil
	case KindSQLite:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("store: create data dir: %w", err)
		}
		dsn := "file:" + filepath.Join(dataDir, "proposals.db") + "?mode=rwc"
		s, err := NewSQLite(DefaultSQLiteConfig(), WithDSN(dsn))
		if err != nil {
			return nil, noop, err
		}
		return NewResilient(s, DefaultResilientConfig()), s.Close, nil
	default:
		return nil, noop, fmt.Errorf("store: unknown backend %q", kind)
	}
}
