package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File stores one JSON document per key in a directory.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

func (f *File) Save(ctx context.Context, key string, snap Snapshot) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	return nil
}

func (f *File) Load(ctx context.Context, key string) (Snapshot, error) {
	if err := checkKey(ctx, key); err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: read %s: %w", key, err)
	}
	return Decode(data)
}

func (f *File) Delete(ctx context.Context, key string) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}
