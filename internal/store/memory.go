package store

import (
	"context"
	"sync"
)

// Memory keeps encoded snapshots in a map. Stored bytes are never shared with
// callers, so later edits to a record do not leak into the store.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, key string, snap Snapshot) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(ctx context.Context, key string) (Snapshot, error) {
	if err := checkKey(ctx, key); err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	data, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Decode(data)
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Put stores raw bytes under key without validation.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	m.items[key] = append([]byte(nil), data...)
	m.mu.Unlock()
}
