// Package store persists policy snapshots between sessions.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"proposal-engine/internal/model"
)

// DefaultKey is the logical key of the single-user snapshot.
const DefaultKey = "clearguide_policy_v2"

var (
	ErrNotFound   = errors.New("store: snapshot not found")
	ErrMalformed  = errors.New("store: malformed snapshot")
	ErrInvalidKey = errors.New("store: empty key")
)

// Snapshot is the persisted form of a session: the record plus the wizard step
// it was on.
type Snapshot struct {
	*model.PolicyRecord
	Step int `json:"step"`
}

// Store saves and loads snapshots by key. Implementations must be safe for
// concurrent use.
type Store interface {
	Save(ctx context.Context, key string, snap Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
	Delete(ctx context.Context, key string) error
}

// Encode serialises a snapshot.
func Encode(snap Snapshot) ([]byte, error) {
	if snap.PolicyRecord == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformed)
	}
	return json.Marshal(snap)
}

// Decode parses a snapshot. Data that is not a JSON object, or has no proposal
// object, is ErrMalformed. A view ahead of the record version is pulled back to it.
func Decode(data []byte) (Snapshot, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil || probe == nil {
		return Snapshot{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	raw, ok := probe["proposal"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return Snapshot{}, fmt.Errorf("%w: missing proposal", ErrMalformed)
	}

	snap := Snapshot{PolicyRecord: model.NewDefault()}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Join(ErrMalformed, err)
	}
	if snap.History == nil {
		snap.History = []model.HistoryEntry{}
	}
	// Views may lag the record but never lead it.
	for _, name := range model.AllViews {
		if v := snap.Views.Get(name); v.Version > snap.Version {
			v.Version = snap.Version
			snap.Views.Set(name, v)
		}
	}
	return snap, nil
}

func checkKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
