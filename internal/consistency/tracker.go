// Package consistency keeps the portal, agent and pdf views of a policy aligned with
// its authoritative version.
//
// Views may lag the record but never lead it. Publish is the only operation that
// advances the version; Reconcile realigns views without touching it.
package consistency

import (
	"math/rand/v2"
	"time"

	"proposal-engine/internal/model"
)

// StampLayout formats view and history timestamps.
const StampLayout = "2006-01-02 15:04:05"

// StaleMarker is appended to the timestamp of a view that drifted.
const StaleMarker = " (stale)"

const reconcileNote = "Aligned system views to one source of truth"

// Tracker performs version operations on a record. The clock and the drift picker
// are injectable so tests are deterministic.
type Tracker struct {
	Now func() time.Time
	// PickDrift returns true to drift the agent view, false for the pdf view.
	PickDrift func() bool
}

// New returns a tracker using wall-clock time and a uniform drift picker.
func New() *Tracker {
	return &Tracker{
		Now:       time.Now,
		PickDrift: func() bool { return rand.IntN(2) == 0 },
	}
}

func (t *Tracker) stamp() string {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return now().Format(StampLayout)
}

// ComputeSyncStatus is OK when all three views carry rec.Version, PARTIAL when
// exactly two do and MISMATCH otherwise.
func ComputeSyncStatus(rec *model.PolicyRecord) model.SyncStatus {
	matches := 0
	for _, name := range model.AllViews {
		if rec.Views.Get(name).Version == rec.Version {
			matches++
		}
	}
	switch matches {
	case len(model.AllViews):
		return model.SyncOK
	case len(model.AllViews) - 1:
		return model.SyncPartial
	default:
		return model.SyncMismatch
	}
}

// Publish bumps the version by one, stamps every view with it and records a
// Publish history entry.
func (t *Tracker) Publish(rec *model.PolicyRecord, note string) {
	t.publish(rec, model.ActionPublish, note)
}

// PublishSelfService is Publish for a trusted self-service edit; the history
// entry is tagged SelfServiceUpdate.
func (t *Tracker) PublishSelfService(rec *model.PolicyRecord, note string) {
	t.publish(rec, model.ActionSelfServiceUpdate, note)
}

func (t *Tracker) publish(rec *model.PolicyRecord, action model.Action, note string) {
	rec.Version++
	at := t.stamp()
	rec.Views.SetAll(model.ViewState{Version: rec.Version, UpdatedAt: at})
	rec.PrependHistory(model.HistoryEntry{At: at, Version: rec.Version, Action: action, Note: note})
}

// SimulateDrift rolls the agent or pdf view back one version and marks it stale.
// It returns the view that drifted. The record version is left alone. At v0 the
// view cannot fall further behind, so the status stays OK.
func (t *Tracker) SimulateDrift(rec *model.PolicyRecord) model.ViewName {
	target := model.ViewPDF
	if t.PickDrift == nil || t.PickDrift() {
		target = model.ViewAgent
	}
	rec.Views.Set(target, model.ViewState{
		Version:   max(0, rec.Version-1),
		UpdatedAt: t.stamp() + StaleMarker,
	})
	return target
}

// Reconcile stamps every view with the current version and records a Reconcile
// history entry. The version is not changed.
func (t *Tracker) Reconcile(rec *model.PolicyRecord) {
	at := t.stamp()
	rec.Views.SetAll(model.ViewState{Version: rec.Version, UpdatedAt: at})
	rec.PrependHistory(model.HistoryEntry{
		At:      at,
		Version: rec.Version,
		Action:  model.ActionReconcile,
		Note:    reconcileNote,
	})
}

// Lagging returns the views whose version differs from the record's.
func Lagging(rec *model.PolicyRecord) []model.ViewName {
	var out []model.ViewName
	for _, name := range model.AllViews {
		if rec.Views.Get(name).Version != rec.Version {
			out = append(out, name)
		}
	}
	return out
}
