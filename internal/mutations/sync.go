package mutations

import (
	"fmt"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/model"
)

// SimulateDriftHandler rolls the agent or pdf view back one version to rehearse
// a propagation failure.
type SimulateDriftHandler struct{}

func (h *SimulateDriftHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	return nil
}

func (h *SimulateDriftHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	view := t.Tracker.SimulateDrift(t.Record)
	return []model.CommandMessage{warning("VIEW_DRIFTED",
		fmt.Sprintf("The %s view now shows v%d while the policy is at v%d.",
			view, t.Record.Views.Get(view).Version, t.Record.Version))}
}

// ReconcileHandler forces every view back to the current version.
type ReconcileHandler struct{}

func (h *ReconcileHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	return nil
}

func (h *ReconcileHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var msgs []model.CommandMessage
	if consistency.ComputeSyncStatus(t.Record) == model.SyncOK {
		msgs = append(msgs, warning("ALREADY_IN_SYNC", "All views already matched the policy version."))
	}
	t.Tracker.Reconcile(t.Record)
	return msgs
}
