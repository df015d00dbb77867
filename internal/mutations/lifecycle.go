package mutations

import (
	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/wizard"
)

// ResetHandler throws the record away and starts over at the first step. It is the
// only command that clears history.
type ResetHandler struct{}

func (h *ResetHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	return nil
}

func (h *ResetHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	*t.Record = *model.NewDefault()
	if err := t.Wizard.Resume(int(wizard.FirstStep)); err != nil {
		return []model.CommandMessage{critical("STEP_FAILED", err.Error())}
	}
	return nil
}

// LoadSampleHandler replaces the record with a published demo proposal and opens
// the final review.
type LoadSampleHandler struct{}

func (h *LoadSampleHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	if _, ok := t.Catalog.Lookup(model.PlanSilver); !ok {
		return []model.CommandMessage{unknownPlan(model.PlanSilver)}
	}
	return nil
}

func (h *LoadSampleHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	rec := model.NewDefault()
	rec.InsuranceType = model.InsuranceAuto
	silver, _ := t.Catalog.Lookup(model.PlanSilver)
	plancatalog.ApplyPlan(&rec.Proposal, silver, true)
	rec.Proposal.ProposerName = "Ankit Rajesh Patel"
	rec.Proposal.MobileNumber = "9876543210"
	rec.Proposal.VehicleRegNumber = "MH02AB1234"
	rec.Proposal.VehicleValueINR = "900000"
	rec.Proposal.DeclarationAccepted = true
	t.Tracker.Publish(rec, "Initial sample publish")

	*t.Record = *rec
	if err := t.Wizard.Resume(int(wizard.StepReview)); err != nil {
		return []model.CommandMessage{critical("STEP_FAILED", err.Error())}
	}
	return nil
}
