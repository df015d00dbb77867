package wizard

import (
	"proposal-engine/internal/model"
	"proposal-engine/internal/validation"
)

// Step is a wizard page, 0 through 4.
type Step int

const (
	StepType Step = iota
	StepPlan
	StepProposal
	StepDocument
	StepReview
)

const (
	FirstStep = StepType
	LastStep  = StepReview
)

var stepTitles = [...]string{
	StepType:     "Choose insurance type",
	StepPlan:     "Choose plan",
	StepProposal: "Proposal form",
	StepDocument: "Policy document",
	StepReview:   "Final review",
}

// Title is the heading shown for the step.
func (s Step) Title() string {
	if s < FirstStep || s > LastStep {
		return ""
	}
	return stepTitles[s]
}

// Clamp forces s into [FirstStep, LastStep].
func Clamp(s int) Step {
	if s < int(FirstStep) {
		return FirstStep
	}
	if s > int(LastStep) {
		return LastStep
	}
	return Step(s)
}

// CanLeave reports whether the wizard may move forward from step. On the review
// step it gates publishing rather than navigation.
func CanLeave(step Step, rec *model.PolicyRecord, issues []model.Issue) bool {
	p := rec.Proposal
	switch step {
	case StepType:
		return rec.InsuranceType.Valid()
	case StepPlan:
		return p.PolicyType != model.PlanUnset
	case StepProposal:
		return p.PolicyType != model.PlanUnset &&
			p.PolicyPeriod != "" &&
			p.ProposerName != "" &&
			p.MobileNumber != "" &&
			p.VehicleRegNumber != "" &&
			p.DeclarationAccepted
	case StepDocument:
		return true
	case StepReview:
		return !validation.HasBlocking(issues)
	}
	return false
}

// ResumeStep picks where a returning user lands: the first unanswered selection,
// otherwise the step they left from.
func ResumeStep(rec *model.PolicyRecord, persisted int) Step {
	if !rec.InsuranceType.Valid() {
		return StepType
	}
	if rec.Proposal.PolicyType == model.PlanUnset {
		return StepPlan
	}
	return Clamp(persisted)
}
