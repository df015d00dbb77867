package mutations

import (
	"fmt"

	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

type selectTypeProps struct {
	InsuranceType model.InsuranceType `json:"insurance_type"`
}

// SelectTypeHandler records what is being insured and moves to the plan step.
type SelectTypeHandler struct{}

func (h *SelectTypeHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selectTypeProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}
	if !props.InsuranceType.Valid() {
		return []model.CommandMessage{critical("INVALID_INSURANCE_TYPE",
			fmt.Sprintf("Unknown insurance type %q. Choose auto or twoWheeler.", props.InsuranceType))}
	}
	return nil
}

func (h *SelectTypeHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selectTypeProps
	_ = decodeProps(cmd, &props)

	t.Record.InsuranceType = props.InsuranceType
	t.Wizard.TypeChosen()
	return nil
}

type selectPlanProps struct {
	Plan model.PlanKey `json:"plan"`
}

// SelectPlanHandler picks a plan card: the derived fields and the default period
// are taken from the catalog and the wizard moves to the proposal form.
type SelectPlanHandler struct{}

func (h *SelectPlanHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selectPlanProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}
	if _, ok := t.Catalog.Lookup(props.Plan); !ok {
		return []model.CommandMessage{unknownPlan(props.Plan)}
	}
	return nil
}

func (h *SelectPlanHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selectPlanProps
	_ = decodeProps(cmd, &props)

	plan, _ := t.Catalog.Lookup(props.Plan)
	plancatalog.ApplyPlan(&t.Record.Proposal, plan, true)
	t.Wizard.PlanChosen()
	return nil
}

func unknownPlan(key model.PlanKey) model.CommandMessage {
	return critical("UNKNOWN_PLAN", fmt.Sprintf("%v: %q", plancatalog.ErrUnknownPlan, key))
}
