package mutations

import (
	"errors"

	"proposal-engine/internal/model"
	"proposal-engine/internal/wizard"
)

// NextHandler moves the wizard forward when the current step's fields are complete.
type NextHandler struct{}

func (h *NextHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	step := t.Wizard.Step()
	if step == wizard.LastStep {
		return []model.CommandMessage{critical("LAST_STEP", "Final review is the last step. Publish to finish.")}
	}
	if !t.Wizard.CanAdvance() {
		return []model.CommandMessage{critical("STEP_BLOCKED",
			"Complete the required fields on \""+step.Title()+"\" before continuing.")}
	}
	return nil
}

func (h *NextHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	if err := t.Wizard.Advance(); err != nil {
		if errors.Is(err, wizard.ErrStepBlocked) {
			return []model.CommandMessage{critical("STEP_BLOCKED", err.Error())}
		}
		return []model.CommandMessage{critical("STEP_FAILED", err.Error())}
	}
	return nil
}

// BackHandler moves the wizard back one step.
type BackHandler struct{}

func (h *BackHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	if t.Wizard.Step() == wizard.FirstStep {
		return []model.CommandMessage{critical("FIRST_STEP", "Already at the first step.")}
	}
	return nil
}

func (h *BackHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	if err := t.Wizard.Retreat(); err != nil {
		return []model.CommandMessage{critical("STEP_FAILED", err.Error())}
	}
	return nil
}
