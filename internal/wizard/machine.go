// Package wizard drives the five-step proposal wizard on a statekit statechart.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"proposal-engine/internal/model"
)

var (
	ErrStepBlocked = errors.New("wizard: required fields for this step are missing")
	ErrFirstStep   = errors.New("wizard: already at the first step")
	ErrLastStep    = errors.New("wizard: already at the last step")
)

const machineID = "proposal-wizard"

const (
	eventNext       statekit.EventType = "NEXT"
	eventBack       statekit.EventType = "BACK"
	eventChooseType statekit.EventType = "CHOOSE_TYPE"
	eventChoosePlan statekit.EventType = "CHOOSE_PLAN"
)

var stateIDs = [...]statekit.StateID{
	StepType:     "type",
	StepPlan:     "plan",
	StepProposal: "proposal",
	StepDocument: "document",
	StepReview:   "review",
}

func stepOf(id statekit.StateID) Step {
	for i, s := range stateIDs {
		if s == id {
			return Step(i)
		}
	}
	return FirstStep
}

// Context carries the record the guards inspect.
type Context struct {
	Record *model.PolicyRecord
	// Issues evaluates the current record; used by the canLeave guard.
	Issues func() []model.Issue
	// OnTransition, if set, observes every completed step change.
	OnTransition func(from, to Step, event string)
}

// transitionPayload tells guards and actions which step the event left.
type transitionPayload struct {
	From Step
}

func guardCanLeave(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Record == nil {
		return false
	}
	payload, ok := event.Payload.(transitionPayload)
	if !ok {
		return false
	}
	var issues []model.Issue
	if ctx.Issues != nil {
		issues = ctx.Issues()
	}
	return CanLeave(payload.From, ctx.Record, issues)
}

func recordStep(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).OnTransition == nil {
		return
	}
	payload, _ := event.Payload.(transitionPayload)
	to := payload.From
	switch event.Type {
	case eventNext:
		to++
	case eventBack:
		to--
	case eventChooseType:
		to = StepPlan
	case eventChoosePlan:
		to = StepProposal
	}
	(*ctx).OnTransition(payload.From, to, string(event.Type))
}

// newChart builds the wizard statechart. NEXT is guarded by canLeave; the
// selection events jump straight to the page after the one they complete.
func newChart() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](machineID).
		WithInitial(stateIDs[StepType]).
		WithContext(&Context{}).
		WithAction("recordStep", recordStep).
		WithGuard("canLeave", guardCanLeave).
		State(stateIDs[StepType]).
			On(eventNext).Target(stateIDs[StepPlan]).Guard("canLeave").Do("recordStep").
			On(eventChooseType).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChoosePlan).Target(stateIDs[StepProposal]).Do("recordStep").
			Done().
		State(stateIDs[StepPlan]).
			On(eventNext).Target(stateIDs[StepProposal]).Guard("canLeave").Do("recordStep").
			On(eventBack).Target(stateIDs[StepType]).Do("recordStep").
			On(eventChooseType).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChoosePlan).Target(stateIDs[StepProposal]).Do("recordStep").
			Done().
		State(stateIDs[StepProposal]).
			On(eventNext).Target(stateIDs[StepDocument]).Guard("canLeave").Do("recordStep").
			On(eventBack).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChooseType).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChoosePlan).Target(stateIDs[StepProposal]).Do("recordStep").
			Done().
		State(stateIDs[StepDocument]).
			On(eventNext).Target(stateIDs[StepReview]).Guard("canLeave").Do("recordStep").
			On(eventBack).Target(stateIDs[StepProposal]).Do("recordStep").
			On(eventChooseType).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChoosePlan).Target(stateIDs[StepProposal]).Do("recordStep").
			Done().
		State(stateIDs[StepReview]).
			On(eventBack).Target(stateIDs[StepDocument]).Do("recordStep").
			On(eventChooseType).Target(stateIDs[StepPlan]).Do("recordStep").
			On(eventChoosePlan).Target(stateIDs[StepProposal]).Do("recordStep").
			Done().
		Build()
}

// Machine is the wizard interpreter bound to one session's record.
type Machine struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewMachine starts a wizard at the first step.
func NewMachine(ctx *Context) (*Machine, error) {
	chart, err := newChart()
	if err != nil {
		return nil, fmt.Errorf("wizard: build chart: %w", err)
	}
	interp := statekit.NewInterpreter(chart)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()
	return &Machine{interp: interp, ctx: ctx}, nil
}

// Step returns the current step.
func (m *Machine) Step() Step {
	return stepOf(m.interp.State().Value)
}

// CanAdvance reports whether NEXT would be accepted from the current step.
func (m *Machine) CanAdvance() bool {
	return m.Step() < LastStep && guardCanLeave(m.ctx, statekit.Event{
		Type:    eventNext,
		Payload: transitionPayload{From: m.Step()},
	})
}

// Advance moves one step forward when the current step's required fields are present.
func (m *Machine) Advance() error {
	from := m.Step()
	if from == LastStep {
		return ErrLastStep
	}
	if !m.CanAdvance() {
		return fmt.Errorf("%w: %s", ErrStepBlocked, from.Title())
	}
	m.send(eventNext, from)
	if m.Step() == from {
		return fmt.Errorf("%w: %s", ErrStepBlocked, from.Title())
	}
	return nil
}

// Retreat moves one step back.
func (m *Machine) Retreat() error {
	from := m.Step()
	if from == FirstStep {
		return ErrFirstStep
	}
	m.send(eventBack, from)
	return nil
}

// TypeChosen force-advances to the plan step after an insurance type is picked.
func (m *Machine) TypeChosen() {
	m.send(eventChooseType, m.Step())
}

// PlanChosen force-advances to the proposal form after a plan is picked.
func (m *Machine) PlanChosen() {
	m.send(eventChoosePlan, m.Step())
}

// Resume restores the wizard at step, clamped to the valid range.
func (m *Machine) Resume(step int) error {
	target := Clamp(step)
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    machineID,
		CurrentState: stateIDs[target],
		Context:      m.ctx,
		CreatedAt:    time.Now(),
	}
	if err := m.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("wizard: resume at %s: %w", target.Title(), err)
	}
	return nil
}

func (m *Machine) send(event statekit.EventType, from Step) {
	m.interp.Send(statekit.Event{
		Type:    event,
		Payload: transitionPayload{From: from},
	})
}
