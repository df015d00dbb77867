package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/engine"
	"proposal-engine/internal/logging"
	"proposal-engine/internal/model"
	"proposal-engine/internal/store"
	"proposal-engine/internal/wizard"
)

func newTestApp(t *testing.T, st store.Store) *App {
	t.Helper()
	tracker := consistency.New()
	tracker.PickDrift = func() bool { return true }
	app, err := New(context.Background(), engine.Options{
		Store:   st,
		Tracker: tracker,
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return app
}

func press(app *App, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+n":
		msg = tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+b":
		msg = tea.KeyMsg{Type: tea.KeyCtrlB}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+x":
		msg = tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	case "f2":
		msg = tea.KeyMsg{Type: tea.KeyF2}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := app.Update(msg)
	return cmd
}

func step(app *App) wizard.Step {
	return wizard.Step(app.session.State().Step)
}

func TestSelectionsAdvanceWizard(t *testing.T) {
	app := newTestApp(t, store.NewMemory())

	press(app, "a")
	if step(app) != wizard.StepPlan {
		t.Fatalf("expected plan step after choosing auto, got %v", step(app))
	}
	press(app, "g")
	if step(app) != wizard.StepProposal {
		t.Fatalf("expected proposal step after choosing gold, got %v", step(app))
	}

	rec := app.session.State().Record
	if rec.Proposal.PolicyType != model.PlanGold {
		t.Fatalf("expected Gold plan, got %q", rec.Proposal.PolicyType)
	}
	if got := app.fields[0].input.Value(); got != rec.Proposal.PolicyPeriod {
		t.Fatalf("policy period input %q does not mirror record %q", got, rec.Proposal.PolicyPeriod)
	}
}

func TestNextBlockedOnFreshRecord(t *testing.T) {
	app := newTestApp(t, store.NewMemory())

	press(app, "ctrl+n")
	if step(app) != wizard.StepType {
		t.Fatalf("expected to stay on first step, got %v", step(app))
	}
	if app.status == "" {
		t.Fatalf("expected a status message explaining the block")
	}
}

func TestFormEditsCommitOnTab(t *testing.T) {
	app := newTestApp(t, store.NewMemory())
	press(app, "a")
	press(app, "s")

	press(app, "tab")
	for _, r := range "Ravi Kumar" {
		press(app, string(r))
	}
	press(app, "tab")

	if got := app.session.State().Record.Proposal.ProposerName; got != "Ravi Kumar" {
		t.Fatalf("expected proposer name to be committed, got %q", got)
	}
	if app.cursor != 2 {
		t.Fatalf("expected cursor on mobile field, got %d", app.cursor)
	}
}

func TestDeclarationToggle(t *testing.T) {
	app := newTestApp(t, store.NewMemory())
	press(app, "a")
	press(app, "s")

	press(app, "shift+tab")
	if app.cursor != app.declarationRow() {
		t.Fatalf("expected cursor to wrap to declaration, got %d", app.cursor)
	}
	press(app, "space")
	if !app.session.State().Record.Proposal.DeclarationAccepted {
		t.Fatalf("expected declaration to be accepted")
	}
	press(app, "space")
	if app.session.State().Record.Proposal.DeclarationAccepted {
		t.Fatalf("expected declaration to be cleared")
	}
}

func TestReviewActions(t *testing.T) {
	app := newTestApp(t, store.NewMemory())

	press(app, "ctrl+s")
	if step(app) != wizard.StepReview {
		t.Fatalf("expected sample to open review, got %v", step(app))
	}

	press(app, "d")
	if got := app.session.State().SyncStatus; got != model.SyncPartial {
		t.Fatalf("expected PARTIAL after drift, got %s", got)
	}
	if !strings.Contains(app.rendered[model.ViewAgent], "[SYNC WARNING]") {
		t.Fatalf("expected agent view to warn after drift:\n%s", app.rendered[model.ViewAgent])
	}

	press(app, "r")
	if got := app.session.State().SyncStatus; got != model.SyncOK {
		t.Fatalf("expected OK after reconcile, got %s", got)
	}

	press(app, "e")
	if !strings.HasPrefix(app.output, "Request:") {
		t.Fatalf("expected escalation summary, got %q", app.output)
	}
}

func TestResetClearsForm(t *testing.T) {
	app := newTestApp(t, store.NewMemory())
	press(app, "ctrl+s")
	press(app, "ctrl+x")

	if step(app) != wizard.StepType {
		t.Fatalf("expected reset to return to first step, got %v", step(app))
	}
	for _, f := range app.fields {
		if f.input.Value() != "" {
			t.Fatalf("expected %s input to be cleared, got %q", f.name, f.input.Value())
		}
	}
}

func TestResumesStoredSession(t *testing.T) {
	st := store.NewMemory()
	first := newTestApp(t, st)
	press(first, "ctrl+s")

	second := newTestApp(t, st)
	if step(second) != wizard.StepReview {
		t.Fatalf("expected resumed app on review, got %v", step(second))
	}
	if second.fields[1].input.Value() != "Ankit Rajesh Patel" {
		t.Fatalf("expected form to show stored proposer, got %q", second.fields[1].input.Value())
	}
}

func TestViewRendersStepAndPane(t *testing.T) {
	app := newTestApp(t, store.NewMemory())
	if out := app.View(); !strings.Contains(out, "Choose insurance type") {
		t.Fatalf("expected step bar in view:\n%s", out)
	}

	press(app, "ctrl+s")
	out := app.View()
	if !strings.Contains(out, "Final review") || !strings.Contains(out, "Version v1") {
		t.Fatalf("expected review content in view:\n%s", out)
	}

	press(app, "f2")
	if app.pane != 1 {
		t.Fatalf("expected f2 to move to the agent pane, got %d", app.pane)
	}
}

func TestQuit(t *testing.T) {
	app := newTestApp(t, store.NewMemory())
	if cmd := press(app, "ctrl+c"); cmd == nil {
		t.Fatalf("expected quit command")
	}
}
