package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/logging"
	"proposal-engine/internal/metrics"
	"proposal-engine/internal/model"
	"proposal-engine/internal/store"
	"proposal-engine/internal/validation"
	"proposal-engine/internal/wizard"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestSession(t *testing.T, st store.Store) *Session {
	t.Helper()
	s, err := NewSession(Options{
		Store:   st,
		Tracker: &consistency.Tracker{Now: func() time.Time { return fixedNow }, PickDrift: func() bool { return true }},
		Logger:  logging.Discard(),
		Metrics: metrics.New(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func cmd(name, props string) model.Command {
	c := model.Command{CommandID: name, Name: name}
	if props != "" {
		c.Properties = json.RawMessage(props)
	}
	return c
}

func edit(field, value string) model.Command {
	return cmd("edit_field", `{"field":"`+field+`","value":`+value+`}`)
}

func process(t *testing.T, s *Session, cmds ...model.Command) *model.CommandResponse {
	t.Helper()
	return s.Process(context.Background(), &model.CommandRequest{SessionID: "test", Commands: cmds})
}

// fillGold builds the fully valid Gold proposal used by the publish scenarios.
func fillGold(t *testing.T, s *Session) {
	t.Helper()
	resp := process(t, s,
		cmd("select_type", `{"insurance_type":"auto"}`),
		cmd("select_plan", `{"plan":"Gold"}`),
		edit("proposerName", `"Ankit Rajesh Patel"`),
		edit("mobileNumber", `"9876543210"`),
		edit("vehicleRegNumber", `"MH02AB1234"`),
		edit("vehicleValueINR", `"2000000"`),
		edit("declarationAccepted", `true`),
	)
	if resp.Metadata.Outcome != model.OutcomeSuccess {
		t.Fatalf("fill failed: %+v", resp.Result.Messages)
	}
}

func hasCode(issues []model.Issue, code model.IssueCode) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func TestFreshRecordBlocksFirstStep(t *testing.T) {
	s := newTestSession(t, nil)

	issues := s.Evaluate()
	if !hasCode(validation.Blocking(issues), model.CodeMissingType) {
		t.Fatalf("expected blocking missing_type, got %v", validation.Codes(issues))
	}
	for _, code := range []model.IssueCode{model.CodeMissingPolicyType, model.CodeMissingName, model.CodeMissingMobile, model.CodeMissingDeclaration} {
		if !hasCode(issues, code) {
			t.Fatalf("expected %s among %v", code, validation.Codes(issues))
		}
	}

	resp := process(t, s, cmd("next", ""))
	if resp.Metadata.Outcome != model.OutcomeFailure {
		t.Fatalf("expected FAILURE, got %s", resp.Metadata.Outcome)
	}
	if resp.Result.Messages[0].Code != "STEP_BLOCKED" {
		t.Fatalf("expected STEP_BLOCKED, got %s", resp.Result.Messages[0].Code)
	}
	if resp.Result.State.Step != 0 {
		t.Fatalf("expected step 0, got %d", resp.Result.State.Step)
	}
}

func TestSilverWithExpensiveVehicle(t *testing.T) {
	s := newTestSession(t, nil)
	process(t, s,
		cmd("select_type", `{"insurance_type":"auto"}`),
		cmd("select_plan", `{"plan":"Silver"}`),
		edit("vehicleValueINR", `"2000000"`),
	)

	issues := s.Evaluate()
	found := false
	for _, is := range issues {
		if is.Code == model.CodeValueMismatchSilver {
			found = true
			if is.Severity != model.SeverityAdvisory {
				t.Fatalf("expected advisory, got %s", is.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected value_mismatch_silver in %v", validation.Codes(issues))
	}
}

func TestPublishValidGold(t *testing.T) {
	s := newTestSession(t, nil)
	fillGold(t, s)

	if validation.HasBlocking(s.Evaluate()) {
		t.Fatalf("expected no blocking issues, got %v", validation.Codes(s.Evaluate()))
	}

	resp := process(t, s, cmd("publish", ""))
	if resp.Metadata.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %+v", resp.Result.Messages)
	}

	rec := resp.Result.State.Record
	if rec.Version != 1 {
		t.Fatalf("expected version 1, got %d", rec.Version)
	}
	for _, v := range model.AllViews {
		if rec.Views.Get(v).Version != 1 {
			t.Fatalf("expected %s at v1, got v%d", v, rec.Views.Get(v).Version)
		}
	}
	if len(rec.History) != 1 || rec.History[0].Action != model.ActionPublish {
		t.Fatalf("expected one Publish entry, got %+v", rec.History)
	}
	if rec.History[0].At != "2026-03-14 09:30:00" {
		t.Fatalf("unexpected stamp %q", rec.History[0].At)
	}
	if resp.Result.State.SyncStatus != model.SyncOK {
		t.Fatalf("expected OK, got %s", resp.Result.State.SyncStatus)
	}
	if len(resp.Result.Commands[0].Patch) == 0 {
		t.Fatal("expected a patch for publish")
	}
}

func TestDriftThenReconcile(t *testing.T) {
	s := newTestSession(t, nil)
	fillGold(t, s)
	process(t, s, cmd("publish", ""))

	resp := process(t, s, cmd("simulate_drift", ""))
	if resp.Result.State.SyncStatus == model.SyncOK {
		t.Fatal("expected drift to break sync")
	}
	if resp.Result.Messages[0].Code != "VIEW_DRIFTED" {
		t.Fatalf("expected VIEW_DRIFTED, got %s", resp.Result.Messages[0].Code)
	}
	if !hasCode(resp.Result.State.Issues, model.CodeSync) {
		t.Fatal("expected sync issue after drift")
	}

	resp = process(t, s, cmd("reconcile", ""))
	st := resp.Result.State
	if st.SyncStatus != model.SyncOK {
		t.Fatalf("expected OK, got %s", st.SyncStatus)
	}
	if st.Record.Version != 1 {
		t.Fatalf("expected version 1, got %d", st.Record.Version)
	}
	if len(st.Record.History) != 2 || st.Record.History[0].Action != model.ActionReconcile {
		t.Fatalf("expected Reconcile on top of history, got %+v", st.Record.History)
	}
}

func TestPlanSwitchOverwritesDerivedFields(t *testing.T) {
	s := newTestSession(t, nil)
	process(t, s,
		cmd("select_type", `{"insurance_type":"auto"}`),
		cmd("select_plan", `{"plan":"Gold"}`),
		cmd("select_plan", `{"plan":"Silver"}`),
	)

	p := s.State().Record.Proposal
	if p.PolicyType != model.PlanSilver || p.PolicyPeriod != "1 Year" {
		t.Fatalf("expected Silver / 1 Year, got %s / %s", p.PolicyType, p.PolicyPeriod)
	}
	if p.CoveragePackage != "Silver Cover" || p.AnnualPremiumINR != 12000 {
		t.Fatalf("expected Silver derived fields, got %s / %d", p.CoveragePackage, p.AnnualPremiumINR)
	}
	if s.State().Step != int(wizard.StepProposal) {
		t.Fatalf("expected proposal step, got %d", s.State().Step)
	}
}

func TestPublishRejectedWithBlockingIssues(t *testing.T) {
	s := newTestSession(t, nil)
	resp := process(t, s, cmd("publish", ""))

	if resp.Metadata.Outcome != model.OutcomeFailure {
		t.Fatalf("expected FAILURE, got %s", resp.Metadata.Outcome)
	}
	if resp.Result.Messages[0].Code != "PUBLISH_REJECTED" {
		t.Fatalf("expected PUBLISH_REJECTED, got %s", resp.Result.Messages[0].Code)
	}
	if resp.Result.State.Record.Version != 0 {
		t.Fatalf("version must not change, got %d", resp.Result.State.Record.Version)
	}
}

func TestClearedPeriodStaysCleared(t *testing.T) {
	s := newTestSession(t, nil)
	fillGold(t, s)

	process(t, s, edit("policyPeriod", `""`))
	state := s.State()
	if state.Record.Proposal.PolicyPeriod != "" {
		t.Fatalf("expected period to stay cleared, got %q", state.Record.Proposal.PolicyPeriod)
	}
	found := false
	for _, is := range state.Issues {
		if is.Code == model.CodeMissingPolicyPeriod {
			found = true
			if is.Severity != model.SeverityBlocking {
				t.Fatalf("expected missing period to be blocking, got %s", is.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected missing period issue, got %v", validation.Codes(state.Issues))
	}

	resp := process(t, s, cmd("publish", ""))
	if resp.Metadata.Outcome != model.OutcomeFailure || resp.Result.Messages[0].Code != "PUBLISH_REJECTED" {
		t.Fatalf("expected publish to be rejected, got %s %+v", resp.Metadata.Outcome, resp.Result.Messages)
	}
	if s.State().Record.Version != 0 {
		t.Fatalf("version must not change, got %d", s.State().Record.Version)
	}
}

func TestNullDeclarationClears(t *testing.T) {
	s := newTestSession(t, nil)
	fillGold(t, s)

	resp := process(t, s, edit("declarationAccepted", `null`))
	if resp.Metadata.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %+v", resp.Result.Messages)
	}
	if s.State().Record.Proposal.DeclarationAccepted {
		t.Fatalf("expected null to clear the declaration")
	}
}

func TestBatchStopsAtFirstCritical(t *testing.T) {
	s := newTestSession(t, nil)
	resp := process(t, s,
		cmd("select_type", `{"insurance_type":"auto"}`),
		cmd("select_plan", `{"plan":"Platinum"}`),
		cmd("select_plan", `{"plan":"Gold"}`),
	)

	if resp.Metadata.Outcome != model.OutcomeFailure {
		t.Fatalf("expected FAILURE, got %s", resp.Metadata.Outcome)
	}
	if len(resp.Result.Commands) != 2 {
		t.Fatalf("expected 2 processed commands, got %d", len(resp.Result.Commands))
	}
	if resp.Result.State.Record.InsuranceType != model.InsuranceAuto {
		t.Fatal("first command should stay applied")
	}
	if resp.Result.State.Record.Proposal.PolicyType != model.PlanUnset {
		t.Fatal("third command must not run")
	}
}

func TestUnknownCommand(t *testing.T) {
	s := newTestSession(t, nil)
	resp := process(t, s, cmd("teleport", ""))
	if resp.Result.Messages[0].Code != "UNKNOWN_COMMAND" {
		t.Fatalf("expected UNKNOWN_COMMAND, got %s", resp.Result.Messages[0].Code)
	}
}

func TestExpectedVersionConflict(t *testing.T) {
	s := newTestSession(t, nil)
	stale := 3
	resp := s.Process(context.Background(), &model.CommandRequest{
		ExpectedVersion: &stale,
		Commands:        []model.Command{cmd("select_type", `{"insurance_type":"auto"}`)},
	})
	if resp.Result.Messages[0].Code != "VERSION_CONFLICT" {
		t.Fatalf("expected VERSION_CONFLICT, got %s", resp.Result.Messages[0].Code)
	}
	if len(resp.Result.Commands) != 0 {
		t.Fatalf("expected no commands processed, got %d", len(resp.Result.Commands))
	}

	current := 0
	resp = s.Process(context.Background(), &model.CommandRequest{
		ExpectedVersion: &current,
		Commands:        []model.Command{cmd("select_type", `{"insurance_type":"auto"}`)},
	})
	if resp.Metadata.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %+v", resp.Result.Messages)
	}
}

func TestEachCommandPersists(t *testing.T) {
	st := store.NewMemory()
	s := newTestSession(t, st)
	fillGold(t, s)
	process(t, s, cmd("next", ""), cmd("next", ""))

	snap, err := st.Load(context.Background(), store.DefaultKey)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Proposal.ProposerName != "Ankit Rajesh Patel" {
		t.Fatalf("unexpected persisted name %q", snap.Proposal.ProposerName)
	}
	if snap.Step != int(wizard.StepReview) {
		t.Fatalf("expected persisted step %d, got %d", wizard.StepReview, snap.Step)
	}
}

func TestLoadLastResumes(t *testing.T) {
	st := store.NewMemory()
	s := newTestSession(t, st)
	fillGold(t, s)
	process(t, s, cmd("publish", ""))

	resumed, err := LoadLast(context.Background(), Options{Store: st, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("LoadLast: %v", err)
	}
	state := resumed.State()
	if state.Record.Version != 1 {
		t.Fatalf("expected version 1, got %d", state.Record.Version)
	}
	if state.Step != int(wizard.StepProposal) {
		t.Fatalf("expected proposal step, got %d", state.Step)
	}
}

func TestLoadLastMalformedFallsBack(t *testing.T) {
	st := store.NewMemory()
	st.Put(store.DefaultKey, []byte(`{"version":9}`))

	s, err := LoadLast(context.Background(), Options{Store: st, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("LoadLast: %v", err)
	}
	if s.State().Record.Version != 0 {
		t.Fatalf("expected default record, got version %d", s.State().Record.Version)
	}
}

func TestLoadSampleAndReset(t *testing.T) {
	s := newTestSession(t, nil)
	resp := process(t, s, cmd("load_sample", ""))

	st := resp.Result.State
	if st.Record.Version != 1 || st.Record.History[0].Note != "Initial sample publish" {
		t.Fatalf("unexpected sample record %+v", st.Record)
	}
	if st.Step != int(wizard.StepReview) || !st.ReadyToPublish {
		t.Fatalf("expected ready review step, got step %d", st.Step)
	}

	resp = process(t, s, cmd("reset", ""))
	if resp.Result.State.Record.Version != 0 || len(resp.Result.State.Record.History) != 0 {
		t.Fatal("expected reset to clear the record")
	}
	if resp.Result.State.Step != 0 {
		t.Fatalf("expected step 0, got %d", resp.Result.State.Step)
	}
}

func TestSelfServiceAndEscalate(t *testing.T) {
	s := newTestSession(t, nil)
	process(t, s, cmd("load_sample", ""))

	resp := process(t, s, cmd("self_service_update", `{"mobile_number":"9123456789"}`))
	rec := resp.Result.State.Record
	if rec.Version != 2 || rec.Proposal.MobileNumber != "9123456789" {
		t.Fatalf("expected v2 with new mobile, got v%d %s", rec.Version, rec.Proposal.MobileNumber)
	}
	if rec.History[0].Action != model.ActionSelfServiceUpdate {
		t.Fatalf("expected SelfServiceUpdate entry, got %s", rec.History[0].Action)
	}

	resp = process(t, s, cmd("self_service_update", `{"mobile_number":"   "}`))
	if resp.Result.Messages[0].Code != "EMPTY_UPDATE" {
		t.Fatalf("expected EMPTY_UPDATE, got %s", resp.Result.Messages[0].Code)
	}

	resp = process(t, s, cmd("escalate", `{"vehicle_reg_number":"MH01ZZ0001"}`))
	want := "Request: Vehicle registration update.\nLatest version: v2.\nCustomer: Ankit Rajesh Patel.\nNotes: Please verify and confirm across systems."
	if resp.Result.Commands[0].Output != want {
		t.Fatalf("unexpected escalation summary:\n%s", resp.Result.Commands[0].Output)
	}
	if resp.Result.State.Record.Proposal.VehicleRegNumber != "MH02AB1234" {
		t.Fatal("escalate must not change the record")
	}
}

func TestRendererCalledOncePerViewPerCommand(t *testing.T) {
	calls := map[model.ViewName]int{}
	s, err := NewSession(Options{
		Logger:   logging.Discard(),
		Renderer: RenderFunc(func(v model.ViewName, _ *model.PolicyRecord) { calls[v]++ }),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	clear(calls)

	process(t, s, cmd("select_type", `{"insurance_type":"auto"}`), cmd("select_plan", `{"plan":"Silver"}`))
	for _, v := range model.AllViews {
		if calls[v] != 2 {
			t.Fatalf("expected 2 renders of %s, got %d", v, calls[v])
		}
	}
}

type failingStore struct{ *store.Memory }

func (failingStore) Save(context.Context, string, store.Snapshot) error {
	return errors.New("disk full")
}

func TestPersistFailureIsWarning(t *testing.T) {
	s := newTestSession(t, failingStore{store.NewMemory()})
	resp := process(t, s, cmd("select_type", `{"insurance_type":"auto"}`))

	if resp.Metadata.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s", resp.Metadata.Outcome)
	}
	if resp.Result.Messages[0].Code != "PERSIST_FAILED" || resp.Result.Messages[0].Level != model.LevelWarning {
		t.Fatalf("expected PERSIST_FAILED warning, got %+v", resp.Result.Messages[0])
	}
}

func TestDo(t *testing.T) {
	s := newTestSession(t, nil)
	if _, err := s.Do(context.Background(), "select_type", map[string]string{"insurance_type": "auto"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	_, err := s.Do(context.Background(), "publish", nil)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}
