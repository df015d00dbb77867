// Package engine owns one wizard session: the policy record, the current step and
// the pipeline every command goes through.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/jsonpatch"
	"proposal-engine/internal/logging"
	"proposal-engine/internal/metrics"
	"proposal-engine/internal/model"
	"proposal-engine/internal/mutations"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/store"
	"proposal-engine/internal/validation"
	"proposal-engine/internal/views"
	"proposal-engine/internal/wizard"
)

var (
	ErrVersionConflict = errors.New("engine: version conflict")
	ErrUnknownCommand  = errors.New("engine: unknown command")
	// ErrRejected is returned by Do when a command produced a CRITICAL message.
	ErrRejected = errors.New("engine: command rejected")
)

// Renderer receives every view after each committed change.
type Renderer interface {
	Render(view model.ViewName, rec *model.PolicyRecord)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(view model.ViewName, rec *model.PolicyRecord)

func (f RenderFunc) Render(view model.ViewName, rec *model.PolicyRecord) { f(view, rec) }

type NopRenderer struct{}

func (NopRenderer) Render(model.ViewName, *model.PolicyRecord) {}

// Options wires a session to its collaborators. Zero fields get defaults.
type Options struct {
	// Key names the snapshot in Store. Defaults to store.DefaultKey.
	Key      string
	Catalog  *plancatalog.Catalog
	Tracker  *consistency.Tracker
	Store    store.Store
	Renderer Renderer
	Logger   *bolt.Logger
	Metrics  *metrics.Metrics
}

func (o *Options) applyDefaults() {
	if o.Key == "" {
		o.Key = store.DefaultKey
	}
	if o.Catalog == nil {
		o.Catalog = plancatalog.Default()
	}
	if o.Tracker == nil {
		o.Tracker = consistency.New()
	}
	if o.Store == nil {
		o.Store = store.NewMemory()
	}
	if o.Renderer == nil {
		o.Renderer = NopRenderer{}
	}
	if o.Logger == nil {
		o.Logger = logging.Get()
	}
}

// Session is the single owner of a policy record. Commands are applied one at a
// time; each one that runs is followed by exactly one commit.
type Session struct {
	mu sync.Mutex

	opts   Options
	record *model.PolicyRecord
	wizard *wizard.Machine
	issues []model.Issue
}

// NewSession starts on a fresh record at the first step. Nothing is persisted
// until the first command.
func NewSession(opts Options) (*Session, error) {
	opts.applyDefaults()
	s := &Session{opts: opts, record: model.NewDefault()}

	w, err := wizard.NewMachine(&wizard.Context{
		Record:       s.record,
		Issues:       s.evaluate,
		OnTransition: s.logTransition,
	})
	if err != nil {
		return nil, err
	}
	s.wizard = w
	s.refresh()
	return s, nil
}

// LoadLast resumes the snapshot stored under opts.Key. A missing or malformed
// snapshot gives a fresh session; only wiring failures are returned.
func LoadLast(ctx context.Context, opts Options) (*Session, error) {
	s, err := NewSession(opts)
	if err != nil {
		return nil, err
	}

	snap, err := s.opts.Store.Load(ctx, s.opts.Key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s, nil
	case err != nil:
		logging.With(s.opts.Logger.Warn(),
			logging.SessionID(s.opts.Key),
			logging.ErrorField(err),
		).Msg("discarding stored snapshot")
		s.storeError("load")
		return s, nil
	}

	*s.record = *snap.PolicyRecord
	if err := s.wizard.Resume(int(wizard.ResumeStep(s.record, snap.Step))); err != nil {
		return nil, err
	}
	s.refresh()

	logging.With(s.opts.Logger.Info(),
		logging.SessionID(s.opts.Key),
		logging.Version(s.record.Version),
		logging.Step(int(s.wizard.Step()), s.wizard.Step().Title()),
	).Msg("session resumed")
	return s, nil
}

func (s *Session) Key() string { return s.opts.Key }

func (s *Session) evaluate() []model.Issue {
	return validation.Evaluate(s.record, s.opts.Catalog)
}

// refresh re-evaluates and re-renders without persisting.
func (s *Session) refresh() {
	s.issues = s.evaluate()
	for _, view := range model.AllViews {
		s.opts.Renderer.Render(view, s.record)
	}
}

// commit is the single change hook: derive, evaluate, render, persist.
func (s *Session) commit(ctx context.Context) error {
	s.opts.Catalog.Derive(&s.record.Proposal)
	s.refresh()

	if m := s.opts.Metrics; m != nil {
		m.SyncStatus.WithLabelValues(string(consistency.ComputeSyncStatus(s.record))).Inc()
	}

	snap := store.Snapshot{PolicyRecord: s.record.Clone(), Step: int(s.wizard.Step())}
	if err := s.opts.Store.Save(ctx, s.opts.Key, snap); err != nil {
		s.storeError("save")
		return fmt.Errorf("engine: persist %s: %w", s.opts.Key, err)
	}
	return nil
}

func (s *Session) storeError(op string) {
	if m := s.opts.Metrics; m != nil {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
}

func (s *Session) logTransition(from, to wizard.Step, event string) {
	logging.With(s.opts.Logger.Debug(),
		logging.SessionID(s.opts.Key),
		logging.Str("event", event),
		logging.Str("from", from.Title()),
		logging.Str("to", to.Title()),
	).Msg("step changed")
}

func (s *Session) checkVersion(expected *int) error {
	if expected == nil || *expected == s.record.Version {
		return nil
	}
	return fmt.Errorf("%w: expected v%d, policy is at v%d", ErrVersionConflict, *expected, s.record.Version)
}

// Process runs the commands in order. The first CRITICAL message stops the batch;
// commands already applied stay applied.
func (s *Session) Process(ctx context.Context, req *model.CommandRequest) *model.CommandResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var allMessages []model.CommandMessage
	var processed []model.ProcessedCommand
	outcome := model.OutcomeSuccess

	add := func(msgs []model.CommandMessage, indexes *[]int) bool {
		critical := false
		for _, m := range msgs {
			m.ID = len(allMessages)
			allMessages = append(allMessages, m)
			*indexes = append(*indexes, m.ID)
			if m.Level == model.LevelCritical {
				critical = true
			}
		}
		return critical
	}

	if err := s.checkVersion(req.ExpectedVersion); err != nil {
		var idx []int
		add([]model.CommandMessage{{Level: model.LevelCritical, Code: "VERSION_CONFLICT", Message: err.Error()}}, &idx)
		outcome = model.OutcomeFailure
		logging.With(s.opts.Logger.Warn(), logging.SessionID(s.opts.Key), logging.Code("VERSION_CONFLICT")).Msg(err.Error())
	}

	for i := range req.Commands {
		if outcome == model.OutcomeFailure {
			break
		}
		cmd := req.Commands[i]
		var msgIndexes []int

		handler, ok := mutations.Get(cmd.Name)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
			add([]model.CommandMessage{{Level: model.LevelCritical, Code: "UNKNOWN_COMMAND", Message: err.Error()}}, &msgIndexes)
			processed = append(processed, model.ProcessedCommand{Command: cmd, MessageIndexes: msgIndexes})
			s.countCommand(cmd.Name, metrics.OutcomeUnknown)
			outcome = model.OutcomeFailure
			break
		}

		target := s.target()
		if add(handler.Validate(target, &cmd), &msgIndexes) {
			processed = append(processed, model.ProcessedCommand{Command: cmd, MessageIndexes: msgIndexes})
			s.logRejected(cmd, allMessages[msgIndexes[len(msgIndexes)-1]])
			s.countCommand(cmd.Name, metrics.OutcomeRejected)
			outcome = model.OutcomeFailure
			break
		}

		before := s.record.Clone()
		historyBefore := len(s.record.History)
		critical := add(handler.Apply(target, &cmd), &msgIndexes)

		if err := s.commit(ctx); err != nil {
			add([]model.CommandMessage{{Level: model.LevelWarning, Code: "PERSIST_FAILED", Message: err.Error()}}, &msgIndexes)
			logging.With(s.opts.Logger.Error(), logging.SessionID(s.opts.Key), logging.ErrorField(err)).Msg("snapshot not saved")
		}

		patch, err := jsonpatch.Between(before, s.record)
		if err != nil {
			logging.With(s.opts.Logger.Warn(), logging.SessionID(s.opts.Key), logging.ErrorField(err)).Msg("patch not computed")
		}
		processed = append(processed, model.ProcessedCommand{
			Command:        cmd,
			MessageIndexes: msgIndexes,
			Patch:          patch,
			Output:         target.Output,
		})

		if len(s.record.History) > historyBefore && s.opts.Metrics != nil {
			s.opts.Metrics.Versions.WithLabelValues(string(s.record.History[0].Action)).Inc()
		}

		if critical {
			s.countCommand(cmd.Name, metrics.OutcomeRejected)
			outcome = model.OutcomeFailure
			break
		}
		s.countCommand(cmd.Name, metrics.OutcomeApplied)
		logging.With(s.opts.Logger.Info(),
			logging.SessionID(s.opts.Key),
			logging.Command(cmd.Name, cmd.CommandID),
			logging.Version(s.record.Version),
			logging.Step(int(s.wizard.Step()), s.wizard.Step().Title()),
		).Msg("command applied")
	}

	elapsed := time.Since(start)
	now := time.Now().UTC()
	if s.opts.Metrics != nil {
		s.opts.Metrics.CommandDuration.Observe(elapsed.Seconds())
	}
	if allMessages == nil {
		allMessages = []model.CommandMessage{}
	}

	return &model.CommandResponse{
		Metadata: model.ProcessingMetadata{
			ProcessingID: uuid.New().String(),
			SessionID:    req.SessionID,
			StartedAt:    now.Add(-elapsed).Format(time.RFC3339),
			CompletedAt:  now.Format(time.RFC3339),
			DurationMs:   elapsed.Milliseconds(),
			Outcome:      outcome,
		},
		Result: model.ProcessingResult{
			Messages: allMessages,
			Commands: processed,
			State:    s.state(),
		},
	}
}

func (s *Session) target() *mutations.Target {
	return &mutations.Target{
		Record:  s.record,
		Catalog: s.opts.Catalog,
		Tracker: s.opts.Tracker,
		Wizard:  s.wizard,
		Issues:  s.evaluate,
	}
}

func (s *Session) countCommand(name, outcome string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.Commands.WithLabelValues(name, outcome).Inc()
	}
}

func (s *Session) logRejected(cmd model.Command, msg model.CommandMessage) {
	logging.With(s.opts.Logger.Info(),
		logging.SessionID(s.opts.Key),
		logging.Command(cmd.Name, cmd.CommandID),
		logging.Code(msg.Code),
	).Msg(msg.Message)
}

// Do runs one command built from name and props. It returns ErrRejected, wrapped
// with the first CRITICAL message, when the command did not go through.
func (s *Session) Do(ctx context.Context, name string, props any) (*model.CommandResponse, error) {
	cmd := model.Command{CommandID: uuid.New().String(), Name: name}
	if props != nil {
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, fmt.Errorf("engine: encode %s properties: %w", name, err)
		}
		cmd.Properties = raw
	}

	resp := s.Process(ctx, &model.CommandRequest{SessionID: s.opts.Key, Commands: []model.Command{cmd}})
	if resp.Metadata.Outcome == model.OutcomeFailure {
		for _, m := range resp.Result.Messages {
			if m.Level == model.LevelCritical {
				return resp, fmt.Errorf("%w: %s: %s", ErrRejected, m.Code, m.Message)
			}
		}
		return resp, ErrRejected
	}
	return resp, nil
}

func (s *Session) state() model.StateSnapshot {
	step := s.wizard.Step()
	issues := append([]model.Issue{}, s.issues...)
	return model.StateSnapshot{
		Step:           int(step),
		StepTitle:      step.Title(),
		Record:         s.record.Clone(),
		Issues:         issues,
		SyncStatus:     consistency.ComputeSyncStatus(s.record),
		NeedsHuman:     validation.NeedsHumanReview(issues),
		ReadyToPublish: !validation.HasBlocking(issues),
	}
}

// State returns a copy of everything a UI needs to draw the session.
func (s *Session) State() model.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Evaluate returns the issues of the current record.
func (s *Session) Evaluate() []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluate()
}

func (s *Session) SyncStatus() model.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consistency.ComputeSyncStatus(s.record)
}

// View renders one of the three views as text.
func (s *Session) View(name model.ViewName) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return views.Render(name, s.record, s.opts.Catalog)
}

// AgentDraft is the suggested customer reply for the current record.
func (s *Session) AgentDraft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return views.AgentDraft(s.record, s.opts.Catalog)
}

// VehicleValueHint is the inline guidance for the vehicle value field.
func (s *Session) VehicleValueHint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.VehicleValueHint(s.record.Proposal, s.opts.Catalog)
}

func (s *Session) Catalog() *plancatalog.Catalog { return s.opts.Catalog }
