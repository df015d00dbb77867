package mutations

import (
	"proposal-engine/internal/consistency"
	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/wizard"
)

// CommandHandler defines the contract for all wizard commands.
// Validate checks preconditions without side effects; Apply changes the target.
// A CRITICAL message from either stops the batch.
type CommandHandler interface {
	Validate(t *Target, cmd *model.Command) []model.CommandMessage
	Apply(t *Target, cmd *model.Command) []model.CommandMessage
}

// Target is the session state a command may read and change.
type Target struct {
	Record  *model.PolicyRecord
	Catalog *plancatalog.Catalog
	Tracker *consistency.Tracker
	Wizard  *wizard.Machine
	// Issues evaluates Record as it currently stands.
	Issues func() []model.Issue
	// Output carries text produced by the last command, such as an escalation summary.
	Output string
}

func critical(code, message string) model.CommandMessage {
	return model.CommandMessage{Level: model.LevelCritical, Code: code, Message: message}
}

func warning(code, message string) model.CommandMessage {
	return model.CommandMessage{Level: model.LevelWarning, Code: code, Message: message}
}
