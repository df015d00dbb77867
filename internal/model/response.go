package model

type CommandResponse struct {
	Metadata ProcessingMetadata `json:"metadata"`
	Result   ProcessingResult   `json:"result"`
}

type ProcessingMetadata struct {
	ProcessingID string `json:"processing_id"`
	SessionID    string `json:"session_id"`
	StartedAt    string `json:"started_at"`
	CompletedAt  string `json:"completed_at"`
	DurationMs   int64  `json:"duration_ms"`
	Outcome      string `json:"outcome"`
}

type ProcessingResult struct {
	Messages []CommandMessage   `json:"messages"`
	Commands []ProcessedCommand `json:"commands"`
	State    StateSnapshot      `json:"state"`
}

type ProcessedCommand struct {
	Command        Command          `json:"command"`
	MessageIndexes []int            `json:"message_indexes,omitempty"`
	Patch          []map[string]any `json:"patch,omitempty"`
	// Output is text produced by the command itself, such as an escalation summary.
	Output string `json:"output,omitempty"`
}

// StateSnapshot is everything a UI needs to draw the wizard after a command.
type StateSnapshot struct {
	Step           int           `json:"step"`
	StepTitle      string        `json:"step_title"`
	Record         *PolicyRecord `json:"record"`
	Issues         []Issue       `json:"issues"`
	SyncStatus     SyncStatus    `json:"sync_status"`
	NeedsHuman     bool          `json:"needs_human"`
	ReadyToPublish bool          `json:"ready_to_publish"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
)
