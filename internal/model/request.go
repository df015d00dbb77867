package model

import "encoding/json"

type CommandRequest struct {
	SessionID string `json:"session_id"`
	// ExpectedVersion, when set, must equal the record version before the first command runs.
	ExpectedVersion *int      `json:"expected_version,omitempty"`
	Commands        []Command `json:"commands"`
}

type Command struct {
	CommandID  string          `json:"command_id"`
	Name       string          `json:"name"`
	Properties json.RawMessage `json:"properties,omitempty"`
}
