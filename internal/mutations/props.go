package mutations

import (
	json "github.com/goccy/go-json"

	"proposal-engine/internal/model"
)

// decodeProps unmarshals command properties into v. Absent properties leave v zero.
func decodeProps(cmd *model.Command, v any) error {
	if len(cmd.Properties) == 0 {
		return nil
	}
	return json.Unmarshal(cmd.Properties, v)
}

func invalidProps(err error) []model.CommandMessage {
	return []model.CommandMessage{critical("INVALID_PROPERTIES", "Command properties could not be read: "+err.Error())}
}
