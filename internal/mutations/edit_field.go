package mutations

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

// Field names accepted by edit_field, matching the proposal's JSON names.
const (
	FieldPolicyType          = "policyType"
	FieldPolicyPeriod        = "policyPeriod"
	FieldProposerName        = "proposerName"
	FieldMobileNumber        = "mobileNumber"
	FieldVehicleRegNumber    = "vehicleRegNumber"
	FieldVehicleValueINR     = "vehicleValueINR"
	FieldDeclarationAccepted = "declarationAccepted"
	FieldCoveragePackage     = "coveragePackage"
	FieldAnnualPremiumINR    = "annualPremiumINR"
)

type editFieldProps struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// EditFieldHandler changes one proposal form field. Text is trimmed. The derived
// coverage package and premium cannot be edited.
type EditFieldHandler struct{}

func (h *EditFieldHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props editFieldProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}

	switch props.Field {
	case FieldCoveragePackage, FieldAnnualPremiumINR:
		return []model.CommandMessage{critical("READ_ONLY_FIELD",
			fmt.Sprintf("%s is calculated from the selected plan and cannot be edited", props.Field))}
	case FieldDeclarationAccepted:
		var b bool
		if err := json.Unmarshal(props.Value, &b); err != nil {
			return []model.CommandMessage{critical("INVALID_VALUE", props.Field+" must be true or false")}
		}
	case FieldPolicyType:
		s, err := textValue(props.Value)
		if err != nil {
			return []model.CommandMessage{critical("INVALID_VALUE", props.Field+" must be a string")}
		}
		if s != "" {
			if _, ok := t.Catalog.Lookup(model.PlanKey(s)); !ok {
				return []model.CommandMessage{unknownPlan(model.PlanKey(s))}
			}
		}
	case FieldPolicyPeriod, FieldProposerName, FieldMobileNumber, FieldVehicleRegNumber, FieldVehicleValueINR:
		if _, err := textValue(props.Value); err != nil {
			return []model.CommandMessage{critical("INVALID_VALUE", props.Field+" must be a string")}
		}
	default:
		return []model.CommandMessage{critical("UNKNOWN_FIELD", fmt.Sprintf("Unknown proposal field %q", props.Field))}
	}
	return nil
}

func (h *EditFieldHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props editFieldProps
	_ = decodeProps(cmd, &props)
	p := &t.Record.Proposal

	if props.Field == FieldDeclarationAccepted {
		// null clears the checkbox, like null clears a text field.
		var accepted bool
		_ = json.Unmarshal(props.Value, &accepted)
		p.DeclarationAccepted = accepted
		return nil
	}

	s, _ := textValue(props.Value)
	switch props.Field {
	case FieldPolicyType:
		// The form's plan dropdown keeps the wizard where it is.
		if s == "" {
			plancatalog.ClearPlan(p)
			return nil
		}
		plan, _ := t.Catalog.Lookup(model.PlanKey(s))
		plancatalog.ApplyPlan(p, plan, true)
	case FieldPolicyPeriod:
		p.PolicyPeriod = s
	case FieldProposerName:
		p.ProposerName = s
	case FieldMobileNumber:
		p.MobileNumber = s
	case FieldVehicleRegNumber:
		p.VehicleRegNumber = s
	case FieldVehicleValueINR:
		p.VehicleValueINR = s
	}
	return nil
}

// textValue reads a JSON string (or null) and trims it.
func textValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
