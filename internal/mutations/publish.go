package mutations

import (
	"strings"

	"proposal-engine/internal/model"
	"proposal-engine/internal/validation"
	"proposal-engine/internal/views"
)

const (
	defaultPublishNote = "Published from review"
	selfServiceNote    = "Self-service update"
)

type publishProps struct {
	Note string `json:"note"`
}

// PublishHandler releases a new version to every view. Records with blocking
// issues are refused and the version stays where it is.
type PublishHandler struct{}

func (h *PublishHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props publishProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}
	if blocking := validation.Blocking(t.Issues()); len(blocking) > 0 {
		return []model.CommandMessage{publishRejected(blocking)}
	}
	return nil
}

func (h *PublishHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props publishProps
	_ = decodeProps(cmd, &props)
	note := strings.TrimSpace(props.Note)
	if note == "" {
		note = defaultPublishNote
	}
	t.Tracker.Publish(t.Record, note)
	return escalationNotice(t.Issues())
}

type selfServiceProps struct {
	MobileNumber     string `json:"mobile_number"`
	VehicleRegNumber string `json:"vehicle_reg_number"`
}

func (p selfServiceProps) trimmed() selfServiceProps {
	return selfServiceProps{
		MobileNumber:     strings.TrimSpace(p.MobileNumber),
		VehicleRegNumber: strings.TrimSpace(p.VehicleRegNumber),
	}
}

func (p selfServiceProps) applyTo(rec *model.PolicyRecord) {
	if p.MobileNumber != "" {
		rec.Proposal.MobileNumber = p.MobileNumber
	}
	if p.VehicleRegNumber != "" {
		rec.Proposal.VehicleRegNumber = p.VehicleRegNumber
	}
}

// SelfServiceUpdateHandler lets the customer change mobile number or vehicle
// registration from "My Policy". The edit is trusted and published at once.
type SelfServiceUpdateHandler struct{}

func (h *SelfServiceUpdateHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selfServiceProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}
	props = props.trimmed()
	if props.MobileNumber == "" && props.VehicleRegNumber == "" {
		return []model.CommandMessage{critical("EMPTY_UPDATE", "Enter a new mobile number or vehicle registration.")}
	}

	preview := t.Record.Clone()
	props.applyTo(preview)
	if blocking := validation.Blocking(validation.Evaluate(preview, t.Catalog)); len(blocking) > 0 {
		return []model.CommandMessage{publishRejected(blocking)}
	}
	return nil
}

func (h *SelfServiceUpdateHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selfServiceProps
	_ = decodeProps(cmd, &props)
	props.trimmed().applyTo(t.Record)

	t.Tracker.PublishSelfService(t.Record, selfServiceNote)
	return escalationNotice(t.Issues())
}

// EscalateHandler prepares a hand-off summary for a human reviewer. The record
// is not changed.
type EscalateHandler struct{}

func (h *EscalateHandler) Validate(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selfServiceProps
	if err := decodeProps(cmd, &props); err != nil {
		return invalidProps(err)
	}
	return nil
}

func (h *EscalateHandler) Apply(t *Target, cmd *model.Command) []model.CommandMessage {
	var props selfServiceProps
	_ = decodeProps(cmd, &props)
	props = props.trimmed()

	var reasons []string
	if props.MobileNumber != "" {
		reasons = append(reasons, "Mobile update")
	}
	if props.VehicleRegNumber != "" {
		reasons = append(reasons, "Vehicle registration update")
	}
	t.Output = views.EscalationSummary(t.Record, reasons)
	return nil
}

func publishRejected(blocking []model.Issue) model.CommandMessage {
	codes := make([]string, len(blocking))
	for i, is := range blocking {
		codes[i] = string(is.Code)
	}
	return critical("PUBLISH_REJECTED", "Resolve blocking issues before publishing: "+strings.Join(codes, ", "))
}

// escalationNotice flags a published record whose vehicle value does not fit the
// plan. Such records always go to a reviewer.
func escalationNotice(issues []model.Issue) []model.CommandMessage {
	if !validation.NeedsHumanReview(issues) {
		return nil
	}
	return []model.CommandMessage{warning("NEEDS_HUMAN_REVIEW",
		"Vehicle value does not match plan eligibility. Route to a reviewer instead of resolving automatically.")}
}
