// Package views renders the portal, agent and pdf views of a policy record as
// plain text, along with the agent reply draft and the reviewer hand-off.
package views

import (
	"fmt"
	"strings"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/validation"
)

const (
	dash       = model.NeverStamped
	disclaimer = "For demonstration/testing only. Not a real contract of insurance."
)

// HistoryLimit is how many history entries the views show.
const HistoryLimit = 10

// Render returns the text of one view.
func Render(view model.ViewName, rec *model.PolicyRecord, cat *plancatalog.Catalog) string {
	switch view {
	case model.ViewAgent:
		return AgentSnapshot(rec, cat)
	case model.ViewPDF:
		return PolicyDocument(rec, cat)
	default:
		return PortalSummary(rec, cat)
	}
}

func orDash(s string) string {
	if s == "" {
		return dash
	}
	return s
}

func premium(n int64) string {
	if n == 0 {
		return dash
	}
	return "₹" + validation.FormatINR(n)
}

// PolicyDocument is the generated policy wording for the selected plan.
func PolicyDocument(rec *model.PolicyRecord, cat *plancatalog.Catalog) string {
	plan, ok := cat.Lookup(rec.Proposal.PolicyType)
	if !ok {
		return "Select Silver or Gold to view policy details\n\n" +
			"Choose a plan in Step 2 to see coverages, conditions, exclusions, and claim instructions.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", plan.PolicyName)
	fmt.Fprintf(&b, "%s • %s • Premium ₹%s (demo)\n\n",
		plan.DefaultPeriod, plan.CoveredVehicleRule, validation.FormatINR(plan.PremiumINR))

	b.WriteString("Coverage | What it pays for | Limit | Deductible\n")
	for _, c := range plan.Coverages {
		fmt.Fprintf(&b, "%s | %s | %s | %s\n", c.Coverage, c.What, c.Limit, c.Deductible)
	}

	writeList(&b, "Key conditions (simplified)", plan.Conditions)
	writeList(&b, "Common exclusions (examples)", plan.Exclusions)
	fmt.Fprintf(&b, "\nHow to file a claim\n%s\n\n%s\n", plan.Claims, disclaimer)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

// PortalSummary is the customer's plain-English view of the policy.
func PortalSummary(rec *model.PolicyRecord, cat *plancatalog.Catalog) string {
	p := rec.Proposal
	var b strings.Builder
	fmt.Fprintf(&b, "Proposer: %s\n", orDash(p.ProposerName))
	fmt.Fprintf(&b, "Mobile: %s\n", orDash(p.MobileNumber))
	fmt.Fprintf(&b, "Vehicle registration: %s\n", orDash(p.VehicleRegNumber))
	fmt.Fprintf(&b, "Vehicle value: %s\n\n", vehicleValue(p.VehicleValueINR))
	fmt.Fprintf(&b, "Plan: %s (%s)\n", orDash(string(p.PolicyType)), orDash(p.PolicyPeriod))
	fmt.Fprintf(&b, "Coverage package: %s\n", orDash(p.CoveragePackage))
	fmt.Fprintf(&b, "Premium: %s\n", premium(p.AnnualPremiumINR))

	if plan, ok := cat.Lookup(p.PolicyType); ok {
		b.WriteString("\nCoverages included:\n")
		for _, c := range plan.Coverages {
			fmt.Fprintf(&b, "  - %s — deductible %s\n", c.Coverage, c.Deductible)
		}
		fmt.Fprintf(&b, "%s\n", plan.Claims)
	} else {
		b.WriteString("\nChoose Silver or Gold to see included coverages.\n")
	}
	b.WriteString("\nThis summary should match Portal, Agent and PDF views to build trust.\n")
	return b.String()
}

func vehicleValue(raw string) string {
	if raw == "" {
		return dash
	}
	return validation.FormatVehicleValue(raw)
}

// AgentSnapshot is what a support agent sees for the customer.
func AgentSnapshot(rec *model.PolicyRecord, cat *plancatalog.Catalog) string {
	p := rec.Proposal
	var b strings.Builder
	if consistency.ComputeSyncStatus(rec) == model.SyncOK {
		b.WriteString("[SYNC OK] Agent is viewing the latest version.\n\n")
	} else {
		b.WriteString("[SYNC WARNING] Agent view may be stale — reconcile recommended.\n\n")
	}
	fmt.Fprintf(&b, "Customer: %s\n", orDash(p.ProposerName))
	fmt.Fprintf(&b, "Mobile: %s\n", orDash(p.MobileNumber))
	fmt.Fprintf(&b, "Vehicle: %s • value %s\n", orDash(p.VehicleRegNumber), vehicleValue(p.VehicleValueINR))
	fmt.Fprintf(&b, "Plan: %s • %s • Premium %s\n",
		orDash(string(p.PolicyType)), orDash(p.PolicyPeriod), premium(p.AnnualPremiumINR))

	if plan, ok := cat.Lookup(p.PolicyType); ok {
		b.WriteString("\nIncluded coverages:\n")
		for _, c := range plan.Coverages {
			fmt.Fprintf(&b, "  - %s\n", c.Coverage)
		}
		fmt.Fprintf(&b, "%s\n", plan.Claims)
	}

	fmt.Fprintf(&b, "\nLikely fixes:\n")
	fmt.Fprintf(&b, "  - Confirm vehicle value aligns with plan eligibility (₹%s threshold)\n",
		validation.FormatINR(int64(cat.VehicleValueThreshold())))
	b.WriteString("  - Ensure Portal/Agent/PDF versions match before responding\n")
	b.WriteString("  - Use plain-English policy summary in customer replies\n")
	return b.String()
}

// AgentDraft is a ready-to-send reply for the support agent.
func AgentDraft(rec *model.PolicyRecord, cat *plancatalog.Catalog) string {
	p := rec.Proposal
	name := "there"
	if fields := strings.Fields(p.ProposerName); len(fields) > 0 {
		name = fields[0]
	}

	syncSentence := "I’ve confirmed your policy details are consistent across our systems."
	if consistency.ComputeSyncStatus(rec) != model.SyncOK {
		syncSentence = "I’m seeing a system mismatch and I’m reconciling it now so every view matches."
	}

	plan, hasPlan := cat.Lookup(p.PolicyType)
	policySentence := "I’m confirming your plan selection and premium now."
	if hasPlan {
		period := p.PolicyPeriod
		if period == "" {
			period = plan.DefaultPeriod
		}
		policySentence = fmt.Sprintf("You have the %s plan (%s) with premium ₹%s.",
			plan.PolicyName, period, validation.FormatINR(plan.PremiumINR))
	}

	vehicle := "• Vehicle: " + orDash(p.VehicleRegNumber)
	if p.VehicleValueINR != "" {
		vehicle += " (value " + vehicleValue(p.VehicleValueINR) + ")"
	}

	lines := []string{
		"Hi " + name + ",",
		"Thanks for reaching out — happy to help.",
		syncSentence,
		policySentence,
		"Quick summary:",
		vehicle,
		"• Coverage package: " + orDash(p.CoveragePackage),
	}
	if hasPlan {
		lines = append(lines, plan.Claims)
	}
	lines = append(lines,
		"If you need to update your mobile or vehicle registration, you can do it in “My Policy” and you’ll get instant confirmation.",
		"Best,",
		"ClearCover Support",
	)
	return strings.Join(lines, "\n")
}

// EscalationSummary is the hand-off note for a human reviewer.
func EscalationSummary(rec *model.PolicyRecord, reasons []string) string {
	request := "Change"
	if len(reasons) > 0 {
		request = strings.Join(reasons, " + ")
	}
	return fmt.Sprintf("Request: %s.\nLatest version: v%d.\nCustomer: %s.\nNotes: Please verify and confirm across systems.",
		request, rec.Version, orDash(rec.Proposal.ProposerName))
}

// HistoryLines formats the newest history entries, or a placeholder when empty.
func HistoryLines(rec *model.PolicyRecord) []string {
	if len(rec.History) == 0 {
		return []string{"No changes yet"}
	}
	n := min(len(rec.History), HistoryLimit)
	out := make([]string, 0, n)
	for _, h := range rec.History[:n] {
		line := fmt.Sprintf("%s • v%d • %s", h.Action, h.Version, h.At)
		if h.Note != "" {
			line += " — " + h.Note
		}
		out = append(out, line)
	}
	return out
}

// ViewStamps formats each view as "v<version> • <updatedAt>".
func ViewStamps(rec *model.PolicyRecord) map[model.ViewName]string {
	out := make(map[model.ViewName]string, len(model.AllViews))
	for _, name := range model.AllViews {
		v := rec.Views.Get(name)
		out[name] = fmt.Sprintf("v%d • %s", v.Version, orDash(v.UpdatedAt))
	}
	return out
}
