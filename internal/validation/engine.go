// Package validation computes the outstanding issues of a policy record.
//
// Evaluate is pure: the same record and catalog always produce the same ordered
// issue list. Order is display priority. Callers filter by severity.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"proposal-engine/internal/consistency"
	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

const (
	minMobileDigits = 10
	maxMobileDigits = 15
)

// Evaluate returns every blocking and advisory issue for rec, in rule order.
func Evaluate(rec *model.PolicyRecord, cat *plancatalog.Catalog) []model.Issue {
	issues := make([]model.Issue, 0, 4)
	add := func(sev model.Severity, code model.IssueCode, msg string) {
		issues = append(issues, model.Issue{Severity: sev, Code: code, Message: msg})
	}
	p := rec.Proposal

	if !rec.InsuranceType.Valid() {
		add(model.SeverityBlocking, model.CodeMissingType, "Select what you want to insure (Auto or Two-wheeler).")
	}
	if p.PolicyType == model.PlanUnset {
		add(model.SeverityBlocking, model.CodeMissingPolicyType, "Policy Type is missing.")
	}
	if p.PolicyPeriod == "" {
		add(model.SeverityBlocking, model.CodeMissingPolicyPeriod, "Policy Period is missing.")
	}
	if p.ProposerName == "" {
		add(model.SeverityBlocking, model.CodeMissingName, "Proposer Name is missing.")
	}

	if p.MobileNumber == "" {
		add(model.SeverityBlocking, model.CodeMissingMobile, "Mobile Number is missing.")
	} else if n := len(MobileDigits(p.MobileNumber)); n < minMobileDigits || n > maxMobileDigits {
		add(model.SeverityAdvisory, model.CodeMobileFormat, "Mobile number format looks off. Use digits only.")
	}

	if p.VehicleRegNumber == "" {
		add(model.SeverityBlocking, model.CodeMissingReg, "Vehicle Registration Number is missing.")
	}

	if p.VehicleValueINR == "" {
		add(model.SeverityAdvisory, model.CodeMissingValue, "Vehicle Value (INR) is missing.")
	} else if v, ok := ParseVehicleValue(p.VehicleValueINR); !ok {
		add(model.SeverityBlocking, model.CodeBadValue, "Vehicle Value must be a positive number.")
	} else if issue, found := eligibilityIssue(cat, p.PolicyType, v); found {
		issues = append(issues, issue)
	}

	if p.PolicyType != model.PlanUnset && (p.CoveragePackage == "" || p.AnnualPremiumINR == 0) {
		add(model.SeverityAdvisory, model.CodeCalcMissing, "Coverage package / premium not calculated yet. Re-select the plan.")
	}

	if !p.DeclarationAccepted {
		add(model.SeverityBlocking, model.CodeMissingDeclaration, "Declaration Accepted must be checked to continue.")
	}

	if consistency.ComputeSyncStatus(rec) != model.SyncOK {
		add(model.SeverityAdvisory, model.CodeSync, "System views are out of sync. Reconcile to restore consistency.")
	}

	return issues
}

// eligibilityIssue compares a parsed vehicle value with the band of the selected plan.
func eligibilityIssue(cat *plancatalog.Catalog, key model.PlanKey, value float64) (model.Issue, bool) {
	plan, ok := cat.Lookup(key)
	if !ok {
		return model.Issue{}, false
	}
	threshold := cat.VehicleValueThreshold()
	suggested := "another plan"
	if alt, ok := cat.Alternative(key); ok {
		suggested = string(alt.Key)
	}

	switch {
	case plan.ValueBand == plancatalog.BandBelow && value >= threshold:
		return model.Issue{
			Severity: model.SeverityAdvisory,
			Code:     model.CodeValueMismatchSilver,
			Message: fmt.Sprintf("Vehicle value suggests %s eligibility (above ₹%s). Consider switching to %s or verifying value.",
				suggested, FormatINR(int64(threshold)), suggested),
		}, true
	case plan.ValueBand == plancatalog.BandAbove && value < threshold:
		return model.Issue{
			Severity: model.SeverityAdvisory,
			Code:     model.CodeValueMismatchGold,
			Message: fmt.Sprintf("Vehicle value suggests %s eligibility (below ₹%s). Consider switching to %s or verifying value.",
				suggested, FormatINR(int64(threshold)), suggested),
		}, true
	}
	return model.Issue{}, false
}

// ParseVehicleValue reads a rupee amount, ignoring thousands separators. Only finite
// positive values are accepted.
func ParseVehicleValue(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// MobileDigits strips everything but ASCII digits.
func MobileDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Blocking returns only the blocking issues.
func Blocking(issues []model.Issue) []model.Issue {
	var out []model.Issue
	for _, i := range issues {
		if i.Severity == model.SeverityBlocking {
			out = append(out, i)
		}
	}
	return out
}

// HasBlocking reports whether any issue is blocking.
func HasBlocking(issues []model.Issue) bool {
	for _, i := range issues {
		if i.Severity == model.SeverityBlocking {
			return true
		}
	}
	return false
}

// NeedsHumanReview reports whether an eligibility mismatch must go to a reviewer
// instead of being resolved automatically.
func NeedsHumanReview(issues []model.Issue) bool {
	for _, i := range issues {
		if i.Code.IsValueMismatch() {
			return true
		}
	}
	return false
}

// Codes lists the issue codes in order.
func Codes(issues []model.Issue) []model.IssueCode {
	out := make([]model.IssueCode, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}
