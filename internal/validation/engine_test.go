package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

func validGold() *model.PolicyRecord {
	rec := model.NewDefault()
	rec.InsuranceType = model.InsuranceAuto
	gold, _ := plancatalog.Default().Lookup(model.PlanGold)
	plancatalog.ApplyPlan(&rec.Proposal, gold, true)
	rec.Proposal.ProposerName = "Ankit Rajesh Patel"
	rec.Proposal.MobileNumber = "9876543210"
	rec.Proposal.VehicleRegNumber = "MH02AB1234"
	rec.Proposal.VehicleValueINR = "2000000"
	rec.Proposal.DeclarationAccepted = true
	return rec
}

func TestEvaluateFreshRecord(t *testing.T) {
	issues := Evaluate(model.NewDefault(), plancatalog.Default())

	assert.Equal(t, []model.IssueCode{
		model.CodeMissingType,
		model.CodeMissingPolicyType,
		model.CodeMissingPolicyPeriod,
		model.CodeMissingName,
		model.CodeMissingMobile,
		model.CodeMissingReg,
		model.CodeMissingValue,
		model.CodeMissingDeclaration,
	}, Codes(issues))
	assert.Len(t, Blocking(issues), 7)
	assert.Equal(t, model.SeverityAdvisory, issues[6].Severity)
	assert.True(t, HasBlocking(issues))
}

func TestEvaluateValidGoldHasNoIssues(t *testing.T) {
	issues := Evaluate(validGold(), plancatalog.Default())
	assert.Empty(t, issues)
	assert.False(t, HasBlocking(issues))
}

func TestEvaluateSilverValueMismatch(t *testing.T) {
	rec := model.NewDefault()
	rec.InsuranceType = model.InsuranceAuto
	rec.Proposal.PolicyType = model.PlanSilver
	rec.Proposal.VehicleValueINR = "2000000"

	issues := Evaluate(rec, plancatalog.Default())

	var found *model.Issue
	for i := range issues {
		if issues[i].Code == model.CodeValueMismatchSilver {
			found = &issues[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, model.SeverityAdvisory, found.Severity)
	assert.Contains(t, found.Message, "Gold")
	assert.Contains(t, found.Message, "15,00,000")
	assert.True(t, NeedsHumanReview(issues))
}

func TestEvaluateVehicleValueRules(t *testing.T) {
	tests := []struct {
		name  string
		plan  model.PlanKey
		value string
		want  model.IssueCode
	}{
		{"silver at threshold", model.PlanSilver, "1500000", model.CodeValueMismatchSilver},
		{"silver with separators", model.PlanSilver, "15,00,000", model.CodeValueMismatchSilver},
		{"gold below threshold", model.PlanGold, "1499999", model.CodeValueMismatchGold},
		{"zero", model.PlanGold, "0", model.CodeBadValue},
		{"negative", model.PlanSilver, "-5", model.CodeBadValue},
		{"text", model.PlanSilver, "lots", model.CodeBadValue},
		{"infinite", model.PlanSilver, "Inf", model.CodeBadValue},
		{"empty", model.PlanGold, "", model.CodeMissingValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validGold()
			rec.Proposal.PolicyType = tt.plan
			rec.Proposal.VehicleValueINR = tt.value
			assert.Equal(t, []model.IssueCode{tt.want}, Codes(Evaluate(rec, plancatalog.Default())))
		})
	}
}

func TestEvaluateNoEligibilityCheckWithoutPlan(t *testing.T) {
	rec := validGold()
	plancatalog.ClearPlan(&rec.Proposal)
	rec.Proposal.VehicleValueINR = "100"

	codes := Codes(Evaluate(rec, plancatalog.Default()))
	assert.Equal(t, []model.IssueCode{model.CodeMissingPolicyType}, codes)
}

func TestEvaluateMobileFormat(t *testing.T) {
	for _, mobile := range []string{"12345", "1234567890123456", "abc"} {
		rec := validGold()
		rec.Proposal.MobileNumber = mobile
		issues := Evaluate(rec, plancatalog.Default())
		require.Len(t, issues, 1, mobile)
		assert.Equal(t, model.CodeMobileFormat, issues[0].Code)
		assert.Equal(t, model.SeverityAdvisory, issues[0].Severity)
	}
	for _, mobile := range []string{"98765 43210", "+91-98765-43210", "123456789012345"} {
		rec := validGold()
		rec.Proposal.MobileNumber = mobile
		assert.Empty(t, Evaluate(rec, plancatalog.Default()), mobile)
	}
}

func TestEvaluateCalcMissing(t *testing.T) {
	rec := validGold()
	rec.Proposal.AnnualPremiumINR = 0

	issues := Evaluate(rec, plancatalog.Default())
	assert.Equal(t, []model.IssueCode{model.CodeCalcMissing}, Codes(issues))
	assert.False(t, HasBlocking(issues))
}

func TestEvaluateSyncAdvisory(t *testing.T) {
	rec := validGold()
	rec.Version = 1

	issues := Evaluate(rec, plancatalog.Default())
	assert.Equal(t, []model.IssueCode{model.CodeSync}, Codes(issues))
	assert.Equal(t, model.SeverityAdvisory, issues[0].Severity)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	rec := validGold()
	rec.Proposal.MobileNumber = "1"
	before := rec.Clone()

	first := Evaluate(rec, plancatalog.Default())
	second := Evaluate(rec, plancatalog.Default())

	assert.Equal(t, first, second)
	assert.Equal(t, before, rec)
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "0", FormatINR(0))
	assert.Equal(t, "999", FormatINR(999))
	assert.Equal(t, "12,000", FormatINR(12000))
	assert.Equal(t, "9,00,000", FormatINR(900000))
	assert.Equal(t, "15,00,000", FormatINR(1500000))
	assert.Equal(t, "1,23,45,678", FormatINR(12345678))
	assert.Equal(t, "-12,000", FormatINR(-12000))
}

func TestVehicleValueHint(t *testing.T) {
	cat := plancatalog.Default()

	assert.Empty(t, VehicleValueHint(model.Proposal{}, cat))
	assert.Equal(t, "Enter a positive number (example: 900000).",
		VehicleValueHint(model.Proposal{VehicleValueINR: "x"}, cat))
	assert.Equal(t, "Choose a plan to see a recommendation.",
		VehicleValueHint(model.Proposal{VehicleValueINR: "900000"}, cat))
	assert.Equal(t, "Vehicle value looks consistent with the selected plan.",
		VehicleValueHint(model.Proposal{PolicyType: model.PlanSilver, VehicleValueINR: "900000"}, cat))
	assert.Contains(t,
		VehicleValueHint(model.Proposal{PolicyType: model.PlanGold, VehicleValueINR: "900000"}, cat),
		"closer to Silver eligibility (below ₹15,00,000)")
}
