package views

import (
	"strings"

	"proposal-engine/internal/model"
)

// QualityCount is one bar of the data quality breakdown.
type QualityCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QualityBreakdown groups issues into the categories the quality dashboard charts.
func QualityBreakdown(issues []model.Issue) []QualityCount {
	var required, declaration, eligibility, mobile, sync int
	for _, is := range issues {
		if is.Severity == model.SeverityBlocking && is.Code != model.CodeSync {
			required++
		}
		switch {
		case is.Code == model.CodeMissingDeclaration:
			declaration = 1
		case is.Code.IsValueMismatch():
			eligibility++
		case is.Code == model.CodeMobileFormat:
			mobile = 1
		case is.Code == model.CodeSync:
			sync = 1
		}
	}
	return []QualityCount{
		{Key: "required", Label: "Missing required", Count: required},
		{Key: "declaration", Label: "Declaration", Count: declaration},
		{Key: "eligibility", Label: "Eligibility", Count: eligibility},
		{Key: "mobile", Label: "Mobile format", Count: mobile},
		{Key: "sync", Label: "Sync", Count: sync},
	}
}

// Bar draws a horizontal bar scaled against max, at most width cells.
func Bar(count, max, width int) string {
	if max < 2 {
		max = 2
	}
	n := count * width / max
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}
