package model

// Severity classifies an Issue. Blocking issues gate navigation and publishing.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// IssueCode identifies a validation rule.
type IssueCode string

const (
	CodeMissingType         IssueCode = "missing_type"
	CodeMissingPolicyType   IssueCode = "missing_policyType"
	CodeMissingPolicyPeriod IssueCode = "missing_policyPeriod"
	CodeMissingName         IssueCode = "missing_name"
	CodeMissingMobile       IssueCode = "missing_mobile"
	CodeMobileFormat        IssueCode = "mobile_format"
	CodeMissingReg          IssueCode = "missing_reg"
	CodeMissingValue        IssueCode = "missing_value"
	CodeBadValue            IssueCode = "bad_value"
	CodeValueMismatchSilver IssueCode = "value_mismatch_silver"
	CodeValueMismatchGold   IssueCode = "value_mismatch_gold"
	CodeCalcMissing         IssueCode = "calc_missing"
	CodeMissingDeclaration  IssueCode = "missing_declaration"
	CodeSync                IssueCode = "sync"
)

// IsValueMismatch reports whether the code is one of the plan eligibility advisories.
func (c IssueCode) IsValueMismatch() bool {
	return c == CodeValueMismatchSilver || c == CodeValueMismatchGold
}

type Issue struct {
	Severity Severity  `json:"severity"`
	Code     IssueCode `json:"code"`
	Message  string    `json:"message"`
}

// SyncStatus is the aggregate agreement of the three views with the record version.
type SyncStatus string

const (
	SyncOK       SyncStatus = "OK"
	SyncPartial  SyncStatus = "PARTIAL"
	SyncMismatch SyncStatus = "MISMATCH"
)

// CommandMessage is a rejection or notice attached to a processed command.
type CommandMessage struct {
	ID      int    `json:"id"`
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
)
