package model

// InsuranceType is what the proposer wants to insure.
type InsuranceType string

const (
	InsuranceUnset      InsuranceType = ""
	InsuranceAuto       InsuranceType = "auto"
	InsuranceTwoWheeler InsuranceType = "twoWheeler"
)

// Valid reports whether t is one of the selectable insurance types.
func (t InsuranceType) Valid() bool {
	return t == InsuranceAuto || t == InsuranceTwoWheeler
}

// PlanKey identifies a plan in the catalog.
type PlanKey string

const (
	PlanUnset  PlanKey = ""
	PlanSilver PlanKey = "Silver"
	PlanGold   PlanKey = "Gold"
)

// ViewName names one of the three downstream views of a policy.
type ViewName string

const (
	ViewPortal ViewName = "portal"
	ViewAgent  ViewName = "agent"
	ViewPDF    ViewName = "pdf"
)

// AllViews lists the views in display order.
var AllViews = []ViewName{ViewPortal, ViewAgent, ViewPDF}

// Action is the kind of a history entry.
type Action string

const (
	ActionPublish           Action = "Publish"
	ActionReconcile         Action = "Reconcile"
	ActionSelfServiceUpdate Action = "SelfServiceUpdate"
)

// NeverStamped is the UpdatedAt value of a view that was never published to.
const NeverStamped = "—"

type Proposal struct {
	PolicyType          PlanKey `json:"policyType"`
	PolicyPeriod        string  `json:"policyPeriod"`
	ProposerName        string  `json:"proposerName"`
	MobileNumber        string  `json:"mobileNumber"`
	VehicleRegNumber    string  `json:"vehicleRegNumber"`
	VehicleValueINR     string  `json:"vehicleValueINR"`
	CoveragePackage     string  `json:"coveragePackage"`  // derived from PolicyType
	AnnualPremiumINR    int64   `json:"annualPremiumINR"` // derived from PolicyType
	DeclarationAccepted bool    `json:"declarationAccepted"`
}

type ViewState struct {
	Version   int    `json:"version"`
	UpdatedAt string `json:"updatedAt"`
}

// Views holds exactly one state per downstream view.
type Views struct {
	Portal ViewState `json:"portal"`
	Agent  ViewState `json:"agent"`
	PDF    ViewState `json:"pdf"`
}

// Get returns the state of the named view.
func (v *Views) Get(name ViewName) ViewState {
	switch name {
	case ViewAgent:
		return v.Agent
	case ViewPDF:
		return v.PDF
	default:
		return v.Portal
	}
}

// Set replaces the state of the named view.
func (v *Views) Set(name ViewName, s ViewState) {
	switch name {
	case ViewAgent:
		v.Agent = s
	case ViewPDF:
		v.PDF = s
	default:
		v.Portal = s
	}
}

// SetAll stamps every view with the same state.
func (v *Views) SetAll(s ViewState) {
	v.Portal = s
	v.Agent = s
	v.PDF = s
}

type HistoryEntry struct {
	At      string `json:"at"`
	Version int    `json:"version"`
	Action  Action `json:"action"`
	Note    string `json:"note"`
}

// PolicyRecord is the single aggregate shared by the portal, agent and pdf views.
// Version is the authoritative revision; History is newest first.
type PolicyRecord struct {
	Version       int            `json:"version"`
	InsuranceType InsuranceType  `json:"insuranceType"`
	Proposal      Proposal       `json:"proposal"`
	Views         Views          `json:"systems"`
	History       []HistoryEntry `json:"history"`
}

// NewDefault returns a fresh record: version 0, nothing selected, empty history.
func NewDefault() *PolicyRecord {
	never := ViewState{Version: 0, UpdatedAt: NeverStamped}
	return &PolicyRecord{
		Views:   Views{Portal: never, Agent: never, PDF: never},
		History: []HistoryEntry{},
	}
}

// PrependHistory records entry as the newest history item.
func (r *PolicyRecord) PrependHistory(entry HistoryEntry) {
	r.History = append([]HistoryEntry{entry}, r.History...)
}

// Clone returns a deep copy of the record.
func (r *PolicyRecord) Clone() *PolicyRecord {
	out := *r
	out.History = make([]HistoryEntry, len(r.History))
	copy(out.History, r.History)
	return &out
}
