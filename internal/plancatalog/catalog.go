package plancatalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"proposal-engine/internal/model"
)

//go:embed plans.yaml
var embeddedPlans []byte

// DefaultVehicleValueThreshold is ₹15,00,000.
const DefaultVehicleValueThreshold = 1_500_000

// ValueBand says on which side of the vehicle value threshold a plan is meant to sit.
type ValueBand string

const (
	BandBelow ValueBand = "below"
	BandAbove ValueBand = "above"
)

var (
	ErrEmptyCatalog = errors.New("plancatalog: no plans defined")
	ErrUnknownPlan  = errors.New("plancatalog: unknown plan")
)

type Coverage struct {
	Coverage   string `yaml:"coverage" json:"coverage"`
	What       string `yaml:"what" json:"what"`
	Limit      string `yaml:"limit" json:"limit"`
	Deductible string `yaml:"deductible" json:"deductible"`
}

type Plan struct {
	Key                model.PlanKey `yaml:"key" json:"key"`
	PolicyName         string        `yaml:"policy_name" json:"policyName"`
	DefaultPeriod      string        `yaml:"default_period" json:"defaultPeriod"`
	CoveredVehicleRule string        `yaml:"covered_vehicle_rule" json:"coveredVehicleRule"`
	ValueBand          ValueBand     `yaml:"value_band" json:"valueBand"`
	PremiumINR         int64         `yaml:"premium_inr" json:"premiumINR"`
	CoveragePackage    string        `yaml:"coverage_package" json:"coveragePackage"`
	Coverages          []Coverage    `yaml:"coverages" json:"coverages"`
	Conditions         []string      `yaml:"conditions" json:"conditions"`
	Exclusions         []string      `yaml:"exclusions" json:"exclusions"`
	Claims             string        `yaml:"claims" json:"claims"`
}

type catalogFile struct {
	VehicleValueThreshold float64 `yaml:"vehicle_value_threshold"`
	Plans                 []Plan  `yaml:"plans"`
}

// Catalog is a read-only registry of plans. Safe for concurrent use once built.
type Catalog struct {
	threshold float64
	order     []model.PlanKey
	plans     map[model.PlanKey]Plan
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedPlans)
		if err != nil {
			panic(fmt.Sprintf("plancatalog: embedded plans.yaml: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog from a YAML file so plans can be changed without a rebuild.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plancatalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("plancatalog: decode: %w", err)
	}
	return New(f.VehicleValueThreshold, f.Plans)
}

// New validates plans and builds a catalog. A zero threshold means the default.
func New(threshold float64, plans []Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}
	if threshold <= 0 {
		threshold = DefaultVehicleValueThreshold
	}
	c := &Catalog{
		threshold: threshold,
		order:     make([]model.PlanKey, 0, len(plans)),
		plans:     make(map[model.PlanKey]Plan, len(plans)),
	}
	for _, p := range plans {
		if p.Key == model.PlanUnset {
			return nil, fmt.Errorf("plancatalog: plan without key")
		}
		if _, dup := c.plans[p.Key]; dup {
			return nil, fmt.Errorf("plancatalog: duplicate plan %s", p.Key)
		}
		if p.ValueBand != BandBelow && p.ValueBand != BandAbove {
			return nil, fmt.Errorf("plancatalog: plan %s has invalid value_band %q", p.Key, p.ValueBand)
		}
		if p.PremiumINR <= 0 || p.CoveragePackage == "" {
			return nil, fmt.Errorf("plancatalog: plan %s needs a premium and a coverage package", p.Key)
		}
		c.plans[p.Key] = p
		c.order = append(c.order, p.Key)
	}
	return c, nil
}

// Lookup returns the plan for key. Not found means "no plan selected".
func (c *Catalog) Lookup(key model.PlanKey) (Plan, bool) {
	p, ok := c.plans[key]
	return p, ok
}

// Keys returns plan keys in catalog order.
func (c *Catalog) Keys() []model.PlanKey {
	out := make([]model.PlanKey, len(c.order))
	copy(out, c.order)
	return out
}

// Plans returns every plan in catalog order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.plans[k])
	}
	return out
}

// VehicleValueThreshold is the eligibility boundary shared by all plans.
func (c *Catalog) VehicleValueThreshold() float64 {
	return c.threshold
}

// Alternative returns the first plan sitting in the opposite value band, used to
// suggest a switch when the vehicle value does not fit the chosen plan.
func (c *Catalog) Alternative(key model.PlanKey) (Plan, bool) {
	p, ok := c.plans[key]
	if !ok {
		return Plan{}, false
	}
	for _, k := range c.order {
		if other := c.plans[k]; other.ValueBand != p.ValueBand {
			return other, true
		}
	}
	return Plan{}, false
}

// ApplyPlan writes the plan and its derived fields onto the proposal. The period is
// replaced when resetPeriod is set, otherwise only filled in when blank.
func ApplyPlan(p *model.Proposal, plan Plan, resetPeriod bool) {
	p.PolicyType = plan.Key
	p.CoveragePackage = plan.CoveragePackage
	p.AnnualPremiumINR = plan.PremiumINR
	if resetPeriod || p.PolicyPeriod == "" {
		p.PolicyPeriod = plan.DefaultPeriod
	}
}

// ClearPlan unselects the plan and blanks the derived fields.
func ClearPlan(p *model.Proposal) {
	p.PolicyType = model.PlanUnset
	p.CoveragePackage = ""
	p.AnnualPremiumINR = 0
}

// Derive recomputes the coverage package and premium from the selected plan. An
// unknown plan key clears the selection. The period is left to the user.
func (c *Catalog) Derive(p *model.Proposal) {
	if p.PolicyType == model.PlanUnset {
		ClearPlan(p)
		return
	}
	plan, ok := c.Lookup(p.PolicyType)
	if !ok {
		ClearPlan(p)
		return
	}
	p.CoveragePackage = plan.CoveragePackage
	p.AnnualPremiumINR = plan.PremiumINR
}
