package validation

import (
	"fmt"
	"strconv"

	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

// FormatINR groups digits the Indian way: last three, then pairs (15,00,000).
func FormatINR(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var grouped []byte
		for i, c := range []byte(head) {
			if i > 0 && (len(head)-i)%2 == 0 {
				grouped = append(grouped, ',')
			}
			grouped = append(grouped, c)
		}
		s = string(grouped) + "," + tail
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatVehicleValue renders the raw vehicle value field, or "—" when it is unusable.
func FormatVehicleValue(raw string) string {
	v, ok := ParseVehicleValue(raw)
	if !ok {
		return model.NeverStamped
	}
	return "₹" + FormatINR(int64(v))
}

// VehicleValueHint is the inline guidance shown under the vehicle value field.
// It returns "" when the field is empty.
func VehicleValueHint(p model.Proposal, cat *plancatalog.Catalog) string {
	if p.VehicleValueINR == "" {
		return ""
	}
	v, ok := ParseVehicleValue(p.VehicleValueINR)
	if !ok {
		return "Enter a positive number (example: 900000)."
	}
	if _, ok := cat.Lookup(p.PolicyType); !ok {
		return "Choose a plan to see a recommendation."
	}
	issue, mismatch := eligibilityIssue(cat, p.PolicyType, v)
	if !mismatch {
		return "Vehicle value looks consistent with the selected plan."
	}
	alt, _ := cat.Alternative(p.PolicyType)
	side := "above"
	if issue.Code == model.CodeValueMismatchGold {
		side = "below"
	}
	return fmt.Sprintf("This vehicle value looks closer to %s eligibility (%s ₹%s). Consider switching to %s.",
		alt.Key, side, FormatINR(int64(cat.VehicleValueThreshold())), alt.Key)
}
