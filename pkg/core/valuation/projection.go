package valuation

import "fmt"

// ProjectCashFlows extrapolates a base cash flow over a horizon of years.
// Each year compounds from the previous year's value, not the original base:
//
//	value[i] = value[i-1] * (1 + rate[i])
//
// When fewer rates than years are supplied, the last rate is repeated to fill
// the remainder. The base may be negative.
func ProjectCashFlows(base float64, rates []float64, years int) ([]float64, error) {
	if years <= 0 {
		return nil, fmt.Errorf("projection horizon must be positive, got %d", years)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("at least one growth rate is required")
	}

	schedule := make([]float64, years)
	for i := range schedule {
		if i < len(rates) {
			schedule[i] = rates[i]
		} else {
			schedule[i] = rates[len(rates)-1]
		}
	}

	projected := make([]float64, years)
	current := base
	for i, rate := range schedule {
		current = current * (1 + rate)
		projected[i] = current
	}
	return projected, nil
}

// ProjectCashFlowsFlat broadcasts a single growth rate across the horizon.
func ProjectCashFlowsFlat(base, rate float64, years int) ([]float64, error) {
	return ProjectCashFlows(base, []float64{rate}, years)
}
