package valuation

import "fmt"

// TerminalValue capitalizes the final projection-year cash flow into a
// Gordon-growth perpetuity:
//
//	TV = finalCF * (1 + g) / (WACC - g)
//
// The perpetuity is undefined or divergent when WACC <= g, so that regime is
// a hard precondition failure, not a warning: the caller must reduce g or
// raise WACC before retrying.
func TerminalValue(finalCashFlow, perpetualGrowth, wacc float64) (float64, error) {
	if wacc <= perpetualGrowth {
		return 0, &InvalidModelInputError{
			Reason: fmt.Sprintf("WACC (%.2f%%) must exceed perpetual growth rate (%.2f%%)",
				wacc*100, perpetualGrowth*100),
		}
	}
	return finalCashFlow * (1 + perpetualGrowth) / (wacc - perpetualGrowth), nil
}
