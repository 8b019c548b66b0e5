// Package valuation implements the quantitative models behind the analysis
// pipeline: discounted cash flow, customer-based corporate valuation, WACC
// and the parameter estimators that feed them.
package valuation

import "fmt"

// DataUnavailableError reports that a required market-data resource could not
// be fetched for a ticker. It wraps the transport error when one exists.
type DataUnavailableError struct {
	Ticker   string
	Resource string
	Err      error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s unavailable: %v", e.Ticker, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s: %s unavailable", e.Ticker, e.Resource)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// InvalidModelInputError reports inputs that put a model into a mathematically
// undefined regime, such as WACC at or below the perpetual growth rate.
type InvalidModelInputError struct {
	Reason string
}

func (e *InvalidModelInputError) Error() string {
	return "invalid model input: " + e.Reason
}

// MissingInputError reports a required caller-supplied field that was absent
// and could not be derived from fetched data.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return "missing required input: " + e.Field
}
