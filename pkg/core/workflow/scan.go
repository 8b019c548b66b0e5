package workflow

import (
	"context"
	"strings"

	"marketflow/pkg/core/valuation"
)

// ScanResult is the outcome of a batch DCF pass. A ticker appears in exactly
// one of the two maps.
type ScanResult struct {
	Results map[string]*valuation.DCFResult `json:"results"`
	Errors  map[string]error                `json:"-"`
}

// ScanTickers builds a DCF model for every ticker in turn. A failing ticker
// lands in the error map and never aborts the rest of the batch; only context
// cancellation stops the scan early.
func (o *Orchestrator) ScanTickers(ctx context.Context, tickers []string, opts valuation.DCFOptions) (*ScanResult, error) {
	out := &ScanResult{
		Results: make(map[string]*valuation.DCFResult, len(tickers)),
		Errors:  make(map[string]error),
	}

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}

		o.status("scan", "Valuing "+ticker)
		result, err := valuation.BuildDCFModel(ctx, o.deps.Market, ticker, opts)
		if err != nil {
			o.log.Warn().Err(err).Str("ticker", ticker).Msg("scan skipping ticker")
			out.Errors[ticker] = err
			continue
		}
		out.Results[ticker] = result
	}

	return out, nil
}
