package workflow

import (
	"context"
	"fmt"
	"strings"

	"marketflow/pkg/core/report"
	"marketflow/pkg/core/valuation"
)

// DCFAnalysisResult is the outcome of the one-shot DCF report workflow.
type DCFAnalysisResult struct {
	Ticker         string               `json:"ticker"`
	CompanyName    string               `json:"company_name"`
	IntrinsicValue float64              `json:"intrinsic_value"`
	CurrentPrice   float64              `json:"current_price"`
	Upside         *float64             `json:"upside_percentage"`
	Report         string               `json:"-"`
	ReportURL      string               `json:"report_url,omitempty"`
	DCF            *valuation.DCFResult `json:"dcf_result"`
}

// RunDCFAnalysis fetches statements, builds the DCF model, has the analyst
// write a thesis over it and assembles the markdown report. The report is
// uploaded to Drive when an uploader is configured; an upload failure is
// logged and leaves ReportURL empty rather than discarding the analysis.
func (o *Orchestrator) RunDCFAnalysis(ctx context.Context, ticker string, opts valuation.DCFOptions) (*DCFAnalysisResult, error) {
	ticker = strings.ToUpper(ticker)
	o.status("dcf", fmt.Sprintf("Starting DCF analysis for %s", ticker))

	o.status("dcf", "Fetching company profile")
	profile, err := o.deps.Market.Profile(ctx, ticker)
	if err != nil {
		return nil, &valuation.DataUnavailableError{Ticker: ticker, Resource: "profile", Err: err}
	}

	o.status("dcf", "Fetching income statements")
	incomes, err := o.deps.Market.IncomeStatements(ctx, ticker, "annual", 5)
	if err != nil {
		return nil, &valuation.DataUnavailableError{Ticker: ticker, Resource: "income statements", Err: err}
	}

	o.status("dcf", "Fetching earnings history")
	earnings, err := o.deps.Market.Earnings(ctx, ticker, 20)
	if err != nil {
		// Earnings only feed one report table; the valuation stands without.
		o.log.Warn().Err(err).Str("ticker", ticker).Msg("earnings history unavailable")
		earnings = nil
	}

	o.status("dcf", "Building DCF model")
	result, err := valuation.BuildDCFModel(ctx, o.deps.Market, ticker, opts)
	if err != nil {
		return nil, err
	}
	o.status("dcf", fmt.Sprintf("DCF complete: intrinsic value $%.2f", result.IntrinsicValue))

	analysis := ""
	if o.deps.Analyst != nil {
		o.status("dcf", "Running AI analysis")
		analysis, err = o.deps.Analyst.Analyze(ctx, result, profile)
		if err != nil {
			return nil, fmt.Errorf("dcf analysis for %s: %w", ticker, err)
		}
	}

	o.status("dcf", "Generating report")
	content := report.FormatDCFReport(ticker, result, analysis, profile, incomes, earnings)

	out := &DCFAnalysisResult{
		Ticker:         ticker,
		CompanyName:    result.CompanyName,
		IntrinsicValue: result.IntrinsicValue,
		CurrentPrice:   result.CurrentPrice,
		Upside:         result.Upside,
		Report:         content,
		DCF:            result,
	}

	if o.deps.Uploader != nil {
		title := fmt.Sprintf("DCF Analysis - %s (%s)", result.CompanyName, ticker)
		fileName := fmt.Sprintf("%s_dcf_analysis.md", strings.ToLower(ticker))
		upload, err := o.uploadMarkdown(ctx, fileName, title, content)
		if err != nil {
			o.log.Warn().Err(err).Str("ticker", ticker).Msg("report upload failed")
		} else {
			out.ReportURL = upload.URL
			o.status("dcf", fmt.Sprintf("Report uploaded: %s", upload.URL))
		}
	}

	return out, nil
}
