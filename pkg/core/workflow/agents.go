package workflow

import (
	"context"
	"fmt"
	"strings"

	"marketflow/pkg/core/review"
)

// ArtifactUpload records one traceability upload made during the review loop.
type ArtifactUpload struct {
	Iteration int    `json:"iteration"`
	Label     string `json:"label"`
	URL       string `json:"url"`
}

// AgentsResult is the outcome of the produce/review/refine workflow.
type AgentsResult struct {
	RunID         string           `json:"run_id"`
	Ticker        string           `json:"ticker"`
	FinalAnalysis string           `json:"final_analysis"`
	Approved      bool             `json:"approved"`
	Iterations    int              `json:"iterations"`
	ReviewHistory []review.Verdict `json:"review_history"`
	ReportURL     string           `json:"report_url,omitempty"`
	ArtifactURLs  []ArtifactUpload `json:"artifact_urls,omitempty"`
}

// RunAgentsWorkflow drives the analyst through the review loop for one
// ticker. Every iteration's analysis is uploaded to Drive for traceability
// when an uploader is configured; upload failures never stop the loop. The
// final report upload happens regardless of whether the reviewer approved.
func (o *Orchestrator) RunAgentsWorkflow(ctx context.Context, ticker string) (*AgentsResult, error) {
	ticker = strings.ToUpper(ticker)
	o.status("agents", fmt.Sprintf("Starting analysis workflow for %s", ticker))

	var artifacts []ArtifactUpload
	sink := func(ctx context.Context, iteration int, label, analysis string) error {
		if o.deps.Uploader == nil {
			return nil
		}
		title := fmt.Sprintf("%s %s - %s", ticker, titleize(label), timestamp())
		fileName := fmt.Sprintf("%s_%s.md", strings.ToLower(ticker), label)
		upload, err := o.uploadMarkdown(ctx, fileName, title, analysis)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, ArtifactUpload{Iteration: iteration, Label: label, URL: upload.URL})
		o.status("agents", fmt.Sprintf("Uploaded %s: %s", label, upload.URL))
		return nil
	}

	controller := review.NewController(o.deps.Producer, o.deps.Reviewer,
		review.WithArtifactSink(sink),
		review.WithLogger(o.log),
	)

	result, err := controller.Run(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if result.Approved {
		o.status("agents", fmt.Sprintf("Analysis approved after %d iteration(s)", result.Iterations))
	} else {
		o.status("agents", fmt.Sprintf("Iteration budget exhausted after %d iteration(s); keeping last analysis", result.Iterations))
	}

	out := &AgentsResult{
		RunID:         result.RunID,
		Ticker:        result.Ticker,
		FinalAnalysis: result.FinalAnalysis,
		Approved:      result.Approved,
		Iterations:    result.Iterations,
		ReviewHistory: result.ReviewHistory,
		ArtifactURLs:  artifacts,
	}

	if o.deps.Uploader != nil {
		title := fmt.Sprintf("%s Financial Analysis - %s", ticker, timestamp())
		fileName := fmt.Sprintf("%s_financial_analysis.md", strings.ToLower(ticker))
		upload, err := o.uploadMarkdown(ctx, fileName, title, result.FinalAnalysis)
		if err != nil {
			o.log.Warn().Err(err).Str("ticker", ticker).Msg("final report upload failed")
		} else {
			out.ReportURL = upload.URL
			o.status("agents", fmt.Sprintf("Report uploaded: %s", upload.URL))
		}
	}

	return out, nil
}
