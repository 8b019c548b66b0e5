package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"marketflow/pkg/core/drive"
	"marketflow/pkg/core/review"
	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

// mockMarket returns self-consistent statement data for any ticker.
type mockMarket struct {
	ProfileFunc  func(ctx context.Context, ticker string) (*models.CompanyProfile, error)
	EarningsFunc func(ctx context.Context, ticker string, limit int) ([]models.EarningsEvent, error)
}

func (m *mockMarket) Profile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, ticker)
	}
	return &models.CompanyProfile{Symbol: ticker, CompanyName: "Test Corp", Beta: 1.0, Price: 20}, nil
}

func (m *mockMarket) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	return &models.Quote{Symbol: ticker, Price: 20, SharesOutstanding: 50}, nil
}

func (m *mockMarket) IncomeStatements(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
	return []models.IncomeStatement{
		{CalendarYear: "2024", Revenue: 1000, NetIncome: 100, IncomeBeforeTax: 120, IncomeTaxExpense: 24},
		{CalendarYear: "2023", Revenue: 900, NetIncome: 90},
	}, nil
}

func (m *mockMarket) BalanceSheets(ctx context.Context, ticker, period string, limit int) ([]models.BalanceSheet, error) {
	return []models.BalanceSheet{
		{CalendarYear: "2024", TotalDebt: 300, CashAndCashEquivalents: 100},
	}, nil
}

func (m *mockMarket) CashFlows(ctx context.Context, ticker, period string, limit int) ([]models.CashFlowStatement, error) {
	return []models.CashFlowStatement{
		{CalendarYear: "2024", FreeCashFlow: 110, OperatingCashFlow: 160, CapitalExpenditure: -50},
		{CalendarYear: "2023", FreeCashFlow: 100, OperatingCashFlow: 150, CapitalExpenditure: -50},
	}, nil
}

func (m *mockMarket) DebtToCapitalTTM(ctx context.Context, ticker string) (float64, error) {
	return 0.30, nil
}

func (m *mockMarket) Earnings(ctx context.Context, ticker string, limit int) ([]models.EarningsEvent, error) {
	if m.EarningsFunc != nil {
		return m.EarningsFunc(ctx, ticker, limit)
	}
	return []models.EarningsEvent{{Date: "2024-05-02", EPSActual: 1.5, EPSEstimated: 1.4}}, nil
}

// mockUploader records every upload and hands back a deterministic URL.
type mockUploader struct {
	mu      sync.Mutex
	uploads []drive.UploadOptions
	err     error
}

func (m *mockUploader) Upload(ctx context.Context, path string, opts drive.UploadOptions) (*drive.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.uploads = append(m.uploads, opts)
	return &drive.UploadResult{
		ID:   fmt.Sprintf("file-%d", len(m.uploads)),
		Name: opts.FileName,
		URL:  fmt.Sprintf("https://drive.example/file-%d", len(m.uploads)),
	}, nil
}

type mockProducer struct{}

func (m *mockProducer) Produce(ctx context.Context, ticker string) (string, error) {
	return "analysis of " + ticker, nil
}

func (m *mockProducer) Refine(ctx context.Context, ticker, feedback, prior string) (string, error) {
	return "refined " + prior, nil
}

type mockReviewer struct {
	verdicts []*review.Verdict
	calls    int
}

func (m *mockReviewer) Review(ctx context.Context, analysis, agentType string) (*review.Verdict, error) {
	v := m.verdicts[m.calls]
	m.calls++
	return v, nil
}

type mockAnalyst struct {
	analysis string
	err      error
}

func (m *mockAnalyst) Analyze(ctx context.Context, result *valuation.DCFResult, profile *models.CompanyProfile) (string, error) {
	return m.analysis, m.err
}

func approvedVerdict() *review.Verdict {
	return &review.Verdict{
		Approved: true,
		Scores: review.Scores{
			DataReasonableness:          5,
			OutlierDetection:            4,
			ExecutiveSummaryClarity:     4,
			DataRecommendationAlignment: 5,
			ScenarioAnalysis:            4,
			RiskAssessment:              4,
		},
	}
}

func rejectedVerdict() *review.Verdict {
	return &review.Verdict{
		Scores: review.Scores{
			DataReasonableness:          3,
			OutlierDetection:            3,
			ExecutiveSummaryClarity:     2,
			DataRecommendationAlignment: 3,
			ScenarioAnalysis:            3,
			RiskAssessment:              3,
		},
	}
}

func TestRunAgentsWorkflowApprovedFirstPass(t *testing.T) {
	uploader := &mockUploader{}
	o := NewOrchestrator(Deps{
		Producer: &mockProducer{},
		Reviewer: &mockReviewer{verdicts: []*review.Verdict{approvedVerdict()}},
		Uploader: uploader,
	}, WithOutputDir(t.TempDir()))

	result, err := o.RunAgentsWorkflow(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("RunAgentsWorkflow: %v", err)
	}
	if !result.Approved {
		t.Error("expected approval")
	}
	if result.Ticker != "AAPL" {
		t.Errorf("Ticker = %q", result.Ticker)
	}
	if result.FinalAnalysis != "analysis of AAPL" {
		t.Errorf("FinalAnalysis = %q", result.FinalAnalysis)
	}
	// One traceability artifact plus the final report.
	if len(uploader.uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(uploader.uploads))
	}
	if len(result.ArtifactURLs) != 1 || result.ArtifactURLs[0].Label != "initial_analysis" {
		t.Errorf("ArtifactURLs = %+v", result.ArtifactURLs)
	}
	if result.ReportURL == "" {
		t.Error("missing final report URL")
	}
	if !strings.Contains(uploader.uploads[0].FileName, "AAPL Initial Analysis") {
		t.Errorf("artifact title = %q", uploader.uploads[0].FileName)
	}
	if !strings.Contains(uploader.uploads[1].FileName, "AAPL Financial Analysis") {
		t.Errorf("report title = %q", uploader.uploads[1].FileName)
	}
}

func TestRunAgentsWorkflowExhaustedStillUploads(t *testing.T) {
	uploader := &mockUploader{}
	o := NewOrchestrator(Deps{
		Producer: &mockProducer{},
		Reviewer: &mockReviewer{verdicts: []*review.Verdict{rejectedVerdict(), rejectedVerdict()}},
		Uploader: uploader,
	}, WithOutputDir(t.TempDir()))

	result, err := o.RunAgentsWorkflow(context.Background(), "NFLX")
	if err != nil {
		t.Fatalf("RunAgentsWorkflow: %v", err)
	}
	if result.Approved {
		t.Error("expected exhausted run to stay unapproved")
	}
	if result.Iterations != review.MaxIterations {
		t.Errorf("Iterations = %d, want %d", result.Iterations, review.MaxIterations)
	}
	if result.ReportURL == "" {
		t.Error("final report should upload even when unapproved")
	}
}

func TestRunAgentsWorkflowNoUploader(t *testing.T) {
	o := NewOrchestrator(Deps{
		Producer: &mockProducer{},
		Reviewer: &mockReviewer{verdicts: []*review.Verdict{approvedVerdict()}},
	}, WithOutputDir(t.TempDir()))

	result, err := o.RunAgentsWorkflow(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("RunAgentsWorkflow: %v", err)
	}
	if result.ReportURL != "" || len(result.ArtifactURLs) != 0 {
		t.Errorf("expected no upload URLs, got %q / %+v", result.ReportURL, result.ArtifactURLs)
	}
}

func TestUploadMarkdownRejectsBlankContent(t *testing.T) {
	uploader := &mockUploader{}
	o := NewOrchestrator(Deps{Uploader: uploader}, WithOutputDir(t.TempDir()))

	if _, err := o.uploadMarkdown(context.Background(), "blank.md", "Blank", "  \n\t"); err == nil {
		t.Fatal("expected error for whitespace-only content")
	}
	if len(uploader.uploads) != 0 {
		t.Errorf("blank content was uploaded: %+v", uploader.uploads)
	}

	if _, err := o.uploadMarkdown(context.Background(), "real.md", "Real", "# Report\n\nBody."); err != nil {
		t.Fatalf("valid markdown rejected: %v", err)
	}
	if len(uploader.uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(uploader.uploads))
	}
}

func TestScanTickersIsolatesFailures(t *testing.T) {
	market := &mockMarket{
		ProfileFunc: func(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
			if ticker == "BAD" {
				return nil, errors.New("not found")
			}
			return &models.CompanyProfile{Symbol: ticker, CompanyName: ticker + " Corp", Beta: 1.0}, nil
		},
	}
	o := NewOrchestrator(Deps{Market: market})

	out, err := o.ScanTickers(context.Background(), []string{"aapl", "bad", "msft"}, valuation.DCFOptions{})
	if err != nil {
		t.Fatalf("ScanTickers: %v", err)
	}
	if len(out.Results) != 2 {
		t.Errorf("Results = %d, want 2", len(out.Results))
	}
	if _, ok := out.Results["AAPL"]; !ok {
		t.Error("missing AAPL result")
	}
	if _, ok := out.Errors["BAD"]; !ok {
		t.Error("missing BAD error")
	}
}

func TestScanTickersStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(Deps{Market: &mockMarket{}})
	_, err := o.ScanTickers(ctx, []string{"AAPL"}, valuation.DCFOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
