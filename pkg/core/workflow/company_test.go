package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

type mockResearcher struct {
	responses map[string]string // keyed on a substring of the prompt
	calls     []researchCall
	err       error
}

type researchCall struct {
	prompt      string
	contextDocs []string
}

func (m *mockResearcher) Research(ctx context.Context, prompt string, contextDocs ...string) (string, error) {
	m.calls = append(m.calls, researchCall{prompt: prompt, contextDocs: contextDocs})
	if m.err != nil {
		return "", m.err
	}
	for key, response := range m.responses {
		if strings.Contains(prompt, key) {
			return response, nil
		}
	}
	return "generic research", nil
}

type storeCall struct {
	op   string
	args []string
}

type mockStore struct {
	calls     []storeCall
	queryText string
	uploadErr error
}

func (m *mockStore) Create(ctx context.Context, displayName string) (string, error) {
	m.calls = append(m.calls, storeCall{op: "create", args: []string{displayName}})
	return "stores/test-store", nil
}

func (m *mockStore) Upload(ctx context.Context, storeName, path string) error {
	m.calls = append(m.calls, storeCall{op: "upload", args: []string{storeName, path}})
	return m.uploadErr
}

func (m *mockStore) Query(ctx context.Context, storeName, prompt string) (string, error) {
	m.calls = append(m.calls, storeCall{op: "query", args: []string{storeName, prompt}})
	return m.queryText, nil
}

func (m *mockStore) Delete(ctx context.Context, storeName string) error {
	m.calls = append(m.calls, storeCall{op: "delete", args: []string{storeName}})
	return nil
}

func TestRunCompanyAnalysisWithStore(t *testing.T) {
	researcher := &mockResearcher{responses: map[string]string{
		"sector analyst":           "industry doc",
		"private equity associate": "financial doc",
	}}
	store := &mockStore{queryText: "synthesis doc"}
	uploader := &mockUploader{}

	o := NewOrchestrator(Deps{
		Research: researcher,
		Docs:     store,
		Uploader: uploader,
	}, WithOutputDir(t.TempDir()))

	result, err := o.RunCompanyAnalysis(context.Background(), "Apple")
	if err != nil {
		t.Fatalf("RunCompanyAnalysis: %v", err)
	}
	if result.IndustryAnalysis != "industry doc" || result.FinancialModeling != "financial doc" {
		t.Errorf("research outputs = %q / %q", result.IndustryAnalysis, result.FinancialModeling)
	}
	if result.Synthesis != "synthesis doc" {
		t.Errorf("Synthesis = %q", result.Synthesis)
	}

	// Store lifecycle: create, two uploads, one query, then cleanup.
	ops := make([]string, len(store.calls))
	for i, c := range store.calls {
		ops[i] = c.op
	}
	want := []string{"create", "upload", "upload", "query", "delete"}
	if len(ops) != len(want) {
		t.Fatalf("store ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("store ops = %v, want %v", ops, want)
		}
	}

	if len(uploader.uploads) != 3 {
		t.Errorf("uploads = %d, want 3", len(uploader.uploads))
	}
	if result.IndustryURL == "" || result.FinancialURL == "" || result.SynthesisURL == "" {
		t.Errorf("missing drive URLs: %+v", result)
	}
}

func TestRunCompanyAnalysisStoreCleanupOnUploadFailure(t *testing.T) {
	store := &mockStore{uploadErr: errors.New("quota exceeded")}
	o := NewOrchestrator(Deps{
		Research: &mockResearcher{},
		Docs:     store,
	}, WithOutputDir(t.TempDir()))

	if _, err := o.RunCompanyAnalysis(context.Background(), "Apple"); err == nil {
		t.Fatal("expected error from store upload failure")
	}
	last := store.calls[len(store.calls)-1]
	if last.op != "delete" {
		t.Errorf("last store op = %q, want delete", last.op)
	}
}

func TestRunCompanyAnalysisInlineSynthesis(t *testing.T) {
	researcher := &mockResearcher{responses: map[string]string{
		"sector analyst":           "industry doc",
		"private equity associate": "financial doc",
		"synthesizing research":    "synthesis doc",
	}}
	o := NewOrchestrator(Deps{Research: researcher}, WithOutputDir(t.TempDir()))

	result, err := o.RunCompanyAnalysis(context.Background(), "Apple")
	if err != nil {
		t.Fatalf("RunCompanyAnalysis: %v", err)
	}
	if result.Synthesis != "synthesis doc" {
		t.Errorf("Synthesis = %q", result.Synthesis)
	}

	// Without a document store the synthesis call carries both research
	// documents inline.
	var synthesisCall *researchCall
	for i := range researcher.calls {
		if strings.Contains(researcher.calls[i].prompt, "synthesizing research") {
			synthesisCall = &researcher.calls[i]
		}
	}
	if synthesisCall == nil {
		t.Fatal("synthesis research call not made")
	}
	if len(synthesisCall.contextDocs) != 2 {
		t.Fatalf("context docs = %d, want 2", len(synthesisCall.contextDocs))
	}
	if synthesisCall.contextDocs[0] != "industry doc" || synthesisCall.contextDocs[1] != "financial doc" {
		t.Errorf("context docs = %v", synthesisCall.contextDocs)
	}
}

func TestRunCompanyAnalysisResearchFailure(t *testing.T) {
	o := NewOrchestrator(Deps{
		Research: &mockResearcher{err: errors.New("model overloaded")},
	}, WithOutputDir(t.TempDir()))

	if _, err := o.RunCompanyAnalysis(context.Background(), "Apple"); err == nil {
		t.Fatal("expected error when research fails")
	}
}

func TestRunCompanyAnalysisRequiresName(t *testing.T) {
	o := NewOrchestrator(Deps{Research: &mockResearcher{}})
	if _, err := o.RunCompanyAnalysis(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty company name")
	}
}

func TestRunDCFAnalysis(t *testing.T) {
	uploader := &mockUploader{}
	o := NewOrchestrator(Deps{
		Market:   &mockMarket{},
		Analyst:  &mockAnalyst{analysis: "Strong cash generation; BUY."},
		Uploader: uploader,
	}, WithOutputDir(t.TempDir()))

	result, err := o.RunDCFAnalysis(context.Background(), "aapl", valuation.DCFOptions{})
	if err != nil {
		t.Fatalf("RunDCFAnalysis: %v", err)
	}
	if result.Ticker != "AAPL" {
		t.Errorf("Ticker = %q", result.Ticker)
	}
	if result.IntrinsicValue <= 0 {
		t.Errorf("IntrinsicValue = %v", result.IntrinsicValue)
	}
	if !strings.Contains(result.Report, "Strong cash generation; BUY.") {
		t.Error("report missing analyst commentary")
	}
	if !strings.Contains(result.Report, "## Sensitivity Analysis") {
		t.Error("report missing sensitivity section")
	}
	if result.ReportURL == "" {
		t.Error("missing report URL")
	}
	if len(uploader.uploads) != 1 || !strings.Contains(uploader.uploads[0].FileName, "DCF Analysis - Test Corp (AAPL)") {
		t.Errorf("uploads = %+v", uploader.uploads)
	}
}

func TestRunDCFAnalysisEarningsFailureNonFatal(t *testing.T) {
	market := &mockMarket{
		EarningsFunc: func(ctx context.Context, ticker string, limit int) ([]models.EarningsEvent, error) {
			return nil, errors.New("endpoint down")
		},
	}
	o := NewOrchestrator(Deps{Market: market}, WithOutputDir(t.TempDir()))

	result, err := o.RunDCFAnalysis(context.Background(), "AAPL", valuation.DCFOptions{})
	if err != nil {
		t.Fatalf("RunDCFAnalysis: %v", err)
	}
	if strings.Contains(result.Report, "## Recent Earnings History") {
		t.Error("report should omit earnings section when history is unavailable")
	}
}

func TestRunDCFAnalysisAnalystFailureIsFatal(t *testing.T) {
	o := NewOrchestrator(Deps{
		Market:  &mockMarket{},
		Analyst: &mockAnalyst{err: errors.New("rate limited")},
	}, WithOutputDir(t.TempDir()))

	if _, err := o.RunDCFAnalysis(context.Background(), "AAPL", valuation.DCFOptions{}); err == nil {
		t.Fatal("expected analyst failure to surface")
	}
}
