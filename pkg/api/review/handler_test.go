package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketflow/pkg/core/workflow"
)

type mockRunner struct {
	result *workflow.AgentsResult
	err    error
	ticker string
}

func (m *mockRunner) RunAgentsWorkflow(ctx context.Context, ticker string) (*workflow.AgentsResult, error) {
	m.ticker = ticker
	return m.result, m.err
}

func TestHandleRun(t *testing.T) {
	runner := &mockRunner{result: &workflow.AgentsResult{
		RunID:         "run-1",
		Ticker:        "AAPL",
		FinalAnalysis: "analysis",
		Approved:      true,
		Iterations:    1,
	}}
	h := NewHandler(runner)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ticker":"AAPL"}`))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if runner.ticker != "AAPL" {
		t.Errorf("runner ticker = %q", runner.ticker)
	}

	var result workflow.AgentsResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Approved || result.RunID != "run-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleRunMissingTicker(t *testing.T) {
	h := NewHandler(&mockRunner{})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRunWorkflowFailure(t *testing.T) {
	h := NewHandler(&mockRunner{err: errors.New("provider down")})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ticker":"AAPL"}`))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
