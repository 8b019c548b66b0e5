// Package review exposes the produce/review/refine workflow over HTTP.
package review

import (
	"context"
	"encoding/json"
	"net/http"

	"marketflow/pkg/core/workflow"
)

// AgentsRunner runs the review loop for one ticker.
type AgentsRunner interface {
	RunAgentsWorkflow(ctx context.Context, ticker string) (*workflow.AgentsResult, error)
}

// Handler holds dependencies for the review endpoints.
type Handler struct {
	Runner AgentsRunner
}

func NewHandler(runner AgentsRunner) *Handler {
	return &Handler{Runner: runner}
}

type RunRequest struct {
	Ticker string `json:"ticker"`
}

// HandleRun executes the full review loop synchronously and returns the
// final analysis with its review history.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	result, err := h.Runner.RunAgentsWorkflow(r.Context(), req.Ticker)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
