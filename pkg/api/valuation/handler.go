// Package valuation exposes the DCF and CBCV models over HTTP.
package valuation

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketflow/pkg/core/valuation"
)

// Handler holds dependencies for the model endpoints.
type Handler struct {
	Market valuation.MarketData
}

func NewHandler(market valuation.MarketData) *Handler {
	return &Handler{Market: market}
}

type DCFRequest struct {
	Ticker             string   `json:"ticker"`
	ProjectionYears    int      `json:"projection_years"`
	TerminalGrowthRate *float64 `json:"terminal_growth_rate"`
	GrowthRate         *float64 `json:"growth_rate"`
	DebtRatio          *float64 `json:"debt_ratio"`
}

type CBCVRequest struct {
	Ticker          string   `json:"ticker"`
	TotalCustomers  int      `json:"total_customers"`
	ARPU            *float64 `json:"arpu"`
	ChurnRate       *float64 `json:"churn_rate"`
	CAC             *float64 `json:"cac"`
	NewCustomers    *int     `json:"new_customers"`
	ProjectionYears int      `json:"projection_years"`
	TAM             int      `json:"tam"`
	DecayRate       *float64 `json:"decay_rate"`
}

type ParametersRequest struct {
	Ticker  string `json:"ticker"`
	Periods int    `json:"periods"`
	Country string `json:"country"`
}

// HandleDCF builds a DCF model for the requested ticker.
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}

	var req DCFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	result, err := valuation.BuildDCFModel(r.Context(), h.Market, req.Ticker, valuation.DCFOptions{
		ProjectionYears:    req.ProjectionYears,
		TerminalGrowthRate: req.TerminalGrowthRate,
		GrowthRate:         req.GrowthRate,
		DebtRatio:          req.DebtRatio,
	})
	if err != nil {
		writeModelError(w, err)
		return
	}

	writeJSON(w, result)
}

// HandleCBCV builds a customer-based valuation for the requested ticker.
func (h *Handler) HandleCBCV(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}

	var req CBCVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	result, err := valuation.BuildCBCVModel(r.Context(), h.Market, req.Ticker, valuation.CBCVInputs{
		TotalCustomers:  req.TotalCustomers,
		ARPU:            req.ARPU,
		ChurnRate:       req.ChurnRate,
		CAC:             req.CAC,
		NewCustomers:    req.NewCustomers,
		ProjectionYears: req.ProjectionYears,
		TAM:             req.TAM,
		DecayRate:       req.DecayRate,
	})
	if err != nil {
		writeModelError(w, err)
		return
	}

	writeJSON(w, result)
}

// HandleParameters estimates DCF inputs from historical statements.
func (h *Handler) HandleParameters(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}

	var req ParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	params, err := valuation.EstimateParameters(r.Context(), h.Market, req.Ticker, req.Periods, req.Country)
	if err != nil {
		writeModelError(w, err)
		return
	}

	writeJSON(w, params)
}

// preparePost applies the CORS headers and short-circuits preflight requests.
// Returns false when the caller should not proceed.
func preparePost(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeModelError maps the model error taxonomy onto HTTP statuses: missing
// caller inputs are 400, mathematically invalid regimes are 422, upstream
// data failures are 502.
func writeModelError(w http.ResponseWriter, err error) {
	var missing *valuation.MissingInputError
	var invalid *valuation.InvalidModelInputError
	var unavailable *valuation.DataUnavailableError

	switch {
	case errors.As(err, &missing):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &unavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
