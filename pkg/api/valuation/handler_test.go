package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

type mockMarket struct {
	profileErr error
}

func (m *mockMarket) Profile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return &models.CompanyProfile{Symbol: ticker, CompanyName: "Test Corp", Beta: 1.0}, nil
}

func (m *mockMarket) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	return &models.Quote{Symbol: ticker, Price: 20, SharesOutstanding: 50}, nil
}

func (m *mockMarket) IncomeStatements(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
	return []models.IncomeStatement{
		{CalendarYear: "2024", Revenue: 1000, GrossProfit: 600, IncomeBeforeTax: 120, IncomeTaxExpense: 24},
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

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleDCF(t *testing.T) {
	h := NewHandler(&mockMarket{})

	rec := postJSON(t, h.HandleDCF, `{"ticker":"aapl"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result valuation.DCFResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Ticker != "AAPL" {
		t.Errorf("Ticker = %q", result.Ticker)
	}
	if result.IntrinsicValue <= 0 {
		t.Errorf("IntrinsicValue = %v", result.IntrinsicValue)
	}
}

func TestHandleDCFMissingTicker(t *testing.T) {
	h := NewHandler(&mockMarket{})
	rec := postJSON(t, h.HandleDCF, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDCFUpstreamFailure(t *testing.T) {
	h := NewHandler(&mockMarket{profileErr: errors.New("connection refused")})
	rec := postJSON(t, h.HandleDCF, `{"ticker":"AAPL"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleDCFDegenerateGrowth(t *testing.T) {
	h := NewHandler(&mockMarket{})
	// Terminal growth above any plausible WACC makes the perpetuity undefined.
	rec := postJSON(t, h.HandleDCF, `{"ticker":"AAPL","terminal_growth_rate":0.50}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCBCVMissingCustomers(t *testing.T) {
	h := NewHandler(&mockMarket{})
	rec := postJSON(t, h.HandleCBCV, `{"ticker":"AAPL"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCBCV(t *testing.T) {
	h := NewHandler(&mockMarket{})
	rec := postJSON(t, h.HandleCBCV, `{"ticker":"NFLX","total_customers":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result valuation.CBCVResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.CLV <= 0 {
		t.Errorf("CLV = %v", result.CLV)
	}
}

func TestHandleParameters(t *testing.T) {
	h := NewHandler(&mockMarket{})
	rec := postJSON(t, h.HandleParameters, `{"ticker":"AAPL","country":"Japan"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var params valuation.DCFParameters
	if err := json.Unmarshal(rec.Body.Bytes(), &params); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if params.MarketRiskPremium != 5.14 {
		t.Errorf("MarketRiskPremium = %v, want 5.14", params.MarketRiskPremium)
	}
}

func TestPreflight(t *testing.T) {
	h := NewHandler(&mockMarket{})
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.HandleDCF(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(&mockMarket{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.HandleDCF(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
