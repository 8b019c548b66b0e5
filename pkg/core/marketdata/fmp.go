// Package marketdata fetches financial statements and quotes from the
// Financial Modeling Prep stable API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"marketflow/pkg/models"
)

const defaultBaseURL = "https://financialmodelingprep.com/stable"

// APIError is a non-2xx or explicit error payload from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fmp api error %d: %s", e.StatusCode, e.Message)
}

// FMPClient talks to the FMP stable endpoints. It implements
// valuation.MarketData.
type FMPClient struct {
	http   *resty.Client
	apiKey string
}

// Option configures an FMPClient.
type Option func(*FMPClient)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *FMPClient) { c.http.SetBaseURL(url) }
}

// WithAPIKey sets the API key explicitly instead of reading FMP_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *FMPClient) { c.apiKey = key }
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *FMPClient) { c.http.SetTimeout(d) }
}

// NewFMPClient builds a client. The API key comes from the FMP_API_KEY
// environment variable unless WithAPIKey is given.
func NewFMPClient(opts ...Option) *FMPClient {
	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetTimeout(30 * time.Second)

	c := &FMPClient{
		http:   client,
		apiKey: os.Getenv("FMP_API_KEY"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one API call and unmarshals the body into out. The provider
// signals some errors inside a 200 body as {"Error Message": "..."}, so both
// paths are checked.
func (c *FMPClient) get(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("FMP_API_KEY is not configured")
	}

	query := map[string]string{"apikey": c.apiKey}
	for k, v := range params {
		query[k] = v
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get("/" + endpoint)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	if resp.StatusCode() != 200 {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}

	var apiErr struct {
		Message string `json:"Error Message"`
	}
	if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Message != "" {
		return &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Message}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("parse %s response: %w", endpoint, err)
	}
	return nil
}

// Profile returns the company overview record.
func (c *FMPClient) Profile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	var profiles []models.CompanyProfile
	if err := c.get(ctx, "profile", map[string]string{"symbol": ticker}, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profile found for ticker %s", ticker)
	}
	return &profiles[0], nil
}

// Quote returns the latest market quote.
func (c *FMPClient) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	var quotes []models.Quote
	if err := c.get(ctx, "quote", map[string]string{"symbol": ticker}, &quotes); err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quote found for ticker %s", ticker)
	}
	return &quotes[0], nil
}

// IncomeStatements returns up to limit fiscal periods, newest first.
func (c *FMPClient) IncomeStatements(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
	var stmts []models.IncomeStatement
	err := c.get(ctx, "income-statement", statementParams(ticker, period, limit), &stmts)
	return stmts, err
}

// BalanceSheets returns up to limit fiscal periods, newest first.
func (c *FMPClient) BalanceSheets(ctx context.Context, ticker, period string, limit int) ([]models.BalanceSheet, error) {
	var sheets []models.BalanceSheet
	err := c.get(ctx, "balance-sheet-statement", statementParams(ticker, period, limit), &sheets)
	return sheets, err
}

// CashFlows returns up to limit fiscal periods, newest first.
func (c *FMPClient) CashFlows(ctx context.Context, ticker, period string, limit int) ([]models.CashFlowStatement, error) {
	var flows []models.CashFlowStatement
	err := c.get(ctx, "cash-flow-statement", statementParams(ticker, period, limit), &flows)
	return flows, err
}

// Earnings returns recent quarterly earnings prints, newest first.
func (c *FMPClient) Earnings(ctx context.Context, ticker string, limit int) ([]models.EarningsEvent, error) {
	var events []models.EarningsEvent
	err := c.get(ctx, "earnings", map[string]string{
		"symbol": ticker,
		"limit":  fmt.Sprintf("%d", limit),
	}, &events)
	return events, err
}

// DebtToCapitalTTM returns the trailing-twelve-month debt-to-capital ratio,
// D / (D + E), used for WACC weights.
func (c *FMPClient) DebtToCapitalTTM(ctx context.Context, ticker string) (float64, error) {
	var ratios []struct {
		DebtToCapitalRatioTTM float64 `json:"debtToCapitalRatioTTM"`
	}
	if err := c.get(ctx, "ratios-ttm", map[string]string{"symbol": ticker}, &ratios); err != nil {
		return 0, err
	}
	if len(ratios) == 0 {
		return 0, fmt.Errorf("no ttm ratios found for ticker %s", ticker)
	}
	return ratios[0].DebtToCapitalRatioTTM, nil
}

func statementParams(ticker, period string, limit int) map[string]string {
	if period == "" {
		period = "annual"
	}
	return map[string]string{
		"symbol": ticker,
		"period": period,
		"limit":  fmt.Sprintf("%d", limit),
	}
}
