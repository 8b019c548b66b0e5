package valuation

import (
	"context"

	"marketflow/pkg/models"
)

// MarketData is the provider collaborator the models fetch statements
// through. Period is "annual" or "quarter"; limit bounds the number of fiscal
// periods returned, newest first on the wire.
type MarketData interface {
	Profile(ctx context.Context, ticker string) (*models.CompanyProfile, error)
	Quote(ctx context.Context, ticker string) (*models.Quote, error)
	IncomeStatements(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error)
	BalanceSheets(ctx context.Context, ticker, period string, limit int) ([]models.BalanceSheet, error)
	CashFlows(ctx context.Context, ticker, period string, limit int) ([]models.CashFlowStatement, error)
	DebtToCapitalTTM(ctx context.Context, ticker string) (float64, error)
}
