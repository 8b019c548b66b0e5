package valuation

import (
	"context"
	"math"
	"strings"

	"marketflow/pkg/models"
)

// Defaults used when the statement history cannot support an estimate.
// Percentages here are in percent, not fractions, matching the custom DCF
// parameter convention.
const (
	DefaultRevenueGrowthPct  = 5.0
	DefaultCapExPct          = 5.0
	DefaultOperatingCashPct  = 15.0
	DefaultEBITDAPct         = 15.0
	defaultEstimationPeriods = 5
)

// DCFParameters is the full set of estimated inputs for a custom DCF run.
// Percentage fields are in percent; tax rate and beta are fractions.
type DCFParameters struct {
	RevenueGrowthPct      float64 `json:"revenue_growth_pct"`
	EBITDAPct             float64 `json:"ebitda_pct"`
	CapitalExpenditurePct float64 `json:"capital_expenditure_pct"`
	OperatingCashFlowPct  float64 `json:"operating_cash_flow_pct"`
	MarketRiskPremium     float64 `json:"market_risk_premium"`
	LongTermGrowthRate    float64 `json:"long_term_growth_rate"`
	Beta                  float64 `json:"beta"`
	TaxRate               float64 `json:"tax_rate"`
}

// RevenueGrowthPct estimates revenue growth as the CAGR of the positive
// revenue history. Needs at least two positive observations; otherwise
// returns the 5% default.
func RevenueGrowthPct(incomes []models.IncomeStatement) float64 {
	sorted := append([]models.IncomeStatement(nil), incomes...)
	models.SortIncomeStatements(sorted)

	var revenues []float64
	for _, stmt := range sorted {
		if stmt.Revenue > 0 {
			revenues = append(revenues, stmt.Revenue)
		}
	}
	if len(revenues) < 2 {
		return DefaultRevenueGrowthPct
	}

	years := float64(len(revenues) - 1)
	growth := math.Pow(revenues[len(revenues)-1]/revenues[0], 1/years) - 1
	return round2(growth * 100)
}

// CapitalExpenditurePct averages |CapEx| / revenue over the most recent
// periods to smooth cyclical spend.
func CapitalExpenditurePct(cashFlows []models.CashFlowStatement, incomes []models.IncomeStatement, periods int) float64 {
	return averageRatio(cashFlows, incomes, periods, DefaultCapExPct, func(cf models.CashFlowStatement) float64 {
		return math.Abs(cf.CapitalExpenditure)
	})
}

// OperatingCashFlowPct averages OCF / revenue over the most recent periods.
func OperatingCashFlowPct(cashFlows []models.CashFlowStatement, incomes []models.IncomeStatement, periods int) float64 {
	return averageRatio(cashFlows, incomes, periods, DefaultOperatingCashPct, func(cf models.CashFlowStatement) float64 {
		return cf.OperatingCashFlow
	})
}

// EBITDAPct averages the EBITDA margin over the most recent periods.
func EBITDAPct(incomes []models.IncomeStatement, periods int) float64 {
	sorted := append([]models.IncomeStatement(nil), incomes...)
	models.SortIncomeStatements(sorted)
	sorted = lastN(sorted, periods)

	var margins []float64
	for _, stmt := range sorted {
		if stmt.Revenue > 0 {
			margins = append(margins, stmt.EBITDA/stmt.Revenue)
		}
	}
	if len(margins) == 0 {
		return DefaultEBITDAPct
	}
	return round2(mean(margins) * 100)
}

// EffectiveTaxRate derives the effective tax rate from the latest income
// statement, bounded to [0, 0.40]. Falls back to the statutory US rate when
// pre-tax income is non-positive.
func EffectiveTaxRate(incomes []models.IncomeStatement) float64 {
	if len(incomes) == 0 {
		return DefaultTaxRate
	}
	sorted := append([]models.IncomeStatement(nil), incomes...)
	models.SortIncomeStatements(sorted)
	latest := sorted[len(sorted)-1]

	if latest.IncomeBeforeTax <= 0 {
		return DefaultTaxRate
	}
	rate := clamp(latest.IncomeTaxExpense/latest.IncomeBeforeTax, 0, maxTaxRate)
	return math.Round(rate*10000) / 10000
}

// EstimateParameters fetches a ticker's statement history and computes the
// full custom-DCF parameter set. Country selects the equity risk premium and
// long-term growth tables; it defaults to the United States.
func EstimateParameters(ctx context.Context, md MarketData, ticker string, periods int, country string) (*DCFParameters, error) {
	ticker = strings.ToUpper(ticker)
	if periods <= 0 {
		periods = defaultEstimationPeriods
	}
	if country == "" {
		country = "United States"
	}

	profile, err := md.Profile(ctx, ticker)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "profile", Err: err}
	}
	incomes, err := md.IncomeStatements(ctx, ticker, "annual", periods)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "income statements", Err: err}
	}
	cashFlows, err := md.CashFlows(ctx, ticker, "annual", periods)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "cash flow statements", Err: err}
	}

	beta := profile.Beta
	if beta == 0 {
		beta = 1.0
	}

	return &DCFParameters{
		RevenueGrowthPct:      RevenueGrowthPct(incomes),
		EBITDAPct:             EBITDAPct(incomes, periods),
		CapitalExpenditurePct: CapitalExpenditurePct(cashFlows, incomes, periods),
		OperatingCashFlowPct:  OperatingCashFlowPct(cashFlows, incomes, periods),
		MarketRiskPremium:     EquityRiskPremium(country),
		LongTermGrowthRate:    LongTermGrowthRate(country),
		Beta:                  beta,
		TaxRate:               EffectiveTaxRate(incomes),
	}, nil
}

func averageRatio(cashFlows []models.CashFlowStatement, incomes []models.IncomeStatement, periods int, fallback float64, numerator func(models.CashFlowStatement) float64) float64 {
	cfs := append([]models.CashFlowStatement(nil), cashFlows...)
	models.SortCashFlows(cfs)
	stmts := append([]models.IncomeStatement(nil), incomes...)
	models.SortIncomeStatements(stmts)

	n := len(cfs)
	if len(stmts) < n {
		n = len(stmts)
	}
	if periods < n {
		n = periods
	}

	var ratios []float64
	for i := 0; i < n; i++ {
		cf := cfs[len(cfs)-1-i]
		stmt := stmts[len(stmts)-1-i]
		if stmt.Revenue > 0 {
			ratios = append(ratios, numerator(cf)/stmt.Revenue)
		}
	}
	if len(ratios) == 0 {
		return fallback
	}
	return round2(mean(ratios) * 100)
}

func lastN[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
