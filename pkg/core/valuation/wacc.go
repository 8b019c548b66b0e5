package valuation

import "context"

// Default capital-market assumptions. Callers override per input; the
// defaults keep sparse-data tickers computable.
const (
	DefaultRiskFreeRate  = 0.045 // 10yr Treasury
	DefaultMarketPremium = 0.055
	DefaultCostOfDebt    = 0.06 // pre-tax
	DefaultTaxRate       = 0.21 // US corporate rate
	DefaultDebtRatio     = 0.30 // D/(D+E) fallback when TTM leverage is unavailable
)

// WACCInput carries the capital-structure and risk parameters. Rate fields
// are pointers so an explicit zero (a real 0% tax rate, say) is distinct
// from absence; nil falls back to the documented default.
// Beta has no default: the caller or a profile lookup must supply it.
type WACCInput struct {
	Beta          float64
	RiskFreeRate  *float64
	MarketPremium *float64
	DebtRatio     *float64 // D/(D+E); nil means auto-derive or fall back
	CostOfDebt    *float64 // pre-tax
	TaxRate       *float64
}

// WACCBreakdown records every component, not just the scalar, so downstream
// reporting and review can cite each piece of the discount rate.
type WACCBreakdown struct {
	WACC               float64 `json:"wacc"`
	CostOfEquity       float64 `json:"cost_of_equity"`
	CostOfDebt         float64 `json:"cost_of_debt"`
	AfterTaxCostOfDebt float64 `json:"after_tax_cost_of_debt"`
	TaxRate            float64 `json:"tax_rate"`
	DebtWeight         float64 `json:"debt_weight"`
	EquityWeight       float64 `json:"equity_weight"`
	Beta               float64 `json:"beta"`
	RiskFreeRate       float64 `json:"risk_free_rate"`
	MarketPremium      float64 `json:"market_premium"`
}

// CalculateWACC computes the weighted average cost of capital.
//
//	Ke   = Rf + beta * ERP            (CAPM)
//	Kd'  = Kd * (1 - t)               (after-tax cost of debt)
//	WACC = We*Ke + Wd*Kd'             with We = 1 - Wd
//
// Nil rate fields fall back to the documented defaults; an explicit value,
// including zero, is honored as given. The debt weight is expected in [0,1];
// values outside that range are a caller contract violation and are not
// validated here.
func CalculateWACC(in WACCInput) WACCBreakdown {
	riskFree := rateOrDefault(in.RiskFreeRate, DefaultRiskFreeRate)
	premium := rateOrDefault(in.MarketPremium, DefaultMarketPremium)
	costOfDebt := rateOrDefault(in.CostOfDebt, DefaultCostOfDebt)
	taxRate := rateOrDefault(in.TaxRate, DefaultTaxRate)
	debtWeight := rateOrDefault(in.DebtRatio, DefaultDebtRatio)
	equityWeight := 1 - debtWeight

	costOfEquity := riskFree + in.Beta*premium
	afterTaxCostOfDebt := costOfDebt * (1 - taxRate)
	wacc := equityWeight*costOfEquity + debtWeight*afterTaxCostOfDebt

	return WACCBreakdown{
		WACC:               wacc,
		CostOfEquity:       costOfEquity,
		CostOfDebt:         costOfDebt,
		AfterTaxCostOfDebt: afterTaxCostOfDebt,
		TaxRate:            taxRate,
		DebtWeight:         debtWeight,
		EquityWeight:       equityWeight,
		Beta:               in.Beta,
		RiskFreeRate:       riskFree,
		MarketPremium:      premium,
	}
}

func rateOrDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// ResolveDebtRatio returns the debt weight to use for a ticker: the explicit
// override when given, else the TTM debt-to-capital ratio from market data,
// else DefaultDebtRatio. A leverage fetch failure is never fatal.
func ResolveDebtRatio(ctx context.Context, md MarketData, ticker string, override *float64) float64 {
	if override != nil {
		return *override
	}
	if md != nil {
		if ratio, err := md.DebtToCapitalTTM(ctx, ticker); err == nil && ratio > 0 {
			return ratio
		}
	}
	return DefaultDebtRatio
}
