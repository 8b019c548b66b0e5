package valuation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"marketflow/pkg/models"
)

// Growth-rate selection policy constants. The three-tier fallback
// (override -> clamped historical CAGR -> fixed default) determines result
// reproducibility across tickers with sparse history and must not change.
const (
	DefaultProjectionYears    = 5
	DefaultTerminalGrowthRate = 0.025
	DefaultGrowthRate         = 0.08
	MinGrowthRate             = -0.10
	MaxGrowthRate             = 0.30

	minCostOfDebt = 0.03
	maxCostOfDebt = 0.15
	maxTaxRate    = 0.40
)

// DCFOptions are the tunable assumptions for a DCF run. Rate fields are
// pointers so an explicit zero is distinct from absence; nil means "use the
// documented default or derive from data".
type DCFOptions struct {
	ProjectionYears    int
	TerminalGrowthRate *float64 // nil means DefaultTerminalGrowthRate
	RiskFreeRate       *float64 // nil means DefaultRiskFreeRate
	MarketPremium      *float64 // nil means DefaultMarketPremium
	GrowthRate         *float64 // overrides historical CAGR when set
	DebtRatio          *float64 // overrides TTM leverage lookup when set
}

// HistoricalFCF is one fiscal year of reported free cash flow.
type HistoricalFCF struct {
	Year string  `json:"year"`
	FCF  float64 `json:"fcf"`
}

// Valuation holds the discounted components of an intrinsic-value computation.
type Valuation struct {
	PVFCFs          []float64 `json:"pv_fcfs"`
	PVTerminal      float64   `json:"pv_terminal_value"`
	EnterpriseValue float64   `json:"enterprise_value"`
	EquityValue     float64   `json:"equity_value"`
	PerShare        float64   `json:"intrinsic_value_per_share"`
}

// DCFResult is the complete model output. Constructed once per invocation and
// never mutated afterwards; serializable as a flat record.
type DCFResult struct {
	Ticker         string   `json:"ticker"`
	CompanyName    string   `json:"company_name"`
	CurrentPrice   float64  `json:"current_price"`
	IntrinsicValue float64  `json:"intrinsic_value"`
	Upside         *float64 `json:"upside_percentage"` // nil when current price <= 0

	WACC WACCBreakdown `json:"wacc"`

	ProjectionYears    int       `json:"projection_years"`
	GrowthRate         float64   `json:"growth_rate"`
	TerminalGrowthRate float64   `json:"terminal_growth_rate"`
	ProjectedFCFs      []float64 `json:"projected_fcfs"`
	TerminalValue      float64   `json:"terminal_value"`
	EnterpriseValue    float64   `json:"enterprise_value"`
	EquityValue        float64   `json:"equity_value"`

	SharesOutstanding float64 `json:"shares_outstanding"`
	NetDebt           float64 `json:"net_debt"`

	HistoricalFCF []HistoricalFCF    `json:"historical_fcf"`
	Assumptions   map[string]float64 `json:"assumptions"`

	// SensitivityMatrix maps "wacc%" -> "growth%" -> intrinsic value per
	// share. Cells whose (WACC, g) pair violates WACC > g are nil: the
	// perpetuity is undefined there, and a degenerate corner must not abort
	// the rest of the grid.
	SensitivityMatrix map[string]map[string]*float64 `json:"sensitivity_matrix"`
}

// IntrinsicValue discounts projected cash flows and the terminal value back
// to the present. Year offsets are 1-indexed; the terminal value is
// discounted at the final projection year, not year N+1.
func IntrinsicValue(projected []float64, terminalValue, wacc, sharesOutstanding, netDebt float64) Valuation {
	pvFCFs := make([]float64, len(projected))
	sum := 0.0
	for i, fcf := range projected {
		pv := fcf / math.Pow(1+wacc, float64(i+1))
		pvFCFs[i] = pv
		sum += pv
	}

	pvTerminal := terminalValue / math.Pow(1+wacc, float64(len(projected)))
	enterprise := sum + pvTerminal
	equity := enterprise - netDebt

	perShare := 0.0
	if sharesOutstanding != 0 {
		perShare = equity / sharesOutstanding
	}

	return Valuation{
		PVFCFs:          pvFCFs,
		PVTerminal:      pvTerminal,
		EnterpriseValue: enterprise,
		EquityValue:     equity,
		PerShare:        perShare,
	}
}

// BuildDCFModel fetches statements through the MarketData collaborator and
// assembles the full DCF valuation: WACC, projected cash flows, terminal
// value, per-share intrinsic value and the 3x3 sensitivity grid.
func BuildDCFModel(ctx context.Context, md MarketData, ticker string, opts DCFOptions) (*DCFResult, error) {
	ticker = strings.ToUpper(ticker)
	if opts.ProjectionYears <= 0 {
		opts.ProjectionYears = DefaultProjectionYears
	}
	terminalGrowth := rateOrDefault(opts.TerminalGrowthRate, DefaultTerminalGrowthRate)

	profile, err := md.Profile(ctx, ticker)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "profile", Err: err}
	}
	incomes, err := md.IncomeStatements(ctx, ticker, "annual", 5)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "income statements", Err: err}
	}
	cashFlows, err := md.CashFlows(ctx, ticker, "annual", 5)
	if err != nil || len(cashFlows) == 0 {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "cash flow statements", Err: err}
	}
	balanceSheets, err := md.BalanceSheets(ctx, ticker, "annual", 5)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "balance sheets", Err: err}
	}
	quote, err := md.Quote(ctx, ticker)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "quote", Err: err}
	}

	// Normalize to oldest-first before any growth math.
	models.SortIncomeStatements(incomes)
	models.SortCashFlows(cashFlows)
	models.SortBalanceSheets(balanceSheets)

	companyName := profile.CompanyName
	if companyName == "" {
		companyName = ticker
	}
	beta := profile.Beta
	if beta == 0 {
		beta = 1.0
	}

	currentPrice := quote.Price
	sharesOutstanding := quote.SharesOutstanding
	if sharesOutstanding == 0 && currentPrice > 0 {
		marketCap := quote.MarketCap
		if marketCap == 0 {
			marketCap = profile.MarketCap
		}
		if marketCap > 0 {
			sharesOutstanding = marketCap / currentPrice
		}
	}
	if sharesOutstanding <= 0 {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "shares outstanding"}
	}

	var netDebt float64
	if len(balanceSheets) > 0 {
		latest := balanceSheets[len(balanceSheets)-1]
		netDebt = latest.TotalDebt - latest.CashAndCashEquivalents
	}

	costOfDebt := DefaultCostOfDebt
	taxRate := DefaultTaxRate
	if len(incomes) > 0 {
		latest := incomes[len(incomes)-1]
		if len(balanceSheets) > 0 {
			totalDebt := balanceSheets[len(balanceSheets)-1].TotalDebt
			if totalDebt > 0 {
				costOfDebt = clamp(math.Abs(latest.InterestExpense)/totalDebt, minCostOfDebt, maxCostOfDebt)
			}
		}
		if latest.IncomeBeforeTax > 0 {
			taxRate = clamp(latest.IncomeTaxExpense/latest.IncomeBeforeTax, 0, maxTaxRate)
		}
	}

	// The derived cost of debt and effective tax rate are passed as explicit
	// values: a computed 0% tax rate (NOL carryforward years) must survive
	// into the discount rate, not be re-defaulted.
	debtRatio := ResolveDebtRatio(ctx, md, ticker, opts.DebtRatio)
	wacc := CalculateWACC(WACCInput{
		Beta:          beta,
		RiskFreeRate:  opts.RiskFreeRate,
		MarketPremium: opts.MarketPremium,
		DebtRatio:     &debtRatio,
		CostOfDebt:    &costOfDebt,
		TaxRate:       &taxRate,
	})

	// Historical FCF series, oldest to newest.
	var history []HistoricalFCF
	for _, cf := range cashFlows {
		if cf.FreeCashFlow != 0 {
			history = append(history, HistoricalFCF{Year: cf.CalendarYear, FCF: cf.FreeCashFlow})
		}
	}

	growthRate := selectGrowthRate(history, opts.GrowthRate)

	// Base cash flow: most recent FCF if positive; otherwise substitute
	// OCF - |CapEx| for the same period so one bad year does not produce a
	// meaningless negative-base valuation.
	latestCF := cashFlows[len(cashFlows)-1]
	baseFCF := latestCF.FreeCashFlow
	if baseFCF <= 0 {
		baseFCF = latestCF.OperatingCashFlow - math.Abs(latestCF.CapitalExpenditure)
	}

	projected, err := ProjectCashFlowsFlat(baseFCF, growthRate, opts.ProjectionYears)
	if err != nil {
		return nil, err
	}

	terminal, err := TerminalValue(projected[len(projected)-1], terminalGrowth, wacc.WACC)
	if err != nil {
		return nil, err
	}

	val := IntrinsicValue(projected, terminal, wacc.WACC, sharesOutstanding, netDebt)

	var upside *float64
	if currentPrice > 0 {
		u := (val.PerShare - currentPrice) / currentPrice * 100
		upside = &u
	}

	sensitivity := buildDCFSensitivity(projected, wacc.WACC, terminalGrowth, sharesOutstanding, netDebt)

	assumptions := map[string]float64{
		"base_fcf":             baseFCF,
		"growth_rate":          growthRate,
		"terminal_growth_rate": terminalGrowth,
		"risk_free_rate":       wacc.RiskFreeRate,
		"market_premium":       wacc.MarketPremium,
		"beta":                 beta,
		"debt_ratio":           debtRatio,
		"cost_of_debt":         costOfDebt,
		"tax_rate":             taxRate,
		"projection_years":     float64(opts.ProjectionYears),
	}

	return &DCFResult{
		Ticker:             ticker,
		CompanyName:        companyName,
		CurrentPrice:       currentPrice,
		IntrinsicValue:     val.PerShare,
		Upside:             upside,
		WACC:               wacc,
		ProjectionYears:    opts.ProjectionYears,
		GrowthRate:         growthRate,
		TerminalGrowthRate: terminalGrowth,
		ProjectedFCFs:      projected,
		TerminalValue:      terminal,
		EnterpriseValue:    val.EnterpriseValue,
		EquityValue:        val.EquityValue,
		SharesOutstanding:  sharesOutstanding,
		NetDebt:            netDebt,
		HistoricalFCF:      history,
		Assumptions:        assumptions,
		SensitivityMatrix:  sensitivity,
	}, nil
}

// selectGrowthRate applies the three-tier fallback: explicit override, then
// historical CAGR over the positive FCF series clamped to
// [MinGrowthRate, MaxGrowthRate], then DefaultGrowthRate.
func selectGrowthRate(history []HistoricalFCF, override *float64) float64 {
	if override != nil {
		return *override
	}
	var positives []float64
	for _, h := range history {
		if h.FCF > 0 {
			positives = append(positives, h.FCF)
		}
	}
	if len(positives) >= 2 {
		return clamp(cagr(positives), MinGrowthRate, MaxGrowthRate)
	}
	return DefaultGrowthRate
}

// cagr computes the compound annual growth rate of an oldest-to-newest series
// of positive values.
func cagr(values []float64) float64 {
	years := float64(len(values) - 1)
	return math.Pow(values[len(values)-1]/values[0], 1/years) - 1
}

// buildDCFSensitivity recomputes the per-share value over WACC +/- 2pp
// crossed with terminal growth +/- 1pp, reusing the base-case projections and
// discounting logic. Degenerate (WACC <= g) cells are nil, not errors.
func buildDCFSensitivity(projected []float64, baseWACC, baseGrowth, sharesOutstanding, netDebt float64) map[string]map[string]*float64 {
	waccRange := []float64{baseWACC - 0.02, baseWACC, baseWACC + 0.02}
	growthRange := []float64{baseGrowth - 0.01, baseGrowth, baseGrowth + 0.01}
	finalFCF := projected[len(projected)-1]

	matrix := make(map[string]map[string]*float64, len(waccRange))
	for _, w := range waccRange {
		row := make(map[string]*float64, len(growthRange))
		for _, g := range growthRange {
			tv, err := TerminalValue(finalFCF, g, w)
			if err != nil {
				row[rateKey(g)] = nil
				continue
			}
			val := IntrinsicValue(projected, tv, w, sharesOutstanding, netDebt)
			perShare := val.PerShare
			row[rateKey(g)] = &perShare
		}
		matrix[rateKey(w)] = row
	}
	return matrix
}

// rateKey formats a rate as a percentage label, e.g. 0.085 -> "8.5%".
func rateKey(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
