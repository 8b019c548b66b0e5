package valuation

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// CBCV defaults. The model projects customer acquisition a decade out with a
// geometric saturation decay unless the caller says otherwise.
const (
	DefaultCBCVProjectionYears = 10
	DefaultAcquisitionDecay    = 0.10
	maxRetention               = 0.99 // keeps the CLV denominator away from the retention->1 singularity
)

// CBCVInputs are the customer-economics inputs for a valuation. TotalCustomers
// is required; the rest are derived from statements or industry benchmarks
// when absent.
type CBCVInputs struct {
	TotalCustomers  int
	ARPU            *float64 // annual revenue per user; derived from revenue/customers when nil
	ChurnRate       *float64 // industry benchmark when nil
	CAC             *float64 // S&M / new customers, else one year of margin contribution
	NewCustomers    *int     // this year's acquisitions; estimated as 10% of base when nil
	ProjectionYears int
	TAM             int      // total addressable market; 0 means uncapped
	DecayRate       *float64 // annual acquisition decay; nil means DefaultAcquisitionDecay, 0 means none
}

// CBCVResult is the complete customer-based valuation. Same immutability and
// lifecycle contract as DCFResult.
type CBCVResult struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`

	CurrentPrice      float64 `json:"current_price"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	MarketCap         float64 `json:"market_cap"`

	TotalCustomers int     `json:"total_customers"`
	ARPU           float64 `json:"arpu"`
	ChurnRate      float64 `json:"churn_rate"`
	RetentionRate  float64 `json:"retention_rate"`
	CAC            float64 `json:"cac"`
	GrossMargin    float64 `json:"gross_margin"`

	CLV           float64 `json:"clv"`
	LTVCACRatio   float64 `json:"ltv_cac_ratio"`
	PaybackMonths float64 `json:"payback_months"`

	ExistingCustomerEquity float64 `json:"existing_customer_equity"`
	FutureCustomerEquity   float64 `json:"future_customer_equity"`
	TotalCustomerEquity    float64 `json:"total_customer_equity"`

	WACC            float64  `json:"wacc"`
	EnterpriseValue float64  `json:"enterprise_value"`
	NetDebt         float64  `json:"net_debt"`
	EquityValue     float64  `json:"equity_value"`
	IntrinsicValue  float64  `json:"intrinsic_value_per_share"`
	Upside          *float64 `json:"upside_percentage"`

	ProjectedCustomers   []int     `json:"projected_customers"`
	ProjectedRevenue     []float64 `json:"projected_revenue"`
	ProjectedAcquisition []int     `json:"projected_acquisition"`

	Assumptions       map[string]float64            `json:"assumptions"`
	AssumptionSources map[string]string             `json:"assumption_sources"`
	SensitivityMatrix map[string]map[string]float64 `json:"sensitivity_matrix"`
}

// CalculateCLV computes customer lifetime value for a contractual business:
//
//	CLV = (ARPU * margin) * retention / (1 + discount - retention)
//
// Retention is clamped below 0.99; the denominator degenerates as
// retention approaches 1.
func CalculateCLV(arpu, grossMargin, retentionRate, discountRate float64) float64 {
	if retentionRate >= maxRetention {
		retentionRate = maxRetention
	}
	marginContribution := arpu * grossMargin
	return marginContribution * retentionRate / (1 + discountRate - retentionRate)
}

// CalculateCAC divides the period's sales & marketing spend over the
// customers it acquired.
func CalculateCAC(salesMarketingExpense float64, newCustomers int) float64 {
	if newCustomers <= 0 {
		return 0
	}
	return salesMarketingExpense / float64(newCustomers)
}

// PaybackMonths is the number of months of margin contribution needed to
// recover the acquisition cost. Returns +Inf when the contribution is
// non-positive.
func PaybackMonths(cac, arpu, grossMargin float64) float64 {
	monthly := arpu * grossMargin / 12
	if monthly <= 0 {
		return math.Inf(1)
	}
	return cac / monthly
}

// ExistingCustomerEquity values the current customer base at CLV.
func ExistingCustomerEquity(totalCustomers int, clv float64) float64 {
	return float64(totalCustomers) * clv
}

// FutureCustomerEquity is the NPV of future acquisitions over the projection
// horizon:
//
//	Future CE = sum over t of new_t * (CLV - CAC) / (1 + r)^t
//
// Each year's acquisition decays geometrically from the prior year's realized
// (TAM-capped) acquisition, so the decay compounds on the actual trajectory.
// Cumulative customers never exceed the TAM; once the cap is hit, acquisition
// is zero for every later year. When CLV <= CAC the whole contribution is
// zero: value-destructive acquisition is never credited as positive equity.
func FutureCustomerEquity(annualNewCustomers int, clv, cac, discountRate float64, years int, decay float64, tam, currentCustomers int) (float64, []int) {
	if years <= 0 {
		return 0, nil
	}
	acquisitions := make([]int, years)
	if clv <= cac {
		return 0, acquisitions
	}

	valuePerCustomer := clv - cac
	cumulative := currentCustomers
	acquisitionRate := float64(annualNewCustomers)
	total := 0.0

	for year := 1; year <= years; year++ {
		if year > 1 {
			acquisitionRate *= 1 - decay
		}
		yearAcq := int(acquisitionRate)
		if tam > 0 {
			if remaining := tam - cumulative; yearAcq > remaining {
				yearAcq = remaining
			}
		}
		if yearAcq < 0 {
			yearAcq = 0
		}

		acquisitions[year-1] = yearAcq
		cumulative += yearAcq
		total += float64(yearAcq) * valuePerCustomer / math.Pow(1+discountRate, float64(year))

		acquisitionRate = float64(yearAcq)
	}
	return total, acquisitions
}

// BuildCLVSensitivity perturbs retention +/-5pp in 2.5pp steps (clamped to
// [0.50, 0.99]) against ARPU +/-20% in 10% steps, yielding the 5x5 CLV grid.
func BuildCLVSensitivity(arpu, grossMargin, baseRetention, discountRate float64) map[string]map[string]float64 {
	retentionDeltas := []float64{-0.05, -0.025, 0, 0.025, 0.05}
	arpuDeltas := []float64{-0.20, -0.10, 0, 0.10, 0.20}

	matrix := make(map[string]map[string]float64, len(retentionDeltas))
	for _, rd := range retentionDeltas {
		retention := clamp(baseRetention+rd, 0.50, maxRetention)
		row := make(map[string]float64, len(arpuDeltas))
		for _, ad := range arpuDeltas {
			row[arpuKey(ad)] = CalculateCLV(arpu*(1+ad), grossMargin, retention, discountRate)
		}
		matrix[rateKey(retention)] = row
	}
	return matrix
}

func arpuKey(delta float64) string {
	return fmt.Sprintf("%+.0f%% ARPU", delta*100)
}

// BuildCBCVModel assembles a customer-based corporate valuation: it fetches
// the latest statements through the MarketData collaborator, fills missing
// customer economics from benchmarks, and values the company as
// existing + future customer equity.
func BuildCBCVModel(ctx context.Context, md MarketData, ticker string, in CBCVInputs) (*CBCVResult, error) {
	ticker = strings.ToUpper(ticker)
	if in.ProjectionYears <= 0 {
		in.ProjectionYears = DefaultCBCVProjectionYears
	}
	decay := rateOrDefault(in.DecayRate, DefaultAcquisitionDecay)
	if in.TotalCustomers <= 0 {
		return nil, &MissingInputError{Field: "total_customers"}
	}

	profile, err := md.Profile(ctx, ticker)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "profile", Err: err}
	}
	incomes, err := md.IncomeStatements(ctx, ticker, "annual", 1)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "income statements", Err: err}
	}
	balanceSheets, err := md.BalanceSheets(ctx, ticker, "annual", 1)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "balance sheets", Err: err}
	}
	quote, err := md.Quote(ctx, ticker)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Resource: "quote", Err: err}
	}

	companyName := profile.CompanyName
	if companyName == "" {
		companyName = ticker
	}
	beta := profile.Beta
	if beta == 0 {
		beta = 1.0
	}
	marketCap := profile.MarketCap
	if marketCap == 0 {
		marketCap = quote.MarketCap
	}

	var revenue, grossMargin, smExpense float64
	grossMargin = 0.5
	if len(incomes) > 0 {
		stmt := incomes[len(incomes)-1]
		revenue = stmt.Revenue
		if revenue > 0 {
			grossMargin = stmt.GrossProfit / revenue
		}
		smExpense = stmt.SellingAndMarketingExpenses
		if smExpense == 0 {
			// S&M is often folded into SG&A; half is a workable split.
			smExpense = stmt.SellingGeneralAndAdministrativeExpenses * 0.5
		}
	}

	var netDebt float64
	if len(balanceSheets) > 0 {
		bs := balanceSheets[len(balanceSheets)-1]
		netDebt = bs.TotalDebt - (bs.CashAndCashEquivalents + bs.ShortTermInvestments)
	}

	currentPrice := quote.Price
	var sharesOutstanding float64
	if currentPrice > 0 && marketCap > 0 {
		sharesOutstanding = marketCap / currentPrice
	} else {
		sharesOutstanding = quote.SharesOutstanding
	}

	debtRatio := ResolveDebtRatio(ctx, md, ticker, nil)
	wacc := CalculateWACC(WACCInput{Beta: beta, DebtRatio: &debtRatio}).WACC

	industry := IndustryForTicker(ticker)
	sources := make(map[string]string, 4)

	var arpu float64
	switch {
	case in.ARPU != nil:
		arpu = *in.ARPU
		sources["arpu"] = "provided"
	case revenue > 0 && in.TotalCustomers > 0:
		arpu = revenue / float64(in.TotalCustomers)
		sources["arpu"] = "calculated"
	default:
		return nil, &MissingInputError{Field: "arpu"}
	}

	var churn float64
	if in.ChurnRate != nil {
		churn = *in.ChurnRate
		sources["churn_rate"] = "provided"
	} else {
		churn = ChurnBenchmark(ticker)
		sources["churn_rate"] = "industry_benchmark"
	}
	retention := 1 - churn

	newCustomers := 0
	if in.NewCustomers != nil {
		newCustomers = *in.NewCustomers
	}

	var cac float64
	switch {
	case in.CAC != nil:
		cac = *in.CAC
		sources["cac"] = "provided"
	case newCustomers > 0 && smExpense > 0:
		cac = CalculateCAC(smExpense, newCustomers)
		sources["cac"] = "calculated"
	default:
		// Heuristic default: one year of margin contribution, not a
		// precise estimate.
		cac = arpu * grossMargin
		sources["cac"] = "estimated"
	}

	if newCustomers <= 0 {
		newCustomers = int(float64(in.TotalCustomers) * 0.10)
		sources["new_customers"] = "estimated"
	}

	clv := CalculateCLV(arpu, grossMargin, retention, wacc)

	var ltvCACRatio float64
	if cac > 0 {
		ltvCACRatio = clv / cac
	}
	payback := PaybackMonths(cac, arpu, grossMargin)
	if math.IsInf(payback, 1) {
		payback = 0
	}

	existingCE := ExistingCustomerEquity(in.TotalCustomers, clv)
	futureCE, projectedAcq := FutureCustomerEquity(
		newCustomers, clv, cac, wacc, in.ProjectionYears, decay, in.TAM, in.TotalCustomers)

	totalCE := existingCE + futureCE
	enterpriseValue := totalCE
	equityValue := enterpriseValue - netDebt

	var intrinsic float64
	if sharesOutstanding > 0 {
		intrinsic = equityValue / sharesOutstanding
	}

	var upside *float64
	if currentPrice > 0 {
		u := (intrinsic - currentPrice) / currentPrice * 100
		upside = &u
	}

	// Customer/revenue trajectory: each year retains the prior base and adds
	// the projected acquisitions.
	projectedCustomers := []int{in.TotalCustomers}
	projectedRevenue := []float64{float64(in.TotalCustomers) * arpu}
	for _, acq := range projectedAcq {
		prev := projectedCustomers[len(projectedCustomers)-1]
		next := int(float64(prev)*retention) + acq
		projectedCustomers = append(projectedCustomers, next)
		projectedRevenue = append(projectedRevenue, float64(next)*arpu)
	}

	sensitivity := BuildCLVSensitivity(arpu, grossMargin, retention, wacc)

	assumptions := map[string]float64{
		"arpu":              arpu,
		"churn_rate":        churn,
		"retention_rate":    retention,
		"cac":               cac,
		"gross_margin":      grossMargin,
		"wacc":              wacc,
		"projection_years":  float64(in.ProjectionYears),
		"acquisition_decay": decay,
		"new_customers":     float64(newCustomers),
	}
	if in.TAM > 0 {
		assumptions["tam"] = float64(in.TAM)
	}

	return &CBCVResult{
		Ticker:                 ticker,
		CompanyName:            companyName,
		Industry:               industry,
		CurrentPrice:           currentPrice,
		SharesOutstanding:      sharesOutstanding,
		MarketCap:              marketCap,
		TotalCustomers:         in.TotalCustomers,
		ARPU:                   arpu,
		ChurnRate:              churn,
		RetentionRate:          retention,
		CAC:                    cac,
		GrossMargin:            grossMargin,
		CLV:                    clv,
		LTVCACRatio:            ltvCACRatio,
		PaybackMonths:          payback,
		ExistingCustomerEquity: existingCE,
		FutureCustomerEquity:   futureCE,
		TotalCustomerEquity:    totalCE,
		WACC:                   wacc,
		EnterpriseValue:        enterpriseValue,
		NetDebt:                netDebt,
		EquityValue:            equityValue,
		IntrinsicValue:         intrinsic,
		Upside:                 upside,
		ProjectedCustomers:     projectedCustomers,
		ProjectedRevenue:       projectedRevenue,
		ProjectedAcquisition:   projectedAcq,
		Assumptions:            assumptions,
		AssumptionSources:      sources,
		SensitivityMatrix:      sensitivity,
	}, nil
}
