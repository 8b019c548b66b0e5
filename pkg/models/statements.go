// Package models defines the financial statement records fetched from the
// market-data provider. Field names mirror the FMP stable API payloads so the
// records unmarshal directly from the wire.
package models

import "sort"

// IncomeStatement is one fiscal period of the income statement.
type IncomeStatement struct {
	Date         string `json:"date"`
	Period       string `json:"period"`
	CalendarYear string `json:"calendarYear"`

	Revenue          float64 `json:"revenue"`
	CostOfRevenue    float64 `json:"costOfRevenue"`
	GrossProfit      float64 `json:"grossProfit"`
	OperatingIncome  float64 `json:"operatingIncome"`
	NetIncome        float64 `json:"netIncome"`
	EBITDA           float64 `json:"ebitda"`
	EPS              float64 `json:"eps"`
	EPSDiluted       float64 `json:"epsdiluted"`
	InterestExpense  float64 `json:"interestExpense"`
	IncomeBeforeTax  float64 `json:"incomeBeforeTax"`
	IncomeTaxExpense float64 `json:"incomeTaxExpense"`

	SellingAndMarketingExpenses             float64 `json:"sellingAndMarketingExpenses"`
	SellingGeneralAndAdministrativeExpenses float64 `json:"sellingGeneralAndAdministrativeExpenses"`
}

// BalanceSheet is one fiscal period of the balance sheet.
type BalanceSheet struct {
	Date         string `json:"date"`
	Period       string `json:"period"`
	CalendarYear string `json:"calendarYear"`

	TotalAssets             float64 `json:"totalAssets"`
	TotalLiabilities        float64 `json:"totalLiabilities"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
	TotalDebt               float64 `json:"totalDebt"`
	CashAndCashEquivalents  float64 `json:"cashAndCashEquivalents"`
	ShortTermInvestments    float64 `json:"shortTermInvestments"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
}

// CashFlowStatement is one fiscal period of the cash flow statement.
type CashFlowStatement struct {
	Date         string `json:"date"`
	Period       string `json:"period"`
	CalendarYear string `json:"calendarYear"`

	OperatingCashFlow  float64 `json:"operatingCashFlow"`
	CapitalExpenditure float64 `json:"capitalExpenditure"` // signed negative on the wire
	FreeCashFlow       float64 `json:"freeCashFlow"`
}

// CompanyProfile is the company overview record.
type CompanyProfile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Industry    string  `json:"industry"`
	Sector      string  `json:"sector"`
	Country     string  `json:"country"`
	Description string  `json:"description"`
	Beta        float64 `json:"beta"`
	MarketCap   float64 `json:"marketCap"`
	Price       float64 `json:"price"`
}

// Quote is the latest market quote for a ticker.
type Quote struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"marketCap"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
}

// EarningsEvent is one quarterly earnings print.
type EarningsEvent struct {
	Date         string  `json:"date"`
	EPSActual    float64 `json:"epsActual"`
	EPSEstimated float64 `json:"epsEstimated"`
}

// The provider returns statements newest-first, but growth math (CAGR,
// compounding) is only meaningful oldest-to-newest. Callers normalize through
// these helpers instead of assuming wire order.

// SortIncomeStatements orders statements oldest first, in place.
func SortIncomeStatements(stmts []IncomeStatement) {
	sort.SliceStable(stmts, func(i, j int) bool { return periodKey(stmts[i].CalendarYear, stmts[i].Date) < periodKey(stmts[j].CalendarYear, stmts[j].Date) })
}

// SortBalanceSheets orders balance sheets oldest first, in place.
func SortBalanceSheets(sheets []BalanceSheet) {
	sort.SliceStable(sheets, func(i, j int) bool { return periodKey(sheets[i].CalendarYear, sheets[i].Date) < periodKey(sheets[j].CalendarYear, sheets[j].Date) })
}

// SortCashFlows orders cash flow statements oldest first, in place.
func SortCashFlows(flows []CashFlowStatement) {
	sort.SliceStable(flows, func(i, j int) bool { return periodKey(flows[i].CalendarYear, flows[i].Date) < periodKey(flows[j].CalendarYear, flows[j].Date) })
}

// periodKey builds a sortable key from the fiscal year and statement date.
// CalendarYear alone is enough for annual data; the date breaks quarterly ties.
func periodKey(year, date string) string {
	return year + "|" + date
}
