// Package report assembles markdown analysis reports from model output.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketflow/pkg/core/utils"
	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

// Verdict bands the DCF upside into a plain-language call.
func Verdict(upsidePct float64) (string, string) {
	switch {
	case upsidePct > 20:
		return "UNDERVALUED", "significant upside potential"
	case upsidePct > 5:
		return "SLIGHTLY UNDERVALUED", "modest upside potential"
	case upsidePct > -5:
		return "FAIRLY VALUED", "trading near intrinsic value"
	case upsidePct > -20:
		return "SLIGHTLY OVERVALUED", "limited upside potential"
	default:
		return "OVERVALUED", "significant downside risk"
	}
}

// FormatDCFReport renders the full report: executive summary, company
// overview, historical financials, model assumptions, sensitivity grid,
// earnings history and the model-written analysis.
func FormatDCFReport(ticker string, result *valuation.DCFResult, analysis string, profile *models.CompanyProfile, incomes []models.IncomeStatement, earnings []models.EarningsEvent) string {
	today := time.Now().Format("January 2, 2006")

	upside := 0.0
	upsideLabel := "N/A"
	if result.Upside != nil {
		upside = *result.Upside
		upsideLabel = fmt.Sprintf("%+.1f%%", upside)
	}
	verdict, gloss := Verdict(upside)

	var b strings.Builder
	fmt.Fprintf(&b, "# DCF Valuation Analysis: %s (%s)\n\n", result.CompanyName, ticker)
	fmt.Fprintf(&b, "**Report Date:** %s\n\n---\n\n", today)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "**%s** is currently trading at **$%.2f** per share. Based on our Discounted Cash Flow analysis, we estimate an intrinsic value of **$%.2f** per share, representing a **%s** potential return.\n\n",
		result.CompanyName, result.CurrentPrice, result.IntrinsicValue, upsideLabel)
	fmt.Fprintf(&b, "**Valuation Verdict: %s** - The stock appears to have %s.\n\n---\n\n", verdict, gloss)

	fmt.Fprintf(&b, "## Company Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| **Company** | %s |\n", result.CompanyName)
	fmt.Fprintf(&b, "| **Ticker** | %s |\n", ticker)
	if profile != nil {
		fmt.Fprintf(&b, "| **Industry** | %s |\n", orNA(profile.Industry))
		fmt.Fprintf(&b, "| **Sector** | %s |\n", orNA(profile.Sector))
		fmt.Fprintf(&b, "| **Market Cap** | $%.2fB |\n", profile.MarketCap/1e9)
		fmt.Fprintf(&b, "| **Beta** | %.2f |\n", profile.Beta)
	}
	b.WriteString("\n")
	if profile != nil && profile.Description != "" {
		fmt.Fprintf(&b, "**Business Description:**\n%s\n\n", truncate(profile.Description, 800))
	}
	b.WriteString("---\n\n")

	if len(incomes) > 0 {
		fmt.Fprintf(&b, "## Historical Financial Performance\n\n")
		fmt.Fprintf(&b, "| Year | Revenue | Net Income | EPS |\n|------|---------|------------|-----|\n")
		shown := incomes
		if len(shown) > 5 {
			shown = shown[len(shown)-5:]
		}
		for i := len(shown) - 1; i >= 0; i-- {
			stmt := shown[i]
			fmt.Fprintf(&b, "| %s | $%.2fB | $%.2fB | $%.2f |\n",
				stmt.CalendarYear, stmt.Revenue/1e9, stmt.NetIncome/1e9, stmt.EPSDiluted)
		}
		b.WriteString("\n---\n\n")
	}

	fmt.Fprintf(&b, "## DCF Model Details\n\n### Key Assumptions\n\n")
	fmt.Fprintf(&b, "| Assumption | Value |\n|------------|-------|\n")
	fmt.Fprintf(&b, "| **WACC** | %.2f%% |\n", result.WACC.WACC*100)
	fmt.Fprintf(&b, "| **Cost of Equity** | %.2f%% |\n", result.WACC.CostOfEquity*100)
	fmt.Fprintf(&b, "| **Cost of Debt (after-tax)** | %.2f%% |\n", result.WACC.AfterTaxCostOfDebt*100)
	fmt.Fprintf(&b, "| **Debt/Capital** | %.1f%% |\n", result.WACC.DebtWeight*100)
	fmt.Fprintf(&b, "| **Tax Rate** | %.1f%% |\n", result.WACC.TaxRate*100)
	fmt.Fprintf(&b, "| **FCF Growth Rate** | %.1f%% |\n", result.GrowthRate*100)
	fmt.Fprintf(&b, "| **Terminal Growth Rate** | %.1f%% |\n", result.TerminalGrowthRate*100)
	fmt.Fprintf(&b, "| **Projection Period** | %d years |\n\n", result.ProjectionYears)

	fmt.Fprintf(&b, "### Projected Free Cash Flows\n\n")
	fmt.Fprintf(&b, "| Year | Projected FCF |\n|------|---------------|\n")
	for i, fcf := range result.ProjectedFCFs {
		fmt.Fprintf(&b, "| Year %d | $%.1fM |\n", i+1, fcf/1e6)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "### Valuation Summary\n\n")
	fmt.Fprintf(&b, "| Component | Value |\n|-----------|-------|\n")
	fmt.Fprintf(&b, "| **Terminal Value** | $%.2fB |\n", result.TerminalValue/1e9)
	fmt.Fprintf(&b, "| **Enterprise Value** | $%.2fB |\n", result.EnterpriseValue/1e9)
	fmt.Fprintf(&b, "| **Net Debt** | $%.2fB |\n", result.NetDebt/1e9)
	fmt.Fprintf(&b, "| **Equity Value** | $%.2fB |\n", result.EquityValue/1e9)
	fmt.Fprintf(&b, "| **Shares Outstanding** | %.1fM |\n", result.SharesOutstanding/1e6)
	fmt.Fprintf(&b, "| **Intrinsic Value/Share** | $%.2f |\n\n---\n\n", result.IntrinsicValue)

	b.WriteString(formatSensitivity(result.SensitivityMatrix))

	if len(earnings) > 0 {
		fmt.Fprintf(&b, "## Recent Earnings History\n\n")
		fmt.Fprintf(&b, "| Date | EPS | EPS Est. | Surprise |\n|------|-----|----------|----------|\n")
		shown := earnings
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, e := range shown {
			surprise := "N/A"
			if e.EPSEstimated != 0 {
				surprise = fmt.Sprintf("%+.1f%%", (e.EPSActual-e.EPSEstimated)/e.EPSEstimated*100)
			}
			fmt.Fprintf(&b, "| %s | $%.2f | $%.2f | %s |\n", e.Date, e.EPSActual, e.EPSEstimated, surprise)
		}
		b.WriteString("\n---\n\n")
	}

	if analysis != "" {
		fmt.Fprintf(&b, "## AI-Powered Analysis\n\n%s\n\n---\n\n", utils.CleanMarkdown(analysis))
	}

	b.WriteString("## Disclaimer\n\nThis analysis is for informational purposes only and does not constitute investment advice. The DCF model relies on numerous assumptions that may not reflect actual future performance. Past performance is not indicative of future results. Always conduct your own due diligence before making investment decisions.\n\n---\n\n*Generated by Market Flow DCF Analysis Workflow*\n")

	return b.String()
}

// formatSensitivity renders the WACC x growth grid with rows and columns in
// ascending rate order. Degenerate cells print as N/A.
func formatSensitivity(matrix map[string]map[string]*float64) string {
	if len(matrix) == 0 {
		return ""
	}

	waccKeys := sortedRateKeys(matrix)
	growthSet := map[string]struct{}{}
	for _, row := range matrix {
		for g := range row {
			growthSet[g] = struct{}{}
		}
	}
	growthKeys := make([]string, 0, len(growthSet))
	for g := range growthSet {
		growthKeys = append(growthKeys, g)
	}
	sort.Slice(growthKeys, func(i, j int) bool { return rateValue(growthKeys[i]) < rateValue(growthKeys[j]) })

	var b strings.Builder
	b.WriteString("## Sensitivity Analysis\n\nIntrinsic value per share across WACC and terminal growth scenarios:\n\n")
	b.WriteString("| WACC \\ Growth |")
	for _, g := range growthKeys {
		fmt.Fprintf(&b, " %s |", g)
	}
	b.WriteString("\n|---|")
	for range growthKeys {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, w := range waccKeys {
		fmt.Fprintf(&b, "| **%s** |", w)
		for _, g := range growthKeys {
			if v := matrix[w][g]; v != nil {
				fmt.Fprintf(&b, " $%.2f |", *v)
			} else {
				b.WriteString(" N/A |")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n---\n\n")
	return b.String()
}

func sortedRateKeys(matrix map[string]map[string]*float64) []string {
	keys := make([]string, 0, len(matrix))
	for k := range matrix {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return rateValue(keys[i]) < rateValue(keys[j]) })
	return keys
}

func rateValue(key string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(key, "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
