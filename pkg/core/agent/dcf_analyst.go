package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"marketflow/pkg/core/llm"
	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

const dcfAnalystSystemPrompt = `You are a senior equity research analyst with expertise in DCF valuation and investment analysis. Your role is to:

1. Critically evaluate the DCF model assumptions and methodology
2. Identify strengths and weaknesses in the valuation
3. Assess key risks and opportunities
4. Provide a clear investment recommendation

Be specific and quantitative in your analysis. Reference actual numbers from the model.
Use professional financial language but remain accessible.`

// DCFAnalyst writes a one-shot qualitative assessment of a completed DCF
// model. Unlike Analyst it does not participate in the review loop.
type DCFAnalyst struct {
	provider llm.Provider
	options  map[string]interface{}
}

func NewDCFAnalyst(provider llm.Provider, options map[string]interface{}) *DCFAnalyst {
	return &DCFAnalyst{provider: provider, options: options}
}

// Analyze asks the model for an investment thesis over the DCF output. The
// profile is optional context.
func (a *DCFAnalyst) Analyze(ctx context.Context, result *valuation.DCFResult, profile *models.CompanyProfile) (string, error) {
	var b strings.Builder
	b.WriteString("Please analyze the following DCF valuation model and provide your investment thesis.\n\n")
	b.WriteString(formatDCFForPrompt(result))
	if profile != nil {
		fmt.Fprintf(&b, "\nCOMPANY PROFILE:\n- Industry: %s\n- Sector: %s\n- Market Cap: $%.0f\n- Beta: %.2f\n- Description: %s\n",
			profile.Industry, profile.Sector, profile.MarketCap, profile.Beta, clip(profile.Description, 500))
	}
	b.WriteString(`
Please structure your analysis as follows:

## Executive Summary
A 2-3 sentence overview of your investment recommendation.

## DCF Model Assessment
- Are the growth rate assumptions reasonable given historical performance?
- Is the WACC calculation appropriate for this company's risk profile?
- How sensitive is the valuation to key assumptions?

## Key Risks
Identify the top 3-5 risks that could cause the intrinsic value to be lower than calculated.

## Upside Catalysts
Identify potential catalysts that could drive the stock price toward or beyond the intrinsic value.

## Investment Recommendation
Provide a clear BUY, HOLD, or SELL recommendation with price targets and rationale.

## Model Limitations
Note any limitations or areas where additional analysis would be valuable.
`)

	return a.provider.GenerateResponse(ctx, b.String(), dcfAnalystSystemPrompt, a.options)
}

// formatDCFForPrompt flattens the model output into the labeled sections the
// analyst prompt expects.
func formatDCFForPrompt(r *valuation.DCFResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COMPANY: %s (%s)\n\n", r.CompanyName, r.Ticker)

	upside := "n/a"
	if r.Upside != nil {
		upside = fmt.Sprintf("%+.1f%%", *r.Upside)
	}
	fmt.Fprintf(&b, "CURRENT VALUATION:\n- Current Stock Price: $%.2f\n- Intrinsic Value (DCF): $%.2f\n- Upside/Downside: %s\n\n",
		r.CurrentPrice, r.IntrinsicValue, upside)

	fmt.Fprintf(&b, "WACC COMPONENTS:\n- WACC: %.2f%%\n- Cost of Equity: %.2f%%\n- Cost of Debt (after-tax): %.2f%%\n- Debt Weight: %.1f%%\n- Equity Weight: %.1f%%\n- Tax Rate: %.1f%%\n\n",
		r.WACC.WACC*100, r.WACC.CostOfEquity*100, r.WACC.AfterTaxCostOfDebt*100,
		r.WACC.DebtWeight*100, r.WACC.EquityWeight*100, r.WACC.TaxRate*100)

	fmt.Fprintf(&b, "GROWTH ASSUMPTIONS:\n- FCF Growth Rate: %.1f%%\n- Terminal Growth Rate: %.1f%%\n- Projection Period: %d years\n\n",
		r.GrowthRate*100, r.TerminalGrowthRate*100, r.ProjectionYears)

	b.WriteString("HISTORICAL FREE CASH FLOW:\n")
	for _, h := range r.HistoricalFCF {
		fmt.Fprintf(&b, "  - %s: $%.0f\n", h.Year, h.FCF)
	}
	b.WriteString("\nPROJECTED FREE CASH FLOW:\n")
	for i, fcf := range r.ProjectedFCFs {
		fmt.Fprintf(&b, "  - Year %d: $%.0f\n", i+1, fcf)
	}

	fmt.Fprintf(&b, "\nTERMINAL VALUE: $%.0f\nENTERPRISE VALUE: $%.0f\nNET DEBT: $%.0f\nSHARES OUTSTANDING: %.0f\n\n",
		r.TerminalValue, r.EnterpriseValue, r.NetDebt, r.SharesOutstanding)

	b.WriteString("SENSITIVITY ANALYSIS (Intrinsic Value per Share):\n")
	waccKeys := make([]string, 0, len(r.SensitivityMatrix))
	for k := range r.SensitivityMatrix {
		waccKeys = append(waccKeys, k)
	}
	sort.Strings(waccKeys)
	for _, w := range waccKeys {
		row := r.SensitivityMatrix[w]
		growthKeys := make([]string, 0, len(row))
		for g := range row {
			growthKeys = append(growthKeys, g)
		}
		sort.Strings(growthKeys)
		cells := make([]string, 0, len(growthKeys))
		for _, g := range growthKeys {
			if v := row[g]; v != nil {
				cells = append(cells, fmt.Sprintf("g=%s: $%.2f", g, *v))
			} else {
				cells = append(cells, fmt.Sprintf("g=%s: n/a", g))
			}
		}
		fmt.Fprintf(&b, "  WACC %s: %s\n", w, strings.Join(cells, ", "))
	}

	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
