package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketflow/pkg/core/llm"
	"marketflow/pkg/core/valuation"
)

const analystSystemPrompt = `You are an expert financial analyst specializing in valuation and modeling.

## Your Analysis Process

You are given precomputed model output (DCF and, when customer metrics exist,
CBCV) alongside the raw market data it was built from. Work through:

### Step 1: Baseline Valuation Review
Examine the DCF output: intrinsic value, current price, upside %, WACC
components, growth assumptions and the FCF trend.

### Step 2: Model Fit Assessment
Decide whether DCF is the right lens for this company:

**DCF fits when:**
- Free cash flow is consistently positive
- Business is mature with stable, predictable cash flows

**Customer-based (CBCV) thinking applies when ANY of these hold:**
- Company is customer/subscriber-centric (streaming, fintech, SaaS)
- Free cash flow is negative due to customer acquisition investment
- Unit economics (LTV/CAC ratio) is key to the investment thesis
- DCF produced a negative or nonsensical intrinsic value

### Step 3: Synthesis & Recommendation
Combine all insights into a comprehensive investment recommendation:
- Executive summary (2-3 sentences)
- Key valuation metrics and what they imply
- Bear, neutral, and bull scenarios with assumptions
- Risk factors and upside catalysts, quantified where possible
- Clear BUY/HOLD/SELL recommendation with price targets

## Important Guidelines

1. Always show your reasoning for model fit based on the DCF results
2. Be specific and quantitative - reference actual numbers from the model output
3. State every assumption explicitly, e.g. "Assuming 8% revenue growth based
   on 5-year historical CAGR of 7.2%"
4. Acknowledge limitations and areas needing further analysis`

const refinementSystemPrompt = `You are an expert financial analyst refining a previous analysis based on reviewer feedback.

## Your Task
1. Carefully read and understand each piece of feedback
2. Address each point using the model output and market data provided
3. If feedback requests data or analysis not present in the provided context,
   write: "DATA LIMITATION: [what was requested and why it cannot be fulfilled]"

## Important Guidelines
1. Address EVERY piece of feedback from the reviewer
2. Maintain the same professional format as the original analysis
3. Clearly mark revised sections with a "[REVISED]" prefix
4. If you revise an assumption, state the old value, the new value, and why`

// Analyst is the producer side of the review loop: it runs the
// valuation models in-process and asks the LLM to interpret them.
type Analyst struct {
	provider llm.Provider
	md       valuation.MarketData
	options  map[string]interface{}
}

func NewAnalyst(provider llm.Provider, md valuation.MarketData, options map[string]interface{}) *Analyst {
	return &Analyst{provider: provider, md: md, options: options}
}

// modelContext runs the DCF and serializes it for the prompt. A model failure
// is reported inside the context rather than aborting: the analyst can still
// reason about why the model broke (negative FCF, missing data).
func (a *Analyst) modelContext(ctx context.Context, ticker string) string {
	var sections []string

	dcf, err := valuation.BuildDCFModel(ctx, a.md, ticker, valuation.DCFOptions{})
	if err != nil {
		sections = append(sections, fmt.Sprintf("DCF model could not be built: %v", err))
	} else if encoded, err := json.MarshalIndent(dcf, "", "  "); err == nil {
		sections = append(sections, "DCF model output:\n"+string(encoded))
	}

	if params, err := valuation.EstimateParameters(ctx, a.md, ticker, 5, ""); err == nil {
		if encoded, err := json.MarshalIndent(params, "", "  "); err == nil {
			sections = append(sections, "Estimated model parameters:\n"+string(encoded))
		}
	}

	if len(sections) == 0 {
		return "No model output available for " + strings.ToUpper(ticker)
	}
	return strings.Join(sections, "\n\n")
}

// Produce drafts the initial analysis for a ticker.
func (a *Analyst) Produce(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(ticker)
	prompt := fmt.Sprintf(`Analyze %s following the structured workflow.

--- MODEL OUTPUT ---
%s
--- END MODEL OUTPUT ---

1. Review the DCF baseline and its assumptions
2. Assess whether DCF is the right model for this company
3. Provide your deep analysis with bear/neutral/bull scenarios
4. Synthesize your findings into a clear investment recommendation

Be thorough and quantitative in your analysis.`, ticker, a.modelContext(ctx, ticker))

	analysis, err := a.provider.GenerateResponse(ctx, prompt, analystSystemPrompt, a.options)
	if err != nil {
		return "", fmt.Errorf("analyst generation failed for %s: %w", ticker, err)
	}
	return analysis, nil
}

// Refine reworks a prior analysis to address the reviewer's feedback.
func (a *Analyst) Refine(ctx context.Context, ticker, feedback, priorAnalysis string) (string, error) {
	ticker = strings.ToUpper(ticker)
	prompt := fmt.Sprintf(`You previously analyzed %s and received the following feedback:

--- REVIEWER FEEDBACK ---
%s
--- END FEEDBACK ---

--- YOUR PREVIOUS ANALYSIS ---
%s
--- END PREVIOUS ANALYSIS ---

--- MODEL OUTPUT ---
%s
--- END MODEL OUTPUT ---

Please refine your analysis by:
1. Addressing each point in the feedback
2. Using the model output for any additional quantitative support
3. Noting any feedback that cannot be addressed with the available data
4. Producing a complete, refined analysis`, ticker, feedback, priorAnalysis, a.modelContext(ctx, ticker))

	analysis, err := a.provider.GenerateResponse(ctx, prompt, refinementSystemPrompt, a.options)
	if err != nil {
		return "", fmt.Errorf("analyst refinement failed for %s: %w", ticker, err)
	}
	return analysis, nil
}
