package review

import (
	"context"
	"fmt"

	"marketflow/pkg/core/llm"
	"marketflow/pkg/core/utils"
)

// AgentTypeFinancialModeling is the only reviewable agent type today.
// Research and risk-analysis rubrics slot in here when they land.
const AgentTypeFinancialModeling = "financial_modeling"

const financialModelingRubric = `You are a senior investment analyst reviewing a financial modeling report.

## Validation Criteria

Evaluate the report against these criteria and provide a score (1-5) for each:

### a) Data Reasonableness (1-5)
- Are all data points within realistic bounds?
- Check: growth rates, margins, multiples against industry norms
- Flag any values that seem impossible or erroneous

### b) Outlier Detection (1-5)
- Are there any highly unusual data points?
- Values that are suspiciously high or low?
- Any metrics that deviate significantly from historical trends?

### c) Executive Summary Clarity (1-5)
- Is the investment recommendation clearly articulated?
- Can I understand the thesis in 30 seconds?
- Is it actionable (clear BUY/HOLD/SELL)?

### d) Data-Recommendation Alignment (1-5)
- Does the data strongly support the recommendation?
- Are there gaps in the analysis that need deeper investigation?
- What additional data points would strengthen the thesis?

### e) Scenario Analysis (1-5)
- Can I clearly see Bear, Neutral, and Bull cases?
- Are the assumptions for each scenario reasonable?
- Is the probability weighting sensible?

### f) Risk Assessment (1-5)
- Does the report explain what could cause the company to fail?
- Are headwind risks quantified with data?
- Are there any obvious risks not addressed?

## Output Format

You MUST respond with ONLY a valid JSON object (no markdown, no explanation before or after):
{
    "approved": true or false,
    "overall_score": <average of all scores as a number>,
    "scores": {
        "data_reasonableness": <1-5>,
        "outlier_detection": <1-5>,
        "executive_summary_clarity": <1-5>,
        "data_recommendation_alignment": <1-5>,
        "scenario_analysis": <1-5>,
        "risk_assessment": <1-5>
    },
    "feedback": "<specific actionable feedback if not approved, empty string if approved>",
    "strengths": ["<what the report did well>"],
    "improvements_needed": ["<specific items to address>"]
}

## Approval Threshold
- Overall score >= 4.0 AND no individual score below 3 = APPROVED
- Otherwise = NOT APPROVED (provide detailed feedback)`

// BossReviewer scores reports through an LLM provider and normalizes the
// verdict. Approval is always recomputed from the criterion scores.
type BossReviewer struct {
	provider llm.Provider
	options  map[string]interface{}
}

var _ Reviewer = (*BossReviewer)(nil)

func NewBossReviewer(provider llm.Provider, options map[string]interface{}) *BossReviewer {
	return &BossReviewer{provider: provider, options: options}
}

func (r *BossReviewer) rubric(agentType string) (string, error) {
	switch agentType {
	case AgentTypeFinancialModeling:
		return financialModelingRubric, nil
	default:
		return "", fmt.Errorf("unknown agent type: %s (supported: %s)", agentType, AgentTypeFinancialModeling)
	}
}

// Review sends the report to the boss model and parses its verdict. A
// response that cannot be parsed as a verdict yields a conservative
// rejection rather than an error: the loop treats unreadable reviews as
// "not approved" and carries on.
func (r *BossReviewer) Review(ctx context.Context, analysis, agentType string) (*Verdict, error) {
	rubric, err := r.rubric(agentType)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Please review the following analyst report and evaluate it against all criteria.

--- ANALYST REPORT ---
%s
--- END REPORT ---

Evaluate this report and provide your assessment as a JSON object.`, analysis)

	response, err := r.provider.GenerateResponse(ctx, prompt, rubric, r.options)
	if err != nil {
		return nil, fmt.Errorf("boss review call failed: %w", err)
	}

	return parseVerdict(response), nil
}

// parseVerdict extracts the verdict from model output, tolerating fenced and
// mildly malformed JSON. Scores drive the approval decision; the model's own
// approved flag and overall score are overwritten.
func parseVerdict(raw string) *Verdict {
	var verdict Verdict
	if _, err := utils.SmartParse(raw, &verdict); err != nil {
		return rejectionVerdict(raw)
	}

	verdict.Approved = verdict.Scores.MeetsThreshold()
	verdict.OverallScore = verdict.Scores.Average()
	return &verdict
}

// rejectionVerdict is the fallback when the reviewer's output is unreadable.
// The report is never approved on the strength of a verdict nobody could
// parse.
func rejectionVerdict(raw string) *Verdict {
	const maxEcho = 500
	if len(raw) > maxEcho {
		raw = raw[:maxEcho]
	}
	return &Verdict{
		Approved:           false,
		OverallScore:       0,
		Feedback:           fmt.Sprintf("Failed to parse review response. Raw response: %s", raw),
		Strengths:          []string{},
		ImprovementsNeeded: []string{"Review response was not in expected JSON format"},
		ParseError:         true,
	}
}
