// Package review implements the supervised feedback loop: an analyst
// producer drafts a report, a boss reviewer scores it against a fixed rubric,
// and the controller refines until approval or the iteration cap.
package review

import "context"

// Scores are the six rubric criteria, each on a 1-5 scale.
type Scores struct {
	DataReasonableness          float64 `json:"data_reasonableness"`
	OutlierDetection            float64 `json:"outlier_detection"`
	ExecutiveSummaryClarity     float64 `json:"executive_summary_clarity"`
	DataRecommendationAlignment float64 `json:"data_recommendation_alignment"`
	ScenarioAnalysis            float64 `json:"scenario_analysis"`
	RiskAssessment              float64 `json:"risk_assessment"`
}

func (s Scores) list() []float64 {
	return []float64{
		s.DataReasonableness,
		s.OutlierDetection,
		s.ExecutiveSummaryClarity,
		s.DataRecommendationAlignment,
		s.ScenarioAnalysis,
		s.RiskAssessment,
	}
}

// Average is the mean of all six criteria.
func (s Scores) Average() float64 {
	sum := 0.0
	for _, v := range s.list() {
		sum += v
	}
	return sum / 6
}

// Min is the lowest criterion score.
func (s Scores) Min() float64 {
	min := s.DataReasonableness
	for _, v := range s.list() {
		if v < min {
			min = v
		}
	}
	return min
}

// MeetsThreshold applies the approval rule: average at least 4.0 and no
// criterion below 3. The reviewer's own approved flag is never trusted; this
// is recomputed from the scores.
func (s Scores) MeetsThreshold() bool {
	return s.Average() >= 4.0 && s.Min() >= 3
}

// Verdict is one review outcome.
type Verdict struct {
	Approved           bool     `json:"approved"`
	OverallScore       float64  `json:"overall_score"`
	Scores             Scores   `json:"scores"`
	Feedback           string   `json:"feedback"`
	Strengths          []string `json:"strengths"`
	ImprovementsNeeded []string `json:"improvements_needed"`
	ParseError         bool     `json:"parse_error,omitempty"`
}

// Producer drafts and refines analyst reports.
type Producer interface {
	Produce(ctx context.Context, ticker string) (string, error)
	Refine(ctx context.Context, ticker, feedback, priorAnalysis string) (string, error)
}

// Reviewer scores a report against the rubric for the given agent type.
type Reviewer interface {
	Review(ctx context.Context, analysis, agentType string) (*Verdict, error)
}

// Result is the full outcome of a review-refine run.
type Result struct {
	RunID         string    `json:"run_id"`
	Ticker        string    `json:"ticker"`
	FinalAnalysis string    `json:"final_analysis"`
	Approved      bool      `json:"approved"`
	Iterations    int       `json:"iterations"`
	ReviewHistory []Verdict `json:"review_history"`
}
