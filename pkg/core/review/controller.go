package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxIterations bounds the review-refine loop. Two reviews means at most one
// refinement pass; the final analysis ships either way.
const MaxIterations = 2

// ArtifactFunc receives each intermediate analysis for traceability
// (iteration 0 is the initial draft). Failures are logged, never fatal.
type ArtifactFunc func(ctx context.Context, iteration int, label, analysis string) error

// Controller runs the bounded produce-review-refine loop.
type Controller struct {
	producer      Producer
	reviewer      Reviewer
	maxIterations int
	onArtifact    ArtifactFunc
	log           zerolog.Logger
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithMaxIterations overrides the review cap.
func WithMaxIterations(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithArtifactSink registers a callback for intermediate drafts.
func WithArtifactSink(fn ArtifactFunc) ControllerOption {
	return func(c *Controller) { c.onArtifact = fn }
}

// WithLogger replaces the default no-op logger.
func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

func NewController(producer Producer, reviewer Reviewer, opts ...ControllerOption) *Controller {
	c := &Controller{
		producer:      producer,
		reviewer:      reviewer,
		maxIterations: MaxIterations,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drives the loop for one ticker: initial draft, then review-refine until
// the boss approves or the iteration cap is hit. The last analysis is always
// returned, approved or not.
func (c *Controller) Run(ctx context.Context, ticker string) (*Result, error) {
	ticker = strings.ToUpper(ticker)
	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Str("ticker", ticker).Logger()

	log.Info().Msg("starting review-refine run")
	analysis, err := c.producer.Produce(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("initial analysis failed for %s: %w", ticker, err)
	}
	c.emit(ctx, log, 0, "initial_analysis", analysis)

	var history []Verdict
	iteration := 0

	for iteration < c.maxIterations {
		iteration++
		log.Info().Int("iteration", iteration).Int("max", c.maxIterations).Msg("boss reviewing analysis")

		verdict, err := c.reviewer.Review(ctx, analysis, AgentTypeFinancialModeling)
		if err != nil {
			return nil, fmt.Errorf("review iteration %d failed for %s: %w", iteration, ticker, err)
		}
		history = append(history, *verdict)

		if verdict.Approved {
			log.Info().Int("iteration", iteration).Float64("score", verdict.OverallScore).Msg("analysis approved")
			break
		}
		if iteration >= c.maxIterations {
			log.Warn().Int("iteration", iteration).Msg("max iterations reached, shipping final analysis unapproved")
			break
		}

		log.Info().Int("iteration", iteration).Msg("refining analysis from boss feedback")
		analysis, err = c.producer.Refine(ctx, ticker, verdict.Feedback, analysis)
		if err != nil {
			return nil, fmt.Errorf("refinement after iteration %d failed for %s: %w", iteration, ticker, err)
		}
		c.emit(ctx, log, iteration, fmt.Sprintf("refinement_iteration_%d", iteration), analysis)
	}

	approved := false
	if len(history) > 0 {
		approved = history[len(history)-1].Approved
	}

	return &Result{
		RunID:         runID,
		Ticker:        ticker,
		FinalAnalysis: analysis,
		Approved:      approved,
		Iterations:    iteration,
		ReviewHistory: history,
	}, nil
}

func (c *Controller) emit(ctx context.Context, log zerolog.Logger, iteration int, label, analysis string) {
	if c.onArtifact == nil {
		return
	}
	if err := c.onArtifact(ctx, iteration, label, analysis); err != nil {
		log.Warn().Err(err).Str("label", label).Msg("artifact upload failed")
	}
}
