// Package workflow orchestrates the end-to-end analysis pipelines: the
// produce/review loop, one-shot DCF reports, combined industry and financial
// deep research, and batch ticker scans.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marketflow/pkg/core/docstore"
	"marketflow/pkg/core/drive"
	"marketflow/pkg/core/review"
	"marketflow/pkg/core/utils"
	"marketflow/pkg/core/valuation"
	"marketflow/pkg/models"
)

// MarketData extends the model fetch surface with earnings history, which
// only the report needs.
type MarketData interface {
	valuation.MarketData
	Earnings(ctx context.Context, ticker string, limit int) ([]models.EarningsEvent, error)
}

// DCFAnalyzer writes a qualitative assessment of a finished DCF model.
type DCFAnalyzer interface {
	Analyze(ctx context.Context, result *valuation.DCFResult, profile *models.CompanyProfile) (string, error)
}

// Researcher produces long-form research, optionally grounded on inline
// context documents.
type Researcher interface {
	Research(ctx context.Context, prompt string, contextDocs ...string) (string, error)
}

// StatusFunc receives progress updates as the workflows move through their
// stages.
type StatusFunc func(stage, message string)

// Deps collects the collaborators the orchestrator dispatches to. Uploader
// and Docs may be nil; the workflows that need them degrade or fail per call.
type Deps struct {
	Market   MarketData
	Producer review.Producer
	Reviewer review.Reviewer
	Analyst  DCFAnalyzer
	Research Researcher
	Uploader drive.Uploader
	Docs     docstore.Store
}

// Orchestrator runs the analysis workflows against a fixed set of
// collaborators.
type Orchestrator struct {
	deps     Deps
	folderID string
	outDir   string
	onStatus StatusFunc
	log      zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDriveFolder sets the Drive folder uploads land in. Empty means the
// Drive root.
func WithDriveFolder(id string) Option {
	return func(o *Orchestrator) { o.folderID = id }
}

// WithOutputDir sets where intermediate report files are written before
// upload. Defaults to the OS temp directory.
func WithOutputDir(dir string) Option {
	return func(o *Orchestrator) { o.outDir = dir }
}

// WithStatus registers a progress callback.
func WithStatus(fn StatusFunc) Option {
	return func(o *Orchestrator) { o.onStatus = fn }
}

// WithLogger sets the workflow logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func NewOrchestrator(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		outDir: os.TempDir(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) status(stage, message string) {
	o.log.Info().Str("stage", stage).Msg(message)
	if o.onStatus != nil {
		o.onStatus(stage, message)
	}
}

// uploadMarkdown writes content to a file under the output directory and
// pushes it to Drive as a converted Google Doc. The local file is removed
// after upload. Content that does not parse as markdown (blank model output,
// typically) is rejected rather than converted into an empty Doc.
func (o *Orchestrator) uploadMarkdown(ctx context.Context, fileName, title, content string) (*drive.UploadResult, error) {
	if o.deps.Uploader == nil {
		return nil, fmt.Errorf("no drive uploader configured")
	}
	if !utils.ValidateMarkdown(content) {
		return nil, fmt.Errorf("refusing to upload %s: content is not renderable markdown", fileName)
	}

	path, err := writeFile(o.outDir, fileName, content)
	if err != nil {
		return nil, err
	}

	return o.deps.Uploader.Upload(ctx, path, drive.UploadOptions{
		FolderID:     o.folderID,
		FileName:     title,
		ConvertToDoc: true,
		DeleteLocal:  true,
	})
}

func writeFile(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// titleize turns an artifact label like refinement_iteration_1 into
// "Refinement Iteration 1" for the Drive file title.
func titleize(label string) string {
	words := strings.Split(label, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04")
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
