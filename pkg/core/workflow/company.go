package workflow

import (
	"context"
	"fmt"
	"os"

	"marketflow/pkg/core/drive"
	"marketflow/pkg/core/research"
)

// CompanyAnalysisResult holds the three research documents and their Drive
// locations.
type CompanyAnalysisResult struct {
	CompanyName string `json:"company_name"`

	IndustryAnalysis  string `json:"industry_analysis"`
	FinancialModeling string `json:"financial_modeling"`
	Synthesis         string `json:"synthesis"`

	IndustryURL  string `json:"industry_drive_url,omitempty"`
	FinancialURL string `json:"financial_drive_url,omitempty"`
	SynthesisURL string `json:"synthesis_drive_url,omitempty"`
}

// RunCompanyAnalysis executes the three-stage deep research workflow:
// industry analysis and financial modeling run concurrently, then a synthesis
// pass reads both through a scoped document store. The store is deleted when
// the workflow returns, success or not.
func (o *Orchestrator) RunCompanyAnalysis(ctx context.Context, companyName string) (*CompanyAnalysisResult, error) {
	if companyName == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if o.deps.Research == nil {
		return nil, fmt.Errorf("no researcher configured")
	}

	result := &CompanyAnalysisResult{CompanyName: companyName}

	o.status("parallel_research", "Starting industry analysis and financial modeling")

	type stageOutput struct {
		stage string
		text  string
		err   error
	}
	outputs := make(chan stageOutput, 2)

	go func() {
		text, err := o.deps.Research.Research(ctx, research.IndustryPrompt(companyName))
		outputs <- stageOutput{stage: "industry", text: text, err: err}
	}()
	go func() {
		text, err := o.deps.Research.Research(ctx, research.FinancialPrompt(companyName))
		outputs <- stageOutput{stage: "financial", text: text, err: err}
	}()

	for i := 0; i < 2; i++ {
		out := <-outputs
		if out.err != nil {
			return nil, fmt.Errorf("%s research for %s: %w", out.stage, companyName, out.err)
		}
		switch out.stage {
		case "industry":
			result.IndustryAnalysis = out.text
		case "financial":
			result.FinancialModeling = out.text
		}
		o.status(out.stage, "Research complete")
	}

	slug := slugify(companyName)

	industryPath, err := writeFile(o.outDir, slug+"_industry_analysis.md", result.IndustryAnalysis)
	if err != nil {
		return nil, err
	}
	financialPath, err := writeFile(o.outDir, slug+"_financial_modeling.md", result.FinancialModeling)
	if err != nil {
		return nil, err
	}

	if o.deps.Uploader != nil {
		o.status("upload", "Uploading research outputs to Drive")
		if upload, err := o.uploadDocument(ctx, industryPath, companyName+" - Industry Analysis"); err == nil {
			result.IndustryURL = upload
		} else {
			o.log.Warn().Err(err).Msg("industry analysis upload failed")
		}
		if upload, err := o.uploadDocument(ctx, financialPath, companyName+" - Financial Modeling"); err == nil {
			result.FinancialURL = upload
		} else {
			o.log.Warn().Err(err).Msg("financial modeling upload failed")
		}
	}

	synthesis, err := o.runSynthesis(ctx, companyName, industryPath, financialPath)
	if err != nil {
		return nil, err
	}
	result.Synthesis = synthesis

	if o.deps.Uploader != nil {
		synthesisPath, err := writeFile(o.outDir, slug+"_synthesis.md", synthesis)
		if err != nil {
			return nil, err
		}
		if upload, err := o.uploadDocument(ctx, synthesisPath, companyName+" - Synthesis Analysis"); err == nil {
			result.SynthesisURL = upload
		} else {
			o.log.Warn().Err(err).Msg("synthesis upload failed")
		}
	}

	o.status("complete", "Workflow complete")
	return result, nil
}

// runSynthesis grounds the synthesis prompt on the two research documents.
// With a document store configured the documents are queried through file
// search; otherwise they are passed inline as context.
func (o *Orchestrator) runSynthesis(ctx context.Context, companyName, industryPath, financialPath string) (string, error) {
	prompt := research.SynthesisPrompt(companyName)

	if o.deps.Docs == nil {
		industry, err := os.ReadFile(industryPath)
		if err != nil {
			return "", err
		}
		financial, err := os.ReadFile(financialPath)
		if err != nil {
			return "", err
		}
		o.status("synthesis", "Starting synthesis analysis")
		return o.deps.Research.Research(ctx, prompt, string(industry), string(financial))
	}

	o.status("synthesis", "Creating document store for synthesis")
	storeName, err := o.deps.Docs.Create(ctx, companyName+" Analysis Context")
	if err != nil {
		return "", fmt.Errorf("create document store: %w", err)
	}
	defer func() {
		o.status("cleanup", "Deleting document store")
		if err := o.deps.Docs.Delete(ctx, storeName); err != nil {
			o.log.Warn().Err(err).Str("store", storeName).Msg("document store cleanup failed")
		}
	}()

	for _, path := range []string{industryPath, financialPath} {
		if err := o.deps.Docs.Upload(ctx, storeName, path); err != nil {
			return "", fmt.Errorf("upload %s to document store: %w", path, err)
		}
	}
	o.status("synthesis", "Documents uploaded to context store")

	o.status("synthesis", "Starting synthesis analysis")
	return o.deps.Docs.Query(ctx, storeName, prompt)
}

// uploadDocument pushes an already-written file to Drive without deleting it;
// the synthesis stage may still need the local copy.
func (o *Orchestrator) uploadDocument(ctx context.Context, path, title string) (string, error) {
	upload, err := o.deps.Uploader.Upload(ctx, path, drive.UploadOptions{
		FolderID:     o.folderID,
		FileName:     title,
		ConvertToDoc: true,
	})
	if err != nil {
		return "", err
	}
	return upload.URL, nil
}
