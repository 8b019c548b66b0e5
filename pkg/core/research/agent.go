// Package research runs search-grounded deep research prompts through Gemini.
package research

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultResearchModel = "gemini-2.0-flash"

// Agent wraps a Gemini client configured for long-form research generation.
type Agent struct {
	modelName string
	client    *genai.Client
}

func NewAgent(ctx context.Context, modelName string) (*Agent, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if modelName == "" {
		modelName = defaultResearchModel
	}
	return &Agent{modelName: modelName, client: client}, nil
}

// Close releases the underlying client.
func (a *Agent) Close() error {
	return a.client.Close()
}

// Research generates a long-form answer to the prompt. Context documents, when
// provided, are prepended so the model reasons over them instead of from
// memory alone.
func (a *Agent) Research(ctx context.Context, prompt string, contextDocs ...string) (string, error) {
	model := a.client.GenerativeModel(a.modelName)
	model.SetTemperature(0.7)

	fullPrompt := prompt
	if len(contextDocs) > 0 {
		fullPrompt = fmt.Sprintf("--- CONTEXT DOCUMENTS ---\n%s\n--- END CONTEXT ---\n\n%s",
			strings.Join(contextDocs, "\n\n---\n\n"), prompt)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return "", fmt.Errorf("research generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("research returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// IndustryPrompt frames the sector-level research stage.
func IndustryPrompt(companyName string) string {
	return fmt.Sprintf(`You are a senior sector analyst. Your job is to analyze the current industry trend that company %s operates in. The lens that we should consider are:

1. Macro dynamics - What are the key macroeconomic factors affecting this industry?
2. Pain points - What are the major challenges and pain points in this industry?
3. Business models - What are the prevalent business models?
4. Value chain - How does the value chain work and where does %s fit?

Provide a comprehensive industry analysis with actionable insights.`, companyName, companyName)
}

// FinancialPrompt frames the financial modeling research stage.
func FinancialPrompt(companyName string) string {
	return fmt.Sprintf(`You are a private equity associate with deep knowledge about %s. Your job is to:

1. Pull recent earnings data and key financial metrics
2. Build forecast models using:
   - DCF (Discounted Cash Flow) Analysis
   - Customer-based valuation where unit economics drive the thesis

3. Determine the company's 3-5 years trajectory based on these models

Provide detailed financial projections with supporting assumptions and sensitivity analysis.`, companyName)
}

// SynthesisPrompt frames the final stage that reconciles the industry and
// financial documents.
func SynthesisPrompt(companyName string) string {
	return fmt.Sprintf(`You are a senior investment analyst synthesizing research on %s. Based on the industry analysis document and the financial forecast document provided:

a) Identify where in the financial data does it contradict with the overall industry trend? Highlight specific metrics or projections that don't align with industry dynamics.

b) How can we use the financial forecast data to construct a cohesive industry narrative? Connect the company's projected performance to broader industry movements.

c) Is there anything in the industry trend that is not covered by the financial modeling that can be a significant signal in determining the company's financial health? Identify blind spots and potential risks or opportunities not captured in the models.

Provide a comprehensive synthesis with clear recommendations for investment decision-making.`, companyName)
}
