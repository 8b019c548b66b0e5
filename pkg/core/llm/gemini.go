package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the official GenAI SDK.
type GeminiProvider struct {
	Model string // defaults to gemini-2.0-flash
}

var _ Provider = (*GeminiProvider)(nil)

// GenerateResponse sends a generateContent request. With the google_search
// option set, the response is grounded in web search and citation links are
// appended to the returned text.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := stringOpt(options, OptAPIKey)
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	model := p.Model
	if v := stringOpt(options, OptModel); v != "" {
		model = v
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if boolOpt(options, OptJSONMode) {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if boolOpt(options, OptGoogleSearch) {
		config.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := result.Text()

	// Surface grounding citations so downstream reports can cite sources.
	if len(result.Candidates) > 0 {
		cand := result.Candidates[0]
		if cand.GroundingMetadata != nil && len(cand.GroundingMetadata.GroundingChunks) > 0 {
			var citations []string
			for _, chunk := range cand.GroundingMetadata.GroundingChunks {
				if chunk.Web != nil {
					citations = append(citations, fmt.Sprintf("[%s](%s)", chunk.Web.Title, chunk.Web.URI))
				}
			}
			if len(citations) > 0 {
				text = fmt.Sprintf("%s\n\n**Sources:**\n%s", text, strings.Join(citations, "\n"))
			}
		}
	}

	return text, nil
}
