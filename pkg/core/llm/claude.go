package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	Model     string
	MaxTokens int64
}

var _ Provider = (*ClaudeProvider)(nil)

func (p *ClaudeProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := stringOpt(options, OptAPIKey)
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model := p.Model
	if v := stringOpt(options, OptModel); v != "" {
		model = v
	}
	if model == "" {
		model = defaultClaudeModel
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return out.String(), nil
}
