// Package llm wraps the model providers behind a single interface so the
// agents can swap between Gemini, Claude and DeepSeek by configuration.
package llm

import "context"

// Provider is one model backend. Options carries provider-specific switches
// (model override, JSON mode, search grounding); unknown keys are ignored.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Common option keys.
const (
	OptModel        = "model"
	OptJSONMode     = "json_mode"
	OptGoogleSearch = "google_search"
	OptAPIKey       = "api_key"
)

func boolOpt(options map[string]interface{}, key string) bool {
	v, ok := options[key].(bool)
	return ok && v
}

func stringOpt(options map[string]interface{}, key string) string {
	v, _ := options[key].(string)
	return v
}
