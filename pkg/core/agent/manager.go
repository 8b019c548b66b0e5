// Package agent routes named agent roles (analyst, boss, research) to
// configured LLM providers.
package agent

import (
	"context"
	"fmt"
	"sort"

	"marketflow/pkg/core/llm"
)

// Config selects providers per agent role, with a global default.
type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

// AgentConfig overrides the provider or model for one agent role.
type AgentConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Description string `yaml:"description"`
}

// Manager owns the provider registry and resolves roles to providers.
type Manager struct {
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":   &llm.GeminiProvider{},
			"claude":   &llm.ClaudeProvider{},
			"deepseek": &llm.DeepSeekProvider{},
		},
	}
}

// GetProvider resolves an agent role to a provider: role-specific override
// first, then the global active provider, then gemini.
func (m *Manager) GetProvider(role string) llm.Provider {
	if agentConfig, ok := m.config.Agents[role]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["gemini"]
}

// ExecutePrompt resolves the role and sends the prompt, applying any
// role-level model override.
func (m *Manager) ExecutePrompt(ctx context.Context, role, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(role)
	if provider == nil {
		return "", fmt.Errorf("no provider available for role %q", role)
	}

	if agentConfig, ok := m.config.Agents[role]; ok && agentConfig.Model != "" {
		if options == nil {
			options = map[string]interface{}{}
		}
		if _, set := options[llm.OptModel]; !set {
			options[llm.OptModel] = agentConfig.Model
		}
	}

	return provider.GenerateResponse(ctx, prompt, systemPrompt, options)
}

// roleProvider binds a Manager role so collaborators that accept a plain
// llm.Provider still pick up the role's configured model override.
type roleProvider struct {
	mgr  *Manager
	role string
}

func (p roleProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	return p.mgr.ExecutePrompt(ctx, p.role, prompt, systemPrompt, options)
}

// RoleProvider returns an llm.Provider that routes through ExecutePrompt for
// the given role.
func (m *Manager) RoleProvider(role string) llm.Provider {
	return roleProvider{mgr: m, role: role}
}

// SetGlobalProvider switches the default provider at runtime.
func (m *Manager) SetGlobalProvider(name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	return nil
}

func (m *Manager) ActiveProvider() string {
	return m.config.ActiveProvider
}

// AvailableProviders lists the registered provider names, sorted.
func (m *Manager) AvailableProviders() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
