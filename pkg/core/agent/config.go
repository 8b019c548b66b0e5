package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LoadConfig reads the agent routing config from a YAML file. A missing file
// is not an error: the zero Config falls back to the default provider.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read agent config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse agent config %s: %w", path, err)
	}
	return cfg, nil
}
