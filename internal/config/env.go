package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadEnv returns the env section of the config file with variable names
// kept exactly as written. A missing file or section yields nil.
func ReadEnv(configPath string) (map[string]string, error) {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path comes from the user's config location
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var doc struct {
		Env map[string]string `yaml:"env"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing env section: %w", err)
	}
	return doc.Env, nil
}
