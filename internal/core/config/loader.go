package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Override adjusts a configuration after it is decoded and before it is
// validated, e.g. from command-line flags.
type Override func(*AppConfig)

// Load reads configuration from a YAML file.
// Fields missing from the file keep the values of Default.
func Load(path string, overrides ...Override) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, overrides...)
}

// Parse decodes YAML configuration after expanding environment variables.
func Parse(data []byte, overrides ...Override) (*AppConfig, error) {
	cfg := Default()

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
