package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the CLI configuration
type Config struct {
	Model          ModelConfig          `json:"model"`
	Classification ClassificationConfig `json:"classification"`
	Backend        BackendConfig        `json:"backend"`
}

// ModelConfig holds the model and label sources
type ModelConfig struct {
	Path       string `json:"path"`
	LabelsPath string `json:"labels_path"`
	NumThreads int    `json:"num_threads"`
}

// ClassificationConfig holds the postprocessing knobs. A nil
// ScoreThreshold means no threshold; MaxResults <= 0 means no cap.
type ClassificationConfig struct {
	MaxResults     int      `json:"max_results"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	Allowlist      []string `json:"allowlist,omitempty"`
	Denylist       []string `json:"denylist,omitempty"`
}

// BackendConfig selects the executor backend
type BackendConfig struct {
	Name      string `json:"name"`
	ServerURL string `json:"server_url,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			NumThreads: 4,
		},
		Classification: ClassificationConfig{
			MaxResults: 5,
		},
		Backend: BackendConfig{
			Name: "tflite",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path cannot be empty")
	}

	if c.Model.NumThreads < 0 {
		return fmt.Errorf("model.num_threads cannot be negative")
	}

	if c.Classification.MaxResults == 0 {
		return fmt.Errorf("classification.max_results must be != 0 (use a negative value for no cap)")
	}

	if len(c.Classification.Allowlist) > 0 && len(c.Classification.Denylist) > 0 {
		return fmt.Errorf("classification.allowlist and classification.denylist are mutually exclusive")
	}

	switch c.Backend.Name {
	case "tflite", "ollama", "llamacpp":
	default:
		return fmt.Errorf("backend.name must be one of tflite, ollama, llamacpp")
	}

	if c.Backend.Name != "tflite" && c.Model.LabelsPath == "" {
		return fmt.Errorf("model.labels_path is required for remote backends")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-classifier", "config.json")
}
