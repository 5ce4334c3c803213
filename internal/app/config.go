package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // .hcl or .yml pipeline definition
	SettingsPath string // operator settings (TOML); empty selects the default
	WorkDir      string // directory stage commands run in

	LogFormat    string
	LogLevel     string
	ReportFormat string
	Workers      int
}

// NewConfig validates and returns an application configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = "text"
	}
	return &cfg, nil
}
