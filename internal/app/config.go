package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl files describing the run
	StagesPath   string // hcl files with stage definitions

	LogFormat string
	LogLevel  string

	// Launcher overrides the configured launcher variant when non-empty.
	Launcher string
	// Resume forces resume mode regardless of the run configuration.
	Resume bool
	// Overrides are the raw `key=value` / `stage.key=value` pairs from the
	// command line; they form the highest-precedence option layer.
	Overrides []string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
