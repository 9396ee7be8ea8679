package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/scorer"
)

// Config holds the application configuration
type Config struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	Version string `yaml:"-"`

	// Engine selects the scorer: "deterministic" or "learned".
	Engine string `yaml:"engine"`
	// ModelPath is a file path or http(s) URL of a learned model bundle.
	ModelPath     string        `yaml:"model_path"`
	ScorerTimeout time.Duration `yaml:"scorer_timeout"`
	TieBreak      string        `yaml:"tie_break"`

	BatchWorkers int `yaml:"batch_workers"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           8080,
		DataDir:        "data",
		Engine:         scorer.EngineDeterministic,
		ScorerTimeout:  scorer.DefaultTimeout,
		TieBreak:       string(harm.TieBreakUtilityBand),
		BatchWorkers:   4,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// Load overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Engine {
	case scorer.EngineDeterministic:
	case scorer.EngineLearned:
		if c.ModelPath == "" {
			errs = append(errs, errors.New("engine learned requires model_path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	if _, err := harm.ParseTieBreak(c.TieBreak); err != nil {
		errs = append(errs, err)
	}
	if c.ScorerTimeout <= 0 {
		errs = append(errs, errors.New("scorer_timeout must be positive"))
	}
	if c.BatchWorkers <= 0 {
		errs = append(errs, errors.New("batch_workers must be positive"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}
