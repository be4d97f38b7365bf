// Package runner wires the engine together: it enumerates work units,
// drives the keyed worker pool, and carries each question from its join
// barrier through selection, the bounded correction loop, evaluation,
// and aggregation.
package runner

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ensemble"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RunConfig is the run-level configuration supplied by the external
// driver, typically loaded from YAML.
type RunConfig struct {
	// RunID labels the run in events and output artifacts.
	RunID string `yaml:"run_id"`

	// Credentials is the ordered set of opaque provider keys.
	Credentials []string `yaml:"credentials" validate:"required,min=1"`

	// ProcessesPerKey is how many workers multiplex on each credential.
	ProcessesPerKey int `yaml:"processes_per_key" validate:"min=1,max=64"`

	// UnitTimeout is the wall-clock budget per work unit and per
	// evaluation execution.
	UnitTimeout time.Duration `yaml:"unit_timeout"`

	// RatePerKey throttles Translator calls per credential per second.
	// Zero disables throttling.
	RatePerKey float64 `yaml:"rate_per_key" validate:"min=0"`

	// Strategy names the ensemble selection strategy.
	Strategy string `yaml:"strategy" validate:"required"`

	// Seed is the run-level random seed for the random strategy.
	// Zero selects the default seed.
	Seed int64 `yaml:"seed"`

	// CorrectionBudget bounds re-selections after query errors.
	CorrectionBudget int `yaml:"correction_budget" validate:"min=0,max=10"`

	// CachePath is the prediction cache directory, shared across runs.
	CachePath string `yaml:"cache_path" validate:"required"`

	// ResultsPath is the directory run artifacts are written to.
	ResultsPath string `yaml:"results_path"`

	// Configurations is the run's configuration set; each contributes
	// its own number of attempts per question.
	Configurations []domain.Configuration `yaml:"configurations" validate:"required,min=1,dive"`
}

// DefaultRunConfig returns a config with operational defaults applied.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ProcessesPerKey:  3,
		UnitTimeout:      2 * time.Minute,
		Strategy:         string(ensemble.StrategyFrequency),
		CorrectionBudget: 2,
		ResultsPath:      "results",
	}
}

// LoadRunConfig reads and validates a YAML run configuration, layering
// the file's values over the defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- config path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}

	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config's structural constraints plus the closed
// strategy enumeration.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	if _, err := ensemble.New(ensemble.Strategy(c.Strategy), ensemble.Options{Seed: c.Seed}); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	for i := range c.Configurations {
		if err := c.Configurations[i].Validate(); err != nil {
			return fmt.Errorf("invalid configuration %d: %w", i, err)
		}
	}
	return nil
}
