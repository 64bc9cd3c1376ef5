package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"spycheck/pkg/logging"
)

// For mocking in tests
var osReadFile = os.ReadFile

// SupportedVersion is the only suite schema version this binary understands.
const SupportedVersion = "1.0"

var (
	// ErrInvalidConfig wraps every suite file validation failure.
	ErrInvalidConfig = errors.New("invalid suite configuration")
	// ErrScenarioNotFound is returned when a named scenario does not exist.
	ErrScenarioNotFound = errors.New("scenario not found")
)

// LoadConfig reads and validates a suite file. Relative paths inside the file
// (baselines, working directories) are resolved against the process working
// directory, not the suite file location.
func LoadConfig(path string) (*SuiteConfig, error) {
	data, err := osReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file %s: %w", path, err)
	}

	var cfg SuiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing suite file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Debug("config", "Loaded suite file %s with %d scenario(s)", path, len(cfg.Scenarios))
	return &cfg, nil
}

// Validate checks the structural rules a suite file must satisfy. Everything
// it rejects would otherwise surface mid-run, after processes were spawned.
func (c *SuiteConfig) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("%w: unsupported version %q (want %q)", ErrInvalidConfig, c.Version, SupportedVersion)
	}
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("%w: at least one scenario is required", ErrInvalidConfig)
	}

	if c.Defaults.Validation != nil {
		if cb := c.Defaults.Validation.Count; cb != nil {
			if err := cb.validate(); err != nil {
				return fmt.Errorf("%w: defaults: %v", ErrInvalidConfig, err)
			}
		}
		if cc := c.Defaults.Validation.Compare; cc != nil {
			if err := cc.validate(); err != nil {
				return fmt.Errorf("%w: defaults: %v", ErrInvalidConfig, err)
			}
		}
	}

	seen := make(map[string]bool, len(c.Scenarios))
	for i := range c.Scenarios {
		sc := &c.Scenarios[i]
		if sc.Name == "" {
			return fmt.Errorf("%w: scenario at index %d has no name", ErrInvalidConfig, i)
		}
		if seen[sc.Name] {
			return fmt.Errorf("%w: duplicate scenario name %q", ErrInvalidConfig, sc.Name)
		}
		seen[sc.Name] = true

		if err := sc.validate(c.Defaults); err != nil {
			return fmt.Errorf("%w: scenario %q: %v", ErrInvalidConfig, sc.Name, err)
		}
	}

	return nil
}

func (s *ScenarioSpec) validate(defaults Defaults) error {
	if len(s.Traffic.Command) == 0 {
		return errors.New("traffic command must not be empty")
	}
	for i, cmd := range s.PreCommands {
		if len(cmd.Command) == 0 {
			return fmt.Errorf("preCommands[%d]: command must not be empty", i)
		}
	}
	for i, cmd := range s.PostCommands {
		if len(cmd.Command) == 0 {
			return fmt.Errorf("postCommands[%d]: command must not be empty", i)
		}
	}

	if s.Validation.BaselinePath == "" {
		return errors.New("validation must specify baselinePath")
	}
	if s.Validation.Count != nil {
		if err := s.Validation.Count.validate(); err != nil {
			return err
		}
	}
	if s.Validation.Compare != nil {
		if err := s.Validation.Compare.validate(); err != nil {
			return err
		}
	}

	binary := ""
	if defaults.Agent != nil {
		binary = defaults.Agent.BinaryPath
	}
	if s.Agent != nil && s.Agent.BinaryPath != "" {
		binary = s.Agent.BinaryPath
	}
	if binary == "" {
		return errors.New("no agent binaryPath set on the scenario or in defaults")
	}

	return nil
}

func (c *CountBounds) validate() error {
	if c.Exact != nil && (c.Min != nil || c.Max != nil) {
		return errors.New("messageCount: exact cannot be combined with min or max")
	}
	if c.Exact == nil && c.Min == nil && c.Max == nil {
		return errors.New("messageCount: at least one of exact, min, or max must be set")
	}
	if c.Exact != nil && *c.Exact < 0 {
		return errors.New("messageCount: exact must not be negative")
	}
	if c.Min != nil && *c.Min < 0 {
		return errors.New("messageCount: min must not be negative")
	}
	if c.Max != nil && *c.Max < 0 {
		return errors.New("messageCount: max must not be negative")
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return errors.New("messageCount: min must not exceed max")
	}
	return nil
}

func (c *CompareConfig) validate() error {
	for _, expr := range c.ExcludePaths {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("compare: bad excludePaths pattern %q: %v", expr, err)
		}
	}
	return nil
}

// Scenario returns the named scenario, before defaults are merged.
func (c *SuiteConfig) Scenario(name string) (*ScenarioSpec, error) {
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == name {
			return &c.Scenarios[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
}

// ScenarioNames returns the scenario names in file order.
func (c *SuiteConfig) ScenarioNames() []string {
	names := make([]string, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		names = append(names, sc.Name)
	}
	return names
}
