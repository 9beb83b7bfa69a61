package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the single configuration file loaded from the config
// directory.
const ConfigFileName = "skyrecover.yaml"

// SkyrecoverYAMLConfig represents the complete skyrecover.yaml file
// structure. Durations are strings in the file (e.g. "60s") and parsed
// during resolution.
type SkyrecoverYAMLConfig struct {
	Timeouts   *TimeoutsYAMLConfig       `yaml:"timeouts"`
	Arbitrator *ArbitratorYAMLConfig     `yaml:"arbitrator"`
	Agents     map[string]AgentYAMLConfig `yaml:"agents"`
	Masking    *MaskingYAMLConfig        `yaml:"masking"`
}

// TimeoutsYAMLConfig holds the timeout table from YAML.
type TimeoutsYAMLConfig struct {
	Phase1Safety   string `yaml:"phase1_safety,omitempty"`
	Phase1Business string `yaml:"phase1_business,omitempty"`
	RevisionExtra  string `yaml:"revision_extra,omitempty"`
	Arbitrator     string `yaml:"arbitrator,omitempty"`
}

// ArbitratorYAMLConfig holds the arbitrator settings from YAML. Pointer
// fields distinguish "unset" from an explicit zero.
type ArbitratorYAMLConfig struct {
	SafetyWeight        *float64 `yaml:"safety_weight,omitempty"`
	CostWeight          *float64 `yaml:"cost_weight,omitempty"`
	PassengerWeight     *float64 `yaml:"passenger_weight,omitempty"`
	NetworkWeight       *float64 `yaml:"network_weight,omitempty"`
	MaxSolutions        *int     `yaml:"max_solutions,omitempty"`
	DegradedArbitration *bool    `yaml:"degraded_arbitration,omitempty"`
}

// AgentYAMLConfig holds one agent endpoint entry from YAML.
type AgentYAMLConfig struct {
	Mode string `yaml:"mode,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

// MaskingYAMLConfig holds masking settings from YAML.
type MaskingYAMLConfig struct {
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Patterns []string `yaml:"patterns,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load skyrecover.yaml from configDir (a missing file is not an error;
//     the built-in defaults then apply unchanged)
//  2. Parse YAML into the raw struct
//  3. Resolve durations and merge user values over built-in defaults
//  4. Validate the resolved configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"agents", len(cfg.Agents),
		"max_solutions", cfg.Arbitrator.MaxSolutions,
		"degraded_arbitration", cfg.Arbitrator.DegradedArbitration,
		"masking_enabled", cfg.Masking.Enabled)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	raw, err := loadYAML(configDir)
	if err != nil {
		return nil, NewLoadError(ConfigFileName, err)
	}

	cfg := DefaultConfig()
	if raw == nil {
		return cfg, nil
	}

	if err := resolveTimeouts(cfg, raw.Timeouts); err != nil {
		return nil, NewLoadError(ConfigFileName, err)
	}
	resolveArbitrator(cfg, raw.Arbitrator)
	if err := resolveAgents(cfg, raw.Agents); err != nil {
		return nil, NewLoadError(ConfigFileName, err)
	}
	resolveMasking(cfg, raw.Masking)

	return cfg, nil
}

// loadYAML reads and parses skyrecover.yaml. A missing file returns
// (nil, nil): the built-in defaults are a complete configuration on their
// own, so the file is optional.
func loadYAML(configDir string) (*SkyrecoverYAMLConfig, error) {
	path := filepath.Join(configDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No configuration file found, using built-in defaults", "path", path)
			return nil, nil
		}
		return nil, err
	}

	var raw SkyrecoverYAMLConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &raw, nil
}

// resolveTimeouts parses the duration strings from YAML and overrides the
// built-in defaults for any field that is set.
func resolveTimeouts(cfg *Config, raw *TimeoutsYAMLConfig) error {
	if raw == nil {
		return nil
	}
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"phase1_safety", raw.Phase1Safety, &cfg.Timeouts.Phase1Safety},
		{"phase1_business", raw.Phase1Business, &cfg.Timeouts.Phase1Business},
		{"revision_extra", raw.RevisionExtra, &cfg.Timeouts.RevisionExtra},
		{"arbitrator", raw.Arbitrator, &cfg.Timeouts.Arbitrator},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return NewValidationError("timeouts", "", f.name, fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		*f.dst = d
	}
	return nil
}

// resolveArbitrator overrides the built-in arbitrator defaults with any
// value the user set.
func resolveArbitrator(cfg *Config, raw *ArbitratorYAMLConfig) {
	if raw == nil {
		return
	}
	if raw.SafetyWeight != nil {
		cfg.Arbitrator.SafetyWeight = *raw.SafetyWeight
	}
	if raw.CostWeight != nil {
		cfg.Arbitrator.CostWeight = *raw.CostWeight
	}
	if raw.PassengerWeight != nil {
		cfg.Arbitrator.PassengerWeight = *raw.PassengerWeight
	}
	if raw.NetworkWeight != nil {
		cfg.Arbitrator.NetworkWeight = *raw.NetworkWeight
	}
	if raw.MaxSolutions != nil {
		cfg.Arbitrator.MaxSolutions = *raw.MaxSolutions
	}
	if raw.DegradedArbitration != nil {
		cfg.Arbitrator.DegradedArbitration = *raw.DegradedArbitration
	}
}

// resolveAgents merges user-defined agent endpoint entries over the
// built-in mock defaults. Unknown agent names are kept here and rejected
// by Validate, so the user sees a validation error naming the offender
// rather than a silent drop.
func resolveAgents(cfg *Config, raw map[string]AgentYAMLConfig) error {
	if len(raw) == 0 {
		return nil
	}
	user := make(map[string]AgentConfig, len(raw))
	for name, a := range raw {
		mode := AgentMode(a.Mode)
		if mode == "" {
			mode = AgentModeMock
		}
		user[name] = AgentConfig{Mode: mode, URL: a.URL}
	}
	if err := mergo.Merge(&cfg.Agents, user, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge agent config: %w", err)
	}
	return nil
}

// resolveMasking overrides the built-in masking defaults.
func resolveMasking(cfg *Config, raw *MaskingYAMLConfig) {
	if raw == nil {
		return
	}
	if raw.Enabled != nil {
		cfg.Masking.Enabled = *raw.Enabled
	}
	if len(raw.Patterns) > 0 {
		cfg.Masking.Patterns = raw.Patterns
	}
}

// Validate performs comprehensive validation on a resolved configuration:
// struct-tag constraints, the weight-sum convexity rule, and the
// exactly-seven-agents registry rule.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if math.Abs(cfg.Arbitrator.WeightSum()-1.0) > WeightSumTolerance {
		return NewValidationError("arbitrator", "", "weights",
			fmt.Errorf("%w: must sum to 1.0, got %g", ErrInvalidValue, cfg.Arbitrator.WeightSum()))
	}

	known := make(map[string]bool, len(AgentNames))
	for _, name := range AgentNames {
		known[name] = true
	}
	for name := range cfg.Agents {
		if !known[name] {
			return NewValidationError("agents", name, "",
				fmt.Errorf("%w: unrecognized agent name", ErrInvalidValue))
		}
	}
	for _, name := range AgentNames {
		if _, ok := cfg.Agents[name]; !ok {
			return NewValidationError("agents", name, "",
				fmt.Errorf("%w: required agent missing", ErrInvalidValue))
		}
	}
	return nil
}
