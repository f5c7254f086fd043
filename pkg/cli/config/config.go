package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	domainConfig "github.com/gaprio/gaprio/pkg/domain/model/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// maxContextLimit caps the stored source context
const maxContextLimit = 500

// AppConfig represents the application configuration file
type AppConfig struct {
	Monitoring MonitoringConfig `toml:"monitoring"`
	Agent      AgentConfig      `toml:"agent"`
}

// MonitoringConfig tunes the monitoring pipeline. Durations use Go syntax ("24h", "90m").
type MonitoringConfig struct {
	ExpireAfter      string `toml:"expire_after"`
	SweepInterval    string `toml:"sweep_interval"`
	MinContextLength *int   `toml:"min_context_length"`
	MaxContextLength *int   `toml:"max_context_length"`
}

// AgentConfig overrides the reasoning service settings given by flags
type AgentConfig struct {
	URL            string `toml:"url"`
	AnalyzeTimeout string `toml:"analyze_timeout"`
	ExecuteTimeout string `toml:"execute_timeout"`
	ChatTimeout    string `toml:"chat_timeout"`
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V(FieldKey, field), goerr.V("value", value))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidConfig, "duration must be positive", goerr.V(FieldKey, field), goerr.V("value", value))
	}
	return d, nil
}

// Validate checks if the MonitoringConfig is valid
func (m *MonitoringConfig) Validate() error {
	if _, err := parsePositiveDuration("monitoring.expire_after", m.ExpireAfter); err != nil {
		return err
	}
	if _, err := parsePositiveDuration("monitoring.sweep_interval", m.SweepInterval); err != nil {
		return err
	}

	if m.MinContextLength != nil && *m.MinContextLength < 0 {
		return goerr.Wrap(ErrInvalidConfig, "min_context_length must not be negative",
			goerr.V(FieldKey, "monitoring.min_context_length"), goerr.V("value", *m.MinContextLength))
	}
	if m.MaxContextLength != nil {
		if *m.MaxContextLength <= 0 || *m.MaxContextLength > maxContextLimit {
			return goerr.Wrap(ErrInvalidConfig, "max_context_length must be between 1 and 500",
				goerr.V(FieldKey, "monitoring.max_context_length"), goerr.V("value", *m.MaxContextLength))
		}
	}
	if m.MinContextLength != nil && m.MaxContextLength != nil && *m.MinContextLength > *m.MaxContextLength {
		return goerr.Wrap(ErrInvalidConfig, "min_context_length exceeds max_context_length",
			goerr.V("min", *m.MinContextLength), goerr.V("max", *m.MaxContextLength))
	}

	return nil
}

// Validate checks if the AgentConfig is valid
func (a *AgentConfig) Validate() error {
	for field, value := range map[string]string{
		"agent.analyze_timeout": a.AnalyzeTimeout,
		"agent.execute_timeout": a.ExecuteTimeout,
		"agent.chat_timeout":    a.ChatTimeout,
	} {
		if _, err := parsePositiveDuration(field, value); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Monitoring.Validate(); err != nil {
		return goerr.Wrap(err, "invalid monitoring section")
	}
	if err := a.Agent.Validate(); err != nil {
		return goerr.Wrap(err, "invalid agent section")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToMonitoringPolicy converts AppConfig to the domain monitoring policy. Unset values keep defaults.
func (a *AppConfig) ToMonitoringPolicy() *domainConfig.MonitoringPolicy {
	policy := domainConfig.DefaultMonitoringPolicy()
	if a == nil {
		return policy
	}

	// Validate has already rejected malformed durations
	if d, _ := parsePositiveDuration("", a.Monitoring.ExpireAfter); d > 0 {
		policy.ExpireAfter = d
	}
	if d, _ := parsePositiveDuration("", a.Monitoring.SweepInterval); d > 0 {
		policy.SweepInterval = d
	}
	if a.Monitoring.MinContextLength != nil {
		policy.MinContextLength = *a.Monitoring.MinContextLength
	}
	if a.Monitoring.MaxContextLength != nil {
		policy.MaxContextLength = *a.Monitoring.MaxContextLength
	}

	return policy
}
