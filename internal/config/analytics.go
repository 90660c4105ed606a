package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"campaignlens/internal/aggregate"
)

// AnalyticsConfig tunes normalization and aggregation. It is read from YAML:
//
//	demographicKeys:
//	  party: [party, Party, politics.party]
//	questions:
//	  approval: Q1
//	  likelihood: Q2
//	  issue: Q3
//	positiveThreshold: 4
//	defaultDaysWindow: 30
type AnalyticsConfig struct {
	DemographicKeys   map[string][]string    `yaml:"demographicKeys"`
	Questions         aggregate.KpiQuestions `yaml:"questions"`
	PositiveThreshold float64                `yaml:"positiveThreshold"`
	DefaultDaysWindow int                    `yaml:"defaultDaysWindow"`
}

// DefaultAnalyticsConfig returns the built-in analytics settings
func DefaultAnalyticsConfig() *AnalyticsConfig {
	return &AnalyticsConfig{
		Questions:         aggregate.DefaultKpiQuestions(),
		PositiveThreshold: aggregate.DefaultPositiveThreshold,
		DefaultDaysWindow: 30,
	}
}

// LoadAnalytics reads a YAML file over the defaults
func LoadAnalytics(path string) (*AnalyticsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analytics config: %w", err)
	}
	return ParseAnalytics(data)
}

// ParseAnalytics decodes YAML over the defaults. Missing fields keep their
// default value.
func ParseAnalytics(data []byte) (*AnalyticsConfig, error) {
	cfg := DefaultAnalyticsConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse analytics config: %w", err)
	}

	defaults := aggregate.DefaultKpiQuestions()
	if cfg.Questions.Approval == "" {
		cfg.Questions.Approval = defaults.Approval
	}
	if cfg.Questions.Likelihood == "" {
		cfg.Questions.Likelihood = defaults.Likelihood
	}
	if cfg.Questions.Issue == "" {
		cfg.Questions.Issue = defaults.Issue
	}
	if cfg.PositiveThreshold <= 0 {
		return nil, fmt.Errorf("parse analytics config: positiveThreshold must be positive, got %v", cfg.PositiveThreshold)
	}
	if cfg.DefaultDaysWindow < 0 {
		return nil, fmt.Errorf("parse analytics config: defaultDaysWindow must not be negative, got %d", cfg.DefaultDaysWindow)
	}
	return cfg, nil
}

// AggregateOptions turns the settings into aggregation options
func (c *AnalyticsConfig) AggregateOptions() []aggregate.Option {
	return []aggregate.Option{
		aggregate.WithQuestions(c.Questions),
		aggregate.WithPositiveThreshold(c.PositiveThreshold),
	}
}
