package config

import "time"

// MonitoringPolicy holds the tunables of the monitoring pipeline
type MonitoringPolicy struct {
	// ExpireAfter is the age after which pending actions are expired
	ExpireAfter time.Duration
	// SweepInterval is how often the expiry sweep runs
	SweepInterval time.Duration
	// MinContextLength is the minimum trimmed length (in runes) of text worth analyzing
	MinContextLength int
	// MaxContextLength bounds the stored source context
	MaxContextLength int
}

// DefaultMonitoringPolicy returns the policy used when no config file is given
func DefaultMonitoringPolicy() *MonitoringPolicy {
	return &MonitoringPolicy{
		ExpireAfter:      24 * time.Hour,
		SweepInterval:    time.Hour,
		MinContextLength: 10,
		MaxContextLength: 500,
	}
}
