package config

import (
	"fmt"
	"time"
)

// DomainConfig holds the timing rules and thresholds of the alerting engine
type DomainConfig struct {
	// Gesture detection
	TapWindow     time.Duration
	TapsToTrigger int

	// Confirmation countdown
	CountdownSeconds int
	CountdownTick    time.Duration

	// Alert ledger
	LedgerCapacity int
	AlertRetention time.Duration

	// Periodic sampling
	AudioSampleInterval     time.Duration
	LocationRefreshInterval time.Duration

	// Audio thresholds for medium sensitivity; other sensitivities shift
	// both levels by SensitivityStep.
	UrgentAudioLevel     float64
	AdvisoryAudioLevel   float64
	SensitivityStep      float64
	UrgentConfirmation   float64
	AdvisoryConfirmation float64

	// Dispatch
	DispatchTimeout  time.Duration
	MaxParallelSends int

	// Indicators shown before the host reports real values
	DefaultBatteryLevel int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		TapWindow:     2000 * time.Millisecond,
		TapsToTrigger: 3,

		CountdownSeconds: 3,
		CountdownTick:    1000 * time.Millisecond,

		LedgerCapacity: 5,
		AlertRetention: 8000 * time.Millisecond,

		AudioSampleInterval:     1000 * time.Millisecond,
		LocationRefreshInterval: 5000 * time.Millisecond,

		UrgentAudioLevel:     80,
		AdvisoryAudioLevel:   60,
		SensitivityStep:      10,
		UrgentConfirmation:   0.8,
		AdvisoryConfirmation: 0.95,

		DispatchTimeout:  10 * time.Second,
		MaxParallelSends: 4,

		DefaultBatteryLevel: 85,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Carrier gateways are slower than the local webhook used in development
	config.DispatchTimeout = 20 * time.Second
	config.MaxParallelSends = 8

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.DispatchTimeout = 5 * time.Second
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	switch {
	case c.TapWindow <= 0:
		return fmt.Errorf("tap window must be positive")
	case c.TapsToTrigger < 1:
		return fmt.Errorf("taps to trigger must be at least 1")
	case c.CountdownSeconds < 1:
		return fmt.Errorf("countdown must last at least one second")
	case c.CountdownTick <= 0:
		return fmt.Errorf("countdown tick must be positive")
	case c.LedgerCapacity < 1:
		return fmt.Errorf("ledger capacity must be at least 1")
	case c.AlertRetention <= 0:
		return fmt.Errorf("alert retention must be positive")
	case c.AudioSampleInterval <= 0 || c.LocationRefreshInterval <= 0:
		return fmt.Errorf("sampling intervals must be positive")
	case c.AdvisoryAudioLevel >= c.UrgentAudioLevel:
		return fmt.Errorf("advisory audio level must be below the urgent level")
	case c.MaxParallelSends < 1:
		return fmt.Errorf("max parallel sends must be at least 1")
	}
	return nil
}
