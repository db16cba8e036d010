package policy

import (
	"testing"

	"sentinel/domain/config"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
)

func always(bool) Confirmer {
	return ConfirmerFunc(func(float64, float64) bool { return true })
}

func TestThresholdsFor(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	assert.Equal(t, Thresholds{Urgent: 80, Advisory: 60}, ThresholdsFor(cfg, entities.SensitivityMedium))
	assert.Equal(t, Thresholds{Urgent: 70, Advisory: 50}, ThresholdsFor(cfg, entities.SensitivityHigh))
	assert.Equal(t, Thresholds{Urgent: 90, Advisory: 70}, ThresholdsFor(cfg, entities.SensitivityLow))
	assert.Equal(t, Thresholds{Urgent: 80, Advisory: 60}, ThresholdsFor(cfg, ""))
}

func TestThresholdClassifier_Classify(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	c := NewThresholdClassifier(cfg, entities.SensitivityMedium, always(true))

	tests := []struct {
		level    float64
		want     valueobjects.Severity
		triggers bool
	}{
		{level: 0},
		{level: 60},
		{level: 60.5, want: valueobjects.SeverityAdvisory, triggers: true},
		{level: 80, want: valueobjects.SeverityAdvisory, triggers: true},
		{level: 80.1, want: valueobjects.SeverityUrgent, triggers: true},
		{level: 100, want: valueobjects.SeverityUrgent, triggers: true},
	}

	for _, tt := range tests {
		got, ok := c.Classify(tt.level)
		assert.Equal(t, tt.triggers, ok, "level %v", tt.level)
		if tt.triggers {
			assert.Equal(t, tt.want, got, "level %v", tt.level)
		}
	}
}

func TestThresholdClassifier_RequiresConfirmation(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	var seen []float64
	confirmer := ConfirmerFunc(func(_ float64, threshold float64) bool {
		seen = append(seen, threshold)
		return false
	})
	c := NewThresholdClassifier(cfg, entities.SensitivityMedium, confirmer)

	_, ok := c.Classify(95)
	assert.False(t, ok, "a loud sample alone must not trigger")
	_, ok = c.Classify(70)
	assert.False(t, ok)

	assert.Equal(t, []float64{cfg.UrgentConfirmation, cfg.AdvisoryConfirmation}, seen)
}

func TestRandomConfirmer_Deterministic(t *testing.T) {
	a := NewRandomConfirmer(42)
	b := NewRandomConfirmer(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Confirm(90, 0.5), b.Confirm(90, 0.5))
	}

	never := NewRandomConfirmer(7)
	for i := 0; i < 20; i++ {
		assert.False(t, never.Confirm(90, 1.0))
	}
}
