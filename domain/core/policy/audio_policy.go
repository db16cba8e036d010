// Package policy holds the pluggable decision rules of the audio monitor.
//
// Detection is two-stage: a sample must cross a level threshold AND pass an
// independent confirmation stage before it becomes a trigger. A single loud
// sample is never enough on its own.
package policy

import (
	"math/rand"
	"sync"
	"time"

	"sentinel/domain/config"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
)

// Confirmer is the second detection stage. It receives the sampled level and
// the confidence the stage must exceed.
type Confirmer interface {
	Confirm(level, threshold float64) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface
type ConfirmerFunc func(level, threshold float64) bool

// Confirm implements Confirmer
func (f ConfirmerFunc) Confirm(level, threshold float64) bool {
	return f(level, threshold)
}

// RandomConfirmer stands in for a real distress classifier: it draws a
// uniform probability and confirms when it exceeds the threshold.
type RandomConfirmer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomConfirmer creates a confirmer; seed 0 uses the current time
func NewRandomConfirmer(seed int64) *RandomConfirmer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomConfirmer{rng: rand.New(rand.NewSource(seed))}
}

// Confirm implements Confirmer
func (c *RandomConfirmer) Confirm(_ float64, threshold float64) bool {
	c.mu.Lock()
	p := c.rng.Float64()
	c.mu.Unlock()
	return p > threshold
}

// Classifier turns an ambient level into a severity. ok is false when the
// sample should not produce a trigger.
type Classifier interface {
	Classify(level float64) (severity valueobjects.Severity, ok bool)
}

// Thresholds are the level boundaries in effect for one sensitivity
type Thresholds struct {
	Urgent   float64
	Advisory float64
}

// ThresholdsFor shifts the configured medium thresholds for a sensitivity.
// High sensitivity lowers both levels so alerts fire more easily.
func ThresholdsFor(cfg *config.DomainConfig, sensitivity entities.Sensitivity) Thresholds {
	t := Thresholds{Urgent: cfg.UrgentAudioLevel, Advisory: cfg.AdvisoryAudioLevel}
	switch sensitivity {
	case entities.SensitivityHigh:
		t.Urgent -= cfg.SensitivityStep
		t.Advisory -= cfg.SensitivityStep
	case entities.SensitivityLow:
		t.Urgent += cfg.SensitivityStep
		t.Advisory += cfg.SensitivityStep
	}
	return t
}

// ThresholdClassifier is the default two-stage audio policy
type ThresholdClassifier struct {
	thresholds           Thresholds
	urgentConfirmation   float64
	advisoryConfirmation float64
	confirmer            Confirmer
}

// NewThresholdClassifier builds the policy for the given sensitivity
func NewThresholdClassifier(cfg *config.DomainConfig, sensitivity entities.Sensitivity, confirmer Confirmer) *ThresholdClassifier {
	return &ThresholdClassifier{
		thresholds:           ThresholdsFor(cfg, sensitivity),
		urgentConfirmation:   cfg.UrgentConfirmation,
		advisoryConfirmation: cfg.AdvisoryConfirmation,
		confirmer:            confirmer,
	}
}

// Thresholds returns the level boundaries in effect
func (c *ThresholdClassifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify implements Classifier. Levels above the urgent threshold that
// fail confirmation produce nothing; they are not downgraded to advisory.
func (c *ThresholdClassifier) Classify(level float64) (valueobjects.Severity, bool) {
	switch {
	case level > c.thresholds.Urgent:
		if c.confirmer.Confirm(level, c.urgentConfirmation) {
			return valueobjects.SeverityUrgent, true
		}
	case level > c.thresholds.Advisory:
		if c.confirmer.Confirm(level, c.advisoryConfirmation) {
			return valueobjects.SeverityAdvisory, true
		}
	}
	return 0, false
}
