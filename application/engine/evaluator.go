package engine

import (
	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Evaluator classifies trigger events, records every one of them in the
// ledger and arms the controller for urgent ones.
type Evaluator struct {
	ledger     *Ledger
	controller *Controller
	location   ports.LocationFeed
	metrics    ports.Metrics
	logger     *zap.Logger
}

// NewEvaluator creates an evaluator
func NewEvaluator(ledger *Ledger, controller *Controller, location ports.LocationFeed, metrics ports.Metrics, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		ledger:     ledger,
		controller: controller,
		location:   location,
		metrics:    metrics,
		logger:     logger,
	}
}

// Classify returns the severity of an event. Gesture and manual triggers are
// always urgent; audio events carry the severity their classifier assigned.
func (e *Evaluator) Classify(event entities.TriggerEvent) (valueobjects.Severity, bool) {
	switch event.Source {
	case valueobjects.SourceGesture, valueobjects.SourceManual:
		return valueobjects.SeverityUrgent, true
	case valueobjects.SourceAudio:
		switch event.Severity {
		case valueobjects.SeverityUrgent, valueobjects.SeverityAdvisory:
			return event.Severity, true
		}
	}
	return 0, false
}

// Evaluate handles one trigger event and returns the record it produced.
// An urgent event arms the countdown only when none is pending; it is
// recorded either way.
func (e *Evaluator) Evaluate(event entities.TriggerEvent) (entities.AlertRecord, bool) {
	severity, ok := e.Classify(event)
	if !ok {
		e.logger.Warn("Ignoring unclassifiable trigger",
			zap.Stringer("source", event.Source),
			zap.Stringer("severity", event.Severity),
		)
		return entities.AlertRecord{}, false
	}
	e.metrics.TriggerClassified(event.Source, severity)

	armed := false
	if severity == valueobjects.SeverityUrgent {
		_, armed = e.controller.Arm(event.Source)
		if !armed {
			e.logger.Info("Countdown already pending, trigger recorded only",
				zap.Stringer("source", event.Source))
		}
	}

	record := e.ledger.Append(entities.AlertRecord{
		Message:          TriggerMessage(event.Source, severity),
		Severity:         severity,
		Location:         e.location.Current(),
		LeadsToCountdown: armed,
		Source:           event.Source.String(),
	})
	return record, true
}
