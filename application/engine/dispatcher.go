package engine

import (
	"context"
	"fmt"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DeliveryFailure is one contact the gateway could not reach
type DeliveryFailure struct {
	Contact entities.EmergencyContact
	Err     error
}

// DispatchReport summarises one dispatch
type DispatchReport struct {
	Cycle     valueobjects.CycleID
	Location  valueobjects.Location
	Message   string
	Attempted int
	Delivered int
	Failures  []DeliveryFailure
	Duration  time.Duration
}

// FormatEmergencyMessage builds the text every contact receives
func FormatEmergencyMessage(profile entities.UserProfile, loc valueobjects.Location) string {
	msg := fmt.Sprintf("EMERGENCY! %s needs help. Location: %s", profile.Name, loc.Coordinates())
	if loc.Address != "" {
		msg += fmt.Sprintf(" (%s)", loc.Address)
	}
	return msg
}

// Dispatcher hands an emergency to the notification gateway, once per
// reachable contact.
type Dispatcher struct {
	gateway  ports.NotificationGateway
	location ports.LocationFeed
	timeout  time.Duration
	parallel int
	metrics  ports.Metrics
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(
	gateway ports.NotificationGateway,
	location ports.LocationFeed,
	timeout time.Duration,
	parallel int,
	metrics ports.Metrics,
	tracer trace.Tracer,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		gateway:  gateway,
		location: location,
		timeout:  timeout,
		parallel: parallel,
		metrics:  metrics,
		tracer:   tracer,
		logger:   logger,
	}
}

// Dispatch notifies every reachable contact and blocks until all sends
// have finished or the timeout passed. A failed contact never stops the
// others; failures are returned in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, cycle valueobjects.CycleID, profile entities.UserProfile) DispatchReport {
	ctx, span := d.tracer.Start(ctx, "engine.Dispatch",
		trace.WithAttributes(attribute.String("cycle_id", cycle.String())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	loc := d.location.Current()
	contacts := profile.ReachableContacts()
	report := DispatchReport{
		Cycle:     cycle,
		Location:  loc,
		Message:   FormatEmergencyMessage(profile, loc),
		Attempted: len(contacts),
	}

	results := make([]error, len(contacts))
	g := new(errgroup.Group)
	g.SetLimit(d.parallel)
	for i, contact := range contacts {
		i, contact := i, contact
		g.Go(func() error {
			sent := time.Now()
			err := d.gateway.Send(ctx, contact, report.Message)
			d.metrics.NotificationSent(err == nil, time.Since(sent))
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err != nil {
			report.Failures = append(report.Failures, DeliveryFailure{
				Contact: contacts[i],
				Err:     errors.NewDeliveryError(contacts[i].DisplayName(), err),
			})
			continue
		}
		report.Delivered++
	}
	report.Duration = time.Since(start)

	for _, f := range report.Failures {
		d.logger.Warn("Contact notification failed",
			zap.String("cycle_id", cycle.String()),
			zap.String("contact", f.Contact.DisplayName()),
			zap.Error(f.Err),
		)
	}
	d.logger.Info("Emergency dispatched",
		zap.String("cycle_id", cycle.String()),
		zap.Int("attempted", report.Attempted),
		zap.Int("delivered", report.Delivered),
		zap.Duration("duration", report.Duration),
	)

	span.SetAttributes(
		attribute.Int("contacts.attempted", report.Attempted),
		attribute.Int("contacts.delivered", report.Delivered),
	)
	if len(report.Failures) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d contacts not notified", len(report.Failures)))
	}
	return report
}
