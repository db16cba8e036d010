// Package notification holds the adapters that deliver emergency messages
// to contacts.
package notification

import (
	"context"

	"sentinel/domain/core/entities"

	"go.uber.org/zap"
)

// LogGateway only logs what would have been sent. It is the default in
// development.
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway creates a logging gateway
func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger.Named("sms")}
}

// Send implements ports.NotificationGateway
func (g *LogGateway) Send(ctx context.Context, contact entities.EmergencyContact, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.logger.Info("SMS sent",
		zap.String("to", contact.DisplayName()),
		zap.String("phone", contact.Phone),
		zap.String("relation", string(contact.Relation)),
		zap.String("message", message),
	)
	return nil
}
