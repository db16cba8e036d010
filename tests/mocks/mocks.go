// Package mocks holds testify mocks of the application ports
package mocks

import (
	"context"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockNotificationGateway mocks ports.NotificationGateway
type MockNotificationGateway struct {
	mock.Mock
}

func (m *MockNotificationGateway) Send(ctx context.Context, contact entities.EmergencyContact, message string) error {
	args := m.Called(ctx, contact, message)
	return args.Error(0)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockAlertArchive mocks ports.AlertArchive
type MockAlertArchive struct {
	mock.Mock
}

func (m *MockAlertArchive) Save(ctx context.Context, owner string, record entities.AlertRecord) error {
	args := m.Called(ctx, owner, record)
	return args.Error(0)
}

func (m *MockAlertArchive) List(ctx context.Context, query ports.IncidentQuery) ([]entities.AlertRecord, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AlertRecord), args.Error(1)
}

// MockAudioSource mocks ports.AudioSource
type MockAudioSource struct {
	mock.Mock
}

func (m *MockAudioSource) Sample(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// MockMetrics mocks ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) TriggerClassified(source valueobjects.TriggerSource, severity valueobjects.Severity) {
	m.Called(source, severity)
}

func (m *MockMetrics) CountdownArmed() { m.Called() }

func (m *MockMetrics) CountdownResolved(outcome string) { m.Called(outcome) }

func (m *MockMetrics) NotificationSent(delivered bool, latency time.Duration) {
	m.Called(delivered, latency)
}

func (m *MockMetrics) LedgerSize(n int) { m.Called(n) }

func (m *MockMetrics) AudioLevel(level float64) { m.Called(level) }
