package di

import (
	"sentinel/application/commands/bus"
	"sentinel/application/engine"
	"sentinel/application/ports"
	querybus "sentinel/application/queries/bus"
	"sentinel/infrastructure/config"
	"sentinel/infrastructure/location"
	"sentinel/infrastructure/messaging/memory"
	"sentinel/infrastructure/persistence/dynamodb"
	"sentinel/infrastructure/scheduler"
	"sentinel/pkg/auth"
	"sentinel/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Scheduler     *scheduler.Loop
	Location      *location.SimulatedFeed
	Engine        *engine.Engine
	Publisher     *memory.Publisher
	Collector     *observability.Collector
	CloudWatch    *observability.CloudWatchMetrics
	Leases        *dynamodb.LeaseManager
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	JWTValidator  *auth.JWTValidator
	ProfileLoader *config.ProfileLoader
}

// HistoryContainer holds what a stateless history API needs
type HistoryContainer struct {
	Config   *config.Config
	Logger   *zap.Logger
	Archive  ports.AlertArchive
	QueryBus *querybus.QueryBus
}
