//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"sentinel/infrastructure/config"
)

// InfraSet provides logging and AWS clients
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
)

// EngineSet provides the engine and everything it drives
var EngineSet = wire.NewSet(
	ProvideDomainConfig,
	ProvideScheduler,
	ProvideLocationFeed,
	ProvideAudioInput,
	ProvideNotificationGateway,
	ProvideCollector,
	ProvideCloudWatchMetrics,
	ProvideMetrics,
	ProvideEventPublisher,
	ProvideArchiveStore,
	ProvideArchiveOutbox,
	ProvideLeaseManager,
	ProvideEngine,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfraSet,
	EngineSet,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideProfileLoader,
	wire.Struct(new(Container), "*"),
)

// HistorySet serves incident history without an engine
var HistorySet = wire.NewSet(
	InfraSet,
	ProvideArchiveStore,
	ProvideHistoryQueryBus,
	wire.Struct(new(HistoryContainer), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}

// InitializeHistoryContainer creates the container used by the Lambda API
func InitializeHistoryContainer(ctx context.Context, cfg *config.Config) (*HistoryContainer, error) {
	wire.Build(HistorySet)
	return nil, nil
}
