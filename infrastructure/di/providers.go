package di

import (
	"context"
	"fmt"
	"time"

	"sentinel/application/commands/bus"
	cmdhandlers "sentinel/application/commands/handlers"
	"sentinel/application/engine"
	"sentinel/application/ports"
	querybus "sentinel/application/queries/bus"
	qryhandlers "sentinel/application/queries/handlers"
	domainconfig "sentinel/domain/config"
	"sentinel/domain/core/policy"
	"sentinel/infrastructure/audio"
	"sentinel/infrastructure/config"
	"sentinel/infrastructure/location"
	"sentinel/infrastructure/messaging/eventbridge"
	"sentinel/infrastructure/messaging/memory"
	"sentinel/infrastructure/notification"
	"sentinel/infrastructure/persistence/dynamodb"
	memarchive "sentinel/infrastructure/persistence/memory"
	"sentinel/infrastructure/persistence/outbox"
	"sentinel/infrastructure/scheduler"
	"sentinel/pkg/auth"
	"sentinel/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const developmentJWTSecret = "development-secret-change-in-production"

// JWTAudience is the audience every API token must carry
const JWTAudience = "sentinel-api"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideDomainConfig selects engine timings for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideScheduler creates the engine's event loop. It is started by the
// caller with Run.
func ProvideScheduler(logger *zap.Logger) *scheduler.Loop {
	return scheduler.NewLoop(logger)
}

// ProvideLocationFeed creates the location feed, starting at the default
// position until the device reports one
func ProvideLocationFeed(sched *scheduler.Loop, domainCfg *domainconfig.DomainConfig, cfg *config.Config, logger *zap.Logger) *location.SimulatedFeed {
	return location.NewSimulatedFeed(sched, domainCfg.LocationRefreshInterval, location.DefaultStart(), cfg.LocationSeed, logger)
}

// AudioInput is the engine's audio source plus, for device input, the sink
// that API readings are pushed into
type AudioInput struct {
	Source   ports.AudioSource
	Reporter cmdhandlers.AudioReporter
}

// ProvideAudioInput selects simulated or device audio
func ProvideAudioInput(cfg *config.Config) AudioInput {
	if cfg.AudioInput == "device" {
		pushed := audio.NewPushedSource(cfg.AudioMaxAge)
		return AudioInput{Source: pushed, Reporter: pushed}
	}
	return AudioInput{Source: audio.NewSimulatedSource(cfg.AudioSeed)}
}

// ProvideNotificationGateway creates the SMS gateway. Without a webhook URL
// messages are only logged.
func ProvideNotificationGateway(cfg *config.Config, logger *zap.Logger) ports.NotificationGateway {
	var gateway ports.NotificationGateway
	if cfg.SMSWebhookURL != "" {
		gateway = notification.NewWebhookGateway(cfg.SMSWebhookURL, cfg.SMSWebhookToken, cfg.SMSRequestTimeout, logger)
	} else {
		gateway = notification.NewLogGateway(logger)
	}

	resilience := notification.DefaultResilienceConfig("sms")
	resilience.RatePerSecond = cfg.SMSRatePerSecond
	return notification.NewResilientGateway(gateway, resilience, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("sentinel")
}

// ProvideCloudWatchMetrics creates the CloudWatch sink, or nil when disabled
func ProvideCloudWatchMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.CloudWatchMetrics {
	if !cfg.EnableCloudWatch {
		return nil
	}
	namespace := fmt.Sprintf("Sentinel/%s", cfg.Environment)
	return observability.NewCloudWatchMetrics(namespace, client, logger)
}

// ProvideMetrics fans engine metrics out to every enabled sink
func ProvideMetrics(collector *observability.Collector, cloudwatch *observability.CloudWatchMetrics) ports.Metrics {
	sinks := observability.Fanout{collector}
	if cloudwatch != nil {
		sinks = append(sinks, cloudwatch)
	}
	return sinks
}

// ProvideEventPublisher creates the in-process bus, forwarding to
// EventBridge when enabled
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) *memory.Publisher {
	var downstream memory.Downstream
	if cfg.EnableEventBus {
		downstream = eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return memory.NewPublisher(downstream, logger)
}

// ProvideArchiveStore selects where incident history is kept
func ProvideArchiveStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.AlertArchive {
	if cfg.EnableDynamoDB {
		return dynamodb.NewAlertArchive(client, cfg.DynamoDBTable, cfg.ArchiveTTL, logger)
	}
	return memarchive.NewAlertArchive(1000)
}

// ProvideArchiveOutbox starts the asynchronous archive writer
func ProvideArchiveOutbox(store ports.AlertArchive, cfg *config.Config, logger *zap.Logger) (*outbox.ArchiveOutbox, func()) {
	o := outbox.NewArchiveOutbox(store, cfg.ArchiveQueueSize, logger)
	o.Start()
	return o, o.Stop
}

// ProvideLeaseManager creates the engine lease manager, or nil when
// DynamoDB is disabled and there is nothing to coordinate through
func ProvideLeaseManager(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.LeaseManager {
	if !cfg.EnableDynamoDB {
		return nil
	}
	return dynamodb.NewLeaseManager(client, cfg.DynamoDBTable, logger)
}

// ProvideEngine wires the alerting engine
func ProvideEngine(
	domainCfg *domainconfig.DomainConfig,
	sched *scheduler.Loop,
	feed *location.SimulatedFeed,
	audioInput AudioInput,
	gateway ports.NotificationGateway,
	publisher *memory.Publisher,
	archive *outbox.ArchiveOutbox,
	metrics ports.Metrics,
	logger *zap.Logger,
) (*engine.Engine, func(), error) {
	eng, err := engine.New(domainCfg, engine.Dependencies{
		Scheduler: sched,
		Location:  feed,
		Audio:     audioInput.Source,
		Gateway:   gateway,
		Publisher: publisher,
		Archive:   archive,
		Metrics:   metrics,
		Confirmer: policy.NewRandomConfirmer(0),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, eng.Close, nil
}

// ProvideCommandBus creates a command bus with the engine handlers registered
func ProvideCommandBus(eng *engine.Engine, feed *location.SimulatedFeed, audioInput AudioInput, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.RecoveryMiddleware(logger),
		bus.LoggingMiddleware(logger),
	)

	handlers := cmdhandlers.NewEngineHandlers(eng, feed, audioInput.Reporter, time.Now, logger)
	if err := handlers.Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus serving snapshots and incident history
func ProvideQueryBus(eng *engine.Engine, archive *outbox.ArchiveOutbox, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger, 250*time.Millisecond))
	if err := qryhandlers.Register(queryBus, eng, archive); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideHistoryQueryBus creates a query bus that only serves incident
// history, for processes without an engine
func ProvideHistoryQueryBus(archive ports.AlertArchive, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger, 250*time.Millisecond))
	if err := qryhandlers.Register(queryBus, nil, archive); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTValidator creates the API token validator. Outside production
// a fixed development secret is used when none is configured.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = developmentJWTSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
		Audience:      []string{JWTAudience},
	})
}

// ProvideProfileLoader creates the profile file loader
func ProvideProfileLoader() *config.ProfileLoader {
	return config.NewProfileLoader()
}
