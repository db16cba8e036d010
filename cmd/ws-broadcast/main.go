// Package main relays engine events from EventBridge to the API Gateway
// websocket connections of the protected user.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sentinel/infrastructure/config"
	"sentinel/infrastructure/di"
	"sentinel/infrastructure/persistence/dynamodb"
	"sentinel/interfaces/websocket"
	"sentinel/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"go.uber.org/zap"
)

var (
	relay *websocket.Relay
	// streamUser receives events that do not name a user
	streamUser string
	tracer     *observability.SegmentTracer
	logger     *zap.Logger
)

func init() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err = di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	if cfg.WebSocketEndpoint == "" {
		log.Fatal("WEBSOCKET_ENDPOINT is required")
	}

	poster := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", cfg.WebSocketEndpoint))
	})
	store := dynamodb.NewConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg.ConnectionsTable, logger)

	relay = websocket.NewRelay(store, poster, logger)
	streamUser = cfg.StreamUserID
	tracer = observability.NewSegmentTracer(cfg.ServiceName)
}

// relayedEvent has the shape of websocket.EventMessage with the event left
// as EventBridge delivered it
type relayedEvent struct {
	EventType string          `json:"event_type"`
	Event     json.RawMessage `json:"event"`
}

// recipient picks the user an event is for
func recipient(detail json.RawMessage) string {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(detail, &body); err == nil && body.UserID != "" {
		return body.UserID
	}
	return streamUser
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	userID := recipient(event.Detail)
	if userID == "" {
		logger.Warn("Dropping event without recipient", zap.String("detailType", event.DetailType))
		return nil
	}
	tracer.Annotate(ctx, "event_type", event.DetailType)

	return tracer.Trace(ctx, "relay", func(ctx context.Context) error {
		sent, err := relay.Deliver(ctx, userID, websocket.TypeEvent, relayedEvent{
			EventType: event.DetailType,
			Event:     event.Detail,
		})
		if err != nil {
			return err
		}
		logger.Info("Relayed event",
			zap.String("detailType", event.DetailType),
			zap.String("userID", userID),
			zap.Int("connections", sent),
		)
		return nil
	})
}

func main() {
	lambda.Start(handler)
}
