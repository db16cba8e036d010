// Package main implements the API Gateway websocket $connect and
// $disconnect handler. Connections are recorded so ws-broadcast can reach
// them.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sentinel/infrastructure/config"
	"sentinel/infrastructure/di"
	"sentinel/infrastructure/persistence/dynamodb"
	"sentinel/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var (
	connections *dynamodb.ConnectionStore
	validator   *auth.JWTValidator
	logger      *zap.Logger
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
	validator, err = di.ProvideJWTValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	connections = dynamodb.NewConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg.ConnectionsTable, logger)
}

func respond(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status, Body: body}
}

// tokenFrom reads the token from the query string, which is all browsers
// can set on a websocket handshake, or from the Authorization header
func tokenFrom(req events.APIGatewayWebsocketProxyRequest) string {
	if token := req.QueryStringParameters["token"]; token != "" {
		return token
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Authorization") {
			return strings.TrimPrefix(v, "Bearer ")
		}
	}
	return ""
}

func connect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := validator.ValidateToken(tokenFrom(req))
	if err != nil {
		logger.Info("Rejected websocket connection",
			zap.String("connectionID", req.RequestContext.ConnectionID),
			zap.Error(err),
		)
		return respond(http.StatusUnauthorized, `{"error":"unauthorized"}`), nil
	}

	conn := dynamodb.Connection{
		ConnectionID: req.RequestContext.ConnectionID,
		UserID:       claims.UserID,
		Endpoint:     fmt.Sprintf("%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage),
		ConnectedAt:  time.Now().UTC(),
	}
	if err := connections.Put(ctx, conn); err != nil {
		logger.Error("Failed to store connection", zap.Error(err))
		return respond(http.StatusInternalServerError, `{"error":"internal server error"}`), nil
	}

	return respond(http.StatusOK, `{"status":"connected"}`), nil
}

func disconnect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := connections.Delete(ctx, req.RequestContext.ConnectionID); err != nil {
		logger.Warn("Failed to delete connection", zap.Error(err))
	}
	return respond(http.StatusOK, `{"status":"disconnected"}`), nil
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch req.RequestContext.RouteKey {
	case "$disconnect":
		return disconnect(ctx, req)
	default:
		return connect(ctx, req)
	}
}

func main() {
	lambda.Start(handler)
}
