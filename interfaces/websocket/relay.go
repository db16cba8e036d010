package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"sentinel/infrastructure/persistence/dynamodb"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConnectionStore finds and forgets API Gateway connections
type ConnectionStore interface {
	ForUser(ctx context.Context, userID string) ([]dynamodb.Connection, error)
	Delete(ctx context.Context, connectionID string) error
}

// Poster posts a payload to one API Gateway connection
type Poster interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Relay delivers stream messages through the API Gateway management API,
// for deployments where connections are held by API Gateway instead of the
// in-process hub.
type Relay struct {
	store       ConnectionStore
	poster      Poster
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewRelay creates a relay
func NewRelay(store ConnectionStore, poster Poster, logger *zap.Logger) *Relay {
	return &Relay{
		store:       store,
		poster:      poster,
		concurrency: 10,
		now:         time.Now,
		logger:      logger,
	}
}

// Deliver sends a message to every connection of userID and returns how
// many connections received it. Connections API Gateway reports as gone are
// removed from the store.
func (r *Relay) Deliver(ctx context.Context, userID, msgType string, data interface{}) (int, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	payload, err := json.Marshal(BroadcastMessage{
		Type:      msgType,
		Data:      raw,
		Timestamp: r.now().Unix(),
	})
	if err != nil {
		return 0, err
	}

	conns, err := r.store.ForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	var sent int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, conn := range conns {
		g.Go(func() error {
			_, err := r.poster.PostToConnection(gctx, &apigatewaymanagementapi.PostToConnectionInput{
				ConnectionId: aws.String(conn.ConnectionID),
				Data:         payload,
			})
			var gone *apigwtypes.GoneException
			switch {
			case err == nil:
				atomic.AddInt64(&sent, 1)
			case errors.As(err, &gone):
				r.logger.Info("Removing stale connection", zap.String("connectionID", conn.ConnectionID))
				if err := r.store.Delete(gctx, conn.ConnectionID); err != nil {
					r.logger.Warn("Failed to remove stale connection",
						zap.String("connectionID", conn.ConnectionID),
						zap.Error(err),
					)
				}
			default:
				r.logger.Warn("Failed to post to connection",
					zap.String("connectionID", conn.ConnectionID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(sent), nil
}
