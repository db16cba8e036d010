package dynamodb

import (
	"context"
	"time"

	"sentinel/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	connectionIndex = "user-connections-index"
	connectionTTL   = 24 * time.Hour
)

// Connection is an API Gateway websocket connection held by a user
type Connection struct {
	ConnectionID string    `dynamodbav:"ConnectionID"`
	UserID       string    `dynamodbav:"UserID"`
	Endpoint     string    `dynamodbav:"Endpoint"`
	ConnectedAt  time.Time `dynamodbav:"ConnectedAt"`
}

type connectionItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	Connection
	TTL int64 `dynamodbav:"TTL"`
}

func connectionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "CONNECTION#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// ConnectionStore tracks websocket connections for the stream relay.
// Items live under PK=CONNECTION#<id> and are indexed by GSI1PK=USER#<user>.
type ConnectionStore struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewConnectionStore creates a connection store
func NewConnectionStore(client Client, tableName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{client: client, tableName: tableName, logger: logger}
}

// Put records a new connection; it expires after a day if never removed
func (s *ConnectionStore) Put(ctx context.Context, conn Connection) error {
	if conn.ConnectionID == "" || conn.UserID == "" {
		return errors.NewValidationError("connection id and user id are required")
	}
	item := connectionItem{
		PK:         "CONNECTION#" + conn.ConnectionID,
		SK:         "METADATA",
		GSI1PK:     "USER#" + conn.UserID,
		GSI1SK:     "CONNECTION#" + conn.ConnectionID,
		Connection: conn,
		TTL:        conn.ConnectedAt.Add(connectionTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return errors.Wrap(err, "failed to marshal connection")
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return errors.Wrap(err, "failed to store connection")
	}
	s.logger.Debug("Stored connection",
		zap.String("connectionID", conn.ConnectionID),
		zap.String("userID", conn.UserID),
	)
	return nil
}

// Delete removes a connection. Deleting an unknown connection is not an error.
func (s *ConnectionStore) Delete(ctx context.Context, connectionID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       connectionKey(connectionID),
	}); err != nil {
		return errors.Wrapf(err, "failed to delete connection %s", connectionID)
	}
	return nil
}

// ForUser lists the open connections of a user
func (s *ConnectionStore) ForUser(ctx context.Context, userID string) ([]Connection, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value("USER#" + userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build connection query")
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(connectionIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query connections")
	}

	conns := make([]Connection, 0, len(out.Items))
	for _, raw := range out.Items {
		var item connectionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("Skipping malformed connection item", zap.Error(err))
			continue
		}
		conns = append(conns, item.Connection)
	}
	return conns, nil
}
