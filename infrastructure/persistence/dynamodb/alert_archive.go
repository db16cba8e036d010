// Package dynamodb stores incident history and engine leases in a single
// DynamoDB table.
package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Client is the slice of the DynamoDB API the adapters use
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const (
	entityAlert   = "ALERT"
	skTimeLayout  = "2006-01-02T15:04:05.000000000Z"
	defaultLimit  = 50
	maxQueryLimit = 500
)

// alertItem is the DynamoDB shape of an archived alert record
type alertItem struct {
	PK               string                `dynamodbav:"PK"`
	SK               string                `dynamodbav:"SK"`
	EntityType       string                `dynamodbav:"EntityType"`
	Owner            string                `dynamodbav:"Owner"`
	AlertID          uint64                `dynamodbav:"AlertID"`
	Message          string                `dynamodbav:"Message"`
	Severity         string                `dynamodbav:"Severity"`
	Source           string                `dynamodbav:"Source,omitempty"`
	LeadsToCountdown bool                  `dynamodbav:"LeadsToCountdown"`
	Location         valueobjects.Location `dynamodbav:"Location"`
	CreatedAt        string                `dynamodbav:"CreatedAt"`
	TTL              int64                 `dynamodbav:"TTL,omitempty"`
}

// AlertArchive implements ports.AlertArchive on DynamoDB.
// Items live under PK=OWNER#<owner>, SK=ALERT#<created_at>#<id>.
type AlertArchive struct {
	client    Client
	tableName string
	retention time.Duration
	logger    *zap.Logger
}

// NewAlertArchive creates an archive; retention 0 keeps items forever,
// otherwise items carry a TTL.
func NewAlertArchive(client Client, tableName string, retention time.Duration, logger *zap.Logger) *AlertArchive {
	return &AlertArchive{
		client:    client,
		tableName: tableName,
		retention: retention,
		logger:    logger,
	}
}

func ownerKey(owner string) string {
	return "OWNER#" + owner
}

func alertSortKey(at time.Time, id entities.AlertID) string {
	return fmt.Sprintf("%s#%s#%020d", entityAlert, at.UTC().Format(skTimeLayout), uint64(id))
}

func toItem(owner string, record entities.AlertRecord, retention time.Duration) alertItem {
	item := alertItem{
		PK:               ownerKey(owner),
		SK:               alertSortKey(record.CreatedAt, record.ID),
		EntityType:       entityAlert,
		Owner:            owner,
		AlertID:          uint64(record.ID),
		Message:          record.Message,
		Severity:         record.Severity.String(),
		Source:           record.Source,
		LeadsToCountdown: record.LeadsToCountdown,
		Location:         record.Location,
		CreatedAt:        record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if retention > 0 {
		item.TTL = record.CreatedAt.Add(retention).Unix()
	}
	return item
}

func (i alertItem) toRecord() (entities.AlertRecord, error) {
	severity, err := valueobjects.ParseSeverity(i.Severity)
	if err != nil {
		return entities.AlertRecord{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return entities.AlertRecord{}, fmt.Errorf("parse CreatedAt: %w", err)
	}
	return entities.AlertRecord{
		ID:               entities.AlertID(i.AlertID),
		Message:          i.Message,
		Severity:         severity,
		CreatedAt:        created,
		Location:         i.Location,
		LeadsToCountdown: i.LeadsToCountdown,
		Source:           i.Source,
	}, nil
}

// Save implements ports.AlertArchive
func (a *AlertArchive) Save(ctx context.Context, owner string, record entities.AlertRecord) error {
	if strings.TrimSpace(owner) == "" {
		return errors.NewValidationError("archive owner is required")
	}

	av, err := attributevalue.MarshalMap(toItem(owner, record, a.retention))
	if err != nil {
		return errors.NewDatabaseError("marshal alert", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      av,
	})
	if err != nil {
		return errors.NewDatabaseError("put alert", err)
	}

	a.logger.Debug("Alert archived",
		zap.String("owner", owner),
		zap.Uint64("alertID", uint64(record.ID)),
		zap.String("severity", record.Severity.String()),
	)
	return nil
}

// List implements ports.AlertArchive. Records come back newest first.
func (a *AlertArchive) List(ctx context.Context, query ports.IncidentQuery) ([]entities.AlertRecord, error) {
	if strings.TrimSpace(query.Owner) == "" {
		return nil, errors.NewValidationError("owner is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	keyCond := expression.Key("PK").Equal(expression.Value(ownerKey(query.Owner)))
	if query.Since.IsZero() {
		keyCond = keyCond.And(expression.Key("SK").BeginsWith(entityAlert + "#"))
	} else {
		keyCond = keyCond.And(expression.Key("SK").Between(
			expression.Value(fmt.Sprintf("%s#%s", entityAlert, query.Since.UTC().Format(skTimeLayout))),
			expression.Value(entityAlert+"#~"),
		))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if query.Severity != 0 {
		builder = builder.WithFilter(expression.Name("Severity").Equal(expression.Value(query.Severity.String())))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, errors.NewDatabaseError("build incident query", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(a.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(int32(limit)),
	}

	records := make([]entities.AlertRecord, 0, limit)
	for {
		out, err := a.client.Query(ctx, input)
		if err != nil {
			return nil, errors.NewDatabaseError("query incidents", err)
		}

		var items []alertItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, errors.NewDatabaseError("unmarshal incidents", err)
		}
		for _, item := range items {
			record, err := item.toRecord()
			if err != nil {
				a.logger.Warn("Skipping malformed incident", zap.String("sk", item.SK), zap.Error(err))
				continue
			}
			records = append(records, record)
			if len(records) == limit {
				return records, nil
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// keyOf is used by tests and the lease to address single items
func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
