package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"sentinel/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ErrLeaseHeld is returned when another instance owns the engine for a user
var ErrLeaseHeld = stderrors.New("engine lease held by another instance")

// leaseRecord makes sure only one engine instance runs per user, so a
// countdown is never dispatched twice.
type leaseRecord struct {
	PK        string `dynamodbav:"PK"` // LEASE#<owner>
	SK        string `dynamodbav:"SK"` // ENGINE
	Holder    string `dynamodbav:"Holder"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"` // unix millis
	TTL       int64  `dynamodbav:"TTL"`
}

// LeaseManager acquires and renews engine leases using conditional writes
type LeaseManager struct {
	client    Client
	tableName string
	now       func() time.Time
	logger    *zap.Logger
}

// NewLeaseManager creates a lease manager
func NewLeaseManager(client Client, tableName string, logger *zap.Logger) *LeaseManager {
	return &LeaseManager{client: client, tableName: tableName, now: time.Now, logger: logger}
}

// Acquire takes or renews the lease for owner. It fails with ErrLeaseHeld
// while another holder's lease is still valid.
func (m *LeaseManager) Acquire(ctx context.Context, owner, holder string, ttl time.Duration) (*Lease, error) {
	now := m.now()
	expires := now.Add(ttl)

	av, err := attributevalue.MarshalMap(leaseRecord{
		PK:        "LEASE#" + owner,
		SK:        "ENGINE",
		Holder:    holder,
		ExpiresAt: expires.UnixMilli(),
		TTL:       expires.Add(time.Hour).Unix(),
	})
	if err != nil {
		return nil, errors.NewDatabaseError("marshal lease", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixMilli()))).
		Or(expression.Name("Holder").Equal(expression.Value(holder)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, errors.NewDatabaseError("build lease condition", err)
	}

	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(m.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if stderrors.As(err, &failed) {
			m.logger.Debug("Engine lease already held", zap.String("owner", owner), zap.String("holder", holder))
			return nil, ErrLeaseHeld
		}
		return nil, errors.NewDatabaseError("acquire lease", err)
	}

	m.logger.Debug("Engine lease acquired",
		zap.String("owner", owner),
		zap.String("holder", holder),
		zap.Time("expiresAt", expires),
	)
	return &Lease{manager: m, owner: owner, holder: holder, ttl: ttl, expiresAt: expires}, nil
}

// Release deletes the lease if holder still owns it
func (m *LeaseManager) Release(ctx context.Context, owner, holder string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("Holder").Equal(expression.Value(holder))).
		Build()
	if err != nil {
		return errors.NewDatabaseError("build release condition", err)
	}

	_, err = m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(m.tableName),
		Key:                       keyOf("LEASE#"+owner, "ENGINE"),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if stderrors.As(err, &failed) {
			m.logger.Warn("Lease already released or taken over", zap.String("owner", owner))
			return nil
		}
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// Lease is a held engine lease
type Lease struct {
	manager   *LeaseManager
	owner     string
	holder    string
	ttl       time.Duration
	mu        sync.Mutex
	expiresAt time.Time
}

// ExpiresAt returns when the lease lapses unless renewed
func (l *Lease) ExpiresAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expiresAt
}

// KeepAlive renews the lease every ttl/3 until ctx is done, then releases
// it. lost is called once if a renewal is refused.
func (l *Lease) KeepAlive(ctx context.Context, lost func(error)) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.manager.Release(releaseCtx, l.owner, l.holder); err != nil {
				l.manager.logger.Warn("Failed to release engine lease", zap.Error(err))
			}
			return
		case <-ticker.C:
			renewed, err := l.manager.Acquire(ctx, l.owner, l.holder, l.ttl)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				if lost != nil {
					lost(err)
				}
				return
			}
			l.mu.Lock()
			l.expiresAt = renewed.expiresAt
			l.mu.Unlock()
		}
	}
}
