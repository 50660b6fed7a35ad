package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chatter/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockSK = "LOCK"

	initialRetryInterval = 50 * time.Millisecond
	maxRetryInterval     = time.Second
)

// errLockHeld reports a failed conditional write on a live lock
var errLockHeld = errors.New("lock already held")

// LockManager provides distributed locking using DynamoDB conditional writes.
// An expired lock can be taken over; the TTL attribute lets DynamoDB reap it.
type LockManager struct {
	client    Client
	tableName string
	ownerID   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewLockManager creates a lock manager whose locks are owned by this process
func NewLockManager(client Client, tableName string, logger *zap.Logger) *LockManager {
	return &LockManager{
		client:    client,
		tableName: tableName,
		ownerID:   uuid.New().String(),
		logger:    logger,
		now:       time.Now,
	}
}

var _ ports.LockManager = (*LockManager)(nil)

func lockKey(resource string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: "LOCK#" + resource},
		attrSK: &types.AttributeValueMemberS{Value: lockSK},
	}
}

// Acquire retries with backoff until the lock is taken or ctx is done
func (m *LockManager) Acquire(ctx context.Context, resource string, ttl time.Duration) (func(context.Context) error, error) {
	retryInterval := initialRetryInterval

	for {
		lockID, err := m.tryAcquire(ctx, resource, ttl)
		if err == nil {
			return func(ctx context.Context) error {
				return m.release(ctx, resource, lockID)
			}, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout acquiring lock for resource %s: %w", resource, ctx.Err())
		case <-time.After(retryInterval):
			if retryInterval < maxRetryInterval {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (m *LockManager) tryAcquire(ctx context.Context, resource string, ttl time.Duration) (string, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	lockID := uuid.New().String()

	item := lockKey(resource)
	item["LockID"] = &types.AttributeValueMemberS{Value: lockID}
	item["Owner"] = &types.AttributeValueMemberS{Value: m.ownerID}
	item["AcquiredAt"] = &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)}
	item["ExpiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixMilli(), 10)}
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix()+1, 10)}

	_, err := m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(m.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return "", errLockHeld
		}
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}

	m.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)
	return lockID, nil
}

func (m *LockManager) release(ctx context.Context, resource, lockID string) error {
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(m.tableName),
		Key:                 lockKey(resource),
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			// Expired and taken over by someone else
			m.logger.Warn("Lock already released or reacquired",
				zap.String("resource", resource),
				zap.String("lockID", lockID),
			)
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
