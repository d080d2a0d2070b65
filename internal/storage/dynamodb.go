package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// leaseKeyPrefix namespaces lease items in the sync table.
	leaseKeyPrefix = "lease#"

	// watermarkKeyPrefix namespaces watermark items in the sync table.
	watermarkKeyPrefix = "watermark#"
)

// DynamoDBAPI defines the DynamoDB operations used by the watermark store and leaser.
type DynamoDBAPI interface {
	// DeleteItem removes an item from DynamoDB.
	DeleteItem(
		ctx context.Context,
		params *dynamodb.DeleteItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.DeleteItemOutput, error)

	// GetItem retrieves an item from DynamoDB.
	GetItem(
		ctx context.Context,
		params *dynamodb.GetItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	// PutItem stores an item in DynamoDB.
	PutItem(
		ctx context.Context,
		params *dynamodb.PutItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.PutItemOutput, error)
}

// DynamoDBStore keeps watermarks as items keyed by sync key.
type DynamoDBStore struct {
	// client is the DynamoDB API client.
	client DynamoDBAPI

	// tableName is the name of the DynamoDB table.
	tableName string
}

// LastSyncTime returns the watermark for key, or the zero time if none is stored.
func (s *DynamoDBStore) LastSyncTime(ctx context.Context, key string) (time.Time, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"sync_key": &types.AttributeValueMemberS{Value: watermarkKeyPrefix + key},
		},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("getting item from DynamoDB: %w", err)
	}

	if output.Item == nil {
		return time.Time{}, nil
	}

	v, ok := output.Item["last_sync_time"].(*types.AttributeValueMemberS)
	if !ok {
		return time.Time{}, nil
	}

	return parseWatermark(v.Value)
}

// SetLastSyncTime stores the watermark for key.
func (s *DynamoDBStore) SetLastSyncTime(ctx context.Context, key string, t time.Time) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"sync_key":       &types.AttributeValueMemberS{Value: watermarkKeyPrefix + key},
			"last_sync_time": &types.AttributeValueMemberS{Value: formatWatermark(t)},
		},
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}

	return nil
}

// NewDynamoDBStore creates a new DynamoDB-backed watermark store.
func NewDynamoDBStore(client DynamoDBAPI, tableName string) (*DynamoDBStore, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}

	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}, nil
}

// DynamoDBLeaser grants exclusive, expiring leases on sync keys so that overlapping
// invocations of the same runner do not process the same window twice.
type DynamoDBLeaser struct {
	// client is the DynamoDB API client.
	client DynamoDBAPI

	// now returns the current time.
	now func() time.Time

	// tableName is the name of the DynamoDB table.
	tableName string
}

// Acquire takes the lease on key for owner. It returns false when another owner holds
// an unexpired lease. Re-acquiring a lease already held by owner extends it.
func (l *DynamoDBLeaser) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	if owner == "" {
		return false, errors.New("lease owner is required")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("lease ttl must be positive, got %v", ttl)
	}

	now := l.now()

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"sync_key":   &types.AttributeValueMemberS{Value: leaseKeyPrefix + key},
			"owner":      &types.AttributeValueMemberS{Value: owner},
			"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttl).UnixMilli(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(sync_key) OR expires_at < :now OR #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("putting lease to DynamoDB: %w", err)
	}

	return true, nil
}

// Release gives up the lease on key if owner still holds it.
func (l *DynamoDBLeaser) Release(ctx context.Context, key string, owner string) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"sync_key": &types.AttributeValueMemberS{Value: leaseKeyPrefix + key},
		},
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("deleting lease from DynamoDB: %w", err)
	}

	return nil
}

// NewDynamoDBLeaser creates a new DynamoDB-backed sync-key leaser.
func NewDynamoDBLeaser(client DynamoDBAPI, tableName string) (*DynamoDBLeaser, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}

	return &DynamoDBLeaser{
		client:    client,
		now:       time.Now,
		tableName: tableName,
	}, nil
}
