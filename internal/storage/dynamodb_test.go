package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type mockDynamoDBClient struct {
	deleteItemFunc func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	getItemFunc    func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc    func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

func (m *mockDynamoDBClient) DeleteItem(
	ctx context.Context,
	params *dynamodb.DeleteItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamoDBClient) GetItem(
	ctx context.Context,
	params *dynamodb.GetItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) PutItem(
	ctx context.Context,
	params *dynamodb.PutItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func TestNewDynamoDBStore(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		client    DynamoDBAPI
		errMsg    string
		tableName string
		wantErr   bool
	}{
		"valid inputs": {
			client:    &mockDynamoDBClient{},
			tableName: "prnbridge-sync",
		},
		"nil client": {
			client:    nil,
			tableName: "prnbridge-sync",
			wantErr:   true,
			errMsg:    "dynamodb client is required",
		},
		"empty table name": {
			client:    &mockDynamoDBClient{},
			tableName: "",
			wantErr:   true,
			errMsg:    "table name is required",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewDynamoDBStore(tc.client, tc.tableName)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				require.Nil(t, store)
			} else {
				require.NoError(t, err)
				require.NotNil(t, store)
			}

			leaser, err := NewDynamoDBLeaser(tc.client, tc.tableName)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				require.Nil(t, leaser)
			} else {
				require.NoError(t, err)
				require.NotNil(t, leaser)
			}
		})
	}
}

func TestDynamoDBStore_LastSyncTime(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		client  *mockDynamoDBClient
		errMsg  string
		want    time.Time
		wantErr bool
	}{
		"returns watermark when found": {
			client: &mockDynamoDBClient{
				getItemFunc: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
					key := params.Key["sync_key"].(*types.AttributeValueMemberS)
					require.Equal(t, "watermark#UpdatePrns", key.Value)
					require.True(t, *params.ConsistentRead)
					return &dynamodb.GetItemOutput{
						Item: map[string]types.AttributeValue{
							"sync_key":       &types.AttributeValueMemberS{Value: "watermark#UpdatePrns"},
							"last_sync_time": &types.AttributeValueMemberS{Value: "2024-03-01T08:00:00.5Z"},
						},
					}, nil
				},
			},
			want: time.Date(2024, 3, 1, 8, 0, 0, 500_000_000, time.UTC),
		},
		"returns zero time when not found": {
			client: &mockDynamoDBClient{
				getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
					return &dynamodb.GetItemOutput{Item: nil}, nil
				},
			},
			want: time.Time{},
		},
		"returns zero time when attribute missing": {
			client: &mockDynamoDBClient{
				getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
					return &dynamodb.GetItemOutput{
						Item: map[string]types.AttributeValue{
							"sync_key": &types.AttributeValueMemberS{Value: "watermark#UpdatePrns"},
						},
					}, nil
				},
			},
			want: time.Time{},
		},
		"returns error on invalid value": {
			client: &mockDynamoDBClient{
				getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
					return &dynamodb.GetItemOutput{
						Item: map[string]types.AttributeValue{
							"last_sync_time": &types.AttributeValueMemberS{Value: "yesterday"},
						},
					}, nil
				},
			},
			wantErr: true,
			errMsg:  "parsing watermark",
		},
		"returns error on dynamodb error": {
			client: &mockDynamoDBClient{
				getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
					return nil, errors.New("dynamodb error")
				},
			},
			wantErr: true,
			errMsg:  "getting item from DynamoDB",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewDynamoDBStore(tc.client, "prnbridge-sync")
			require.NoError(t, err)

			got, err := store.LastSyncTime(context.Background(), "UpdatePrns")

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDynamoDBStore_SetLastSyncTime(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		client  *mockDynamoDBClient
		errMsg  string
		wantErr bool
	}{
		"successful put": {
			client: &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					require.Equal(t, "prnbridge-sync", *params.TableName)
					key := params.Item["sync_key"].(*types.AttributeValueMemberS)
					value := params.Item["last_sync_time"].(*types.AttributeValueMemberS)
					require.Equal(t, "watermark#UpdatePrns", key.Value)
					require.Equal(t, "2024-03-01T08:00:00Z", value.Value)
					return &dynamodb.PutItemOutput{}, nil
				},
			},
		},
		"dynamodb error": {
			client: &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					return nil, errors.New("dynamodb error")
				},
			},
			wantErr: true,
			errMsg:  "putting item to DynamoDB",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewDynamoDBStore(tc.client, "prnbridge-sync")
			require.NoError(t, err)

			err = store.SetLastSyncTime(context.Background(), "UpdatePrns", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDynamoDBLeaser_Acquire(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		client  *mockDynamoDBClient
		errMsg  string
		owner   string
		ttl     time.Duration
		want    bool
		wantErr bool
	}{
		"acquires free lease": {
			client: &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					key := params.Item["sync_key"].(*types.AttributeValueMemberS)
					owner := params.Item["owner"].(*types.AttributeValueMemberS)
					expires := params.Item["expires_at"].(*types.AttributeValueMemberN)
					nowValue := params.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN)
					require.Equal(t, "lease#UpdatePrns", key.Value)
					require.Equal(t, "req-1", owner.Value)
					require.Equal(t, "1709280300000", expires.Value)
					require.Equal(t, "1709280000000", nowValue.Value)
					require.Contains(t, *params.ConditionExpression, "attribute_not_exists(sync_key)")
					return &dynamodb.PutItemOutput{}, nil
				},
			},
			owner: "req-1",
			ttl:   5 * time.Minute,
			want:  true,
		},
		"held by another owner": {
			client: &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					return nil, &types.ConditionalCheckFailedException{}
				},
			},
			owner: "req-2",
			ttl:   5 * time.Minute,
			want:  false,
		},
		"dynamodb error": {
			client: &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					return nil, errors.New("throttled")
				},
			},
			owner:   "req-1",
			ttl:     5 * time.Minute,
			wantErr: true,
			errMsg:  "putting lease to DynamoDB",
		},
		"empty owner": {
			client:  &mockDynamoDBClient{},
			owner:   "",
			ttl:     time.Minute,
			wantErr: true,
			errMsg:  "lease owner is required",
		},
		"non-positive ttl": {
			client:  &mockDynamoDBClient{},
			owner:   "req-1",
			ttl:     0,
			wantErr: true,
			errMsg:  "lease ttl must be positive",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			leaser, err := NewDynamoDBLeaser(tc.client, "prnbridge-sync")
			require.NoError(t, err)
			leaser.now = func() time.Time { return now }

			got, err := leaser.Acquire(context.Background(), "UpdatePrns", tc.owner, tc.ttl)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDynamoDBLeaser_Release(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		client  *mockDynamoDBClient
		errMsg  string
		wantErr bool
	}{
		"releases held lease": {
			client: &mockDynamoDBClient{
				deleteItemFunc: func(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
					key := params.Key["sync_key"].(*types.AttributeValueMemberS)
					owner := params.ExpressionAttributeValues[":owner"].(*types.AttributeValueMemberS)
					require.Equal(t, "lease#UpdatePrns", key.Value)
					require.Equal(t, "req-1", owner.Value)
					return &dynamodb.DeleteItemOutput{}, nil
				},
			},
		},
		"lease taken over is not an error": {
			client: &mockDynamoDBClient{
				deleteItemFunc: func(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
					return nil, &types.ConditionalCheckFailedException{}
				},
			},
		},
		"dynamodb error": {
			client: &mockDynamoDBClient{
				deleteItemFunc: func(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
					return nil, errors.New("dynamodb error")
				},
			},
			wantErr: true,
			errMsg:  "deleting lease from DynamoDB",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			leaser, err := NewDynamoDBLeaser(tc.client, "prnbridge-sync")
			require.NoError(t, err)

			err = leaser.Release(context.Background(), "UpdatePrns", "req-1")

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
