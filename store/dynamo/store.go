package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/goliatone/go-webhooks/core"
)

// batchDeleteSize is the DynamoDB BatchWriteItem request cap.
const batchDeleteSize = 25

// DynamoAPI is the slice of the DynamoDB client this store needs;
// injectable for tests.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Store persists webhook logs in a DynamoDB table keyed by
// (namespace, id) with a secondary index ordered by (namespace, __createdAt).
type Store struct {
	client DynamoAPI
	table  string
	index  string
}

type StoreOption func(*Store)

// WithCreatedAtIndex overrides the physical name of the createdAt secondary
// index.
func WithCreatedAtIndex(name string) StoreOption {
	return func(s *Store) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.index = trimmed
		}
	}
}

func New(client DynamoAPI, table string, opts ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamostore: dynamodb client is required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("dynamostore: table name is required")
	}
	store := &Store{
		client: client,
		table:  table,
		index:  core.CreatedAtIndexName,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store, nil
}

func (s *Store) Put(ctx context.Context, log core.Log) (core.Log, error) {
	item, err := attributevalue.MarshalMap(toRecord(log))
	if err != nil {
		return core.Log{}, fmt.Errorf("dynamostore: marshal log record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return core.Log{}, fmt.Errorf("dynamostore: put log record: %w", err)
	}
	return log, nil
}

func (s *Store) Query(ctx context.Context, plan core.QueryPlan) (core.LogPage, error) {
	values, err := attributevalue.MarshalMap(plan.Values)
	if err != nil {
		return core.LogPage{}, fmt.Errorf("dynamostore: marshal expression values: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(plan.KeyCondition),
		ExpressionAttributeNames:  plan.Names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(plan.ScanForward),
	}
	if plan.IndexName != "" {
		input.IndexName = aws.String(s.index)
	}
	if plan.Filter != "" {
		input.FilterExpression = aws.String(plan.Filter)
	}
	if plan.Limit > 0 {
		input.Limit = aws.Int32(int32(plan.Limit))
	}
	if startKey := decodeCursor(plan.StartKey); startKey != nil {
		input.ExclusiveStartKey = startKey
	}

	output, err := s.client.Query(ctx, input)
	if err != nil {
		return core.LogPage{}, fmt.Errorf("dynamostore: query log records: %w", err)
	}

	items := make([]core.Log, 0, len(output.Items))
	for _, item := range output.Items {
		var record logRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return core.LogPage{}, fmt.Errorf("dynamostore: unmarshal log record: %w", err)
		}
		items = append(items, toDomain(record))
	}

	return core.LogPage{
		Count:            len(items),
		Items:            items,
		LastEvaluatedKey: encodeCursor(output.LastEvaluatedKey),
	}, nil
}

// Clear walks the partition with key-only pages and deletes the records in
// BatchWriteItem chunks, re-submitting unprocessed deletes until drained.
func (s *Store) Clear(ctx context.Context, namespace string) (core.ClearResult, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return core.ClearResult{}, fmt.Errorf("dynamostore: namespace is required")
	}

	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		output, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#n0 = :v0"),
			ExpressionAttributeNames: map[string]string{
				"#n0": core.AttrNamespace,
				"#n1": core.AttrID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":v0": &types.AttributeValueMemberS{Value: namespace},
			},
			ProjectionExpression: aws.String("#n0, #n1"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return core.ClearResult{}, fmt.Errorf("dynamostore: scan namespace for clear: %w", err)
		}

		count, err := s.deleteKeys(ctx, output.Items)
		if err != nil {
			return core.ClearResult{}, err
		}
		deleted += count

		if len(output.LastEvaluatedKey) == 0 {
			return core.ClearResult{Count: deleted}, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

func (s *Store) deleteKeys(ctx context.Context, keys []map[string]types.AttributeValue) (int, error) {
	deleted := 0
	for start := 0; start < len(keys); start += batchDeleteSize {
		end := start + batchDeleteSize
		if end > len(keys) {
			end = len(keys)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		pending := map[string][]types.WriteRequest{s.table: requests}
		for len(pending[s.table]) > 0 {
			output, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return deleted, fmt.Errorf("dynamostore: batch delete log records: %w", err)
			}
			submitted := len(pending[s.table])
			unprocessed := output.UnprocessedItems[s.table]
			deleted += submitted - len(unprocessed)
			if len(unprocessed) == 0 {
				break
			}
			pending = map[string][]types.WriteRequest{s.table: unprocessed}
		}
	}
	return deleted, nil
}

// EnsureTable provisions the table, the createdAt index, and TTL. It is
// idempotent: an already-existing table or already-enabled TTL is success.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(core.AttrNamespace), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(core.AttrID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(core.AttrCreatedAt), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(core.AttrNamespace), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(core.AttrID), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(s.index),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(core.AttrNamespace), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(core.AttrCreatedAt), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil && !isTableExists(err) {
		return fmt.Errorf("dynamostore: create table %s: %w", s.table, err)
	}

	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil && !isTTLAlreadyEnabled(err) {
		return fmt.Errorf("dynamostore: enable ttl on %s: %w", s.table, err)
	}
	return nil
}

func isTableExists(err error) bool {
	var inUse *types.ResourceInUseException
	return errors.As(err, &inUse)
}

func isTTLAlreadyEnabled(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	// Re-enabling TTL on a table where it is already active fails with a
	// ValidationException.
	return apiErr.ErrorCode() == "ValidationException" &&
		strings.Contains(apiErr.ErrorMessage(), "TimeToLive")
}

var _ core.LogStore = (*Store)(nil)
