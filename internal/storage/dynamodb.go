package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStore
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBStore keeps every logical table in one DynamoDB table,
// partitioned by PK = TABLE#<name>.
type DynamoDBStore struct {
	client    DynamoDBAPI
	tableName string
	now       func() time.Time
}

// DynamoDBItem represents the item structure in DynamoDB
type DynamoDBItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	Fields     map[string]string `dynamodbav:"fields"`
	CreatedAt  string            `dynamodbav:"created_at"`
	ModifiedAt string            `dynamodbav:"modified_at"`
}

// NewDynamoDBStore creates a DynamoDB-backed record store
func NewDynamoDBStore(client DynamoDBAPI, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func partitionKey(table string) string {
	return fmt.Sprintf("TABLE#%s", table)
}

func itemKey(table, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(table)},
		"SK": &types.AttributeValueMemberS{Value: id},
	}
}

// Get loads one record by ID, or queries the table partition and filters
// on field values client-side.
func (ds *DynamoDBStore) Get(ctx context.Context, table string, filter Filter) ([]Record, error) {
	if filter.ID != "" {
		result, err := ds.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(ds.tableName),
			Key:            itemKey(table, filter.ID),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get record from DynamoDB: %w", err)
		}
		if result.Item == nil {
			return nil, nil
		}
		r, err := recordFromItem(result.Item)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(r) {
			return nil, nil
		}
		return []Record{r}, nil
	}

	var out []Record
	var startKey map[string]types.AttributeValue
	for {
		result, err := ds.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(ds.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partitionKey(table)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}

		for _, item := range result.Items {
			r, err := recordFromItem(item)
			if err != nil {
				return nil, err
			}
			if filter.Matches(r) {
				out = append(out, r)
			}
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	sortRecords(out)
	return out, nil
}

// Insert writes a new record; an existing ID is a ConflictError
func (ds *DynamoDBStore) Insert(ctx context.Context, table string, record Record) (Record, error) {
	r := record.clone()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := ds.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	av, err := attributevalue.MarshalMap(DynamoDBItem{
		PK:         partitionKey(table),
		SK:         r.ID,
		Fields:     r.Fields,
		CreatedAt:  now.Format(time.RFC3339Nano),
		ModifiedAt: now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(ds.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckErr) {
			return Record{}, &ConflictError{Table: table, ID: r.ID}
		}
		return Record{}, fmt.Errorf("failed to save record: %w", err)
	}

	return r, nil
}

// Update sets the given fields on an existing record
func (ds *DynamoDBStore) Update(ctx context.Context, table, id string, partial map[string]string) (Record, error) {
	names := map[string]string{"#fields": "fields", "#mod": "modified_at"}
	values := map[string]types.AttributeValue{
		":mod": &types.AttributeValueMemberS{Value: ds.now().Format(time.RFC3339Nano)},
	}
	expr := "SET #mod = :mod"

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		name := fmt.Sprintf("#f%d", i)
		value := fmt.Sprintf(":v%d", i)
		names[name] = k
		values[value] = &types.AttributeValueMemberS{Value: partial[k]}
		expr += fmt.Sprintf(", #fields.%s = %s", name, value)
	}

	result, err := ds.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(ds.tableName),
		Key:                       itemKey(table, id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckErr) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to update record: %w", err)
	}

	return recordFromItem(result.Attributes)
}

// Delete removes a record
func (ds *DynamoDBStore) Delete(ctx context.Context, table, id string) error {
	_, err := ds.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(ds.tableName),
		Key:                 itemKey(table, id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var condCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckErr) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func recordFromItem(av map[string]types.AttributeValue) (Record, error) {
	var item DynamoDBItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	r := Record{ID: item.SK, Fields: item.Fields}
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	if item.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse created_at: %w", err)
		}
		r.CreatedAt = t
	}
	if item.ModifiedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, item.ModifiedAt)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse modified_at: %w", err)
		}
		r.UpdatedAt = t
	}
	return r, nil
}
