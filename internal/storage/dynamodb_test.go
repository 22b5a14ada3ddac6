package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	queryOuts []*dynamodb.QueryOutput
	updateOut *dynamodb.UpdateItemOutput
	err       error

	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	queries []*dynamodb.QueryInput
	gets    []*dynamodb.GetItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.err
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.updateOut, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, f.err
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.queryOuts[0]
	f.queryOuts = f.queryOuts[1:]
	return out, nil
}

func mustItem(t *testing.T, table, id string, fields map[string]string, created time.Time) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(DynamoDBItem{
		PK:         partitionKey(table),
		SK:         id,
		Fields:     fields,
		CreatedAt:  created.Format(time.RFC3339Nano),
		ModifiedAt: created.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	return av
}

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newFakeStore(f *fakeDynamo) *DynamoDBStore {
	s := NewDynamoDBStore(f, "journal")
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestDynamoDBStore_Insert(t *testing.T) {
	f := &fakeDynamo{}
	s := newFakeStore(f)

	r, err := s.Insert(context.Background(), "entries", Record{Fields: map[string]string{"title": "enc"}})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, fixedNow, r.CreatedAt)

	require.Len(t, f.puts, 1)
	in := f.puts[0]
	assert.Equal(t, "journal", aws.ToString(in.TableName))
	assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(in.ConditionExpression))

	var item DynamoDBItem
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &item))
	assert.Equal(t, "TABLE#entries", item.PK)
	assert.Equal(t, r.ID, item.SK)
	assert.Equal(t, "enc", item.Fields["title"])
}

func TestDynamoDBStore_InsertConflict(t *testing.T) {
	f := &fakeDynamo{err: &types.ConditionalCheckFailedException{}}
	s := newFakeStore(f)

	_, err := s.Insert(context.Background(), "entries", Record{ID: "dup"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "dup", conflict.ID)
}

func TestDynamoDBStore_GetByID(t *testing.T) {
	f := &fakeDynamo{getOut: &dynamodb.GetItemOutput{
		Item: mustItem(t, "entries", "e1", map[string]string{"title": "x"}, fixedNow),
	}}
	s := newFakeStore(f)

	got, err := s.Get(context.Background(), "entries", Filter{ID: "e1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "x", got[0].Fields["title"])
	assert.True(t, fixedNow.Equal(got[0].CreatedAt))
	assert.True(t, aws.ToBool(f.gets[0].ConsistentRead))

	f.getOut = nil
	got, err = s.Get(context.Background(), "entries", Filter{ID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDynamoDBStore_QueryPaginatesAndFilters(t *testing.T) {
	later := fixedNow.Add(time.Hour)
	f := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{
		{
			Items: []map[string]types.AttributeValue{
				mustItem(t, "entries", "b", map[string]string{"folder": "f1"}, later),
			},
			LastEvaluatedKey: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: "TABLE#entries"},
				"SK": &types.AttributeValueMemberS{Value: "b"},
			},
		},
		{
			Items: []map[string]types.AttributeValue{
				mustItem(t, "entries", "a", map[string]string{"folder": "f1"}, fixedNow),
				mustItem(t, "entries", "c", map[string]string{"folder": "f2"}, fixedNow),
			},
		},
	}}
	s := newFakeStore(f)

	got, err := s.Get(context.Background(), "entries", Filter{Fields: map[string]string{"folder": "f1"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	require.Len(t, f.queries, 2)
	assert.Nil(t, f.queries[0].ExclusiveStartKey)
	assert.NotNil(t, f.queries[1].ExclusiveStartKey)
}

func TestDynamoDBStore_Update(t *testing.T) {
	f := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{
		Attributes: mustItem(t, "entries", "e1", map[string]string{"title": "new", "mood": "m"}, fixedNow),
	}}
	s := newFakeStore(f)

	r, err := s.Update(context.Background(), "entries", "e1", map[string]string{"title": "new", "mood": "m"})
	require.NoError(t, err)
	assert.Equal(t, "new", r.Fields["title"])

	in := f.updates[0]
	assert.Equal(t, "SET #mod = :mod, #fields.#f0 = :v0, #fields.#f1 = :v1", aws.ToString(in.UpdateExpression))
	assert.Equal(t, "mood", in.ExpressionAttributeNames["#f0"])
	assert.Equal(t, "title", in.ExpressionAttributeNames["#f1"])
	assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
}

func TestDynamoDBStore_NotFound(t *testing.T) {
	f := &fakeDynamo{err: &types.ConditionalCheckFailedException{}}
	s := newFakeStore(f)

	_, err := s.Update(context.Background(), "entries", "gone", map[string]string{"a": "b"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(context.Background(), "entries", "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoDBStore_ClientError(t *testing.T) {
	boom := errors.New("throttled")
	f := &fakeDynamo{err: boom}
	s := newFakeStore(f)

	_, err := s.Get(context.Background(), "entries", Filter{})
	assert.ErrorIs(t, err, boom)

	err = s.Delete(context.Background(), "entries", "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
