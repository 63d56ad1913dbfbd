package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
	"sheet-qa/internal/table"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	delErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastDelInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDelInput = in
	return &dynamodb.DeleteItemOutput{}, f.delErr
}

func mustNewDynamoStore(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	c, err := NewDynamoStore(db, "test-table", time.Hour)
	require.NoError(t, err)
	return c
}

func uploadedState(t *testing.T) *session.State {
	t.Helper()
	tbl, err := table.New([]string{"Product Name", "Sales Amount"}, [][]string{{"A", "10"}, {"B", "30"}})
	require.NoError(t, err)
	s := session.New("abc")
	s.SetTable(tbl)
	s.AppendMessage(domain.UserMessage("total sales"))
	s.AppendMessage(domain.SystemMessage("The total sales are 40"))
	s.PendingQuestion = "top"
	s.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return s
}

func TestNewDynamoStore_Validates(t *testing.T) {
	_, err := NewDynamoStore(nil, "t", 0)
	require.Error(t, err)
	_, err = NewDynamoStore(&fakeDynamo{}, " ", 0)
	require.Error(t, err)

	c, err := NewDynamoStore(&fakeDynamo{}, "t", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultSessionTTL, c.ttl)
}

func TestDynamoSave_WritesItem(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamoStore(t, db)
	require.NoError(t, c.Save(context.Background(), uploadedState(t)))

	item := db.lastPutInput.Item
	require.Equal(t, "test-table", *db.lastPutInput.TableName)
	require.Equal(t, "SESSION#abc", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, skState, item["SK"].(*types.AttributeValueMemberS).Value)
	require.True(t, item["fileUploaded"].(*types.AttributeValueMemberBOOL).Value)
	require.Len(t, item["messages"].(*types.AttributeValueMemberL).Value, 3)
	require.Contains(t, item["table"].(*types.AttributeValueMemberS).Value, `"Product Name"`)

	ttl, err := strconv.ParseInt(item["ttl"].(*types.AttributeValueMemberN).Value, 10, 64)
	require.NoError(t, err)
	require.Greater(t, ttl, time.Now().Unix())
}

func TestDynamoSave_OmitsTableBeforeUpload(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamoStore(t, db)
	require.NoError(t, c.Save(context.Background(), session.New("abc")))
	_, present := db.lastPutInput.Item["table"]
	require.False(t, present)
}

func TestDynamoSave_Errors(t *testing.T) {
	c := mustNewDynamoStore(t, &fakeDynamo{putErr: errors.New("boom")})
	err := c.Save(context.Background(), session.New("abc"))
	require.ErrorContains(t, err, "boom")

	err = c.Save(context.Background(), &session.State{})
	require.ErrorContains(t, err, "session ID is required")
}

func TestDynamoSave_TableTooLarge(t *testing.T) {
	rows := make([][]string, 0, 400)
	for i := 0; i < 400; i++ {
		rows = append(rows, []string{strings.Repeat("x", 1024)})
	}
	tbl, err := table.New([]string{"blob"}, rows)
	require.NoError(t, err)
	s := session.New("abc")
	s.SetTable(tbl)

	err = mustNewDynamoStore(t, &fakeDynamo{}).Save(context.Background(), s)
	require.ErrorContains(t, err, "too large")
}

func TestDynamoGet_RoundTrip(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamoStore(t, db)
	want := uploadedState(t)
	require.NoError(t, c.Save(context.Background(), want))

	db.getOut = &dynamodb.GetItemOutput{Item: db.lastPutInput.Item}
	got, found, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, *db.lastGetInput.ConsistentRead)
	require.Equal(t, want.Messages, got.Messages)
	require.Equal(t, want.Table.Rows(), got.Table.Rows())
	require.True(t, got.FileUploaded)
	require.Equal(t, "top", got.PendingQuestion)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestDynamoGet_Missing(t *testing.T) {
	c := mustNewDynamoStore(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	got, found, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, got)
}

func TestDynamoGet_Errors(t *testing.T) {
	c := mustNewDynamoStore(t, &fakeDynamo{getErr: errors.New("boom")})
	_, _, err := c.Get(context.Background(), "abc")
	require.ErrorContains(t, err, "get item")

	c = mustNewDynamoStore(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"pendingQuestion": &types.AttributeValueMemberS{Value: ""},
		"messages":        &types.AttributeValueMemberS{Value: "not a list"},
	}}})
	_, _, err = c.Get(context.Background(), "abc")
	require.ErrorContains(t, err, "not a list")

	c = mustNewDynamoStore(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"pendingQuestion": &types.AttributeValueMemberS{Value: ""},
		"messages":        &types.AttributeValueMemberL{},
		"table":           &types.AttributeValueMemberS{Value: "{broken"},
	}}})
	_, _, err = c.Get(context.Background(), "abc")
	require.ErrorContains(t, err, "decode table")
}

func TestDynamoDelete(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewDynamoStore(t, db)
	require.NoError(t, c.Delete(context.Background(), "abc"))
	require.Equal(t, "SESSION#abc", db.lastDelInput.Key["PK"].(*types.AttributeValueMemberS).Value)

	db.delErr = errors.New("boom")
	require.ErrorContains(t, c.Delete(context.Background(), "abc"), "boom")
}
