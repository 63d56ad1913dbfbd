package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
)

const (
	skState = "STATE"
	// MaxTableBytes keeps the encoded table well under DynamoDB's 400 KB item limit.
	MaxTableBytes = 350 * 1024
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps one item per session holding the message log, the
// pending question and the uploaded table.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
}

// NewDynamoStore creates a DynamoDB-backed session store. Items expire through
// the table's TTL attribute "ttl".
func NewDynamoStore(api dynamodbAPI, tableName string, ttl time.Duration) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &DynamoStore{api: api, tableName: tableName, ttl: ttl}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func stateKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// Get loads the session state. A missing item reports found=false.
func (c *DynamoStore) Get(ctx context.Context, sessionID string) (*session.State, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            stateKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, false, nil
	}
	state, err := itemToState(sessionID, out.Item)
	if err != nil {
		return nil, false, fmt.Errorf("repository: Get decode: %w", err)
	}
	return state, true, nil
}

// Save writes or replaces the session item.
func (c *DynamoStore) Save(ctx context.Context, s *session.State) error {
	if s == nil || s.ID == "" {
		return errors.New("repository: Save: session ID is required")
	}
	item, err := stateItem(s, time.Now().Add(c.ttl).Unix())
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Save put item: %w", err)
	}
	return nil
}

// Delete removes the session item. Deleting a missing session is not an error.
func (c *DynamoStore) Delete(ctx context.Context, sessionID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       stateKey(sessionID),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

func stateItem(s *session.State, ttl int64) (map[string]types.AttributeValue, error) {
	msgs := make([]types.AttributeValue, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"sender": &types.AttributeValueMemberS{Value: string(m.Sender)},
			"text":   &types.AttributeValueMemberS{Value: m.Text},
		}}
	}

	item := map[string]types.AttributeValue{
		"PK":              &types.AttributeValueMemberS{Value: sessionPK(s.ID)},
		"SK":              &types.AttributeValueMemberS{Value: skState},
		"sessionId":       &types.AttributeValueMemberS{Value: s.ID},
		"fileUploaded":    &types.AttributeValueMemberBOOL{Value: s.FileUploaded},
		"pendingQuestion": &types.AttributeValueMemberS{Value: s.PendingQuestion},
		"messages":        &types.AttributeValueMemberL{Value: msgs},
		"updatedAt":       &types.AttributeValueMemberS{Value: s.UpdatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":             &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}

	if snap := s.Snapshot(); snap.Table != nil {
		raw, err := json.Marshal(snap.Table)
		if err != nil {
			return nil, fmt.Errorf("encode table: %w", err)
		}
		if len(raw) > MaxTableBytes {
			return nil, fmt.Errorf("table too large for session item (%d bytes)", len(raw))
		}
		item["table"] = &types.AttributeValueMemberS{Value: string(raw)}
	}
	return item, nil
}

// itemToState converts a DynamoDB attribute map to a session State.
func itemToState(sessionID string, item map[string]types.AttributeValue) (*session.State, error) {
	snap := session.Snapshot{ID: sessionID}

	pending, err := strAttr(item, "pendingQuestion")
	if err != nil {
		return nil, err
	}
	snap.PendingQuestion = pending

	if updated, err := strAttr(item, "updatedAt"); err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
			snap.UpdatedAt = ts
		}
	}

	list, ok := item["messages"].(*types.AttributeValueMemberL)
	if !ok {
		return nil, errors.New("repository: attribute \"messages\" is not a list")
	}
	for i, v := range list.Value {
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("repository: message %d is not a map", i)
		}
		sender, err := strAttr(m.Value, "sender")
		if err != nil {
			return nil, err
		}
		text, err := strAttr(m.Value, "text")
		if err != nil {
			return nil, err
		}
		snap.Messages = append(snap.Messages, domain.Message{Sender: domain.Sender(sender), Text: text})
	}

	if _, present := item["table"]; present {
		raw, err := strAttr(item, "table")
		if err != nil {
			return nil, err
		}
		var ts session.TableSnapshot
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			return nil, fmt.Errorf("repository: decode table: %w", err)
		}
		snap.Table = &ts
	}
	return session.Restore(snap)
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
