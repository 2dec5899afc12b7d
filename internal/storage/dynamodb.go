package storage

import (
	"context"
	"errors"
	"fmt"

	"chat-widget/internal/database"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of database.DynamoDBClient the driver needs.
type DynamoClient interface {
	PutItem(ctx context.Context, tableName string, item interface{}) error
	GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error
	DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error
}

type dynamoItem struct {
	Key   string `dynamodbav:"key"`
	Value string `dynamodbav:"value"`
}

// Dynamo stores items in a table keyed by the string attribute "key".
type Dynamo struct {
	client DynamoClient
	table  string
}

func NewDynamo(client DynamoClient, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"key": database.AttrString(key)}
}

func (s *Dynamo) GetItem(ctx context.Context, key string) (string, bool, error) {
	var item dynamoItem
	err := s.client.GetItem(ctx, s.table, itemKey(key), &item)
	if errors.Is(err, database.ErrItemNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dynamodb get %s: %w", key, err)
	}
	return item.Value, true, nil
}

func (s *Dynamo) SetItem(ctx context.Context, key, value string) error {
	return s.client.PutItem(ctx, s.table, dynamoItem{Key: key, Value: value})
}

func (s *Dynamo) RemoveItem(ctx context.Context, key string) error {
	return s.client.DeleteItem(ctx, s.table, itemKey(key))
}

func (s *Dynamo) Close() error {
	return nil
}
