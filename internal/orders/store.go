package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-order-ingestion/internal/aws"
)

// KeyAttribute is the partition key of the orders table.
const KeyAttribute = "orderId"

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// TableName returns the table this store writes to.
func (s *Store) TableName() string { return s.tableName }

// Put upserts the order keyed by orderId. There is no condition expression:
// an existing item with the same key is replaced. Any failure is returned as
// *StoreWriteError.
//
// An item is only written when it is fully defined: every attribute must be
// present in the message (an explicit null is stored as NULL) and the quantity
// must be a number. Otherwise Put fails without calling DynamoDB.
func (s *Store) Put(ctx context.Context, order Order) error {
	if missing := order.undefinedAttributes(); len(missing) > 0 {
		return &StoreWriteError{
			OrderID: order.Key(),
			Table:   s.tableName,
			Err:     fmt.Errorf("marshal order item: %w: %s", errUndefinedValue, strings.Join(missing, ", ")),
		}
	}

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return &StoreWriteError{OrderID: order.Key(), Table: s.tableName, Err: fmt.Errorf("marshal order item: %w", err)}
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return &StoreWriteError{OrderID: order.Key(), Table: s.tableName, Err: fmt.Errorf("put item: %w", err)}
	}
	return nil
}

// Get fetches an order by orderId. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	key := map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberS{Value: orderID},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}
