package orders

import (
	"encoding/json"
	"errors"
)

var errNotObject = errors.New("payload is not a JSON object")

// Message is a decoded inbound order message. Fields hold the raw JSON of
// each known key; a key absent from the payload is nil.
type Message struct {
	OrderID   json.RawMessage `json:"orderId"`
	UserID    json.RawMessage `json:"userId"`
	ItemName  json.RawMessage `json:"itemName"`
	Quantity  json.RawMessage `json:"quantity"`
	Status    json.RawMessage `json:"status"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeMessage parses a message body. It fails with *ParseError when the
// body is not valid JSON or not an object.
func DecodeMessage(body string) (Message, error) {
	var m Message
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return m, &ParseError{Err: err}
	}
	if _, ok := decoded.(map[string]any); !ok {
		return m, &ParseError{Err: errNotObject}
	}
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return m, &ParseError{Err: err}
	}
	return m, nil
}

// ToOrder maps a decoded message into an Order. It never fails: fields are
// copied as they are and the quantity is coerced with ParseQuantity.
func (m Message) ToOrder() Order {
	return Order{
		OrderID:   Value(m.OrderID),
		UserID:    Value(m.UserID),
		ItemName:  Value(m.ItemName),
		Quantity:  ParseQuantity(m.Quantity),
		Status:    Value(m.Status),
		Timestamp: Value(m.Timestamp),
	}
}
