package orders

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Value is a message field copied without coercion. It holds the raw JSON of
// the field: a string stays a string, 42 stays a number, an object stays an
// object and an explicit null stays null. A nil Value is a field the message
// did not carry.
type Value json.RawMessage

var (
	_ attributevalue.Marshaler   = Value(nil)
	_ attributevalue.Unmarshaler = (*Value)(nil)
)

// StringValue returns a Value holding the JSON string s.
func StringValue(s string) Value {
	b, _ := json.Marshal(s)
	return Value(b)
}

// Present reports whether the message carried the field, null included.
func (v Value) Present() bool { return len(v) > 0 }

// IsNull reports whether the field was an explicit JSON null.
func (v Value) IsNull() bool { return string(bytes.TrimSpace(v)) == "null" }

// Text returns the value of a JSON string, the JSON text of any other value,
// and "" when the field is null or absent.
func (v Value) Text() string {
	if !v.Present() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// MarshalJSON writes the field back exactly as it was received.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Present() {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON keeps a copy of the raw field, null included.
func (v *Value) UnmarshalJSON(b []byte) error {
	*v = append((*v)[0:0], b...)
	return nil
}

// MarshalDynamoDBAttributeValue maps the JSON value onto the matching
// attribute type: string to S, number to N, boolean to BOOL, null to NULL,
// array to L and object to M.
func (v Value) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if !v.Present() {
		return nil, errUndefinedValue
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode field: %w", err)
	}
	return attributevalue.Marshal(decoded)
}

// UnmarshalDynamoDBAttributeValue turns a stored attribute back into JSON.
func (v *Value) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var decoded any
	if err := attributevalue.Unmarshal(av, &decoded); err != nil {
		return err
	}
	b, err := json.Marshal(decoded)
	if err != nil {
		return err
	}
	*v = Value(b)
	return nil
}
