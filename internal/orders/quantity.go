package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Quantity is an integer that may be invalid. An invalid quantity is the
// "not a number" outcome of parsing a non-numeric source value; it encodes as
// JSON null and cannot be marshaled into a DynamoDB item.
type Quantity struct {
	value int64
	valid bool
}

var (
	_ attributevalue.Marshaler   = Quantity{}
	_ attributevalue.Unmarshaler = (*Quantity)(nil)
)

// NewQuantity returns a valid quantity.
func NewQuantity(n int64) Quantity { return Quantity{value: n, valid: true} }

// InvalidQuantity returns the non-numeric sentinel.
func InvalidQuantity() Quantity { return Quantity{} }

// Int64 returns the value and whether it is valid.
func (q Quantity) Int64() (int64, bool) { return q.value, q.valid }

// Valid reports whether q holds a number.
func (q Quantity) Valid() bool { return q.valid }

func (q Quantity) String() string {
	if !q.valid {
		return "NaN"
	}
	return strconv.FormatInt(q.value, 10)
}

// ParseQuantity coerces a decoded JSON value into a base-10 integer.
//
// Strings are read the lenient way: leading whitespace and an optional sign
// are skipped and the longest run of leading decimal digits is used, so "3",
// " 42", "7 boxes" and "3.9" give 3, 42, 7 and 3. Numbers are truncated
// toward zero. Values beyond the int64 range saturate at its bounds. Anything
// without leading digits (including null, booleans, objects and a missing
// value) yields the invalid sentinel. It never fails.
func ParseQuantity(raw json.RawMessage) Quantity {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return InvalidQuantity()
	}

	switch s[0] {
	case '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return InvalidQuantity()
		}
		return parseLeadingInt(str)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return InvalidQuantity()
		}
		return NewQuantity(saturate(math.Trunc(f)))
	default:
		return InvalidQuantity()
	}
}

func parseLeadingInt(s string) Quantity {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return InvalidQuantity()
	}
	digits := s[:end]
	if neg {
		digits = "-" + digits
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// ParseInt reports a range error with n clamped to the int64 bounds
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
			return InvalidQuantity()
		}
	}
	return NewQuantity(n)
}

func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(q.value, 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler. Only numbers and null are accepted.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*q = InvalidQuantity()
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = NewQuantity(n)
	return nil
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler. An
// invalid quantity is an error, so an item carrying one is never written.
func (q Quantity) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if !q.valid {
		return nil, errNaN
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(q.value, 10)}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (q *Quantity) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		*q = InvalidQuantity()
		return nil
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		*q = NewQuantity(n)
		return nil
	default:
		return errors.New("quantity: unsupported attribute type")
	}
}
