package orders

import (
	"errors"
	"fmt"
)

var (
	errUndefinedValue = errors.New("undefined attribute value")
	errNaN            = errors.New("special numeric value NaN is not allowed")
)

// ParseError reports a message body that is not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse order message: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// InvalidQuantityError reports a quantity that did not parse as an integer.
// Only returned when strict quantity checking is enabled.
type InvalidQuantityError struct {
	OrderID string
	Raw     string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("order %s: quantity %s is not an integer", e.OrderID, e.Raw)
}

// StoreWriteError reports a rejected upsert.
type StoreWriteError struct {
	OrderID string
	Table   string
	Err     error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store order %s in %s: %v", e.OrderID, e.Table, e.Err)
}
func (e *StoreWriteError) Unwrap() error { return e.Err }
