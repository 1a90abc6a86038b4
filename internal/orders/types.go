package orders

// Order is the record persisted to the orders table and announced on the
// success topic. Every field except Quantity is copied verbatim from the
// inbound message, keeping its JSON type; a field missing from the message is
// nil and left out of the published JSON.
type Order struct {
	OrderID   Value    `json:"orderId,omitempty" dynamodbav:"orderId,omitempty"` // PK
	UserID    Value    `json:"userId,omitempty" dynamodbav:"userId,omitempty"`
	ItemName  Value    `json:"itemName,omitempty" dynamodbav:"itemName,omitempty"`
	Quantity  Quantity `json:"quantity" dynamodbav:"quantity"`
	Status    Value    `json:"status,omitempty" dynamodbav:"status,omitempty"` // free-form label
	Timestamp Value    `json:"timestamp,omitempty" dynamodbav:"timestamp,omitempty"`
}

// Key returns the order id as text, or "" when the message carried none.
func (o Order) Key() string {
	return o.OrderID.Text()
}

// undefinedAttributes lists the item attributes the message did not carry.
func (o Order) undefinedAttributes() []string {
	var missing []string
	for _, f := range []struct {
		name string
		v    Value
	}{
		{KeyAttribute, o.OrderID},
		{"userId", o.UserID},
		{"itemName", o.ItemName},
		{"status", o.Status},
		{"timestamp", o.Timestamp},
	} {
		if !f.v.Present() {
			missing = append(missing, f.name)
		}
	}
	return missing
}
