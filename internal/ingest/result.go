package ingest

// SuccessBody is the fixed acknowledgement text returned for every batch.
const SuccessBody = "Orders processed successfully."

// Response is the batch-level result returned to the invoker.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessResponse is returned for every batch, whatever happened to its messages.
func SuccessResponse() Response {
	return Response{StatusCode: 200, Body: SuccessBody}
}

// MessageResult is the outcome of one message. Err is nil on success.
type MessageResult struct {
	MessageID string
	OrderID   string
	Err       error
}

// OK reports whether the message was stored and published.
func (r MessageResult) OK() bool { return r.Err == nil }

// BatchReport collects the per-message outcomes of one invocation, in input order.
type BatchReport struct {
	BatchID string
	Results []MessageResult
}

// Succeeded counts messages that were stored and published.
func (b BatchReport) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed counts messages that ended with a logged error.
func (b BatchReport) Failed() int { return len(b.Results) - b.Succeeded() }
