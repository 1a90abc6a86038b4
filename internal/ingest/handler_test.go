package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/imrishuroy/go-order-ingestion/internal/notify"
	"github.com/imrishuroy/go-order-ingestion/internal/orders"
)

// --- mock implementations ---

type mockStore struct {
	items  map[string]orders.Order
	calls  []string
	failOn map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{items: map[string]orders.Order{}, failOn: map[string]error{}}
}

func (m *mockStore) Put(ctx context.Context, o orders.Order) error {
	m.calls = append(m.calls, o.Key())
	if err, ok := m.failOn[o.Key()]; ok {
		return &orders.StoreWriteError{OrderID: o.Key(), Table: "Orders", Err: err}
	}
	m.items[o.Key()] = o
	return nil
}

// tableClient is a minimal DynamoDB client for running the handler against a
// real orders.Store.
type tableClient struct {
	items map[string]map[string]types.AttributeValue
	puts  int
}

func newTableClient() *tableClient {
	return &tableClient{items: map[string]map[string]types.AttributeValue{}}
}

func (c *tableClient) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	c.puts++
	key, ok := in.Item[orders.KeyAttribute].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	c.items[key.Value] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (c *tableClient) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	key := in.Key[orders.KeyAttribute].(*types.AttributeValueMemberS)
	return &dyn.GetItemOutput{Item: c.items[key.Value]}, nil
}

type published struct {
	key  string
	body []byte
}

type mockNotifier struct {
	msgs   []published
	failOn map[string]error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{failOn: map[string]error{}}
}

func (m *mockNotifier) Publish(ctx context.Context, key string, body []byte) error {
	if err, ok := m.failOn[key]; ok {
		return &notify.PublishError{Topic: "OrderSuccess", Key: key, Err: err}
	}
	m.msgs = append(m.msgs, published{key: key, body: body})
	return nil
}

type mockReporter struct {
	succeeded, failed, calls int
	err                      error
}

func (m *mockReporter) ReportBatch(ctx context.Context, succeeded, failed int) error {
	m.calls++
	m.succeeded, m.failed = succeeded, failed
	return m.err
}

func newObservedHandler(store OrderStore, n notify.Notifier, opts ...Option) (*Handler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewHandler(store, n, zap.New(core), opts...), logs
}

func sqsEvent(bodies ...string) events.SQSEvent {
	ev := events.SQSEvent{}
	for i, b := range bodies {
		ev.Records = append(ev.Records, events.SQSMessage{
			MessageId: "m" + string(rune('1'+i)),
			Body:      b,
		})
	}
	return ev
}

const validO1 = `{"orderId":"O1","userId":"U1","itemName":"Widget","quantity":"3","status":"NEW","timestamp":"2024-01-01T00:00:00Z"}`

// --- test cases ---

func TestHandle_SingleValidMessage(t *testing.T) {
	store := newMockStore()
	n := newMockNotifier()
	h, logs := newObservedHandler(store, n)

	resp, err := h.Handle(context.Background(), sqsEvent(validO1))
	require.NoError(t, err)
	assert.Equal(t, Response{StatusCode: 200, Body: "Orders processed successfully."}, resp)

	stored, ok := store.items["O1"]
	require.True(t, ok)
	qty, valid := stored.Quantity.Int64()
	assert.True(t, valid)
	assert.Equal(t, int64(3), qty)

	require.Len(t, n.msgs, 1)
	assert.Equal(t, "O1", n.msgs[0].key)
	assert.Contains(t, string(n.msgs[0].body), `"quantity":3`)
	assert.JSONEq(t, `{"orderId":"O1","userId":"U1","itemName":"Widget","quantity":3,"status":"NEW","timestamp":"2024-01-01T00:00:00Z"}`, string(n.msgs[0].body))

	assert.Equal(t, 1, logs.FilterMessage("order stored").Len())
	assert.Equal(t, 1, logs.FilterMessage("order published").Len())
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestHandle_MalformedThenValid(t *testing.T) {
	store := newMockStore()
	n := newMockNotifier()
	h, logs := newObservedHandler(store, n)

	resp, err := h.Handle(context.Background(), sqsEvent(`{"orderId":"O0",`, validO1))
	require.NoError(t, err)
	assert.Equal(t, SuccessResponse(), resp)

	assert.Equal(t, []string{"O1"}, store.calls)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "O1", n.msgs[0].key)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "parse", errs[0].ContextMap()["error_kind"])
	assert.Equal(t, "m1", errs[0].ContextMap()["message_id"])
}

func TestHandle_StoreFailureSkipsPublishAndContinues(t *testing.T) {
	store := newMockStore()
	store.failOn["O1"] = &types.ProvisionedThroughputExceededException{}
	n := newMockNotifier()
	h, logs := newObservedHandler(store, n)

	report := h.Process(context.Background(), sqsEvent(validO1, `{"orderId":"O2","quantity":1}`))

	assert.Equal(t, []string{"O1", "O2"}, store.calls)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "O2", n.msgs[0].key)

	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].OK())
	assert.True(t, report.Results[1].OK())
	assert.Equal(t, 1, report.Failed())

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "store_write", errs[0].ContextMap()["error_kind"])
	assert.Equal(t, "ProvisionedThroughputExceededException", errs[0].ContextMap()["aws_error_code"])
	assert.Equal(t, "O1", errs[0].ContextMap()["order_id"])
}

func TestHandle_PublishFailureIsLoggedAndSwallowed(t *testing.T) {
	store := newMockStore()
	n := newMockNotifier()
	n.failOn["O1"] = errors.New("authorization error")
	h, logs := newObservedHandler(store, n)

	resp, err := h.Handle(context.Background(), sqsEvent(validO1, `{"orderId":"O2","quantity":"2"}`))
	require.NoError(t, err)
	assert.Equal(t, SuccessResponse(), resp)

	assert.Len(t, store.items, 2, "the write happens before the failed publish")
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "O2", n.msgs[0].key)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "publish", errs[0].ContextMap()["error_kind"])
}

func TestHandle_SameOrderTwiceKeepsLatest(t *testing.T) {
	store := newMockStore()
	h, _ := newObservedHandler(store, newMockNotifier())

	h.Process(context.Background(), sqsEvent(
		`{"orderId":"O7","status":"NEW","quantity":1}`,
		`{"orderId":"O7","status":"PAID","quantity":4}`,
	))

	require.Len(t, store.items, 1)
	assert.Equal(t, "PAID", store.items["O7"].Status.Text())
}

func TestHandle_NonNumericQuantity(t *testing.T) {
	body := `{"orderId":"O8","userId":"U1","itemName":"Widget","quantity":"lots","status":"NEW","timestamp":"t"}`

	t.Run("lenient fails at the store write", func(t *testing.T) {
		client := newTableClient()
		n := newMockNotifier()
		h, logs := newObservedHandler(orders.NewStore(client, "Orders"), n)

		report := h.Process(context.Background(), sqsEvent(body, validO1))

		assert.Equal(t, 1, report.Failed())
		assert.Equal(t, 1, client.puts, "only the valid order reaches DynamoDB")
		require.Len(t, n.msgs, 1)
		assert.Equal(t, "O1", n.msgs[0].key)

		errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		require.Len(t, errs, 1)
		assert.Equal(t, "store_write", errs[0].ContextMap()["error_kind"])
		assert.Equal(t, "O8", errs[0].ContextMap()["order_id"])
	})

	t.Run("strict fails before the write", func(t *testing.T) {
		store := newMockStore()
		n := newMockNotifier()
		h, logs := newObservedHandler(store, n, WithStrictQuantity(true))

		resp, err := h.Handle(context.Background(), sqsEvent(body))
		require.NoError(t, err)
		assert.Equal(t, SuccessResponse(), resp)

		assert.Empty(t, store.calls)
		assert.Empty(t, n.msgs)
		errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		require.Len(t, errs, 1)
		assert.Equal(t, "invalid_quantity", errs[0].ContextMap()["error_kind"])
	})
}

func TestHandle_UndefinedFieldFailsAtStoreWrite(t *testing.T) {
	client := newTableClient()
	n := newMockNotifier()
	h, logs := newObservedHandler(orders.NewStore(client, "Orders"), n)

	report := h.Process(context.Background(), sqsEvent(`{"orderId":"O2","quantity":"3"}`))

	assert.Equal(t, 1, report.Failed())
	assert.Zero(t, client.puts)
	assert.Empty(t, n.msgs)
	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "store_write", errs[0].ContextMap()["error_kind"])
}

func TestHandle_PublishesFieldsWithTheirJSONType(t *testing.T) {
	client := newTableClient()
	n := newMockNotifier()
	h, _ := newObservedHandler(orders.NewStore(client, "Orders"), n)

	body := `{"orderId":"O1","userId":42,"itemName":{"sku":"W"},"status":null,"timestamp":"t","quantity":"3"}`
	report := h.Process(context.Background(), sqsEvent(body))

	require.Equal(t, 1, report.Succeeded())
	require.Len(t, n.msgs, 1)
	assert.JSONEq(t,
		`{"orderId":"O1","userId":42,"itemName":{"sku":"W"},"status":null,"timestamp":"t","quantity":3}`,
		string(n.msgs[0].body))

	item := client.items["O1"]
	assert.Equal(t, &types.AttributeValueMemberN{Value: "42"}, item["userId"])
	assert.IsType(t, &types.AttributeValueMemberM{}, item["itemName"])
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, item["status"])
}

func TestHandle_ReporterReceivesCounts(t *testing.T) {
	rep := &mockReporter{}
	h, _ := newObservedHandler(newMockStore(), newMockNotifier(), WithReporter(rep))

	h.Process(context.Background(), sqsEvent(validO1, `garbage`, `{"orderId":"O3"}`))

	assert.Equal(t, 1, rep.calls)
	assert.Equal(t, 2, rep.succeeded)
	assert.Equal(t, 1, rep.failed)
}

func TestHandle_ReporterFailureDoesNotChangeResult(t *testing.T) {
	rep := &mockReporter{err: errors.New("throttled")}
	h, logs := newObservedHandler(newMockStore(), newMockNotifier(), WithReporter(rep))

	resp, err := h.Handle(context.Background(), sqsEvent(validO1))
	require.NoError(t, err)
	assert.Equal(t, SuccessResponse(), resp)
	assert.Equal(t, 1, logs.FilterMessage("batch metrics not reported").Len())
}

func TestHandle_EmptyBatch(t *testing.T) {
	h, _ := newObservedHandler(newMockStore(), newMockNotifier())

	resp, err := h.Handle(context.Background(), events.SQSEvent{})
	require.NoError(t, err)
	assert.Equal(t, SuccessResponse(), resp)
}

func TestProcess_BatchIDFromLambdaContext(t *testing.T) {
	h, logs := newObservedHandler(newMockStore(), newMockNotifier())
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})

	report := h.Process(ctx, sqsEvent(validO1))

	assert.Equal(t, "req-123", report.BatchID)
	entries := logs.FilterMessage("batch processed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["batch_id"])
}

func TestProcess_GeneratedBatchID(t *testing.T) {
	h, _ := newObservedHandler(newMockStore(), newMockNotifier())
	h.newBatchID = func() string { return "generated" }

	report := h.Process(context.Background(), sqsEvent(validO1))
	assert.Equal(t, "generated", report.BatchID)
}

func TestErrorKind_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", ErrorKind(errors.New("boom")))
}
