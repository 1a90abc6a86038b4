// Package ingest turns queued order messages into stored orders and success
// notifications.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-ingestion/internal/aws"
	"github.com/imrishuroy/go-order-ingestion/internal/notify"
	"github.com/imrishuroy/go-order-ingestion/internal/orders"
)

// OrderStore upserts an order keyed by its id.
type OrderStore interface {
	Put(ctx context.Context, order orders.Order) error
}

// BatchReporter receives per-batch outcome counts.
type BatchReporter interface {
	ReportBatch(ctx context.Context, succeeded, failed int) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithStrictQuantity makes a non-numeric quantity fail the message instead of
// being stored as the invalid sentinel.
func WithStrictQuantity(strict bool) Option {
	return func(h *Handler) {
		h.strictQuantity = strict
	}
}

// WithReporter sets a reporter called once per batch.
func WithReporter(r BatchReporter) Option {
	return func(h *Handler) {
		h.reporter = r
	}
}

// Handler processes SQS batches of order messages. It holds no per-batch
// state and is safe to reuse across invocations.
type Handler struct {
	store          OrderStore
	notifier       notify.Notifier
	logger         *zap.Logger
	strictQuantity bool
	reporter       BatchReporter
	newBatchID     func() string
}

// NewHandler creates a handler writing to store and announcing on notifier.
func NewHandler(store OrderStore, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		newBatchID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle is the Lambda entry point. Every message is attempted once, in order;
// failures are logged and never change the result.
func (h *Handler) Handle(ctx context.Context, ev events.SQSEvent) (Response, error) {
	h.Process(ctx, ev)
	return SuccessResponse(), nil
}

// Process runs the batch and returns the per-message outcomes.
func (h *Handler) Process(ctx context.Context, ev events.SQSEvent) BatchReport {
	report := BatchReport{
		BatchID: h.batchID(ctx),
		Results: make([]MessageResult, 0, len(ev.Records)),
	}
	log := h.logger.With(zap.String("batch_id", report.BatchID))
	log.Debug("received batch", zap.Int("received", len(ev.Records)))

	for _, rec := range ev.Records {
		report.Results = append(report.Results, h.processMessage(ctx, log, rec))
	}

	log.Info("batch processed",
		zap.Int("received", len(ev.Records)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
	)

	if h.reporter != nil {
		if err := h.reporter.ReportBatch(ctx, report.Succeeded(), report.Failed()); err != nil {
			log.Warn("batch metrics not reported", zap.Error(err))
		}
	}
	return report
}

func (h *Handler) processMessage(ctx context.Context, log *zap.Logger, rec events.SQSMessage) MessageResult {
	res := MessageResult{MessageID: rec.MessageId}
	log = log.With(zap.String("message_id", rec.MessageId))

	order, err := h.ingest(ctx, log, rec.Body)
	res.OrderID = order.Key()
	if err != nil {
		res.Err = err
		fields := []zap.Field{
			zap.String("order_id", res.OrderID),
			zap.String("error_kind", ErrorKind(err)),
			zap.Error(err),
		}
		if code := aws.ErrorCode(err); code != "" {
			fields = append(fields, zap.String("aws_error_code", code), zap.Bool("throttled", aws.IsThrottle(err)))
		}
		log.Error("failed to process order", fields...)
	}
	return res
}

// ingest is the linear per-message pass: decode, map, upsert, publish.
func (h *Handler) ingest(ctx context.Context, log *zap.Logger, body string) (orders.Order, error) {
	msg, err := orders.DecodeMessage(body)
	if err != nil {
		return orders.Order{}, err
	}
	order := msg.ToOrder()

	if h.strictQuantity && !order.Quantity.Valid() {
		return order, &orders.InvalidQuantityError{OrderID: order.Key(), Raw: string(msg.Quantity)}
	}

	if err := h.store.Put(ctx, order); err != nil {
		return order, err
	}
	log.Info("order stored", zap.String("order_id", order.Key()))

	payload, err := json.Marshal(order)
	if err != nil {
		return order, fmt.Errorf("serialize order: %w", err)
	}
	if err := h.notifier.Publish(ctx, order.Key(), payload); err != nil {
		return order, err
	}
	log.Info("order published", zap.String("order_id", order.Key()))

	return order, nil
}

func (h *Handler) batchID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return h.newBatchID()
}

// ErrorKind names the failure class of a per-message error.
func ErrorKind(err error) string {
	var (
		parseErr *orders.ParseError
		qtyErr   *orders.InvalidQuantityError
		storeErr *orders.StoreWriteError
		pubErr   *notify.PublishError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &qtyErr):
		return "invalid_quantity"
	case errors.As(err, &storeErr):
		return "store_write"
	case errors.As(err, &pubErr):
		return "publish"
	default:
		return "unknown"
	}
}
