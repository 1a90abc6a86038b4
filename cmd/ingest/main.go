package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-ingestion/internal/aws"
	"github.com/imrishuroy/go-order-ingestion/internal/config"
	"github.com/imrishuroy/go-order-ingestion/internal/handlers"
	"github.com/imrishuroy/go-order-ingestion/internal/ingest"
	"github.com/imrishuroy/go-order-ingestion/internal/logger"
	"github.com/imrishuroy/go-order-ingestion/internal/notify"
	"github.com/imrishuroy/go-order-ingestion/internal/orders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback, lerr := logger.New(logger.DefaultConfig())
		if lerr != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	lg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// Clients are created once per process and reused by every invocation.
	clients, err := aws.NewAWSClients(context.Background(), cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		lg.Fatal("failed to init aws clients", zap.Error(err))
	}

	store := orders.NewStore(clients.DynamoDB, cfg.Ingest.StoreName)
	notifier, closeNotifier := newNotifier(cfg, clients)
	defer closeNotifier()

	opts := []ingest.Option{ingest.WithStrictQuantity(cfg.Ingest.StrictQuantity)}
	if cfg.Metrics.Enabled {
		opts = append(opts, ingest.WithReporter(aws.NewMetricsReporter(clients.CloudWatch, cfg.Metrics.Namespace)))
	}
	h := ingest.NewHandler(store, notifier, lg, opts...)

	lg.Info("order ingestion starting",
		zap.String("run_mode", cfg.App.RunMode),
		zap.String("store_name", store.TableName()),
		zap.String("topic_id", cfg.Ingest.TopicID),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	switch cfg.App.RunMode {
	case config.RunModeLocal:
		r := handlers.NewRouter(handlers.HandlerConfig{Batch: h, Orders: store})
		lg.Info("running local server", zap.String("addr", cfg.App.LocalAddr))
		if err := r.Run(cfg.App.LocalAddr); err != nil {
			lg.Fatal("failed to run local server", zap.Error(err))
		}
	case config.RunModePoll:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		poller := aws.NewPoller(clients.SQS, cfg.Queue.URL, cfg.Queue.MaxMessages, cfg.Queue.WaitTime, lg)
		err := poller.Run(ctx, func(ctx context.Context, ev events.SQSEvent) error {
			_, err := h.Handle(ctx, ev)
			return err
		})
		if err != nil {
			lg.Error("queue poller stopped", zap.Error(err))
		}
	default:
		lambda.Start(h.Handle)
	}
}

func newNotifier(cfg *config.Config, clients *aws.AWSClients) (notify.Notifier, func()) {
	if cfg.Notify.Driver == config.DriverKafka {
		p := notify.NewKafkaPublisher(cfg.Notify.KafkaBrokers, cfg.Ingest.TopicID)
		return p, func() { _ = p.Close() }
	}
	return notify.NewSNSPublisher(clients.SNS, cfg.Ingest.TopicID), func() {}
}
