// Command sendorder enqueues one order message for the ingestion handler.
//
//	sendorder -order '{"userId":"U1","itemName":"Widget","quantity":"3","status":"NEW"}'
//	echo '{...}' | sendorder
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-ingestion/internal/aws"
	"github.com/imrishuroy/go-order-ingestion/internal/config"
)

func main() {
	orderJSON := flag.String("order", "", "order JSON; read from stdin when empty")
	raw := flag.Bool("raw", false, "send the payload untouched, even if it is not valid JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Queue.URL == "" {
		log.Fatalf("queue url is required (INGEST_QUEUE_URL or ORDERS_QUEUE_URL)")
	}

	payload := *orderJSON
	if payload == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		payload = string(b)
	}

	orderID := ""
	if !*raw {
		payload, orderID, err = completeOrder(payload, time.Now().UTC())
		if err != nil {
			log.Fatalf("invalid order: %v", err)
		}
	}

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	sender := aws.NewSender(clients.SQS, cfg.Queue.URL)
	msgID, err := sender.SendOrderMessage(ctx, payload, map[string]string{
		"order_id":       orderID,
		"correlation_id": uuid.NewString(),
	})
	if err != nil {
		log.Fatalf("failed to send order: %v", err)
	}
	fmt.Printf("sent order_id=%s message_id=%s\n", orderID, msgID)
}

// completeOrder fills orderId and timestamp when the caller left them out.
func completeOrder(payload string, now time.Time) (string, string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return "", "", err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	id, ok := fields["orderId"].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		fields["orderId"] = id
	}
	if _, ok := fields["timestamp"]; !ok {
		fields["timestamp"] = now.Format(time.RFC3339)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return "", "", err
	}
	return string(out), id, nil
}
