// Package handlers exposes the ingestion handler over HTTP for local runs.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-ingestion/internal/ingest"
	"github.com/imrishuroy/go-order-ingestion/internal/orders"
)

// BatchHandler is the Lambda-shaped batch entry point.
type BatchHandler interface {
	Handle(ctx context.Context, ev events.SQSEvent) (ingest.Response, error)
}

// OrderReader reads back stored orders.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
}

// HandlerConfig groups dependencies for the local routes.
type HandlerConfig struct {
	Batch  BatchHandler
	Orders OrderReader
}

// NewRouter builds the local development server.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterRoutes(r, cfg)
	return r
}

// RegisterRoutes registers the invoke and order routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	// POST /invoke takes a full SQS event, as the Lambda runtime would deliver it.
	r.POST("/invoke", func(c *gin.Context) {
		var ev events.SQSEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event", "msg": err.Error()})
			return
		}
		respond(c, cfg.Batch, ev)
	})

	// POST /orders takes one raw order message body and runs it as a batch of one.
	// The body is passed through untouched so malformed payloads exercise the parse path.
	r.POST("/orders", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body", "msg": err.Error()})
			return
		}
		ev := events.SQSEvent{Records: []events.SQSMessage{{
			MessageId:   uuid.NewString(),
			Body:        string(body),
			EventSource: "local",
		}}}
		respond(c, cfg.Batch, ev)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read_failed", "detail": err.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})
}

func respond(c *gin.Context, h BatchHandler, ev events.SQSEvent) {
	resp, err := h.Handle(c.Request.Context(), ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "handler_failed", "detail": err.Error()})
		return
	}
	c.JSON(resp.StatusCode, resp)
}
