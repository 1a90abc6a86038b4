package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted per batch.
const (
	MetricOrdersSucceeded = "OrdersSucceeded"
	MetricOrdersFailed    = "OrdersFailed"
)

// MetricsReporter publishes per-batch outcome counts to CloudWatch.
type MetricsReporter struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsReporter returns a reporter writing into namespace.
func NewMetricsReporter(cw CloudWatchAPI, namespace string) *MetricsReporter {
	return &MetricsReporter{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// ReportBatch sends one datum per outcome for the batch.
func (r *MetricsReporter) ReportBatch(ctx context.Context, succeeded, failed int) error {
	now := r.nowFunc()
	_, err := r.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(r.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(MetricOrdersSucceeded),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(float64(succeeded)),
			},
			{
				MetricName: sdkaws.String(MetricOrdersFailed),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(float64(failed)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
