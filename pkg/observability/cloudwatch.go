package observability

import (
	"context"
	"sync"
	"time"

	"sentinel/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// PutMetricDataAPI is the slice of the CloudWatch client used here
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

const cloudWatchBatch = 20

// CloudWatchMetrics buffers engine metrics and ships them to CloudWatch on
// Flush. Only event counts and notification latency are sent; gauges stay
// in Prometheus.
type CloudWatchMetrics struct {
	namespace string
	client    PutMetricDataAPI
	now       func() time.Time
	logger    *zap.Logger

	mu     sync.Mutex
	buffer []types.MetricDatum
}

// NewCloudWatchMetrics creates a CloudWatch sink
func NewCloudWatchMetrics(namespace string, client PutMetricDataAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{namespace: namespace, client: client, now: time.Now, logger: logger}
}

func (m *CloudWatchMetrics) add(name string, value float64, unit types.StandardUnit, dims ...types.Dimension) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
	})
}

func dim(name, value string) types.Dimension {
	return types.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchMetrics) TriggerClassified(source valueobjects.TriggerSource, severity valueobjects.Severity) {
	m.add("Triggers", 1, types.StandardUnitCount, dim("Source", source.String()), dim("Severity", severity.String()))
}

func (m *CloudWatchMetrics) CountdownArmed() {
	m.add("CountdownsArmed", 1, types.StandardUnitCount)
}

func (m *CloudWatchMetrics) CountdownResolved(outcome string) {
	m.add("CountdownsResolved", 1, types.StandardUnitCount, dim("Outcome", outcome))
}

func (m *CloudWatchMetrics) NotificationSent(delivered bool, latency time.Duration) {
	status := "success"
	if !delivered {
		status = "failure"
	}
	m.add("NotificationLatency", float64(latency.Milliseconds()), types.StandardUnitMilliseconds, dim("Status", status))
}

func (m *CloudWatchMetrics) LedgerSize(int) {}

func (m *CloudWatchMetrics) AudioLevel(float64) {}

// Flush sends buffered data in batches. Failed batches are logged and
// dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) {
	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	for i := 0; i < len(pending); i += cloudWatchBatch {
		end := i + cloudWatchBatch
		if end > len(pending) {
			end = len(pending)
		}
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[i:end],
		})
		if err != nil {
			m.logger.Warn("Failed to send metrics", zap.Int("count", end-i), zap.Error(err))
		}
	}
}

// Run flushes every interval until ctx is done, then flushes once more
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			m.Flush(ctx)
		}
	}
}
