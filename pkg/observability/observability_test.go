package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_EngineMetrics(t *testing.T) {
	c := NewCollector("sentinel")

	c.TriggerClassified(valueobjects.SourceGesture, valueobjects.SeverityUrgent)
	c.TriggerClassified(valueobjects.SourceGesture, valueobjects.SeverityUrgent)
	c.CountdownArmed()
	c.CountdownResolved("cancelled")
	c.NotificationSent(false, 30*time.Millisecond)
	c.LedgerSize(4)
	c.AudioLevel(72)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Triggers.WithLabelValues("gesture", "urgent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CountdownsArmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Countdowns.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Notifications.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.LedgerRecords))
	assert.Equal(t, 72.0, testutil.ToFloat64(c.AudioLevelGauge))
}

func TestCollector_MiddlewareAndHandler(t *testing.T) {
	c := NewCollector("sentinel")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/v1/state", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Handle("/metrics", c.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v1/state", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sentinel_http_requests_total"))
}

func TestFanout(t *testing.T) {
	a, b := NewCollector("a"), NewCollector("b")
	Fanout{a, b}.CountdownArmed()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CountdownsArmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.CountdownsArmed))
}

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestCloudWatchMetrics_FlushBatches(t *testing.T) {
	client := new(mockCloudWatch)
	var sizes []int
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(*cloudwatch.PutMetricDataInput)
			assert.Equal(t, "Sentinel", aws.ToString(in.Namespace))
			sizes = append(sizes, len(in.MetricData))
		}).
		Return(nil)

	m := NewCloudWatchMetrics("Sentinel", client, zap.NewNop())
	for i := 0; i < 25; i++ {
		m.CountdownArmed()
	}
	m.LedgerSize(3)
	m.Flush(context.Background())
	assert.Equal(t, []int{20, 5}, sizes)

	m.Flush(context.Background())
	client.AssertNumberOfCalls(t, "PutMetricData", 2)
}

func TestCloudWatchMetrics_FlushErrorIsDropped(t *testing.T) {
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("denied")).Once()

	m := NewCloudWatchMetrics("Sentinel", client, zap.NewNop())
	m.NotificationSent(true, time.Second)
	m.Flush(context.Background())
	m.Flush(context.Background())
	client.AssertNumberOfCalls(t, "PutMetricData", 1)
	require.Empty(t, m.buffer)
}
