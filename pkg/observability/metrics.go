package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// PutMetricData accepts at most 20 datums per call on the legacy API shape
// we target.
const metricBatchSize = 20

// Metrics publishes application metrics to CloudWatch. Datums are buffered
// and flushed in batches to keep API calls off the request path. A nil
// client turns every operation into a no-op, which is what local
// development runs with.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client

	mu     sync.Mutex
	buffer []cwtypes.MetricDatum

	flushEvery time.Duration
	stopOnce   sync.Once
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewMetrics creates a metrics publisher for the given namespace
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	m := &Metrics{
		namespace:  namespace,
		client:     client,
		flushEvery: time.Minute,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if client != nil {
		go m.flushLoop()
	} else {
		close(m.doneCh)
	}

	return m
}

// Increment records a count of 1 for the metric
func (m *Metrics) Increment(metric, label string) {
	m.record(metric, label, 1, cwtypes.StandardUnitCount)
}

// IncrementBy records an arbitrary count for the metric
func (m *Metrics) IncrementBy(metric, label string, value float64) {
	m.record(metric, label, value, cwtypes.StandardUnitCount)
}

// RecordDuration records a duration in milliseconds
func (m *Metrics) RecordDuration(metric, label string, d time.Duration) {
	m.record(metric, label, float64(d.Milliseconds()), cwtypes.StandardUnitMilliseconds)
}

// RecordValue records a raw value with an explicit unit
func (m *Metrics) RecordValue(metric, label string, value float64, unit cwtypes.StandardUnit) {
	m.record(metric, label, value, unit)
}

// MetricTimer measures a duration between StartTimer and Stop
type MetricTimer struct {
	metrics *Metrics
	metric  string
	label   string
	start   time.Time
}

// StartTimer starts a timer that records its duration on Stop
func (m *Metrics) StartTimer(metric, label string) *MetricTimer {
	return &MetricTimer{
		metrics: m,
		metric:  metric,
		label:   label,
		start:   time.Now(),
	}
}

// Stop records the elapsed duration
func (t *MetricTimer) Stop() {
	t.metrics.RecordDuration(t.metric, t.label, time.Since(t.start))
}

func (m *Metrics) record(metric, label string, value float64, unit cwtypes.StandardUnit) {
	if m.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: aws.String(metric),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	if label != "" {
		datum.Dimensions = []cwtypes.Dimension{
			{Name: aws.String("Operation"), Value: aws.String(label)},
		}
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, datum)
	full := len(m.buffer) >= metricBatchSize
	m.mu.Unlock()

	if full {
		go m.Flush(context.Background())
	}
}

// Flush publishes all buffered datums. Lambda handlers call this before
// returning since the execution environment may freeze immediately after.
func (m *Metrics) Flush(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	m.mu.Lock()
	batch := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	for len(batch) > 0 {
		n := min(len(batch), metricBatchSize)
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[:n],
		})
		if err != nil {
			// Metrics are best-effort; drop the batch rather than block
			return err
		}
		batch = batch[n:]
	}

	return nil
}

// Close stops the background flush loop and publishes remaining datums
func (m *Metrics) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Flush(ctx)
}

func (m *Metrics) flushLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = m.Flush(ctx)
			cancel()
		case <-m.stopCh:
			return
		}
	}
}
