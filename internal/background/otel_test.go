package background

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// recordingMeter keeps the attributes of every task count and duration and
// tracks callback registrations.
type recordingMeter struct {
	noop.Meter

	mu           sync.Mutex
	counts       []attribute.Set
	durations    []attribute.Set
	registered   int
	unregistered int
}

func (m *recordingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return &recordingCounter{m: m}, nil
}

func (m *recordingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return &recordingHistogram{m: m}, nil
}

func (m *recordingMeter) RegisterCallback(metric.Callback, ...metric.Observable) (metric.Registration, error) {
	m.mu.Lock()
	m.registered++
	m.mu.Unlock()
	return &recordingRegistration{m: m}, nil
}

func (m *recordingMeter) snapshot() (counts, durations []attribute.Set, registered, unregistered int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attribute.Set(nil), m.counts...), append([]attribute.Set(nil), m.durations...),
		m.registered, m.unregistered
}

type recordingCounter struct {
	noop.Int64Counter
	m *recordingMeter
}

func (c *recordingCounter) Add(_ context.Context, _ int64, opts ...metric.AddOption) {
	set := metric.NewAddConfig(opts).Attributes()
	c.m.mu.Lock()
	c.m.counts = append(c.m.counts, set)
	c.m.mu.Unlock()
}

type recordingHistogram struct {
	noop.Float64Histogram
	m *recordingMeter
}

func (h *recordingHistogram) Record(_ context.Context, _ float64, opts ...metric.RecordOption) {
	set := metric.NewRecordConfig(opts).Attributes()
	h.m.mu.Lock()
	h.m.durations = append(h.m.durations, set)
	h.m.mu.Unlock()
}

type recordingRegistration struct {
	noop.Registration
	m *recordingMeter
}

func (r *recordingRegistration) Unregister() error {
	r.m.mu.Lock()
	r.m.unregistered++
	r.m.mu.Unlock()
	return nil
}

func failedAttr(t *testing.T, set attribute.Set) bool {
	t.Helper()
	v, ok := set.Value("failed")
	require.True(t, ok, "missing failed attribute in %v", set.Encoded(attribute.DefaultEncoder()))
	return v.AsBool()
}

func TestTaskMetricsUseFailedAttribute(t *testing.T) {
	m := &recordingMeter{}
	w, err := New(WithMeter(m))
	require.NoError(t, err)

	w.Enqueue("ok", func() error { return nil })
	w.Enqueue("broken", func() error { return errors.New("boom") })
	w.Start()
	<-w.Done()

	counts, durations, _, _ := m.snapshot()
	require.Len(t, counts, 2)
	require.Len(t, durations, 2)
	assert.False(t, failedAttr(t, counts[0]))
	assert.True(t, failedAttr(t, counts[1]))
	assert.False(t, failedAttr(t, durations[0]))
	assert.True(t, failedAttr(t, durations[1]))
	for _, set := range counts {
		_, ok := set.Value("outcome")
		assert.False(t, ok)
	}
}

func TestQueueDepthCallbackReleased(t *testing.T) {
	t.Run("after stop", func(t *testing.T) {
		m := &recordingMeter{}
		w, err := New(WithMeter(m))
		require.NoError(t, err)
		w.Start()
		w.RequestStop()
		w.RequestStop()

		_, _, registered, unregistered := m.snapshot()
		assert.Equal(t, 1, registered)
		assert.Equal(t, 1, unregistered)
	})

	t.Run("after task failure", func(t *testing.T) {
		m := &recordingMeter{}
		w, err := New(WithMeter(m))
		require.NoError(t, err)
		w.Enqueue("broken", func() error { return errors.New("boom") })
		w.Start()
		<-w.Done()

		_, _, _, unregistered := m.snapshot()
		assert.Equal(t, 1, unregistered)
	})

	t.Run("never started", func(t *testing.T) {
		m := &recordingMeter{}
		w, err := New(WithMeter(m))
		require.NoError(t, err)
		w.RequestStop()

		_, _, _, unregistered := m.snapshot()
		assert.Equal(t, 1, unregistered)
	})
}
