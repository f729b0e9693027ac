package background

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "stagecraft/internal/background"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Same attribute as the render cache build counter.
var (
	taskOK     = metric.WithAttributes(attribute.Bool("failed", false))
	taskFailed = metric.WithAttributes(attribute.Bool("failed", true))
)

type workerMetrics struct {
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
	depth    metric.Int64ObservableGauge

	reg        metric.Registration
	unregister sync.Once
}

func newWorkerMetrics(m metric.Meter, w *Worker) (*workerMetrics, error) {
	wm := &workerMetrics{}

	var err error
	wm.tasks, err = m.Int64Counter(
		"stagecraft.worker.tasks",
		metric.WithDescription("Background tasks run to completion or failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task counter: %w", err)
	}

	wm.duration, err = m.Float64Histogram(
		"stagecraft.worker.task.duration",
		metric.WithDescription("Wall time spent in a background task"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	wm.depth, err = m.Int64ObservableGauge(
		"stagecraft.worker.queue.depth",
		metric.WithDescription("Tasks waiting behind the running one"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}

	wm.reg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(wm.depth, int64(w.Pending()))
			return nil
		},
		wm.depth,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return wm, nil
}

func (wm *workerMetrics) record(seconds float64, failed bool) {
	ctx := context.Background()
	outcome := taskOK
	if failed {
		outcome = taskFailed
	}
	wm.tasks.Add(ctx, 1, outcome)
	wm.duration.Record(ctx, seconds, outcome)
}

// close drops the queue depth callback so the meter no longer holds the
// worker. Safe to call more than once.
func (wm *workerMetrics) close() {
	wm.unregister.Do(func() {
		_ = wm.reg.Unregister()
	})
}
