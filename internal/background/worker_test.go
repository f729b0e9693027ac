package background

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

func newWorker(t *testing.T) *Worker {
	t.Helper()
	w, err := New()
	require.NoError(t, err)
	t.Cleanup(w.RequestStop)
	return w
}

func TestFIFOOrder(t *testing.T) {
	w := newWorker(t)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		w.Enqueue("task", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})
	}
	w.Start()

	require.Eventually(t, w.IsIdle, waitFor, tick)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	w := newWorker(t)

	var inFlight, maxInFlight atomic.Int32
	for i := 0; i < 20; i++ {
		w.Enqueue("overlap", func() error {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			return nil
		})
	}
	w.Start()

	require.Eventually(t, w.IsIdle, waitFor, tick)
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestLabelProgression(t *testing.T) {
	w := newWorker(t)

	releaseLoad := make(chan struct{})
	releaseGenerate := make(chan struct{})
	w.Enqueue("load", func() error { <-releaseLoad; return nil })
	w.Enqueue("generate", func() error { <-releaseGenerate; return nil })

	assert.True(t, w.IsIdle(), "idle before start")
	assert.Equal(t, "", w.CurrentLabel())
	assert.Equal(t, 2, w.Pending())

	w.Start()
	require.Eventually(t, func() bool { return w.CurrentLabel() == "load" }, waitFor, tick)
	assert.False(t, w.IsIdle())

	close(releaseLoad)
	require.Eventually(t, func() bool { return w.CurrentLabel() == "generate" }, waitFor, tick)
	assert.False(t, w.IsIdle())

	close(releaseGenerate)
	require.Eventually(t, w.IsIdle, waitFor, tick)
	assert.Equal(t, "", w.CurrentLabel())
	assert.Equal(t, 0, w.Pending())
}

func TestStatusMessage(t *testing.T) {
	w := newWorker(t)

	reported := make(chan struct{})
	release := make(chan struct{})
	w.Enqueue("generate", func() error {
		w.SetStatusMessage("3/10 objects")
		close(reported)
		<-release
		return nil
	})
	w.Start()

	<-reported
	assert.Equal(t, "3/10 objects", w.StatusMessage())
	close(release)

	require.Eventually(t, w.IsIdle, waitFor, tick)
	assert.Equal(t, "", w.StatusMessage(), "cleared once the queue drains")
}

func TestRequestStopWaitsForInFlightTask(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	started := make(chan struct{})
	var finished, lateRan atomic.Bool
	w.Enqueue("slow", func() error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	w.Enqueue("late", func() error {
		lateRan.Store(true)
		return nil
	})
	w.Start()
	<-started

	w.RequestStop()

	assert.True(t, finished.Load(), "in-flight task completes before RequestStop returns")
	assert.False(t, lateRan.Load(), "no task starts after the stop flag")
	assert.False(t, w.Running())
	assert.ErrorIs(t, w.Err(), ErrNotRunning)

	w.Enqueue("after", func() error {
		lateRan.Store(true)
		return nil
	})
	time.Sleep(10 * time.Millisecond)
	assert.False(t, lateRan.Load())
	assert.True(t, w.IsIdle())
}

func TestRequestStopIdempotent(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	w.RequestStop() // never started
	w.Start()
	w.RequestStop()
	w.RequestStop()

	select {
	case <-w.Done():
	default:
		t.Error("Done not closed after stop")
	}
}

func TestStartTwicePanics(t *testing.T) {
	w := newWorker(t)
	w.Start()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on second Start")
		}
	}()
	w.Start()
}

func TestFailingTaskStopsWorker(t *testing.T) {
	w := newWorker(t)

	boom := errors.New("stage file truncated")
	var afterRan atomic.Bool
	w.Enqueue("Loading stage", func() error { return boom })
	w.Enqueue("after", func() error { afterRan.Store(true); return nil })
	w.Start()

	select {
	case <-w.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit after task failure")
	}

	assert.False(t, w.Running())
	var taskErr *TaskError
	require.ErrorAs(t, w.Err(), &taskErr)
	assert.Equal(t, "Loading stage", taskErr.Label)
	assert.False(t, taskErr.Panicked)
	assert.ErrorIs(t, w.Err(), boom)

	assert.False(t, afterRan.Load())
	assert.Equal(t, 1, w.Pending(), "remaining tasks stay queued")
	assert.True(t, w.IsIdle())
}

func TestPanickingTaskStopsWorker(t *testing.T) {
	w := newWorker(t)

	w.Enqueue("explode", func() error { panic("nil stage") })
	w.Start()

	select {
	case <-w.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit after panic")
	}

	var taskErr *TaskError
	require.ErrorAs(t, w.Err(), &taskErr)
	assert.True(t, taskErr.Panicked)
	assert.Contains(t, taskErr.Error(), "nil stage")
}

func TestEnqueueFromTask(t *testing.T) {
	w := newWorker(t)

	var order []string
	w.Enqueue("outer", func() error {
		order = append(order, "outer")
		w.Enqueue("inner", func() error {
			order = append(order, "inner")
			return nil
		})
		return nil
	})
	w.Start()

	require.Eventually(t, func() bool { return w.IsIdle() && w.Pending() == 0 }, waitFor, tick)
	w.RequestStop()
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestEnqueueNilActionPanics(t *testing.T) {
	w := newWorker(t)
	assert.Panics(t, func() { w.Enqueue("nothing", nil) })
}
