// Package background runs slow editor work (stage parsing, model fetching)
// on a single goroutine so the render loop never blocks on I/O.
package background

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// Task is a labelled unit of deferred work. The label is shown to the user
// while the task runs.
type Task struct {
	Label  string
	Action func() error
}

// TaskError is recorded when a task returns an error or panics. It stops
// the worker for good.
type TaskError struct {
	Label    string
	Err      error
	Panicked bool
}

func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("task %q panicked: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("task %q failed: %v", e.Label, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// ErrNotRunning is returned by Err when the worker exited without a fault
// (a requested stop).
var ErrNotRunning = errors.New("background worker is not running")

type Option func(*Worker)

// WithLogger sets the logger used for task start/finish and faults.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Worker) { w.log = l }
}

// WithMeter replaces the global otel meter.
func WithMeter(m metric.Meter) Option {
	return func(w *Worker) { w.meter = m }
}

// Worker drains a FIFO of tasks on one goroutine. All methods are safe for
// concurrent use.
type Worker struct {
	log     zerolog.Logger
	meter   metric.Meter
	metrics *workerMetrics

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task
	label    string
	status   string
	busy     bool
	started  bool
	running  bool
	stopping bool
	fault    error
	done     chan struct{}
}

func New(opts ...Option) (*Worker, error) {
	w := &Worker{
		log:  zerolog.Nop(),
		done: make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}
	if w.meter == nil {
		w.meter = meter()
	}

	var err error
	if w.metrics, err = newWorkerMetrics(w.meter, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Enqueue appends a task. It never blocks on the running task.
func (w *Worker) Enqueue(label string, action func() error) {
	if action == nil {
		panic("background: nil action for task " + label)
	}
	w.mu.Lock()
	w.queue = append(w.queue, Task{Label: label, Action: action})
	w.cond.Signal()
	w.mu.Unlock()
}

// Start spawns the worker goroutine. It must be called once.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		panic("background: worker started twice")
	}
	w.started = true
	w.running = true
	w.mu.Unlock()

	go w.run()
}

// RequestStop prevents further tasks from starting and blocks until the
// worker goroutine has exited. A task already running completes first.
func (w *Worker) RequestStop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		w.metrics.close()
		return
	}
	w.stopping = true
	w.cond.Broadcast()
	w.mu.Unlock()

	<-w.done
}

// IsIdle reports whether nothing is executing and nothing will execute
// without further action: the queue is empty, or no goroutine drains it.
func (w *Worker) IsIdle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy && (len(w.queue) == 0 || !w.running)
}

// CurrentLabel is the label of the running task, or "" when none runs.
func (w *Worker) CurrentLabel() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.label
}

// StatusMessage is the free-text progress line set by the running task.
func (w *Worker) StatusMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// SetStatusMessage is called from task bodies to report progress.
func (w *Worker) SetStatusMessage(msg string) {
	w.mu.Lock()
	w.status = msg
	w.mu.Unlock()
}

// Pending counts queued tasks, excluding the running one.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Running reports whether the worker goroutine is alive.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Err returns the *TaskError that killed the worker, ErrNotRunning after a
// requested stop, or nil while the worker is alive or not yet started.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fault != nil {
		return w.fault
	}
	if w.started && !w.running {
		return ErrNotRunning
	}
	return nil
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.metrics.close()

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stopping {
			w.label = ""
			w.status = ""
			w.cond.Wait()
		}
		if w.stopping {
			w.running = false
			w.label = ""
			w.mu.Unlock()
			w.log.Debug().Int("pending", len(w.queue)).Msg("worker stopped")
			return
		}

		task := w.queue[0]
		w.queue[0] = Task{}
		w.queue = w.queue[1:]
		w.busy = true
		w.label = task.Label
		w.status = ""
		w.mu.Unlock()

		w.log.Debug().Str("task", task.Label).Msg("task started")
		start := time.Now()
		err := execute(task)
		elapsed := time.Since(start)
		w.metrics.record(elapsed.Seconds(), err != nil)

		w.mu.Lock()
		w.busy = false
		if err != nil {
			w.fault = err
			w.running = false
			w.label = ""
			w.mu.Unlock()
			w.log.Error().Err(err).Str("task", task.Label).Msg("worker terminated by task failure")
			return
		}
		if len(w.queue) == 0 {
			w.label = ""
			w.status = ""
		}
		w.mu.Unlock()

		w.log.Debug().Str("task", task.Label).Dur("took", elapsed).Msg("task finished")
	}
}

func execute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("%v", r)
			}
			err = &TaskError{Label: t.Label, Err: rerr, Panicked: true}
		}
	}()

	if aerr := t.Action(); aerr != nil {
		return &TaskError{Label: t.Label, Err: aerr}
	}
	return nil
}
