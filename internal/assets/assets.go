// Package assets resolves actor names to raw model data. It only touches
// the CPU side so it may run on the background worker.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/dustin/go-humanize"
)

// ModelExt is the file extension of raw model files.
const ModelExt = ".json"

// ErrInvalidActorType is returned for actor types that do not name a file
// directly inside the model directory.
var ErrInvalidActorType = errors.New("invalid actor type")

// ValidActorType reports whether actorType can be mapped to a model file:
// non-empty, no path separators and no "..".
func ValidActorType(actorType string) bool {
	return actorType != "" &&
		!strings.ContainsAny(actorType, `/\`) &&
		!strings.Contains(actorType, "..") &&
		filepath.IsLocal(actorType+ModelExt)
}

type slot struct {
	data []byte
	err  error
}

// Library caches raw model bytes per actor type. Reads happen at most once
// per type; failures are cached too so a broken file is not re-read every
// frame.
type Library struct {
	dir string

	mu    sync.RWMutex
	slots map[string]slot

	pool worker.DynamicWorkerPool
}

// NewLibrary reads models from dir, fanning prefetches out over at most
// fetchers goroutines.
func NewLibrary(dir string, fetchers int) *Library {
	if fetchers < 1 {
		fetchers = 1
	}
	return &Library{
		dir:   dir,
		slots: make(map[string]slot),
		pool:  worker.NewDynamicWorkerPool(fetchers, 256, 1*time.Second),
	}
}

func (l *Library) Dir() string { return l.dir }

// Path is the file a given actor type is read from.
func (l *Library) Path(actorType string) string {
	return filepath.Join(l.dir, actorType+ModelExt)
}

// Raw returns the raw bytes for actorType, reading the file on first use.
func (l *Library) Raw(actorType string) ([]byte, error) {
	l.mu.RLock()
	s, ok := l.slots[actorType]
	l.mu.RUnlock()
	if ok {
		return s.data, s.err
	}

	s = l.read(actorType)

	l.mu.Lock()
	// first writer wins
	if prev, ok := l.slots[actorType]; ok {
		s = prev
	} else {
		l.slots[actorType] = s
	}
	l.mu.Unlock()
	return s.data, s.err
}

func (l *Library) read(actorType string) slot {
	if !ValidActorType(actorType) {
		return slot{err: fmt.Errorf("load model %q: %w", actorType, ErrInvalidActorType)}
	}
	data, err := os.ReadFile(l.Path(actorType))
	if err != nil {
		return slot{err: fmt.Errorf("load model %q: %w", actorType, err)}
	}
	return slot{data: data}
}

// Publish stores bytes produced elsewhere (a generator task) for actorType,
// replacing whatever was cached.
func (l *Library) Publish(actorType string, data []byte) {
	l.mu.Lock()
	l.slots[actorType] = slot{data: data}
	l.mu.Unlock()
}

// Loaded reports whether actorType has a slot, failed or not.
func (l *Library) Loaded(actorType string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.slots[actorType]
	return ok
}

// Forget drops the cached slot so the next Raw re-reads the file.
func (l *Library) Forget(actorType string) {
	l.mu.Lock()
	delete(l.slots, actorType)
	l.mu.Unlock()
}

// ForgetAll drops every cached slot.
func (l *Library) ForgetAll() {
	l.mu.Lock()
	l.slots = make(map[string]slot)
	l.mu.Unlock()
}

// PrefetchResult summarises a Prefetch run.
type PrefetchResult struct {
	Requested int
	Loaded    int
	Failed    int
	Bytes     int64
}

// Prefetch reads all not-yet-cached actor types in parallel and blocks
// until every read has finished. status, if set, receives progress lines
// and may be called from several goroutines.
func (l *Library) Prefetch(actorTypes []string, status func(string)) PrefetchResult {
	seen := make(map[string]bool, len(actorTypes))
	var todo []string
	for _, t := range actorTypes {
		if t == "" || seen[t] || l.Loaded(t) {
			continue
		}
		seen[t] = true
		todo = append(todo, t)
	}

	res := PrefetchResult{Requested: len(todo)}
	if len(todo) == 0 {
		return res
	}

	var wg sync.WaitGroup
	var done, failed atomic.Int32
	var total atomic.Int64
	for i, actorType := range todo {
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()

				data, err := l.Raw(actorType)
				if err != nil {
					failed.Add(1)
				}
				n := done.Add(1)
				size := total.Add(int64(len(data)))
				if status != nil {
					status(fmt.Sprintf("Fetched %d/%d models (%s)", n, len(todo), humanize.Bytes(uint64(size))))
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	res.Failed = int(failed.Load())
	res.Loaded = res.Requested - res.Failed
	res.Bytes = total.Load()
	return res
}
