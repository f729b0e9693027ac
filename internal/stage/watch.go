package stage

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ClassDBWatcher calls back when class database files change on disk.
// Bursts of events (an editor writing a file in several steps) are
// coalesced into one callback after the debounce delay.
type ClassDBWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger
	done     chan struct{}
}

func WatchClassDB(dir string, debounce time.Duration, log zerolog.Logger, onChange func()) (*ClassDBWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch class database: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch class database: %w", err)
	}

	cw := &ClassDBWatcher{
		watcher:  w,
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}
	go cw.loop(onChange)
	return cw, nil
}

// Close stops watching and waits for the event loop to exit.
func (cw *ClassDBWatcher) Close() error {
	err := cw.watcher.Close()
	<-cw.done
	return err
}

func (cw *ClassDBWatcher) loop(onChange func()) {
	defer close(cw.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if !IsClassFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			cw.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("class database changed")
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warn().Err(err).Msg("class database watcher error")
		}
	}
}
