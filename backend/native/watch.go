//go:build cgo

package native

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
)

// nodeDebounce collapses the burst of node events a single card produces.
const nodeDebounce = 250 * time.Millisecond

// nodeWatcher reports device nodes appearing or disappearing in a
// directory such as /dev/snd. onChange runs on the watcher goroutine once
// per burst of events.
type nodeWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	log      logger.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newNodeWatcher(dir string, debounce time.Duration, onChange func(), log logger.Logger) (*nodeWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(err).
			Component("native").
			Category(errors.CategorySystem).
			Context("operation", "create_watcher").
			Build()
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, errors.New(err).
			Component("native").
			Category(errors.CategorySystem).
			Context("operation", "watch_directory").
			Context("path", dir).
			Build()
	}

	w := &nodeWatcher{
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *nodeWatcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.log.Trace("device node changed",
				logger.String("path", event.Name),
				logger.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("device node watcher error", logger.Error(err))
		}
	}
}

// Close stops the watcher and waits for its goroutine. Idempotent.
func (w *nodeWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}
