// Package watch re-parses a solver log every time it changes on disk.
package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/san-kum/damaskio/internal/logger"
	"github.com/san-kum/damaskio/internal/solverlog"
)

const DefaultDebounce = 250 * time.Millisecond

var ErrRemoved = errors.New("watch: log removed")

// Update is the outcome of one re-parse. A log caught mid-write may fail to
// parse; that failure is reported in Err and watching continues.
type Update struct {
	Run *solverlog.LogRun
	Err error
	At  time.Time
}

type Watcher struct {
	path     string
	debounce time.Duration
	log      logger.Logger
	last     []byte
}

func New(path string, debounce time.Duration, log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		log:      log,
	}
}

// Watch delivers an Update for the current content of the log, then one per
// burst of writes, until ctx is cancelled. The channel is closed on return.
func (w *Watcher) Watch(ctx context.Context) (<-chan Update, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The directory is watched so that a log created or replaced after
	// startup is still seen.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	out := make(chan Update)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Update) {
	defer close(out)
	defer fw.Close()

	if _, err := os.Stat(w.path); err == nil {
		if !w.emit(ctx, out) {
			return
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				w.log.Warnf("%s was removed", w.path)
				w.last = nil
				if !send(ctx, out, Update{Err: ErrRemoved, At: time.Now()}) {
					return
				}
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watch %s: %v", w.path, err)
			if !send(ctx, out, Update{Err: err, At: time.Now()}) {
				return
			}

		case <-fire:
			fire = nil
			if !w.emit(ctx, out) {
				return
			}
		}
	}
}

// emit parses the log if it changed since the last update. It returns false
// once ctx is done.
func (w *Watcher) emit(ctx context.Context, out chan<- Update) bool {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return send(ctx, out, Update{Err: err, At: time.Now()})
	}
	if w.last != nil && bytes.Equal(data, w.last) {
		return true
	}
	w.last = data

	run, err := solverlog.Parse(string(data))
	if err != nil {
		w.log.Debugf("parse %s: %v", w.path, err)
		return send(ctx, out, Update{Err: err, At: time.Now()})
	}
	w.log.Debugf("parsed %s: %d converged increments", w.path, run.NumConverged())
	return send(ctx, out, Update{Run: run, At: time.Now()})
}

func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
