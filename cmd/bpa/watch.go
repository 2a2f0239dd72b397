package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// settle is how long the source must stay quiet before a rerun.
const settle = 150 * time.Millisecond

// watch runs r once, then again whenever its source file is written, until
// ctx is cancelled. Each run's outcome goes to onRun.
//
// The source's directory is watched rather than the file, so editors that
// save by rename still trigger a rerun.
func watch(ctx context.Context, r *runner, onRun func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	defer w.Close()

	src, err := filepath.Abs(r.cfg.Source())
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	if err := w.Add(filepath.Dir(src)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(src))
	}
	r.log.Info("watching", "path", src)

	onRun(r.run())

	var rerun <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != src || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			r.log.Debug("source changed", "op", e.Op.String())
			rerun = time.After(settle)

		case <-rerun:
			rerun = nil
			onRun(r.run())

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watch error", "err", err)
		}
	}
}
