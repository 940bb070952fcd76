/*
NAME
  watch.go

DESCRIPTION
  watch.go mechanises re-reading the global settings when their backing
  files change externally: a Watcher observes the preferences file and the
  picture file for external writes and reloads/re-signals accordingly.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package prefs

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// ChangeKind identifies what a Watcher observed changing.
type ChangeKind int

const (
	// DevicesChanged fires when the preferences file itself was rewritten.
	DevicesChanged ChangeKind = iota
	// PictureChanged fires when the configured picture file was rewritten.
	PictureChanged
)

// Watcher reloads a Store when its backing file, or the picture file it
// references, changes on disk underneath it. Notifications are delivered
// on Changes; callers are expected to range over it for the Watcher's
// lifetime and call Close when done.
type Watcher struct {
	store   *Store
	path    string
	fsw     *fsnotify.Watcher
	log     logging.Logger
	Changes chan ChangeKind
	done    chan struct{}
}

// Watch starts watching path (the preferences file backing store) and
// whatever picture file store currently references. The caller owns the
// returned Watcher and must Close it to release the underlying inotify
// handle.
func Watch(store *Store, path string, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch directory of %s", path)
	}

	w := &Watcher{
		store:   store,
		path:    path,
		fsw:     fsw,
		log:     log,
		Changes: make(chan ChangeKind, 8),
		done:    make(chan struct{}),
	}
	w.watchPicture(store.Picture())
	go w.run()
	return w, nil
}

func (w *Watcher) watchPicture(picture string) {
	if picture == "" {
		return
	}
	if err := w.fsw.Add(filepath.Dir(picture)); err != nil {
		w.logf(logging.Warning, "failed to watch picture directory", "path", picture, "error", err)
	}
}

func (w *Watcher) logf(level int8, msg string, params ...interface{}) {
	if w.log == nil {
		return
	}
	w.log.Log(level, msg, params...)
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logf(logging.Warning, "fsnotify error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	switch filepath.Clean(ev.Name) {
	case filepath.Clean(w.path):
		reloaded, err := Load(w.path, w.log)
		if err != nil {
			w.logf(logging.Warning, "reload after external write failed", "path", w.path, "error", err)
			return
		}
		devices, picture, logLevel := reloaded.snapshot()
		w.store.replace(devices, picture, logLevel)
		w.watchPicture(picture)
		w.notify(DevicesChanged)
	case filepath.Clean(w.store.Picture()):
		w.notify(PictureChanged)
	}
}

func (w *Watcher) notify(k ChangeKind) {
	select {
	case w.Changes <- k:
	default:
		w.logf(logging.Debug, "dropped change notification, channel full", "kind", k)
	}
}

// Close stops the watcher and releases its inotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
