/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval collapses bursts of file events into one run.
var DebounceInterval = 250 * time.Millisecond

// Watch calls fn with the directory of every changed file accepted by
// isSource, at most once per DebounceInterval and directory, until ctx is
// done.
func Watch(ctx context.Context, dirs []string, isSource func(name string) bool, log *slog.Logger, fn func(dir string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return err
		}
	}
	log.Info("dpx: watching for changes", "dirs", dirs)

	var (
		mu     sync.Mutex
		timers = map[string]*time.Timer{}
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !isSource(ev.Name) {
				continue
			}
			dir := filepath.Clean(filepath.Dir(ev.Name))
			log.Debug("dpx: source changed", "file", ev.Name, "op", ev.Op.String())

			mu.Lock()
			if t, ok := timers[dir]; ok {
				t.Stop()
			}
			timers[dir] = time.AfterFunc(DebounceInterval, func() {
				if ctx.Err() == nil {
					fn(dir)
				}
			})
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("dpx: watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
