package filewatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext derives a context that is canceled when any target
// is written, created, removed or renamed.
//
// A file target is watched through its parent directory, so editors
// saving by rename-and-replace are caught too. A directory target
// reacts to any entry in it. Permission-only changes do not cancel.
//
// The cause of the cancellation names the modified path. On error both
// returned values are nil.
func UntilModifyContext(ctx context.Context, targetPath ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	files := map[string]bool{}
	dirs := map[string]bool{}
	watch := map[string]bool{}
	for _, target := range targetPath {
		abs, err := filepath.Abs(target)
		if err != nil {
			cancel(err)
			return nil, nil, err
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dirs[abs] = true
			watch[abs] = true
			continue
		}
		files[abs] = true
		watch[filepath.Dir(abs)] = true
	}

	relevant := func(ev fsnotify.Event) bool {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
			!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
			return false
		}
		name, err := filepath.Abs(ev.Name)
		if err != nil {
			return true
		}
		return files[name] || dirs[name] || dirs[filepath.Dir(name)]
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if relevant(ev) {
					cancel(fmt.Errorf("%s is updated (%s)", ev.Name, ev.Op.String()))
				}
			}
		}
	}()

	for dir := range watch {
		if err := w.Add(dir); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}
