package scripting

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changed .lua files in the scripts directory. It only
// forwards names; the game loop applies them with Engine.Reload so the VM
// is never touched from the watcher goroutine.
type Watcher struct {
	fsw     *fsnotify.Watcher
	log     *zap.Logger
	changed chan string
}

func NewWatcher(dir string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		log:     log,
		changed: make(chan string, 32),
	}, nil
}

// Changes delivers base names of modified scripts.
func (w *Watcher) Changes() <-chan string { return w.changed }

// Start forwards events until ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != ".lua" || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				select {
				case w.changed <- filepath.Base(ev.Name):
				default:
					w.log.Warn("script reload queue full", zap.String("file", ev.Name))
				}

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.log.Error("script watcher error", zap.Error(err))
			}
		}
	}()
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
