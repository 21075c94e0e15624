package supervisor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/errors"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 250 * time.Millisecond

// watchContracts restarts the gateway whenever the contracts file changes.
// The parent directory is watched so atomic replace-by-rename is seen.
func (h *ServiceHandle) watchContracts(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewIOError("failed to create file watcher", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return errors.NewIOError("failed to resolve contracts file path", err).WithContext("path", path)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return errors.NewIOError("failed to watch contracts file directory", err).WithContext("path", abs)
	}

	h.sup.logger.Infof("Watching contracts file, service: %s, path: %s", h.sup.opts.ServiceID, abs)
	go h.runContractsWatch(watcher, filepath.Base(abs))
	return nil
}

func (h *ServiceHandle) runContractsWatch(watcher *fsnotify.Watcher, name string) {
	defer watcher.Close()

	logger := h.sup.logger
	service := h.sup.opts.ServiceID

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-h.closed:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debugf("Contracts file event, service: %s, event: %s", service, event)
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Contracts file watch error, service: %s, error: %v", service, err)

		case <-debounce.C:
			logger.Infof("Contracts file changed, restarting gateway, service: %s", service)
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-h.closed:
					cancel()
				case <-ctx.Done():
				}
			}()
			if err := h.Restart(ctx); err != nil {
				logger.Errorf("Restart after contracts change failed, service: %s, error: %v", service, err)
			}
			cancel()
		}
	}
}
