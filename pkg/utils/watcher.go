package utils

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ginjaninja78/pca-consolidation/internal/logging"
)

// DefaultDebounce is how long the watcher waits after the last change
// before handing files over. Spreadsheet tools write exports in bursts.
const DefaultDebounce = 2 * time.Second

// WatchHandler receives the exports that changed since the last call,
// sorted by path.
type WatchHandler func(ctx context.Context, files []string)

// WatchInputDir watches dir for new or rewritten exports and calls handle
// once the directory has been quiet for debounce. It returns when ctx is
// done. handle runs on the watcher goroutine, so changes arriving while it
// runs are batched for the next call.
func WatchInputDir(ctx context.Context, dir string, debounce time.Duration, handle WatchHandler) error {
	logger := logging.FromContext(ctx)

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger.Info().Str("dir", dir).Dur("debounce", debounce).Msg("watching input directory")

	pending := make(map[string]bool)
	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsInputFile(event.Name) {
				continue
			}
			logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("export changed")
			pending[event.Name] = true
			quiet = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")

		case <-quiet:
			quiet = nil
			files := make([]string, 0, len(pending))
			for path := range pending {
				if FileExists(path) {
					files = append(files, path)
				}
			}
			pending = make(map[string]bool)

			if len(files) == 0 {
				continue
			}
			sort.Strings(files)
			handle(ctx, files)
		}
	}
}
