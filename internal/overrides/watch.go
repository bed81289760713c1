package overrides

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/HendryAvila/spikeforge/internal/logging"
)

// Watcher reports ids whose definition files change under a FileStore
// directory, so cached copies can be dropped. When the event queue overflows
// the changed ids are unknown and onOverflow is called instead.
type Watcher struct {
	dir        string
	watcher    *fsnotify.Watcher
	onChange   func(id string)
	onOverflow func()
}

// NewWatcher watches dir, creating it if needed so overrides added later are
// seen. onOverflow may be nil.
func NewWatcher(dir string, onChange func(id string), onOverflow func()) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating overrides directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{dir: dir, watcher: w, onChange: onChange, onOverflow: onOverflow}, nil
}

// Run delivers change notifications until ctx is done. It always closes the
// underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	log := logging.With().Str("component", "overrides-watcher").Str("dir", w.dir).Logger()
	log.Debug().Msg("watching overrides")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := IDFromPath(event.Name)
			if !ok {
				continue
			}
			log.Debug().Str("id", id).Str("op", event.Op.String()).Msg("override changed")
			w.onChange(id)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.handleError(log, err)
		}
	}
}

func (w *Watcher) handleError(log zerolog.Logger, err error) {
	if !errors.Is(err, fsnotify.ErrEventOverflow) {
		log.Error().Err(err).Msg("watcher error")
		return
	}
	log.Warn().Msg("watcher overflow; dropping every cached definition")
	if w.onOverflow != nil {
		w.onOverflow()
	}
}
