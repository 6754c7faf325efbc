// Package watch observes campaign audio directories and feeds newly arrived
// recordings to a handler, one at a time per file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/callsight-ai/callsight/internal/campaign"
	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	stabilizeInterval   = 500 * time.Millisecond
	stabilizeMaxElapsed = 2 * time.Minute
)

var errStillGrowing = errors.New("file size still changing")

// Handler processes one arrived recording. It is invoked from a per-file
// goroutine and must tolerate concurrent calls for different files.
type Handler func(ctx context.Context, item model.AudioItem)

type Watcher struct {
	campaignsDir string
	handler      Handler

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(campaignsDir string, handler Handler) (*Watcher, error) {
	if strings.TrimSpace(campaignsDir) == "" {
		return nil, errors.New("campaigns directory is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	return &Watcher{
		campaignsDir: campaignsDir,
		handler:      handler,
		inFlight:     map[string]bool{},
	}, nil
}

// Run watches every campaign's audios directory until the context is
// canceled. Recordings already present at startup are not picked up; batch
// mode covers those.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.NewLogger(ctx)

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer notifier.Close()

	names, err := campaign.List(w.campaignsDir)
	if err != nil {
		return err
	}
	watched := 0
	for _, name := range names {
		dir := campaign.AudioDir(w.campaignsDir, name)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := notifier.Add(dir); err != nil {
			return utils.WrapIfNotNil(fmt.Errorf("watch %s: %w", dir, err))
		}
		watched++
	}
	if watched == 0 {
		return utils.WrapIfNotNil(fmt.Errorf("%w: no campaign audio directories under %s", model.ErrInvalidInput, w.campaignsDir))
	}

	log.Infof("watch_started dir=%q campaigns=%d", w.campaignsDir, watched)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.dispatch(ctx, event.Name)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch_error error=%v", err)
		}
	}
}

// dispatch claims the path and hands it to the handler once it stops
// growing. Create and Write events for the same upload collapse into one
// run.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	log := logging.NewLogger(ctx)

	item, ok := w.itemFromPath(path)
	if !ok {
		return
	}

	w.mu.Lock()
	if w.inFlight[path] {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.mu.Unlock()

	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, path)
			w.mu.Unlock()
		}()

		if err := waitForStable(ctx, path); err != nil {
			log.Warnf("watch_skip file=%q error=%v", item.File, err)
			return
		}
		w.handler(ctx, item)
	}()
}

// itemFromPath maps campaigns/<name>/audios/<file> to an AudioItem; anything
// outside that shape or the audio allow-list is ignored.
func (w *Watcher) itemFromPath(path string) (model.AudioItem, bool) {
	rel, err := filepath.Rel(w.campaignsDir, path)
	if err != nil {
		return model.AudioItem{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[1] != "audios" {
		return model.AudioItem{}, false
	}
	if !campaign.IsAudioFile(parts[2]) {
		return model.AudioItem{}, false
	}

	return model.AudioItem{Campaign: parts[0], File: parts[2], Path: path}, true
}

// waitForStable polls the file size until two consecutive observations
// match. Uploads stream in over several write events; processing a
// half-written file would fail at the provider.
func waitForStable(ctx context.Context, path string) error {
	lastSize := int64(-1)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = stabilizeInterval
	policy.MaxElapsedTime = stabilizeMaxElapsed

	operation := func() error {
		info, err := os.Stat(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		if info.Size() != lastSize || info.Size() == 0 {
			lastSize = info.Size()
			return errStillGrowing
		}
		return nil
	}
	return utils.WrapIfNotNil(backoff.Retry(operation, backoff.WithContext(policy, ctx)))
}
