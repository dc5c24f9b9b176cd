package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Subscribe streams full snapshots of the notes matching f until ctx is
// cancelled. The current state is delivered first; afterwards every burst of
// storage changes triggers a re-query and a fresh snapshot. A snapshot with
// Err set means the subscription failed and no further deliveries follow.
func (p *persistence) Subscribe(ctx context.Context, f Filter) (<-chan Snapshot, error) {
	if f.OwnerID == "" {
		return nil, errors.New("store: subscribe requires an owner id")
	}
	if p.basePath == "" {
		return nil, errors.New("store: persistence base path unknown")
	}

	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "store: watcher close: %v\n", err)
			}
		})
	}

	dirs, err := collectDirs(p.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: enumerate directories: %w", err)
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	snapshots := make(chan Snapshot, 16)

	go func() {
		defer close(snapshots)
		defer closeWatcher()

		// Track directories we already watch so we can add new ones at
		// runtime without duplicating watches.
		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(s Snapshot) bool {
			select {
			case snapshots <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		requery := func() bool {
			notes, err := p.List(ctx, f)
			if err != nil {
				send(Snapshot{Err: fmt.Errorf("store: requery: %w", err)})
				return false
			}
			return send(Snapshot{Notes: notes})
		}

		if !requery() {
			return
		}

		// Coalesce filesystem storms so consumers see one snapshot per
		// burst instead of one per written file.
		throttle := newChangeThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-throttle.C():
				if !requery() {
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				send(Snapshot{Err: fmt.Errorf("store: watcher: %w", err)})
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create == fsnotify.Create {
					// A new directory means a new bucket; watch it so
					// subsequent writes inside it are seen.
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						absDir := filepath.Clean(evt.Name)
						if _, found := watched[absDir]; !found {
							if err := watcher.Add(absDir); err != nil {
								fmt.Fprintf(os.Stderr, "store: watch %s: %v\n", absDir, err)
							} else {
								watched[absDir] = struct{}{}
							}
						}
					}
				}
				throttle.Bump()
			}
		}
	}()

	return snapshots, nil
}

// collectDirs walks base and returns all directories that should be watched.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// changeThrottle collapses rapid change notifications into a single tick
// after a quiet delay.
type changeThrottle struct {
	mu    sync.Mutex
	timer *time.Timer
	c     chan struct{}
	delay time.Duration
}

func newChangeThrottle(delay time.Duration) *changeThrottle {
	return &changeThrottle{
		delay: delay,
		c:     make(chan struct{}, 1),
	}
}

func (t *changeThrottle) C() <-chan struct{} {
	return t.c
}

func (t *changeThrottle) Bump() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		select {
		case t.c <- struct{}{}:
		default:
		}
	})
}

func (t *changeThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
