// Package filesystem discovers and watches documents under a local root directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// ErrConnectorClosed is returned when the connector has been closed.
var ErrConnectorClosed = errors.New("connector closed")

// ChangeType describes what happened to a watched file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a single filesystem event mapped to a source.
type Change struct {
	Type   ChangeType
	Source domain.Source
}

// Connector reads documents from a single root directory.
type Connector struct {
	rootPath string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a filesystem connector for rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Root returns the configured root directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Discover returns every non-hidden regular file under the root, sorted by
// document ID. Files with unsupported extensions are included with an empty
// MediaType so ingestion can report them. A missing root is created and
// yields no sources.
func (c *Connector) Discover(ctx context.Context) ([]domain.Source, error) {
	root, err := filepath.Abs(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("document root %s does not exist, creating it", root)
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create document root: %w", err)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("root path error: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("root path error: %s is not a directory", root)
	}

	var sources []domain.Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			// Unreadable entries are skipped rather than failing discovery.
			logger.Warn("skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		src, err := c.sourceFor(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

// Watch streams changes under the root until ctx is cancelled or the
// connector is closed. New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectorClosed
	}

	root, err := filepath.Abs(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan Change)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(filepath.Base(event.Name)) {
					if err := addRecursive(watcher, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a Change.
// Directories, hidden paths and attribute-only changes yield nil.
func (c *Connector) handleFsEvent(event fsnotify.Event) *Change {
	root, err := filepath.Abs(c.rootPath)
	if err != nil {
		return nil
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || isHidden(rel) {
		return nil
	}

	var changeType ChangeType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		changeType = ChangeDeleted
	case event.Has(fsnotify.Create):
		changeType = ChangeCreated
	case event.Has(fsnotify.Write):
		changeType = ChangeUpdated
	default:
		return nil
	}

	if changeType != ChangeDeleted {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
	}

	src, err := c.sourceFor(root, path)
	if err != nil {
		return nil
	}
	return &Change{Type: changeType, Source: src}
}

// Close stops any active watcher.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) sourceFor(root, path string) (domain.Source, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return domain.Source{}, fmt.Errorf("relative path for %s: %w", path, err)
	}
	mt, _ := domain.MediaTypeForPath(path)
	return domain.Source{
		ID:        filepath.ToSlash(rel),
		Path:      path,
		MediaType: mt,
	}, nil
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not considered hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Discover lists the sources under root. It matches driven.DiscoverFunc.
func Discover(ctx context.Context, root string) ([]domain.Source, error) {
	return New(root).Discover(ctx)
}
