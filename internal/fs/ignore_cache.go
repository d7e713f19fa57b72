package fs

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codefionn/selenai/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// alwaysIgnored directories are skipped by search regardless of .gitignore.
var alwaysIgnored = map[string]bool{
	".git":     true,
	".selenai": true,
}

// IgnoreCache keeps parsed .gitignore files per workspace directory and
// drops an entry when fsnotify reports a change to that directory's
// .gitignore.
type IgnoreCache struct {
	fsys    FileSystem
	mu      sync.RWMutex
	rules   map[string]*ignoreRules
	watcher *fsnotify.Watcher
	watched map[string]bool
	stop    chan struct{}
	once    sync.Once
	log     *logger.Logger
}

// NewIgnoreCache creates a cache over fsys. A watcher failure only disables
// invalidation; lookups still work.
func NewIgnoreCache(fsys FileSystem) *IgnoreCache {
	c := &IgnoreCache{
		fsys:    fsys,
		rules:   make(map[string]*ignoreRules),
		watched: make(map[string]bool),
		stop:    make(chan struct{}),
		log:     logger.Global().WithPrefix("ignore"),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Warn("failed to create file watcher: %v", err)
		return c
	}
	c.watcher = watcher
	go c.watch()
	return c
}

// Close stops the watcher goroutine.
func (c *IgnoreCache) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		if c.watcher != nil {
			err = c.watcher.Close()
		}
	})
	return err
}

func (c *IgnoreCache) watch() {
	for {
		select {
		case <-c.stop:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != ".gitignore" {
				continue
			}
			c.invalidate(filepath.Dir(event.Name))
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error: %v", err)
		}
	}
}

func (c *IgnoreCache) invalidate(absDir string) {
	rel, err := filepath.Rel(c.fsys.Root(), absDir)
	if err != nil {
		return
	}
	key := filepath.ToSlash(rel)
	c.mu.Lock()
	delete(c.rules, key)
	c.mu.Unlock()
	c.log.Debug("invalidated .gitignore for %s", key)
}

// rulesFor returns the parsed .gitignore of dir (slash separated, relative
// to the root), loading it on first use.
func (c *IgnoreCache) rulesFor(ctx context.Context, dir string) *ignoreRules {
	c.mu.RLock()
	rules, ok := c.rules[dir]
	c.mu.RUnlock()
	if ok {
		return rules
	}

	data, err := c.fsys.ReadFile(ctx, path.Join(dir, ".gitignore"))
	if err != nil {
		rules = nil
	} else {
		rules = parseIgnoreRules(data)
	}

	c.mu.Lock()
	c.rules[dir] = rules
	if c.watcher != nil && !c.watched[dir] {
		if err := c.watcher.Add(filepath.Join(c.fsys.Root(), filepath.FromSlash(dir))); err == nil {
			c.watched[dir] = true
		}
	}
	c.mu.Unlock()
	return rules
}

// Ignored reports whether rel is excluded by the .gitignore chain from the
// root down to its parent directory. The closest .gitignore that has an
// opinion decides.
func (c *IgnoreCache) Ignored(ctx context.Context, rel string, isDir bool) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	if rel == "" || rel == "." {
		return false
	}
	if alwaysIgnored[path.Base(rel)] && isDir {
		return true
	}

	dirs := []string{"."}
	parent := path.Dir(rel)
	if parent != "." {
		parts := strings.Split(parent, "/")
		for i := range parts {
			dirs = append(dirs, strings.Join(parts[:i+1], "/"))
		}
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		sub := rel
		if dir != "." {
			sub = strings.TrimPrefix(rel, dir+"/")
		}
		if ignored, matched := c.rulesFor(ctx, dir).match(sub, isDir); matched {
			return ignored
		}
	}
	return false
}
