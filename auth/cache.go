package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// CachedTokens keeps the token file in memory and reloads it when the file
// changes on disk. Run must be started for reloads to happen.
type CachedTokens struct {
	path    string
	log     zerolog.Logger
	watcher *fsnotify.Watcher
	opts    options

	mu     sync.RWMutex
	tokens tokenSet
	exists bool
}

func NewCachedTokens(path string, log zerolog.Logger, opts ...Option) (*CachedTokens, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create token watcher: %w", err)
	}
	// Watch the directory: editors and AddToken replace or create the file,
	// which a watch on the file itself would miss.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch token directory: %w", err)
	}

	c := &CachedTokens{
		path:    path,
		log:     log.With().Str("component", "tokens").Logger(),
		watcher: watcher,
		opts:    newOptions(opts),
	}
	if err := c.reload(); err != nil {
		watcher.Close()
		return nil, err
	}
	return c, nil
}

func (c *CachedTokens) Verify(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.exists || !c.tokens.contains(token, c.opts.hashed) {
		return domain.ErrUnauthorized
	}
	return nil
}

// Run applies file changes until ctx is cancelled or the watcher closes.
func (c *CachedTokens) Run(ctx context.Context) {
	name := filepath.Base(c.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if err := c.reload(); err != nil {
				c.log.Error().Err(err).Msg("reload token file")
				continue
			}
			c.log.Debug().Str("op", ev.Op.String()).Msg("token file reloaded")
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn().Err(err).Msg("token watcher error")
		}
	}
}

func (c *CachedTokens) Close() error {
	return c.watcher.Close()
}

func (c *CachedTokens) reload() error {
	data, err := os.ReadFile(c.path)
	exists := true
	if errors.Is(err, os.ErrNotExist) {
		exists, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}

	tokens := parseTokens(data)

	c.mu.Lock()
	c.tokens = tokens
	c.exists = exists
	c.mu.Unlock()
	return nil
}
