package daemon

import (
	"sync"

	"github.com/statuskit/statusd/internal/config"
)

// configState holds the currently active configuration behind a lock, so the
// check loop, the API layer and the file watcher can share it safely.
type configState struct {
	mu  sync.RWMutex
	cfg config.Modifier
}

func newConfigState() *configState {
	return &configState{}
}

func (c *configState) replace(cfg config.Modifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

func (c *configState) entries() []config.ServerEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return nil
	}
	return c.cfg.ListServers()
}

func (c *configState) get(name string) (config.ServerEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return config.ServerEntry{}, false
	}
	return c.cfg.GetServer(name)
}

func (c *configState) upsert(entry config.ServerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return config.ErrConfigLoadFailed
	}
	return c.cfg.UpsertServer(entry)
}
