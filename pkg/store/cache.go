package store

import "sync"

// listCache holds the last directory scan while a watcher keeps it honest.
// Every write performed by the Store and every watcher event bumps the
// generation, which drops the cached scan and rejects scans that started
// before the bump. A disabled cache never serves or stores anything.
type listCache struct {
	mu      sync.Mutex
	enabled bool
	gen     uint64
	valid   bool
	items   []Summary
}

func (c *listCache) setEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = on
	c.gen++
	c.valid = false
	c.items = nil
}

func (c *listCache) get() ([]Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || !c.valid {
		return nil, false
	}
	return cloneSummaries(c.items), true
}

func (c *listCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *listCache) put(gen uint64, items []Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || gen != c.gen {
		return
	}
	c.items = cloneSummaries(items)
	c.valid = true
}

func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.valid = false
	c.items = nil
}

func (s *Store) invalidate() { s.cache.invalidate() }
