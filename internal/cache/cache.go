package cache

import (
	"context"
	"sync"
	"time"

	"github.com/illarion/lockmark/internal/logger"
)

// SweepInterval is how often the background sweep runs
const SweepInterval = time.Minute

// Config holds the host-provided cache settings
type Config struct {
	Active         bool
	TimeoutMinutes int // 0 disables expiry
	Scope          Scope
}

type entry struct {
	password  string
	hint      string
	timestamp time.Time
}

// Cache is an expiring, scope-keyed store of passwords. Lookups never
// fail: a missing entry and an expired one both read as "".
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]entry
	roots   []string
	now     func() time.Time
	log     *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Cache
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for sweep and purge events
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithRoots sets the project roots used by ScopeFolder
func WithRoots(roots ...string) Option {
	return func(c *Cache) { c.roots = append([]string(nil), roots...) }
}

// New creates a cache. The sweep is not running until Start is called.
func New(cfg Config, opts ...Option) *Cache {
	if cfg.TimeoutMinutes < 0 {
		cfg.TimeoutMinutes = 0
	}
	c := &Cache{
		cfg:     cfg,
		entries: make(map[string]entry),
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure changes activity, timeout and scope. Deactivating purges
// every entry immediately.
func (c *Cache) Configure(active bool, timeoutMinutes int, scope Scope) {
	if timeoutMinutes < 0 {
		timeoutMinutes = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := c.cfg.Active
	c.cfg = Config{Active: active, TimeoutMinutes: timeoutMinutes, Scope: scope}
	if wasActive && !active {
		n := len(c.entries)
		clear(c.entries)
		c.log.Debug().Int("removed", n).Msg("cache deactivated")
	}
}

// Settings returns the current configuration
func (c *Cache) Settings() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Put stores password and hint for the scope of filePath
func (c *Cache) Put(password, hint, filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Active {
		return
	}
	c.entries[c.key(filePath)] = entry{
		password:  password,
		hint:      hint,
		timestamp: c.now(),
	}
}

// Get returns the cached password and hint for filePath, or empty
// strings when there is none
func (c *Cache) Get(filePath string) (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(c.key(filePath))
	if !ok {
		return "", ""
	}
	return e.password, e.hint
}

// Has reports whether a live entry exists for filePath
func (c *Cache) Has(filePath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(c.key(filePath))
	return ok
}

// ClearForFile removes the entry covering filePath
func (c *Cache) ClearForFile(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, c.key(filePath))
}

// Clear removes every entry and returns how many there were
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	clear(c.entries)
	return n
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts expired entries and returns how many were removed
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.TimeoutMinutes == 0 {
		return 0
	}

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("expired passwords evicted")
	}
	return removed
}

// Start launches the background sweep. It stops when ctx is cancelled
// or Stop is called. Calling Start again restarts the sweep.
func (c *Cache) Start(ctx context.Context) {
	c.Stop()

	c.mu.Lock()
	sweepCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		t := time.NewTicker(SweepInterval)
		defer t.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit. Safe to
// call when the sweep is not running.
func (c *Cache) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// key must be called with c.mu held
func (c *Cache) key(filePath string) string {
	return ScopeKey(c.cfg.Scope, filePath, c.roots)
}

// lookup must be called with c.mu held. Expired entries are deleted.
func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

func (c *Cache) expired(e entry, now time.Time) bool {
	if c.cfg.TimeoutMinutes == 0 {
		return false
	}
	return now.Sub(e.timestamp) >= time.Duration(c.cfg.TimeoutMinutes)*time.Minute
}
