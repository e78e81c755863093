package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/clock"
)

// MemoryProvider serves payloads from an in-process bigcache store
// Async loads resolve through the tick scheduler after a fixed latency
type MemoryProvider struct {
	cache   *bigcache.BigCache
	sched   *clock.Scheduler
	latency time.Duration
}

// MemoryProviderConfig sizes the backing cache
type MemoryProviderConfig struct {
	Latency      time.Duration
	Shards       int
	MaxEntrySize int
	LifeWindow   time.Duration
}

// DefaultMemoryProviderConfig is small enough for tests and the sandbox
func DefaultMemoryProviderConfig() MemoryProviderConfig {
	return MemoryProviderConfig{
		Latency:      50 * time.Millisecond,
		Shards:       16,
		MaxEntrySize: 4096,
		LifeWindow:   time.Hour,
	}
}

// NewMemoryProvider creates the store; sched drives async completion
func NewMemoryProvider(ctx context.Context, sched *clock.Scheduler, cfg MemoryProviderConfig) (*MemoryProvider, error) {
	if sched == nil {
		return nil, errors.New("memory provider requires a scheduler")
	}
	bc := bigcache.DefaultConfig(cfg.LifeWindow)
	bc.Shards = cfg.Shards
	bc.MaxEntrySize = cfg.MaxEntrySize
	bc.MaxEntriesInWindow = cfg.Shards * 64
	bc.CleanWindow = 0
	bc.Verbose = false

	cache, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}
	return &MemoryProvider{cache: cache, sched: sched, latency: max(cfg.Latency, 0)}, nil
}

// Put stores a payload under key; the first byte of the entry holds the category
func (p *MemoryProvider) Put(key string, c budget.Category, data []byte) error {
	entry := make([]byte, 1+len(data))
	entry[0] = byte(c)
	copy(entry[1:], data)
	return p.cache.Set(key, entry)
}

// Delete removes key from the store
func (p *MemoryProvider) Delete(key string) error {
	err := p.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len returns the number of stored payloads
func (p *MemoryProvider) Len() int {
	return p.cache.Len()
}

// LoadSync implements Provider
func (p *MemoryProvider) LoadSync(key string) (Asset, error) {
	entry, err := p.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("read %s: %w", key, err)
	}
	if len(entry) == 0 {
		return Asset{}, fmt.Errorf("read %s: empty entry", key)
	}
	c := budget.Category(entry[0])
	if !c.Valid() {
		c = budget.CategoryOther
	}
	data := entry[1:]
	return Asset{Key: key, Category: c, Size: int64(len(data)), Data: data}, nil
}

// LoadAsync implements Provider
func (p *MemoryProvider) LoadAsync(req Request, f *Future) {
	p.sched.After(p.latency, func() {
		a, err := p.LoadSync(req.Key)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Resolve(a)
	})
}

// Close releases the cache
func (p *MemoryProvider) Close() error {
	return p.cache.Close()
}
