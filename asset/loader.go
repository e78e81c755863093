package asset

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/status"
)

// Provider is the asset source
// LoadAsync must complete f later, never before returning
// The category on the returned Asset decides which budget it is filed under;
// Request.Category stands in only when that category is out of range
type Provider interface {
	LoadAsync(req Request, f *Future)
	LoadSync(key string) (Asset, error)
}

// Registrar receives loaded assets, normally a *budget.Tracker
type Registrar interface {
	RegisterAsset(id string, c budget.Category, size int64, persistent bool, priority int) error
	MarkAccessed(id string) error
}

// Callback receives the outcome of a load
// On failure the asset is the placeholder and err is non-nil
type Callback func(a Asset, err error)

// Config parameterizes a Loader
type Config struct {
	// Timeout fails pending loads after this long, zero disables it
	Timeout time.Duration
	// Placeholder builds the substitute for a failed load, nil yields an empty placeholder
	Placeholder func(req Request) Asset
}

type pendingLoad struct {
	future *Future
	cb     Callback
}

// Loader tracks in-flight loads and settles them on Update
// Not safe for concurrent use, driven from the tick thread
type Loader struct {
	cfg       Config
	provider  Provider
	registrar Registrar
	clock     clock.Clock
	events    event.Emitter
	logger    *zap.Logger

	pending []pendingLoad

	statPending *atomic.Int64
	statLoaded  *atomic.Int64
	statFailed  *atomic.Int64
}

// NewLoader creates a loader; a nil registrar skips budget registration
func NewLoader(cfg Config, provider Provider, registrar Registrar, clk clock.Clock, events event.Emitter, reg *status.Registry, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	reg = status.OrNew(reg)
	return &Loader{
		cfg:       cfg,
		provider:  provider,
		registrar: registrar,
		clock:     clock.OrReal(clk),
		events:    event.OrDiscard(events),
		logger:    logger.With(zap.String("module", "asset")),

		statPending: reg.Ints.Get("asset.pending"),
		statLoaded:  reg.Ints.Get("asset.loaded_total"),
		statFailed:  reg.Ints.Get("asset.failed_total"),
	}
}

// Load starts an async load; cb runs on a later Update
func (l *Loader) Load(req Request, cb Callback) *Future {
	f := newFuture(req, l.clock.Now())
	l.pending = append(l.pending, pendingLoad{future: f, cb: cb})
	l.statPending.Store(int64(len(l.pending)))
	l.provider.LoadAsync(req, f)
	return f
}

// LoadSync loads immediately, substituting the placeholder on failure
func (l *Loader) LoadSync(req Request) (Asset, error) {
	id := uuid.NewString()
	start := l.clock.Now()
	a, err := l.provider.LoadSync(req.Key)
	if err != nil {
		l.failed(id, req, err, l.clock.Now().Sub(start))
		return l.placeholder(req), err
	}
	l.loaded(id, req, &a, l.clock.Now().Sub(start))
	return a, nil
}

// Update settles completed and expired loads, returns how many settled
func (l *Loader) Update() int {
	if len(l.pending) == 0 {
		return 0
	}
	now := l.clock.Now()
	settled := 0
	kept := l.pending[:0]

	for _, p := range l.pending {
		f := p.future
		if !f.Done() && l.cfg.Timeout > 0 && now.Sub(f.Started) >= l.cfg.Timeout {
			f.Fail(ErrLoadTimeout)
		}
		if !f.Done() {
			kept = append(kept, p)
			continue
		}
		settled++
		l.settle(p, now)
	}
	clear(l.pending[len(kept):])
	l.pending = kept
	l.statPending.Store(int64(len(l.pending)))
	return settled
}

// Pending returns the number of unsettled loads
func (l *Loader) Pending() int {
	return len(l.pending)
}

func (l *Loader) settle(p pendingLoad, now time.Time) {
	f := p.future
	elapsed := now.Sub(f.Started)

	switch f.State() {
	case StateCancelled:
		l.logger.Debug("load cancelled", zap.String("request", f.ID), zap.String("key", f.Request.Key))
		return
	case StateResolved:
		a, _ := f.Result()
		l.loaded(f.ID, f.Request, &a, elapsed)
		if p.cb != nil {
			p.cb(a, nil)
		}
	case StateFailed:
		_, err := f.Result()
		l.failed(f.ID, f.Request, err, elapsed)
		if p.cb != nil {
			p.cb(l.placeholder(f.Request), err)
		}
	}
}

func (l *Loader) loaded(id string, req Request, a *Asset, elapsed time.Duration) {
	if a.Key == "" {
		a.Key = req.Key
	}
	if a.Size == 0 {
		a.Size = int64(len(a.Data))
	}
	if !a.Category.Valid() {
		a.Category = req.Category
	}
	if l.registrar != nil {
		err := l.registrar.RegisterAsset(a.Key, a.Category, a.Size, req.Persistent, req.Priority)
		if errors.Is(err, budget.ErrDuplicateAsset) {
			err = l.registrar.MarkAccessed(a.Key)
		}
		if err != nil {
			l.logger.Warn("budget registration failed", zap.String("key", a.Key), zap.Error(err))
		}
	}
	l.statLoaded.Add(1)
	l.events.Push(event.Event{
		Type: event.EventAssetLoaded,
		Payload: &event.AssetLoadPayload{
			RequestID: id,
			Key:       a.Key,
			Category:  a.Category.String(),
			Size:      a.Size,
			Elapsed:   elapsed,
		},
	})
}

func (l *Loader) failed(id string, req Request, err error, elapsed time.Duration) {
	l.statFailed.Add(1)
	l.events.Push(event.Event{
		Type: event.EventAssetLoadFailed,
		Payload: &event.AssetLoadPayload{
			RequestID: id,
			Key:       req.Key,
			Category:  req.Category.String(),
			Elapsed:   elapsed,
			Error:     err.Error(),
		},
	})
	l.logger.Warn("asset load failed",
		zap.String("request", id),
		zap.String("key", req.Key),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
}

func (l *Loader) placeholder(req Request) Asset {
	if l.cfg.Placeholder != nil {
		a := l.cfg.Placeholder(req)
		a.Placeholder = true
		return a
	}
	return Asset{Key: req.Key, Category: req.Category, Placeholder: true}
}
