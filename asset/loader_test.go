package asset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/status"
)

type harness struct {
	clk      *clock.Mock
	sched    *clock.Scheduler
	queue    *event.Queue
	tracker  *budget.Tracker
	provider *MemoryProvider
	loader   *Loader
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	sched := clock.NewScheduler(clk)
	q := event.NewQueue()
	reg := status.NewRegistry()

	provider, err := NewMemoryProvider(context.Background(), sched, DefaultMemoryProviderConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	tracker := budget.New(budget.DefaultConfig(), clk, q, reg, nil)
	return &harness{
		clk:      clk,
		sched:    sched,
		queue:    q,
		tracker:  tracker,
		provider: provider,
		loader:   NewLoader(cfg, provider, tracker, clk, q, reg, nil),
	}
}

func (h *harness) tick(d time.Duration) int {
	h.clk.Advance(d)
	h.sched.Advance()
	return h.loader.Update()
}

type stalledProvider struct{}

func (stalledProvider) LoadAsync(Request, *Future)      {}
func (stalledProvider) LoadSync(string) (Asset, error) { return Asset{}, errors.New("offline") }

type uncategorizedProvider struct{}

func (uncategorizedProvider) LoadAsync(Request, *Future) {}
func (uncategorizedProvider) LoadSync(key string) (Asset, error) {
	return Asset{Key: key, Category: budget.Category(-1), Size: 128}, nil
}

func TestLoader_ProviderCategoryWins(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.provider.Put("tree.mesh", budget.CategoryMesh, make([]byte, 96)))

	a, err := h.loader.LoadSync(Request{Key: "tree.mesh", Category: budget.CategoryAudio})
	require.NoError(t, err)
	assert.Equal(t, budget.CategoryMesh, a.Category)
	assert.Equal(t, int64(96), h.tracker.Usage(budget.CategoryMesh))
	assert.Zero(t, h.tracker.Usage(budget.CategoryAudio))
}

func TestLoader_RequestCategoryFillsInvalidProviderCategory(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tracker := budget.New(budget.DefaultConfig(), clk, nil, nil, nil)
	l := NewLoader(Config{}, uncategorizedProvider{}, tracker, clk, nil, nil, nil)

	a, err := l.LoadSync(Request{Key: "wind.ogg", Category: budget.CategoryAudio})
	require.NoError(t, err)
	assert.Equal(t, budget.CategoryAudio, a.Category)
	assert.Equal(t, int64(128), tracker.Usage(budget.CategoryAudio))
	assert.Zero(t, tracker.Usage(budget.CategoryTexture))
}

func TestLoader_ResolvesOnLaterTick(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.provider.Put("rock.mesh", budget.CategoryMesh, make([]byte, 300)))

	var got Asset
	calls := 0
	f := h.loader.Load(Request{Key: "rock.mesh", Category: budget.CategoryMesh, Priority: 2}, func(a Asset, err error) {
		require.NoError(t, err)
		got = a
		calls++
	})
	assert.NotEmpty(t, f.ID)

	assert.Zero(t, h.tick(0), "not resolved before latency")
	assert.Zero(t, calls)
	assert.Equal(t, 1, h.loader.Pending())

	assert.Equal(t, 1, h.tick(50*time.Millisecond))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(300), got.Size)
	assert.Equal(t, budget.CategoryMesh, got.Category)
	assert.Zero(t, h.loader.Pending())

	a, ok := h.tracker.Lookup("rock.mesh")
	require.True(t, ok)
	assert.Equal(t, 2, a.Priority)
	assert.Equal(t, int64(300), h.tracker.Usage(budget.CategoryMesh))

	evs := h.queue.Consume()
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, event.EventAssetLoaded, last.Type)
	assert.Equal(t, f.ID, last.Payload.(*event.AssetLoadPayload).RequestID)
}

func TestLoader_FailureSubstitutesPlaceholder(t *testing.T) {
	h := newHarness(t, Config{
		Placeholder: func(req Request) Asset {
			return Asset{Key: "checker", Category: req.Category, Size: 16}
		},
	})

	var got Asset
	var gotErr error
	h.loader.Load(Request{Key: "missing.png", Category: budget.CategoryTexture}, func(a Asset, err error) {
		got, gotErr = a, err
	})
	h.tick(time.Second)

	assert.ErrorIs(t, gotErr, ErrNotFound)
	assert.True(t, got.Placeholder)
	assert.Equal(t, "checker", got.Key)
	assert.Zero(t, h.tracker.Len(), "placeholders are not budgeted")

	evs := h.queue.Consume()
	require.Len(t, evs, 1)
	assert.Equal(t, event.EventAssetLoadFailed, evs[0].Type)
}

func TestLoader_CancelledNeverCallsBack(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.provider.Put("a", budget.CategoryOther, []byte("x")))

	called := false
	f := h.loader.Load(Request{Key: "a"}, func(Asset, error) { called = true })
	assert.True(t, f.Cancel())

	assert.Equal(t, 1, h.tick(time.Second))
	assert.False(t, called)
	assert.Equal(t, StateCancelled, f.State())
	assert.Zero(t, h.tracker.Len())
}

func TestLoader_TimeoutFailsStalledLoads(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewLoader(Config{Timeout: time.Second}, stalledProvider{}, nil, clk, nil, nil, nil)

	var gotErr error
	l.Load(Request{Key: "slow"}, func(_ Asset, err error) { gotErr = err })

	clk.Advance(999 * time.Millisecond)
	assert.Zero(t, l.Update())

	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, l.Update())
	assert.ErrorIs(t, gotErr, ErrLoadTimeout)
}

func TestLoader_NoTimeoutByDefault(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewLoader(Config{}, stalledProvider{}, nil, clk, nil, nil, nil)
	l.Load(Request{Key: "slow"}, nil)

	clk.Advance(time.Hour)
	assert.Zero(t, l.Update())
	assert.Equal(t, 1, l.Pending())
}

func TestLoader_LoadSyncRegistersOnce(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.provider.Put("song", budget.CategoryAudio, make([]byte, 64)))

	a, err := h.loader.LoadSync(Request{Key: "song"})
	require.NoError(t, err)
	assert.Equal(t, int64(64), a.Size)

	_, err = h.loader.LoadSync(Request{Key: "song"})
	require.NoError(t, err)

	tracked, ok := h.tracker.Lookup("song")
	require.True(t, ok)
	assert.Equal(t, int64(1), tracked.AccessCount)
	assert.Equal(t, int64(64), h.tracker.Usage(budget.CategoryAudio))

	p, err := h.loader.LoadSync(Request{Key: "nope", Category: budget.CategoryMesh})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, p.Placeholder)
}

func TestFuture_FirstCompletionWins(t *testing.T) {
	f := newFuture(Request{Key: "k"}, time.Time{})
	assert.False(t, f.Done())

	assert.True(t, f.Resolve(Asset{Key: "k", Size: 1}))
	assert.False(t, f.Fail(errors.New("late")))
	assert.False(t, f.Cancel())

	a, err := f.Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), a.Size)
	assert.Equal(t, "resolved", f.State().String())
}

func TestMemoryProvider_DeleteAndLen(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.provider.Put("a", budget.CategoryTexture, []byte{1, 2}))
	assert.Equal(t, 1, h.provider.Len())

	require.NoError(t, h.provider.Delete("a"))
	require.NoError(t, h.provider.Delete("a"))
	assert.Zero(t, h.provider.Len())

	_, err := h.provider.LoadSync("a")
	assert.ErrorIs(t, err, ErrNotFound)
}
