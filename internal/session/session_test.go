package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/kickshop/internal/catalog"
	"finitefield.org/kickshop/internal/nav"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestFactory(t *testing.T, opts ...FactoryOption) *Factory {
	t.Helper()
	defs, err := catalog.DefaultDefinitions()
	require.NoError(t, err)
	f, err := NewFactory(defs, opts...)
	require.NoError(t, err)
	return f
}

func TestNewStateDefaults(t *testing.T) {
	t.Parallel()
	state, err := newTestFactory(t).New("s1", time.Now())
	require.NoError(t, err)
	require.Equal(t, 30, state.Catalog.Len())
	require.Equal(t, 3, state.Cart.Count())
	require.Equal(t, nav.Home, state.Router.Current())
	require.NoError(t, state.Router.Navigate(nav.Detail(29)))
}

func TestNewStateWithoutSeed(t *testing.T) {
	t.Parallel()
	state, err := newTestFactory(t, WithCartSeed(false)).New("s1", time.Now())
	require.NoError(t, err)
	require.True(t, state.Cart.IsEmpty())
}

func TestEnterHomeRegeneratesCatalog(t *testing.T) {
	t.Parallel()
	state, err := newTestFactory(t).New("s1", time.Now())
	require.NoError(t, err)
	before := state.Catalog
	require.NoError(t, state.EnterHome())
	require.NotSame(t, before, state.Catalog)
	require.Equal(t, before.Items(), state.Catalog.Items())
}

func TestDoIsolatesSessions(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(newTestFactory(t, WithCartSeed(false)))
	ctx := context.Background()

	require.NoError(t, store.Do(ctx, "a", func(s *State) error {
		item, err := s.Catalog.Lookup(3)
		require.NoError(t, err)
		return s.Cart.Add(item)
	}))
	require.NoError(t, store.Do(ctx, "b", func(s *State) error {
		require.True(t, s.Cart.IsEmpty())
		return nil
	}))
	require.NoError(t, store.Do(ctx, "a", func(s *State) error {
		require.Equal(t, 1, s.Cart.Count())
		return nil
	}))
	require.Equal(t, 2, store.Len())
}

func TestDoRejectsMissingID(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(newTestFactory(t))
	err := store.Do(context.Background(), " ", func(*State) error { return nil })
	require.ErrorIs(t, err, ErrMissingID)
}

func TestDoSerialisesPerSession(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(newTestFactory(t, WithCartSeed(false)))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Do(ctx, "shared", func(s *State) error {
				item, err := s.Catalog.Lookup(0)
				if err != nil {
					return err
				}
				return s.Cart.Add(item)
			})
		}()
	}
	wg.Wait()

	require.NoError(t, store.Do(ctx, "shared", func(s *State) error {
		require.Equal(t, 50, s.Cart.Count())
		return nil
	}))
}

func TestDoHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(newTestFactory(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Do(ctx, "a", func(*State) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(newTestFactory(t), WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Do(ctx, "old", func(*State) error { return nil }))
	clock.Advance(45 * time.Second)
	require.NoError(t, store.Do(ctx, "fresh", func(*State) error { return nil }))
	clock.Advance(30 * time.Second)

	removed, err := store.CleanupExpired(ctx, clock.Now(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, store.Len())
}

func TestExpiredStateIsReplaced(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(newTestFactory(t), WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Do(ctx, "a", func(s *State) error {
		s.Cart.Clear()
		return nil
	}))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Do(ctx, "a", func(s *State) error {
		require.Equal(t, 3, s.Cart.Count())
		return nil
	}))
}

func TestNewFactoryRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()
	_, err := NewFactory(catalog.Definitions{})
	require.Error(t, err)
}
