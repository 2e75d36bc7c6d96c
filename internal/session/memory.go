package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 30 * time.Minute

// ErrMissingID is returned when Do is called without a session id.
var ErrMissingID = errors.New("session: missing id")

type entry struct {
	lock      chan struct{}
	state     *State
	expiresAt time.Time
	inUse     int
}

// MemoryStore keeps session state in process memory with a sliding TTL.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory *Factory
	ttl     time.Duration
	now     func() time.Time
}

// StoreOption customises a MemoryStore.
type StoreOption func(*MemoryStore)

// WithTTL sets the idle lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore constructs an empty store creating state through factory.
func NewMemoryStore(factory *Factory, opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		factory: factory,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do runs fn with exclusive access to the session's state, creating it on first
// use. Expired state is replaced with a fresh one.
func (s *MemoryStore) Do(ctx context.Context, id string, fn func(*State) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer s.release(e)

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.lock }()

	return fn(e.state)
}

func (s *MemoryStore) acquire(id string) (*entry, error) {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || (e.inUse == 0 && !now.Before(e.expiresAt)) {
		state, err := s.factory.New(id, now)
		if err != nil {
			return nil, err
		}
		e = &entry{lock: make(chan struct{}, 1), state: state}
		s.entries[id] = e
	}
	e.expiresAt = now.Add(s.ttl)
	e.inUse++
	return e, nil
}

func (s *MemoryStore) release(e *entry) {
	s.mu.Lock()
	e.inUse--
	s.mu.Unlock()
}

// Delete drops the session's state.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CleanupExpired removes up to limit idle sessions whose TTL has passed.
// A limit of zero or less removes all of them.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	removed := 0
	for id, e := range s.entries {
		if e.inUse > 0 || now.Before(e.expiresAt) {
			continue
		}
		delete(s.entries, id)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed, nil
}

// RunJanitor calls CleanupExpired every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CleanupExpired(ctx, s.now(), 0)
			if err != nil {
				logger.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired sessions removed", zap.Int("removed", removed), zap.Int("remaining", s.Len()))
			}
		}
	}
}
