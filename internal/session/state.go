// Package session scopes the catalog, cart and navigation stack to one browser session.
package session

import (
	"fmt"
	"time"

	"finitefield.org/kickshop/internal/cart"
	"finitefield.org/kickshop/internal/catalog"
	"finitefield.org/kickshop/internal/domain"
	"finitefield.org/kickshop/internal/nav"
)

// State is everything one session owns. Access goes through MemoryStore.Do,
// which serialises callers per session.
type State struct {
	ID        string
	Catalog   *catalog.Catalog
	Cart      *cart.Store
	Router    *nav.Router
	LastOrder *cart.Order
	CreatedAt time.Time

	build func() (*catalog.Catalog, error)
}

// EnterHome regenerates the catalog, which happens every time the home view is entered.
func (s *State) EnterHome() error {
	c, err := s.build()
	if err != nil {
		return err
	}
	s.Catalog = c
	s.Router.SetItems(c)
	return nil
}

// Factory creates fresh session state from validated definitions.
type Factory struct {
	defs     catalog.Definitions
	seed     []domain.Item
	seedCart bool
	maxDepth int
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithCartSeed toggles pre-filling new carts with the definition seed items.
func WithCartSeed(enabled bool) FactoryOption {
	return func(f *Factory) { f.seedCart = enabled }
}

// WithMaxDepth bounds each session's navigation stack.
func WithMaxDepth(n int) FactoryOption {
	return func(f *Factory) { f.maxDepth = n }
}

// NewFactory validates defs once so later session creation cannot fail on configuration.
func NewFactory(defs catalog.Definitions, opts ...FactoryOption) (*Factory, error) {
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	seed, err := defs.SeedItems()
	if err != nil {
		return nil, err
	}
	f := &Factory{defs: defs, seed: seed, seedCart: true, maxDepth: nav.DefaultMaxDepth}
	for _, opt := range opts {
		opt(f)
	}
	if _, err := catalog.Build(defs); err != nil {
		return nil, err
	}
	return f, nil
}

// Definitions returns the definitions the factory builds from.
func (f *Factory) Definitions() catalog.Definitions { return f.defs }

// New builds the state for a new session.
func (f *Factory) New(id string, now time.Time) (*State, error) {
	c, err := catalog.Build(f.defs)
	if err != nil {
		return nil, err
	}
	store := cart.NewStore(f.defs.Currency)
	if f.seedCart {
		store, err = cart.NewSeededStore(f.defs.Currency, f.seed)
		if err != nil {
			return nil, fmt.Errorf("session: seed cart: %w", err)
		}
	}
	return &State{
		ID:        id,
		Catalog:   c,
		Cart:      store,
		Router:    nav.NewRouter(nav.WithItems(c), nav.WithMaxDepth(f.maxDepth)),
		CreatedAt: now.UTC(),
		build:     func() (*catalog.Catalog, error) { return catalog.Build(f.defs) },
	}, nil
}
