package cart

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"finitefield.org/kickshop/internal/domain"
)

// Order is the confirmation produced by Checkout. There is no payment step.
type Order struct {
	ID       string
	Lines    []Line
	Total    domain.Money
	Units    int
	PlacedAt time.Time
}

// Checkout snapshots the cart into an order and clears it. An empty cart fails
// with domain.ErrInvalidArgument and is left untouched.
func (s *Store) Checkout(now time.Time) (Order, error) {
	if s.IsEmpty() {
		return Order{}, fmt.Errorf("%w: cart is empty", domain.ErrInvalidArgument)
	}
	now = now.UTC()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Order{}, fmt.Errorf("cart: generate order id: %w", err)
	}
	order := Order{
		ID:       "ord_" + id.String(),
		Lines:    s.Lines(),
		Total:    s.Total(),
		Units:    s.Count(),
		PlacedAt: now,
	}
	s.Clear()
	return order, nil
}
