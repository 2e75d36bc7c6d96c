// Package cart holds the per-session shopping cart.
package cart

import (
	"fmt"
	"strings"

	"finitefield.org/kickshop/internal/domain"
)

// Line is one cart entry: an item snapshot and how many units of it are in the cart.
type Line struct {
	Item     domain.Item
	Quantity int
}

// Subtotal returns price times quantity.
func (l Line) Subtotal() domain.Money {
	return l.Item.Price.Times(l.Quantity)
}

// Store is an ordered list of lines keyed by item id. It is not safe for
// concurrent use; callers serialise access per session.
type Store struct {
	currency string
	lines    []Line
}

// NewStore creates an empty cart priced in currency.
func NewStore(currency string) *Store {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Store{currency: currency}
}

// NewSeededStore creates a cart pre-filled with one unit of each seed item.
func NewSeededStore(currency string, seed []domain.Item) (*Store, error) {
	s := NewStore(currency)
	for _, item := range seed {
		if err := s.Add(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Currency returns the cart currency.
func (s *Store) Currency() string { return s.currency }

// Add appends the item as a new line, or bumps the quantity of its existing line.
func (s *Store) Add(item domain.Item) error {
	if item.Price.Currency != "" && !strings.EqualFold(item.Price.Currency, s.currency) {
		return fmt.Errorf("%w: item %d priced in %s, cart uses %s", domain.ErrInvalidArgument, item.ID, item.Price.Currency, s.currency)
	}
	if idx := s.indexOf(item.ID); idx >= 0 {
		s.lines[idx].Quantity++
		return nil
	}
	s.lines = append(s.lines, Line{Item: item, Quantity: 1})
	return nil
}

// Remove takes one unit of the item out of the cart, dropping the line when it
// reaches zero. It reports whether anything was removed.
func (s *Store) Remove(id int) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.lines[idx].Quantity--
	if s.lines[idx].Quantity <= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	return true
}

// RemoveLine drops the whole line for id.
func (s *Store) RemoveLine(id int) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	return true
}

// Clear empties the cart.
func (s *Store) Clear() { s.lines = nil }

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line for id.
func (s *Store) Line(id int) (Line, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s.lines[idx], true
	}
	return Line{}, false
}

// Count returns the number of units across all lines.
func (s *Store) Count() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool { return len(s.lines) == 0 }

// Total sums every line. An empty cart totals zero.
func (s *Store) Total() domain.Money {
	total := domain.NewMoney(0, s.currency)
	for _, l := range s.lines {
		total.Amount += l.Subtotal().Amount
	}
	return total
}

func (s *Store) indexOf(id int) int {
	for i, l := range s.lines {
		if l.Item.ID == id {
			return i
		}
	}
	return -1
}
