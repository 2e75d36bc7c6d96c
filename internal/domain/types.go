package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultCurrency is the ISO 4217 code used when a price carries no explicit currency.
const DefaultCurrency = "IDR"

// Item is a single catalog product. Items are values; once generated they are never mutated.
type Item struct {
	ID          int
	Section     string
	Title       string
	Price       Money
	Description string
	// Detail holds the long-form markdown description shown on the product page.
	Detail   string
	ImageRef string
}

// Money is an amount in the currency's smallest unit plus its ISO 4217 code.
type Money struct {
	Amount   int64
	Currency string
}

// NewMoney builds a Money value, defaulting the currency when blank.
func NewMoney(amount int64, currency string) Money {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// Zero reports whether the amount is zero.
func (m Money) Zero() bool { return m.Amount == 0 }

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != "" && other.Currency != "" && !strings.EqualFold(m.Currency, other.Currency) {
		return Money{}, fmt.Errorf("%w: currency mismatch %s/%s", ErrInvalidArgument, m.Currency, other.Currency)
	}
	currency := m.Currency
	if currency == "" {
		currency = other.Currency
	}
	return Money{Amount: m.Amount + other.Amount, Currency: currency}, nil
}

// Times multiplies the amount by n.
func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}

// String renders the canonical short form, e.g. "Rp 50000".
func (m Money) String() string {
	return CurrencySymbol(m.Currency) + " " + strconv.FormatInt(m.Amount, 10)
}

// CurrencySymbol returns the display prefix for a currency code.
func CurrencySymbol(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "", "IDR":
		return "Rp"
	case "JPY":
		return "¥"
	case "USD":
		return "$"
	default:
		return strings.ToUpper(currency)
	}
}

// ParseMoney converts a formatted price such as "Rp 500,000" into Money.
// Thousands separators ("," and ".") are stripped; anything else fails with ErrParse.
func ParseMoney(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty price", ErrParse)
	}
	currency := ""
	switch {
	case strings.HasPrefix(s, "Rp"):
		currency = "IDR"
		s = strings.TrimPrefix(s, "Rp")
	case strings.HasPrefix(strings.ToUpper(s), "IDR"):
		currency = "IDR"
		s = s[3:]
	default:
		return Money{}, fmt.Errorf("%w: unknown currency prefix in %q", ErrParse, raw)
	}
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: missing amount in %q", ErrParse, raw)
	}
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil || amount < 0 {
		return Money{}, fmt.Errorf("%w: invalid amount in %q", ErrParse, raw)
	}
	return Money{Amount: amount, Currency: currency}, nil
}
