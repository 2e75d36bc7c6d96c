package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"Rp 500,000":   500000,
		"Rp 50000":     50000,
		"Rp 1.200.000": 1200000,
		"IDR 75000":    75000,
		"  Rp 0 ":      0,
	}
	for raw, want := range cases {
		got, err := ParseMoney(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got.Amount, raw)
		require.Equal(t, "IDR", got.Currency, raw)
	}
}

func TestParseMoneyRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "500,000", "Rp", "Rp 5a0", "$ 12", "Rp -20"} {
		_, err := ParseMoney(raw)
		require.Error(t, err, raw)
		require.True(t, errors.Is(err, ErrParse), "expected ErrParse for %q, got %v", raw, err)
	}
}

func TestMoneyStringIsCanonicalShortForm(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Rp 50000", NewMoney(50000, "").String())
	require.Equal(t, "Rp 750000", NewMoney(750000, "idr").String())
}

func TestMoneyAddRejectsCurrencyMismatch(t *testing.T) {
	t.Parallel()

	_, err := NewMoney(1, "IDR").Add(NewMoney(1, "JPY"))
	require.ErrorIs(t, err, ErrInvalidArgument)

	sum, err := Money{}.Add(NewMoney(5, "IDR"))
	require.NoError(t, err)
	require.Equal(t, NewMoney(5, "IDR"), sum)
}
