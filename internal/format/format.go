// Package format renders values for display at the view boundary.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finitefield.org/kickshop/internal/domain"
)

// Amounts are always grouped with "," so prices read the same in every locale.
var grouping = message.NewPrinter(language.English)

// Money formats m with its currency symbol and grouped digits.
// Example: Money(domain.NewMoney(1200000, "IDR")) => "Rp 1,200,000"
func Money(m domain.Money) string {
	return FmtCurrency(m.Amount, m.Currency)
}

// FmtCurrency formats an amount in minor units.
func FmtCurrency(minor int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch currency {
	case "", "IDR":
		return "Rp " + Grouped(minor)
	case "JPY":
		return "¥" + Grouped(minor)
	case "USD":
		neg := minor < 0
		if neg {
			minor = -minor
		}
		out := "$" + Grouped(minor/100) + fmt.Sprintf(".%02d", minor%100)
		if neg {
			return "-" + out
		}
		return out
	default:
		return currency + " " + Grouped(minor)
	}
}

// Grouped renders n with thousands separators.
func Grouped(n int64) string {
	return grouping.Sprintf("%d", n)
}

// FmtDate formats t in a short locale-friendly form.
func FmtDate(t time.Time, lang string) string {
	switch strings.ToLower(lang) {
	case "id":
		return t.Format("02/01/2006 15:04")
	default:
		return t.Format("Jan 2, 2006 15:04")
	}
}
