package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatNumber renders a number without trailing zeros ("900", "10.5").
func FormatNumber(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// FormatOptionalNumber renders nil as an empty string.
func FormatOptionalNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatNumber(*v)
}

// FormatRupees renders an amount with thousand separators, e.g. "Rs 12,500.00".
func FormatRupees(amount float64) string {
	sign := ""
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "Rs " + groupThousands(whole) + "." + frac
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var out strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
