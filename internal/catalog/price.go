package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// maxPrice is the largest accepted product price.
var maxPrice = decimal.RequireFromString("99999999.99")

var (
	errPriceEmpty       = errors.New("empty")
	errPriceUnparseable = errors.New("not a number")
	errPriceOutOfRange  = errors.New("out of range")
)

// ParsePrice turns merchant-entered price text into a decimal. Currency
// symbols and non-breaking spaces are stripped. When both comma and
// period appear, the rightmost one is the decimal separator and the other
// is a thousands separator. A lone comma is a decimal separator.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, junk := range []string{"R$", "r$", "$", "\u00a0"} {
		s = strings.ReplaceAll(s, junk, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Decimal{}, errPriceEmpty
	}

	comma := strings.LastIndex(s, ",")
	period := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && period >= 0:
		if comma > period {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errPriceUnparseable
	}
	if d.LessThanOrEqual(decimal.Zero) || d.GreaterThan(maxPrice) {
		return decimal.Decimal{}, errPriceOutOfRange
	}
	return d, nil
}
