// Package parse holds tolerant parsers for the locale-formatted cell values
// found in bookkeeping exports. None of them fail: unparsable input degrades
// to a documented default.
package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the standard German VAT rate in percent.
var DefaultTaxRate = decimal.NewFromInt(19)

var hundred = decimal.NewFromInt(100)

var currencyJunk = regexp.MustCompile(`[^0-9,.\-]`)

// dateLayouts are tried in order.
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.06",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// TaxRate reads a VAT rate such as "19", "19%", "19,0 %" or "0.19" and returns
// it in percent. Values below 1 are fractions. Unparsable input yields
// DefaultTaxRate.
func TaxRate(value any) decimal.Decimal {
	var rate decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		rate = v
	case float64:
		rate = decimal.NewFromFloat(v)
	case int:
		rate = decimal.NewFromInt(int64(v))
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, "%", ""))
		s = strings.ReplaceAll(s, ",", ".")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return DefaultTaxRate
		}
		rate = d
	default:
		return DefaultTaxRate
	}
	if rate.LessThan(decimal.NewFromInt(1)) {
		rate = rate.Mul(hundred)
	}
	return rate
}

// Date accepts a time.Time as-is or parses a string in one of the common
// German or ISO layouts. Parsed strings are returned as UTC midnight of the
// calendar date they name, including the ones carrying a time or an offset.
// The boolean is false when no valid date results.
func Date(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return midnight(t), true
			}
		}
	}
	return time.Time{}, false
}

// Day returns the calendar date of a stored booking or payment date as UTC
// midnight. Stored dates are UTC midnight instants; drivers may hand them
// back in the local zone, so the date is read in UTC.
func Day(t time.Time) time.Time {
	return midnight(t.UTC())
}

// Today returns the calendar date now falls on in its own location, as UTC
// midnight, so it compares directly with Day.
func Today(now time.Time) time.Time {
	return midnight(now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Currency reads an amount such as "1.234,56 €", "-59,50" or "1190.00".
// Everything but digits, separators and the minus sign is dropped. A decimal
// comma becomes a decimal point; when both separators occur the last one is
// the decimal separator and the other one groups thousands. Unparsable input
// yields zero, which callers cannot tell apart from a real zero.
func Currency(value any) decimal.Decimal {
	switch v := value.(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		return currencyFromString(v)
	}
	return decimal.Zero
}

func currencyFromString(v string) decimal.Decimal {
	s := currencyJunk.ReplaceAllString(v, "")
	if s == "" {
		return decimal.Zero
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
