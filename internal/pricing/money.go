// Package pricing turns free-form listing price strings ("₹2.5 Cr", "₹45,000/month")
// into comparable amounts.
package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is the magnitude suffix written after a price.
type Unit string

const (
	UnitNone     Unit = ""
	UnitCrore    Unit = "crore"
	UnitLakh     Unit = "lakh"
	UnitThousand Unit = "thousand"
)

// Multiplier returns the factor a unit scales its number by.
func (u Unit) Multiplier() float64 {
	switch u {
	case UnitCrore:
		return 10_000_000
	case UnitLakh:
		return 100_000
	case UnitThousand:
		return 1_000
	default:
		return 1
	}
}

// Money is a parsed price. Amount is only meaningful when Valid is true.
type Money struct {
	Raw      string
	Amount   float64
	Unit     Unit
	Currency string
	Period   string
	Valid    bool
}

const number = `(?:\d[\d,]*(?:\.\d+)?|\.\d+)`

var (
	numberPattern = regexp.MustCompile(number)
	// Unit token must directly follow the number, optionally separated by spaces.
	unitPattern = regexp.MustCompile(`^\s*(crores?|cr|lakhs?|lacs?|l|thousand|k)\b`)
	// rangePattern matches the upper end of "1.5 - 2 cr", whose unit applies to both ends.
	rangePattern  = regexp.MustCompile(`^\s*(?:-|–|—|to\b)\s*(?:₹|rs\.?|inr)?\s*` + number)
	periodPattern = regexp.MustCompile(`(?:/|\bper\s+)(month|mo|year|yr|annum)\b`)
)

var unitTokens = map[string]Unit{
	"cr":       UnitCrore,
	"crore":    UnitCrore,
	"crores":   UnitCrore,
	"l":        UnitLakh,
	"lac":      UnitLakh,
	"lacs":     UnitLakh,
	"lakh":     UnitLakh,
	"lakhs":    UnitLakh,
	"k":        UnitThousand,
	"thousand": UnitThousand,
}

// Parse normalizes a display price. Strings without any digits yield an invalid Money.
func Parse(raw string) Money {
	m := Money{Raw: raw}
	price := strings.ToLower(strings.TrimSpace(raw))
	if price == "" {
		return m
	}

	loc := numberPattern.FindStringIndex(price)
	if loc == nil {
		return m
	}
	// "rs.50" is an abbreviation dot, not a decimal point.
	if price[loc[0]] == '.' && loc[0] > 0 && isLetter(price[loc[0]-1]) {
		loc[0]++
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(price[loc[0]:loc[1]], ",", ""), 64)
	if err != nil {
		return m
	}

	m.Unit = unitAfter(price[loc[1]:])

	m.Amount = math.Round(n*m.Unit.Multiplier()*100) / 100
	m.Currency = detectCurrency(price)
	m.Period = detectPeriod(price)
	m.Valid = true
	return m
}

// unitAfter reads the unit following a number. For a range whose lower end has no
// unit of its own, the upper end's unit is used.
func unitAfter(rest string) Unit {
	if tok := unitPattern.FindStringSubmatch(rest); tok != nil {
		return unitTokens[tok[1]]
	}
	if span := rangePattern.FindStringIndex(rest); span != nil {
		if tok := unitPattern.FindStringSubmatch(rest[span[1]:]); tok != nil {
			return unitTokens[tok[1]]
		}
	}
	return UnitNone
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// ExtractNumericPrice returns the scaled amount of a display price and false when the
// string holds no number.
func ExtractNumericPrice(raw string) (float64, bool) {
	m := Parse(raw)
	return m.Amount, m.Valid
}

// InRange reports whether the amount lies within the set bounds. A nil bound is open.
func (m Money) InRange(lo, hi *float64) bool {
	if lo != nil && m.Amount < *lo {
		return false
	}
	if hi != nil && m.Amount > *hi {
		return false
	}
	return true
}

func detectCurrency(price string) string {
	switch {
	case strings.Contains(price, "₹"), strings.HasPrefix(price, "rs"), strings.HasPrefix(price, "inr"):
		return "INR"
	case strings.Contains(price, "$"):
		return "USD"
	case strings.Contains(price, "€"):
		return "EUR"
	case strings.Contains(price, "£"):
		return "GBP"
	}
	return ""
}

func detectPeriod(price string) string {
	tok := periodPattern.FindStringSubmatch(price)
	if tok == nil {
		return ""
	}
	switch tok[1] {
	case "month", "mo":
		return "month"
	default:
		return "year"
	}
}
