// Package amount converts monetary amounts between their displayed form and
// decimal values.
//
// The displayed form uses a decimal comma and groups integer digits by three
// with a space:
//
//	amount.Format(decimal.RequireFromString("1234.56")) // "1 234,56"
//	amount.Parse("1 234,56")                            // 1234.56
//
// Parsing is lenient: anything that cannot be read as a number becomes zero.
package amount

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits amounts are displayed with.
const Places = 2

// Codec holds the separators used to display amounts.
type Codec struct {
	Decimal rune
	Group   rune
}

// French is the default convention: "1 234,56".
var French = Codec{Decimal: ',', Group: ' '}

// Parse reads a displayed amount with the French convention.
func Parse(text string) decimal.Decimal {
	return French.Parse(text)
}

// Format displays an amount with the French convention.
func Format(value decimal.Decimal) string {
	return French.Format(value)
}

// Parse reads text as a decimal value. Whitespace of any kind (including
// non-breaking spaces) and group separators are removed, the decimal
// separator is normalised to a point, and the result is read as a decimal.
// Unreadable input yields zero.
func (c Codec) Parse(text string) decimal.Decimal {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == c.Group && c.Group != c.Decimal:
			continue
		case r == c.Decimal:
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}

	normalized := b.String()
	if normalized == "" || strings.Count(normalized, ".") > 1 {
		return decimal.Zero
	}
	// decimal.NewFromString accepts exponents, which a displayed amount never has.
	if strings.ContainsAny(normalized, "eE") {
		return decimal.Zero
	}

	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// Format renders value rounded to two places, with grouped integer digits.
func (c Codec) Format(value decimal.Decimal) string {
	fixed := value.StringFixed(Places)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative && (strings.Trim(intPart, "0") != "" || strings.Trim(fracPart, "0") != "") {
		b.WriteByte('-')
	}
	b.WriteString(group(intPart, c.Group))
	b.WriteRune(c.Decimal)
	b.WriteString(fracPart)
	return b.String()
}

// FormatBlank renders value like Format but returns an empty string for zero,
// which is how empty debit and credit cells are displayed.
func (c Codec) FormatBlank(value decimal.Decimal) string {
	if value.IsZero() {
		return ""
	}
	return c.Format(value)
}

func group(digits string, sep rune) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteRune(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Round rounds value to the displayed precision.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(Places)
}

// Exceeds reports whether the absolute difference between a and b is strictly
// greater than tolerance.
func Exceeds(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(tolerance)
}
