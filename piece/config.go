package piece

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/amount"
)

// DefaultTolerance is the largest debit/credit difference a piece may carry
// and still count as balanced.
var DefaultTolerance = decimal.New(1, -amount.Places)

// Config holds the validation settings of a dossier.
type Config struct {
	// Tolerance is compared strictly: a difference greater than Tolerance is
	// unbalanced, a difference equal to it is accepted.
	Tolerance decimal.Decimal

	// CounterpartyPrefixes lists account prefixes that require a counterparty
	// on the line, typically 401, 411 and 421. Empty disables the rule.
	CounterpartyPrefixes []string

	Codec amount.Codec
}

// NewConfig returns the defaults used when a dossier does not override them.
func NewConfig() *Config {
	return &Config{
		Tolerance: DefaultTolerance,
		Codec:     amount.French,
	}
}

// ParseTolerance reads a tolerance option such as "0.01".
func ParseTolerance(text string) (decimal.Decimal, error) {
	tol, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tolerance %q: %w", text, err)
	}
	if tol.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid tolerance %q: must not be negative", text)
	}
	return tol, nil
}

func (c *Config) requiresCounterparty(account string) bool {
	for _, prefix := range c.CounterpartyPrefixes {
		if prefix != "" && strings.HasPrefix(account, prefix) {
			return true
		}
	}
	return false
}
