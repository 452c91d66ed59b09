package piece

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldError is implemented by every validation error so presentation code can
// point at the offending field without knowing the concrete type.
type FieldError interface {
	error
	GetField() string
	GetReason() string
}

// ValidationError reports a piece-level rule violation (header fields, empty piece).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) GetField() string {
	return e.Field
}

func (e *ValidationError) GetReason() string {
	return e.Reason
}

// LineError reports one failed line rule. Row is 1-based in grid order.
type LineError struct {
	Row    int
	LineID uuid.UUID
	Kind   ErrorKind
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Row, e.Kind.Message())
}

// GetField returns the column the rule is about.
func (e *LineError) GetField() string {
	return e.Kind.Column().String()
}

func (e *LineError) GetReason() string {
	return e.Kind.Message()
}

func (e *LineError) GetRow() int {
	return e.Row
}

// UnbalancedError is returned when total debit and total credit differ by
// more than the tolerance.
type UnbalancedError struct {
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("balance: piece is not balanced (debit %s, credit %s, difference %s)",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2), e.Residual().StringFixed(2))
}

func (e *UnbalancedError) GetField() string {
	return "balance"
}

func (e *UnbalancedError) GetReason() string {
	return "piece is not balanced"
}

// Residual returns debit minus credit.
func (e *UnbalancedError) Residual() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

// ValidationErrors aggregates every rule violation found in one validation pass.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for errors.Is and errors.As.
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}
