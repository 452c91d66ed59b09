// Package errors renders the errors of the entry engine for people and
// programs. It separates presentation from the domain packages: piece and
// port define the error types, this package turns them into text for the
// command line or JSON for the HTTP backend.
//
// Two formatters are provided:
//   - TextFormatter: one message per error, with the offending line or the
//     totals shown underneath when they are known
//   - JSONFormatter: structured objects carrying the field, row and details
package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// Flatten expands aggregated errors (such as *piece.ValidationErrors) into
// the errors they carry. Other errors are returned as a single element.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range multi.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// TextFormatter formats errors for command-line output.
type TextFormatter struct {
	codec  amount.Codec
	number string
	lines  []piece.Line
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithCodec sets how amounts are written.
func WithCodec(codec amount.Codec) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.codec = codec
	}
}

// WithPiece prefixes messages with the piece number and shows the offending
// line under line errors. lines must be in grid order.
func WithPiece(number string, lines []piece.Line) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.number = number
		tf.lines = lines
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{codec: amount.French}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

func (tf *TextFormatter) prefix(message string) string {
	if tf.number == "" {
		return message
	}
	return tf.number + ": " + message
}

// Format formats a single error.
func (tf *TextFormatter) Format(err error) string {
	var lineErr *piece.LineError
	var unbalanced *piece.UnbalancedError
	switch {
	case stdErrors.As(err, &lineErr):
		return tf.formatLine(lineErr)
	case stdErrors.As(err, &unbalanced):
		return tf.formatUnbalanced(unbalanced)
	}
	return tf.prefix(err.Error())
}

// FormatAll formats multiple errors, separating them with blank lines.
// Aggregates are flattened first.
func (tf *TextFormatter) FormatAll(errs []error) string {
	var flat []error
	for _, err := range errs {
		flat = append(flat, Flatten(err)...)
	}

	parts := make([]string, 0, len(flat))
	for _, err := range flat {
		parts = append(parts, strings.TrimRight(tf.Format(err), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func (tf *TextFormatter) formatLine(e *piece.LineError) string {
	message := tf.prefix(e.Error())
	if e.Row < 1 || e.Row > len(tf.lines) {
		return message
	}

	l := tf.lines[e.Row-1]
	var buf strings.Builder
	buf.WriteString(message)
	buf.WriteString("\n\n")
	fmt.Fprintf(&buf, "   %d | %s | %s | %s | %s",
		e.Row, orDash(l.Account), orDash(l.Label),
		tf.codec.FormatBlank(l.Debit), tf.codec.FormatBlank(l.Credit))
	if l.Counterparty != "" {
		fmt.Fprintf(&buf, " | %s", l.Counterparty)
	}
	buf.WriteByte('\n')

	// Point at the column the rule is about.
	column := e.Kind.Column()
	if column == piece.ColumnAccount || column == piece.ColumnLabel {
		offset := len(fmt.Sprintf("   %d | ", e.Row))
		if column == piece.ColumnLabel {
			offset += len([]rune(orDash(l.Account))) + 3
		}
		buf.WriteString(strings.Repeat(" ", offset))
		buf.WriteString("^\n")
	}
	return buf.String()
}

func (tf *TextFormatter) formatUnbalanced(e *piece.UnbalancedError) string {
	var buf strings.Builder
	buf.WriteString(tf.prefix("La pièce n'est pas équilibrée"))
	buf.WriteString("\n\n")
	fmt.Fprintf(&buf, "   Débit   %s\n", tf.codec.Format(e.Debit))
	fmt.Fprintf(&buf, "   Crédit  %s\n", tf.codec.Format(e.Credit))
	fmt.Fprintf(&buf, "   Écart   %s\n", tf.codec.Format(e.Residual()))
	return buf.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Row     int            `json:"row,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
// Aggregates are flattened first.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		for _, e := range Flatten(err) {
			result = append(result, jf.toJSON(e))
		}
	}
	return result
}

// toJSON converts an error to ErrorJSON.
func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    typeName(err),
		Message: err.Error(),
	}

	var field piece.FieldError
	if stdErrors.As(err, &field) {
		errJSON.Field = field.GetField()
		errJSON.Message = field.GetReason()
	}

	details := map[string]any{}
	var lineErr *piece.LineError
	var unbalanced *piece.UnbalancedError
	var rejection *port.BusinessRejection
	var transport *port.TransportError
	switch {
	case stdErrors.As(err, &lineErr):
		errJSON.Row = lineErr.GetRow()
		details["line"] = lineErr.LineID.String()
		details["kind"] = lineErr.Kind.String()
	case stdErrors.As(err, &unbalanced):
		details["debit"] = unbalanced.Debit.StringFixed(amount.Places)
		details["credit"] = unbalanced.Credit.StringFixed(amount.Places)
		details["difference"] = unbalanced.Residual().StringFixed(amount.Places)
		details["tolerance"] = unbalanced.Tolerance.String()
	case stdErrors.As(err, &rejection):
		errJSON.Message = rejection.Message
		details["op"] = rejection.GetOp()
	case stdErrors.As(err, &transport):
		details["op"] = transport.GetOp()
	}
	if len(details) > 0 {
		errJSON.Details = details
	}
	return errJSON
}

// typeName is a stable identifier for the error kind, independent of Go
// type names.
func typeName(err error) string {
	var lineErr *piece.LineError
	var unbalanced *piece.UnbalancedError
	var validation *piece.ValidationError
	var rejection *port.BusinessRejection
	var transport *port.TransportError
	switch {
	case stdErrors.As(err, &lineErr):
		return "line"
	case stdErrors.As(err, &unbalanced):
		return "unbalanced"
	case stdErrors.As(err, &validation):
		return "validation"
	case stdErrors.As(err, &rejection):
		return "rejected"
	case stdErrors.Is(err, port.ErrNotFound):
		return "not_found"
	case stdErrors.As(err, &transport):
		return "transport"
	}
	return "error"
}
