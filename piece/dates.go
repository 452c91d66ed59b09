package piece

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is how dates are displayed in the grid.
const DateLayout = "02/01/2006"

var dateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02-01-06",
	"2006-01-02",
	"2/1/2006",
}

// DateError is returned when a date cell cannot be read.
type DateError struct {
	Text string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q, expected DD/MM/YYYY", e.Text)
}

// ParseDate reads a day-first date. Empty text yields the zero time.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DateError{Text: text}
}

// FormatDate renders a date for the grid, empty for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Day truncates t to midnight UTC, the form piece dates are stored in.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
