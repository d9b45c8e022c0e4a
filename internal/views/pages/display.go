// Package pages renders the full HTML pages.
package pages

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// DefaultDash returns a dash when value is empty or whitespace.
func DefaultDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// formatDate renders a timestamp as day month year.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

// GreetingKey picks the translation key for the time of day.
func GreetingKey(hour int) string {
	switch {
	case hour < 12:
		return "goodMorning"
	case hour < 18:
		return "goodAfternoon"
	default:
		return "goodEvening"
	}
}

// html writes markup fragments in order. Strings are written as is and
// components are rendered; callers escape dynamic text with templ.EscapeString.
func html(parts ...any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, part := range parts {
			switch v := part.(type) {
			case nil:
			case string:
				if _, err := io.WriteString(w, v); err != nil {
					return err
				}
			case templ.Component:
				if err := v.Render(ctx, w); err != nil {
					return err
				}
			default:
				return fmt.Errorf("pages: unsupported fragment %T", part)
			}
		}
		return nil
	})
}

var e = templ.EscapeString[string]
