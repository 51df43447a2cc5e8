package usecase

import (
	"fmt"
	"strings"
	"time"

	"NewsScanner/internal/domain"
)

// DateLayout is the dd-mm-yyyy form articles are stored with.
const DateLayout = "02-01-2006"

var sourceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15h04",
	"02/01/2006 15:04",
	"02/01/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// FormatDate converts a source date to dd-mm-yyyy. Values without an offset are read in loc.
// When no layout parses, the trimmed raw value is returned unchanged.
func FormatDate(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range sourceLayouts {
		parsed, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return parsed.Format(DateLayout)
		}
	}
	return raw
}

// WindowLayout is how --from and --to are written on the command line.
const WindowLayout = "2006-01-02"

// DateWindow expands the crawl window into one midnight per day, in loc.
// A non-zero year covers Jan 1 to Dec 31, stopping at today for the current year.
// Otherwise from and to are required and inclusive.
func DateWindow(year int, from, to string, now time.Time, loc *time.Location) ([]time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var start, end time.Time
	switch {
	case year > 0 && (from != "" || to != ""):
		return nil, fmt.Errorf("%w: use either a year or a from/to range", domain.ErrConfig)
	case year > 0:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, loc)
		if end.After(today) {
			end = today
		}
	case from != "" && to != "":
		var err error
		if start, err = time.ParseInLocation(WindowLayout, from, loc); err != nil {
			return nil, fmt.Errorf("%w: from date %q: %v", domain.ErrConfig, from, err)
		}
		if end, err = time.ParseInLocation(WindowLayout, to, loc); err != nil {
			return nil, fmt.Errorf("%w: to date %q: %v", domain.ErrConfig, to, err)
		}
	default:
		return nil, fmt.Errorf("%w: date window needs a year or both from and to", domain.ErrConfig)
	}

	if start.After(end) {
		return nil, fmt.Errorf("%w: date window starts after it ends", domain.ErrConfig)
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}
