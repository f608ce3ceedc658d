// Package scheduling turns the naive date, time and timezone label captured
// by the portal forms into the single instant that drives automatic publish.
package scheduling

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/content-review-api/internal/workflow"
)

const (
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04"
	timeSecondsLayout = "15:04:05"
)

// Schedule is a resolved publish time plus the label it was entered in
type Schedule struct {
	At       time.Time
	Timezone string
}

// LoadLocation resolves a timezone label; an empty label means UTC
func LoadLocation(label string) (*time.Location, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(label)
	if err != nil {
		return nil, &workflow.ValidationError{Field: "timezone", Message: "unknown timezone", Value: label}
	}
	return loc, nil
}

// Resolve combines datePart and timePart in timezoneLabel. A missing time
// resolves to the start of that day in the zone. The returned instant is in
// UTC; the label is only kept for redisplay.
func Resolve(datePart, timePart, timezoneLabel string) (time.Time, error) {
	datePart = strings.TrimSpace(datePart)
	timePart = strings.TrimSpace(timePart)
	if datePart == "" {
		return time.Time{}, workflow.NewValidationError("date", "date is required")
	}

	loc, err := LoadLocation(timezoneLabel)
	if err != nil {
		return time.Time{}, err
	}

	day, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return time.Time{}, &workflow.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD", Value: datePart}
	}

	var hour, minute, second int
	if timePart != "" {
		clock, err := time.Parse(timeLayout, timePart)
		if err != nil {
			clock, err = time.Parse(timeSecondsLayout, timePart)
		}
		if err != nil {
			return time.Time{}, &workflow.ValidationError{Field: "time", Message: "time must be HH:MM or HH:MM:SS", Value: timePart}
		}
		hour, minute, second = clock.Hour(), clock.Minute(), clock.Second()
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, loc)
	return at.UTC(), nil
}

// ValidateFuture rejects instants that are not strictly after now
func ValidateFuture(at, now time.Time) error {
	if !at.After(now) {
		return &workflow.ValidationError{Field: "scheduled_at", Message: "scheduled time must be in the future", Value: at.Format(time.RFC3339)}
	}
	return nil
}

// ResolveFuture is Resolve followed by ValidateFuture
func ResolveFuture(datePart, timePart, timezoneLabel string, now time.Time) (Schedule, error) {
	at, err := Resolve(datePart, timePart, timezoneLabel)
	if err != nil {
		return Schedule{}, err
	}
	if err := ValidateFuture(at, now); err != nil {
		return Schedule{}, err
	}
	return Schedule{At: at, Timezone: strings.TrimSpace(timezoneLabel)}, nil
}

// Display renders at in the stored label for redisplay; unknown labels fall
// back to UTC
func Display(at time.Time, timezoneLabel string) string {
	loc, err := LoadLocation(timezoneLabel)
	if err != nil {
		loc = time.UTC
	}
	return at.In(loc).Format("2006-01-02 15:04 MST")
}
