package utils

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the yyyy-mm-dd form used by the booking form and the store.
const DateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd string into a calendar date
func ParseDate(dateStr string) (civil.Date, error) {
	d, err := civil.ParseDate(dateStr)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd: %q", dateStr)
	}
	return d, nil
}

// Today returns the calendar date of now in loc. A nil loc means time.Local.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now.In(loc))
}

// DaysLeft returns whole calendar days from today until checkOut. It is
// negative once the check-out date has passed.
func DaysLeft(checkOut, today civil.Date) int {
	return checkOut.DaysSince(today)
}

// TimeLeftLabel renders the remaining stay. Zero and negative values both
// read "Due today"; there is no separate overdue label.
func TimeLeftLabel(daysLeft int) string {
	if daysLeft > 0 {
		return fmt.Sprintf("%d days", daysLeft)
	}
	return "Due today"
}

// IsUrgent marks stays ending within a day.
func IsUrgent(daysLeft int) bool {
	return daysLeft < 2
}
