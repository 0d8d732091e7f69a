// Package usecase contains application business logic.
package usecase

import (
	"fmt"
	"time"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// ComputeNextWake returns the next local hour:minute:00 strictly after now.
// now is converted to time.Local first, the zone the daemon reads nextWake in.
// A target equal to now counts as already passed. Rolling over adds one
// calendar day, keeping the wall-clock time.
func ComputeNextWake(hour, minute int, now time.Time) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: hour %d out of range 0-23", domain.ErrInvalidSchedule, hour)
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: minute %d out of range 0-59", domain.ErrInvalidSchedule, minute)
	}

	now = now.In(time.Local)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.Local)
	if !candidate.After(now) {
		candidate = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, time.Local)
	}
	return candidate, nil
}

// RelativeLabel renders t relative to now ("in 7h", "3m ago").
func RelativeLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.After(now) {
		return "in " + coarse(t.Sub(now), "<1m")
	}
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	return coarse(d, "") + " ago"
}

func coarse(d time.Duration, underMinute string) string {
	switch {
	case d < time.Minute:
		return underMinute
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
