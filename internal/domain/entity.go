// Package domain contains core business entities and interfaces.
// It imports nothing outside the standard library.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// WakeTimeLayout is the on-disk layout of WakeSchedule.NextWake (local time, second precision).
const WakeTimeLayout = "2006-01-02T15:04:05"

// ClockLayout is the layout of the human-facing alarm time label.
const ClockLayout = "15:04"

// PmsetTimeLayout is how the daemon records the event it handed to pmset
// (HelperState.LastScheduledWake).
const PmsetTimeLayout = "01/02/2006 15:04:05"

// wakeTimeInputLayouts are the layouts the helper daemon itself accepts.
var wakeTimeInputLayouts = []string{
	WakeTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// WakeSchedule is the record shared with the privileged helper daemon.
// It is always written wholesale; a cleared schedule is {nextWake:null, enabled:false}.
// Keys are camelCase because the daemon decodes them under those names.
type WakeSchedule struct {
	NextWake  *string `json:"nextWake"`
	Enabled   bool    `json:"enabled"`
	AlarmTime *string `json:"alarmTime"`
	Label     *string `json:"label"`
}

// NewWakeSchedule builds a schedule that satisfies the writer invariant
// enabled == (nextWake != nil).
func NewWakeSchedule(nextWake *time.Time, alarmTime, label *string) WakeSchedule {
	s := WakeSchedule{
		AlarmTime: alarmTime,
		Label:     label,
	}
	if nextWake != nil {
		formatted := FormatWakeTime(*nextWake)
		s.NextWake = &formatted
		s.Enabled = true
	}
	return s
}

// Armed reports whether the schedule describes a concrete pending wake.
// Readers must use this instead of Enabled alone: the daemon may clear one
// field after firing without touching the other.
func (s WakeSchedule) Armed() bool {
	return s.Enabled && s.NextWake != nil
}

// Consistent reports whether the writer invariant holds.
func (s WakeSchedule) Consistent() bool {
	return s.Enabled == (s.NextWake != nil)
}

// Equal compares two schedules field by field.
func (s WakeSchedule) Equal(other WakeSchedule) bool {
	return s.Enabled == other.Enabled &&
		equalOptional(s.NextWake, other.NextWake) &&
		equalOptional(s.AlarmTime, other.AlarmTime) &&
		equalOptional(s.Label, other.Label)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// FormatWakeTime renders t in local time using WakeTimeLayout.
func FormatWakeTime(t time.Time) string {
	return t.Local().Format(WakeTimeLayout)
}

// ParseWakeTime parses a local wake timestamp in any layout the daemon accepts.
func ParseWakeTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range wakeTimeInputLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized wake time %q", ErrInvalidSchedule, value)
}

// ParsePmsetTime parses a HelperState timestamp as local time.
func ParsePmsetTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(PmsetTimeLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized pmset time %q", ErrInvalidSchedule, value)
	}
	return t, nil
}

// ParseClock parses an "HH:MM" alarm time.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: alarm time must be HH:MM, got %q", ErrInvalidSchedule, value)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatClock renders hour and minute as "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// HelperState is the bookkeeping file the daemon keeps about the wake event
// it last handed to pmset. Read-only on this side.
type HelperState struct {
	LastScheduledWake *string `json:"lastScheduledWake"`
	LastScheduledType *string `json:"lastScheduledType"`
}

// HelperInstallationState is re-derived from disk and launchd on every call.
type HelperInstallationState struct {
	BinaryPresent     bool
	DescriptorPresent bool
	// DaemonRegistered is observed separately: present-but-unregistered is a
	// valid state (mid-install, or registration failed).
	DaemonRegistered bool
	// DescriptorLabel is the Label key of the installed plist, empty if unreadable.
	DescriptorLabel string
}

// Installed reports whether both the binary and the service descriptor are on disk.
func (s HelperInstallationState) Installed() bool {
	return s.BinaryPresent && s.DescriptorPresent
}

// HelperStatusSnapshot is the composite handed back to the caller.
type HelperStatusSnapshot struct {
	Installed         bool     `json:"installed"`
	DaemonLoaded      bool     `json:"daemon_loaded"`
	HasSchedule       bool     `json:"has_schedule"`
	NextWake          *string  `json:"next_wake"`
	LogTail           *string  `json:"log_tail"`
	LastScheduledWake *string  `json:"last_scheduled_wake"`
	Warnings          []string `json:"warnings,omitempty"`
}

// HelperAction identifies a privileged lifecycle operation.
type HelperAction string

const (
	ActionInstall   HelperAction = "install"
	ActionUninstall HelperAction = "uninstall"
)

// OutcomeKind is the three-way result of a privileged operation.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

// String returns a human-readable name for the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what an install or uninstall run ended with.
// Detail carries the script's stdout on success and its stderr on failure.
type Outcome struct {
	Action   HelperAction
	Kind     OutcomeKind
	ExitCode int
	Detail   string
}

// Err maps a non-successful outcome onto the error taxonomy.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSucceeded:
		return nil
	case OutcomeCancelled:
		return fmt.Errorf("%s: %w", o.Action, ErrUserCancelled)
	default:
		return &ScriptError{Action: o.Action, ExitCode: o.ExitCode, Stderr: o.Detail}
	}
}

// PrivilegedResult is the raw result of a script run with elevated rights.
type PrivilegedResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
