package domain

import "context"

// ScheduleStore persists the WakeSchedule shared with the helper daemon.
// Implementation: pretty-printed JSON in the world-writable shared directory.
type ScheduleStore interface {
	// Write replaces the whole record. Permission relaxation failures are not errors.
	Write(schedule WakeSchedule) error

	// Read returns false when the file is missing or malformed.
	Read() (WakeSchedule, bool)

	// Path returns the schedule file path.
	Path() string
}

// Escalator runs a script with administrator rights behind the OS prompt.
type Escalator interface {
	// RunPrivileged returns an error only when the script could not be run at all
	// (ErrEscalationUnavailable, ErrEscalationTimedOut). A script that ran and
	// failed comes back as a PrivilegedResult with a non-zero ExitCode.
	RunPrivileged(ctx context.Context, script string, args ...string) (PrivilegedResult, error)
}

// ServiceRegistry queries launchd's live registry.
type ServiceRegistry interface {
	// IsRegistered reports whether a job with the given label is loaded.
	IsRegistered(ctx context.Context, label string) (bool, error)
}

// HelperInstaller drives the privileged install and uninstall scripts.
type HelperInstaller interface {
	Install(ctx context.Context) (Outcome, error)
	Uninstall(ctx context.Context) (Outcome, error)
}

// StatusInspector composes installation, registration, schedule and log state.
type StatusInspector interface {
	// Status never fails; unavailable sources degrade to safe defaults.
	Status(ctx context.Context) HelperStatusSnapshot

	// InstallationState re-derives the installation tuple.
	InstallationState(ctx context.Context) HelperInstallationState

	// IsInstalled checks the binary and descriptor only (no launchd query).
	IsInstalled() bool
}

// ProcessManager handles OS process lookup.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes whose name matches exactly.
	FindByName(name string) ([]int, error)

	// Kill terminates a process by PID.
	Kill(pid int) error
}

// SleepAssertions wraps the foreground keep-awake helper.
type SleepAssertions interface {
	// PreventSleep keeps the display awake for the given number of minutes.
	PreventSleep(minutes int) error

	// WakeScreen simulates user activity so the display turns on.
	WakeScreen() error

	// Active returns PIDs of running keep-awake assertions.
	Active() ([]int, error)

	// Release terminates every running keep-awake assertion and returns how many.
	Release() (int, error)
}
