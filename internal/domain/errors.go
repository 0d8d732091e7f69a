package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedPlatform is returned by every façade operation off macOS.
	ErrUnsupportedPlatform = errors.New("wake helper is only supported on macOS")

	// ErrResourceNotFound means a bundled helper asset is missing. No privileged
	// action has been attempted when this is returned.
	ErrResourceNotFound = errors.New("helper resource not found")

	// ErrEscalationUnavailable means the privilege prompt could not be invoked at all.
	ErrEscalationUnavailable = errors.New("privilege escalation unavailable")

	// ErrEscalationTimedOut means the privileged run did not finish in time.
	ErrEscalationTimedOut = errors.New("privilege escalation timed out")

	// ErrUserCancelled means the user declined the administrator prompt.
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrScriptFailed matches any *ScriptError.
	ErrScriptFailed = errors.New("helper script failed")

	// ErrInvalidSchedule rejects schedule input or records that break the invariants.
	ErrInvalidSchedule = errors.New("invalid wake schedule")
)

// ScriptError is returned when an install or uninstall script ran and exited non-zero.
type ScriptError struct {
	Action   HelperAction
	ExitCode int
	Stderr   string
}

func (e *ScriptError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s script failed (exit %d)", e.Action, e.ExitCode)
	}
	return fmt.Sprintf("%s script failed (exit %d): %s", e.Action, e.ExitCode, msg)
}

// Is lets errors.Is(err, ErrScriptFailed) match.
func (e *ScriptError) Is(target error) bool {
	return target == ErrScriptFailed
}

// FilesystemError wraps a failed schedule store operation.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
