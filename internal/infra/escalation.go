package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

const (
	osascriptPath = "/usr/bin/osascript"
	shellPath     = "/bin/sh"

	// DefaultEscalationTimeout bounds how long a privilege prompt may stay open.
	DefaultEscalationTimeout = 5 * time.Minute
)

// cancellationMarkers are what osascript prints when the user dismisses the
// administrator dialog ("execution error: User canceled. (-128)").
var cancellationMarkers = []string{
	"user canceled",
	"user cancelled",
	"(-128)",
}

// OsascriptEscalator implements domain.Escalator with the AppleScript
// "do shell script ... with administrator privileges" prompt.
type OsascriptEscalator struct {
	runner  CommandRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewOsascriptEscalator creates an escalator. A zero timeout uses DefaultEscalationTimeout.
func NewOsascriptEscalator(runner CommandRunner, timeout time.Duration, logger *zap.Logger) *OsascriptEscalator {
	if timeout <= 0 {
		timeout = DefaultEscalationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OsascriptEscalator{
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
}

// RunPrivileged runs `/bin/sh script args...` as root after the user authorizes it.
func (e *OsascriptEscalator) RunPrivileged(ctx context.Context, script string, args ...string) (domain.PrivilegedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	source := buildAdminScript(append([]string{shellPath, script}, args...))
	e.logger.Info("requesting administrator privileges", zap.String("script", script))

	res, err := e.runner.Run(ctx, osascriptPath, "-e", source)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.PrivilegedResult{}, fmt.Errorf("%w after %s", domain.ErrEscalationTimedOut, e.timeout)
		}
		return domain.PrivilegedResult{}, fmt.Errorf("%w: %v", domain.ErrEscalationUnavailable, err)
	}

	return domain.PrivilegedResult{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}, nil
}

// IsCancellation reports whether stderr carries the prompt's "user declined" signal.
func IsCancellation(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range cancellationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// buildAdminScript quotes argv for the shell, then for an AppleScript string literal.
func buildAdminScript(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	command := strings.Join(quoted, " ")
	return fmt.Sprintf(`do shell script "%s" with administrator privileges`, escapeAppleScript(command))
}

func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func escapeAppleScript(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"`, `\"`)
	return text
}

// Ensure OsascriptEscalator implements domain.Escalator.
var _ domain.Escalator = (*OsascriptEscalator)(nil)
