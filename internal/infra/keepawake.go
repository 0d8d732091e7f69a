package infra

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

const (
	caffeinatePath = "/usr/bin/caffeinate"
	caffeinateName = "caffeinate"

	// wakeScreenSeconds is how long the user-activity assertion is held.
	wakeScreenSeconds = 5
)

// Caffeinate implements domain.SleepAssertions with caffeinate(8).
// These are foreground helpers owned by the user session, unlike the
// privileged wake daemon.
type Caffeinate struct {
	runner CommandRunner
	pm     domain.ProcessManager
	logger *zap.Logger
}

// NewCaffeinate creates a keep-awake helper.
func NewCaffeinate(runner CommandRunner, pm domain.ProcessManager, logger *zap.Logger) *Caffeinate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caffeinate{
		runner: runner,
		pm:     pm,
		logger: logger,
	}
}

// PreventSleep keeps the display awake for the given number of minutes.
func (c *Caffeinate) PreventSleep(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("minutes must be positive, got %d", minutes)
	}
	seconds := strconv.Itoa(minutes * 60)
	if err := c.runner.Start(caffeinatePath, "-d", "-t", seconds); err != nil {
		c.logger.Error("failed to start caffeinate", zap.Error(err))
		return fmt.Errorf("failed to prevent sleep: %w", err)
	}
	c.logger.Info("sleep prevented", zap.Int("minutes", minutes))
	return nil
}

// WakeScreen asserts user activity briefly, which turns the display on.
func (c *Caffeinate) WakeScreen() error {
	if err := c.runner.Start(caffeinatePath, "-u", "-t", strconv.Itoa(wakeScreenSeconds)); err != nil {
		c.logger.Error("failed to wake screen", zap.Error(err))
		return fmt.Errorf("failed to wake screen: %w", err)
	}
	return nil
}

// Active returns PIDs of running caffeinate processes.
func (c *Caffeinate) Active() ([]int, error) {
	return c.pm.FindByName(caffeinateName)
}

// Release kills every running caffeinate process.
func (c *Caffeinate) Release() (int, error) {
	pids, err := c.Active()
	if err != nil {
		return 0, fmt.Errorf("failed to list caffeinate processes: %w", err)
	}

	released := 0
	var lastErr error
	for _, pid := range pids {
		if err := c.pm.Kill(pid); err != nil {
			c.logger.Warn("failed to kill caffeinate", zap.Int("pid", pid), zap.Error(err))
			lastErr = err
			continue
		}
		released++
	}
	return released, lastErr
}

// Ensure Caffeinate implements domain.SleepAssertions.
var _ domain.SleepAssertions = (*Caffeinate)(nil)
