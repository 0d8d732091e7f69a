package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
)

// Controller is the façade the caller talks to. Every method returns either
// a human-readable message or an error whose text is fit for display.
type Controller struct {
	supported bool
	store     domain.ScheduleStore
	installer domain.HelperInstaller
	inspector domain.StatusInspector
	sleep     domain.SleepAssertions
	clock     clock.Clock
	logger    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used by ScheduleWake.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithPlatformSupport overrides the platform capability check.
func WithPlatformSupport(supported bool) Option {
	return func(ctrl *Controller) {
		ctrl.supported = supported
	}
}

// WithSleepAssertions enables the keep-awake helpers.
func WithSleepAssertions(sleep domain.SleepAssertions) Option {
	return func(ctrl *Controller) {
		ctrl.sleep = sleep
	}
}

// NewController wires the façade. The platform capability is decided here,
// once, rather than in each operation.
func NewController(
	store domain.ScheduleStore,
	installer domain.HelperInstaller,
	inspector domain.StatusInspector,
	logger *zap.Logger,
	opts ...Option,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		supported: infra.PlatformSupported(),
		store:     store,
		installer: installer,
		inspector: inspector,
		clock:     clock.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supported reports whether this platform can run the helper.
func (c *Controller) Supported() bool {
	return c.supported
}

// IsInstalled reports whether the helper binary and descriptor are present.
func (c *Controller) IsInstalled() bool {
	if !c.supported {
		return false
	}
	return c.inspector.IsInstalled()
}

// Status returns the composite helper status.
func (c *Controller) Status(ctx context.Context) (domain.HelperStatusSnapshot, error) {
	if !c.supported {
		return domain.HelperStatusSnapshot{}, domain.ErrUnsupportedPlatform
	}
	return c.inspector.Status(ctx), nil
}

// Install installs the privileged helper.
func (c *Controller) Install(ctx context.Context) (string, error) {
	if !c.supported {
		return "", domain.ErrUnsupportedPlatform
	}
	outcome, err := c.installer.Install(ctx)
	return c.describeOutcome(outcome, err)
}

// Uninstall removes the privileged helper.
func (c *Controller) Uninstall(ctx context.Context) (string, error) {
	if !c.supported {
		return "", domain.ErrUnsupportedPlatform
	}
	outcome, err := c.installer.Uninstall(ctx)
	return c.describeOutcome(outcome, err)
}

func (c *Controller) describeOutcome(outcome domain.Outcome, err error) (string, error) {
	if err != nil {
		return "", err
	}

	switch outcome.Kind {
	case domain.OutcomeSucceeded:
		msg := "Wake helper installed"
		if outcome.Action == domain.ActionUninstall {
			msg = "Wake helper removed"
		}
		if outcome.Detail != "" {
			msg += ": " + outcome.Detail
		}
		return msg, nil
	case domain.OutcomeCancelled:
		c.logger.Info("administrator prompt declined", zap.String("action", string(outcome.Action)))
	default:
		c.logger.Warn("helper script failed",
			zap.String("action", string(outcome.Action)),
			zap.Int("exit_code", outcome.ExitCode),
			zap.String("stderr", outcome.Detail))
	}
	return "", outcome.Err()
}

// UpdateSchedule replaces the shared schedule. A nil nextWake clears it.
func (c *Controller) UpdateSchedule(nextWake *time.Time, alarmTime, label *string) (string, error) {
	if !c.supported {
		return "", domain.ErrUnsupportedPlatform
	}
	if alarmTime != nil {
		if _, _, err := domain.ParseClock(*alarmTime); err != nil {
			return "", err
		}
	}

	schedule := domain.NewWakeSchedule(nextWake, alarmTime, label)
	if err := c.store.Write(schedule); err != nil {
		c.logger.Error("failed to write wake schedule", zap.Error(err))
		return "", fmt.Errorf("could not save wake schedule: %w", err)
	}

	if !schedule.Armed() {
		c.logger.Info("wake schedule cleared")
		return "Wake schedule cleared", nil
	}

	if nextWake.Before(c.clock.Now()) {
		c.logger.Warn("wake time is already in the past; helper will ignore it",
			zap.String("next_wake", *schedule.NextWake))
	}
	c.logger.Info("wake schedule updated", zap.String("next_wake", *schedule.NextWake))
	return fmt.Sprintf("Wake schedule set for %s", *schedule.NextWake), nil
}

// ScheduleWake is the simplified path: wake at the next hour:minute, with the
// alarm time label derived from the target. Use UpdateSchedule for arbitrary
// metadata.
func (c *Controller) ScheduleWake(hour, minute int) (string, error) {
	if !c.supported {
		return "", domain.ErrUnsupportedPlatform
	}
	next, err := ComputeNextWake(hour, minute, c.clock.Now())
	if err != nil {
		return "", err
	}
	alarmTime := domain.FormatClock(hour, minute)
	return c.UpdateSchedule(&next, &alarmTime, nil)
}

// PreventSleep keeps the display awake for the given number of minutes.
func (c *Controller) PreventSleep(minutes int) (string, error) {
	if err := c.requireSleep(); err != nil {
		return "", err
	}
	if err := c.sleep.PreventSleep(minutes); err != nil {
		return "", err
	}
	return fmt.Sprintf("Sleep prevented for %d minutes", minutes), nil
}

// WakeScreen turns the display on.
func (c *Controller) WakeScreen() (string, error) {
	if err := c.requireSleep(); err != nil {
		return "", err
	}
	if err := c.sleep.WakeScreen(); err != nil {
		return "", err
	}
	return "Screen woken", nil
}

// ReleaseSleepAssertions stops every running keep-awake assertion.
func (c *Controller) ReleaseSleepAssertions() (string, error) {
	if err := c.requireSleep(); err != nil {
		return "", err
	}
	n, err := c.sleep.Release()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Released %d keep-awake assertion(s)", n), nil
}

// CanPreventSleep reports whether keep-awake is usable. It needs no special rights.
func (c *Controller) CanPreventSleep() bool {
	return c.supported && c.sleep != nil
}

func (c *Controller) requireSleep() error {
	if !c.supported {
		return domain.ErrUnsupportedPlatform
	}
	if c.sleep == nil {
		return errors.New("keep-awake is not configured")
	}
	return nil
}
