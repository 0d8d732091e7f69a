package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
)

// ResourceLocator returns the directory holding the bundled helper assets.
type ResourceLocator func() (string, error)

// HelperInstallerImpl implements domain.HelperInstaller.
// It only locates and runs the bundled scripts; copying the binary and
// registering the launchd job is entirely the scripts' business.
type HelperInstallerImpl struct {
	fs        afero.Fs
	resources ResourceLocator
	escalator domain.Escalator
	logger    *zap.Logger
}

// NewHelperInstaller creates a new installer.
func NewHelperInstaller(
	fs afero.Fs,
	resources ResourceLocator,
	escalator domain.Escalator,
	logger *zap.Logger,
) *HelperInstallerImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelperInstallerImpl{
		fs:        fs,
		resources: resources,
		escalator: escalator,
		logger:    logger,
	}
}

// Install runs the bundled install script with administrator rights.
func (i *HelperInstallerImpl) Install(ctx context.Context) (domain.Outcome, error) {
	return i.run(ctx, domain.ActionInstall, infra.InstallScriptName)
}

// Uninstall runs the bundled uninstall script with administrator rights.
func (i *HelperInstallerImpl) Uninstall(ctx context.Context) (domain.Outcome, error) {
	return i.run(ctx, domain.ActionUninstall, infra.UninstallScriptName)
}

func (i *HelperInstallerImpl) run(ctx context.Context, action domain.HelperAction, scriptName string) (domain.Outcome, error) {
	dir, err := i.resources()
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: cannot locate helper resources: %v", domain.ErrResourceNotFound, err)
	}

	// Fail before prompting: a missing script must never show a password dialog.
	script := filepath.Join(dir, scriptName)
	info, err := i.fs.Stat(script)
	if err != nil || info.IsDir() {
		i.logger.Warn("helper script missing",
			zap.String("action", string(action)),
			zap.String("script", script))
		return domain.Outcome{}, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, script)
	}

	i.logger.Info("running helper script",
		zap.String("action", string(action)),
		zap.String("script", script),
		zap.String("resources", dir))

	res, err := i.escalator.RunPrivileged(ctx, script, dir)
	if err != nil {
		i.logger.Error("privileged run failed",
			zap.String("action", string(action)),
			zap.Error(err))
		return domain.Outcome{}, err
	}

	outcome := ClassifyOutcome(action, res)
	i.logger.Info("helper script finished",
		zap.String("action", string(action)),
		zap.Stringer("outcome", outcome.Kind),
		zap.Int("exit_code", outcome.ExitCode))
	return outcome, nil
}

// ClassifyOutcome maps a privileged run onto succeeded / cancelled / failed.
func ClassifyOutcome(action domain.HelperAction, res domain.PrivilegedResult) domain.Outcome {
	outcome := domain.Outcome{Action: action, ExitCode: res.ExitCode}

	switch {
	case res.ExitCode == 0:
		outcome.Kind = domain.OutcomeSucceeded
		outcome.Detail = strings.TrimSpace(res.Stdout)
	case infra.IsCancellation(res.Stderr):
		outcome.Kind = domain.OutcomeCancelled
		outcome.Detail = strings.TrimSpace(res.Stderr)
	default:
		outcome.Kind = domain.OutcomeFailed
		outcome.Detail = strings.TrimSpace(res.Stderr)
		if outcome.Detail == "" {
			outcome.Detail = strings.TrimSpace(res.Stdout)
		}
	}
	return outcome
}

// Ensure HelperInstallerImpl implements domain.HelperInstaller.
var _ domain.HelperInstaller = (*HelperInstallerImpl)(nil)
