package usecase

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
)

// StatusInspectorImpl implements domain.StatusInspector.
// Every source is optional: a missing file or a failed launchctl call turns
// into a safe default in the snapshot, never into an error.
type StatusInspectorImpl struct {
	fs       afero.Fs
	paths    infra.Paths
	store    domain.ScheduleStore
	registry domain.ServiceRegistry
	logger   *zap.Logger
}

// NewStatusInspector creates a new status inspector.
func NewStatusInspector(
	fs afero.Fs,
	paths infra.Paths,
	store domain.ScheduleStore,
	registry domain.ServiceRegistry,
	logger *zap.Logger,
) *StatusInspectorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusInspectorImpl{
		fs:       fs,
		paths:    paths,
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// IsInstalled checks that both the binary and the plist exist.
func (s *StatusInspectorImpl) IsInstalled() bool {
	return s.exists(s.paths.BinaryPath) && s.exists(s.paths.PlistPath)
}

// InstallationState re-derives the installation tuple from disk and launchd.
func (s *StatusInspectorImpl) InstallationState(ctx context.Context) domain.HelperInstallationState {
	state := domain.HelperInstallationState{
		BinaryPresent:     s.exists(s.paths.BinaryPath),
		DescriptorPresent: s.exists(s.paths.PlistPath),
	}

	if state.DescriptorPresent {
		if desc, err := infra.ReadServiceDescriptor(s.fs, s.paths.PlistPath); err == nil {
			state.DescriptorLabel = desc.Label
		} else {
			s.logger.Debug("service descriptor unreadable", zap.Error(err))
		}
	}

	registered, err := s.registry.IsRegistered(ctx, s.paths.Label)
	if err != nil {
		s.logger.Debug("launchd query failed", zap.String("label", s.paths.Label), zap.Error(err))
		registered = false
	}
	state.DaemonRegistered = registered
	return state
}

// Status builds the snapshot shown to the user.
func (s *StatusInspectorImpl) Status(ctx context.Context) domain.HelperStatusSnapshot {
	install := s.InstallationState(ctx)

	snapshot := domain.HelperStatusSnapshot{
		Installed:    install.Installed(),
		DaemonLoaded: install.DaemonRegistered,
	}

	schedule, haveSchedule := s.store.Read()
	if haveSchedule && schedule.Armed() {
		snapshot.HasSchedule = true
		snapshot.NextWake = schedule.NextWake
	}

	if tail, ok := infra.TailLines(s.fs, s.paths.LogPath, infra.LogTailLines); ok {
		snapshot.LogTail = &tail
	}

	if state, ok := infra.ReadHelperState(s.fs, s.paths.StatePath); ok {
		snapshot.LastScheduledWake = state.LastScheduledWake
	}

	if warnings := s.consistencyWarnings(install, schedule, haveSchedule); warnings != nil {
		for _, w := range warnings.Errors {
			snapshot.Warnings = append(snapshot.Warnings, w.Error())
		}
	}
	return snapshot
}

// consistencyWarnings collects states that are valid but worth telling the user about.
func (s *StatusInspectorImpl) consistencyWarnings(
	install domain.HelperInstallationState,
	schedule domain.WakeSchedule,
	haveSchedule bool,
) *multierror.Error {
	var warnings *multierror.Error

	if install.Installed() && !install.DaemonRegistered {
		warnings = multierror.Append(warnings, fmt.Errorf("helper is installed but not registered with launchd"))
	}
	if install.BinaryPresent != install.DescriptorPresent {
		warnings = multierror.Append(warnings, fmt.Errorf("helper installation is incomplete (binary: %t, descriptor: %t)",
			install.BinaryPresent, install.DescriptorPresent))
	}
	if install.DescriptorLabel != "" && install.DescriptorLabel != s.paths.Label {
		warnings = multierror.Append(warnings, fmt.Errorf("service descriptor label %q does not match %q",
			install.DescriptorLabel, s.paths.Label))
	}
	if haveSchedule && schedule.Armed() && !install.Installed() {
		warnings = multierror.Append(warnings, fmt.Errorf("a wake is scheduled but the helper is not installed"))
	}
	return warnings
}

func (s *StatusInspectorImpl) exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

// Ensure StatusInspectorImpl implements domain.StatusInspector.
var _ domain.StatusInspector = (*StatusInspectorImpl)(nil)
