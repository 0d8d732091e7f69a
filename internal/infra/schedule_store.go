package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// FileScheduleStore implements domain.ScheduleStore using a JSON file in the
// shared directory. There is no lock: the daemon may read at any moment, so
// the record is serialized in memory and swapped in with a rename.
type FileScheduleStore struct {
	fs     afero.Fs
	paths  Paths
	logger *zap.Logger
}

// NewScheduleStore creates a store rooted at paths.SharedDir.
func NewScheduleStore(fs afero.Fs, paths Paths, logger *zap.Logger) *FileScheduleStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileScheduleStore{
		fs:     fs,
		paths:  paths,
		logger: logger,
	}
}

// Path returns the schedule file path.
func (s *FileScheduleStore) Path() string {
	return s.paths.SchedulePath
}

// Write replaces the schedule file with the given record.
func (s *FileScheduleStore) Write(schedule domain.WakeSchedule) error {
	if !schedule.Consistent() {
		return fmt.Errorf("%w: enabled=%t but nextWake present=%t",
			domain.ErrInvalidSchedule, schedule.Enabled, schedule.NextWake != nil)
	}

	dir := s.paths.SharedDir
	if err := s.fs.MkdirAll(dir, SharedDirMode); err != nil {
		return &domain.FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	var permErrs *multierror.Error
	// MkdirAll is subject to umask and the dir may predate us, so relax explicitly.
	if err := s.fs.Chmod(dir, SharedDirMode); err != nil {
		permErrs = multierror.Append(permErrs, fmt.Errorf("chmod %s: %w", dir, err))
	}

	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	if err := s.atomicWrite(data); err != nil {
		return err
	}

	if err := s.fs.Chmod(s.paths.SchedulePath, ScheduleFileMode); err != nil {
		permErrs = multierror.Append(permErrs, fmt.Errorf("chmod %s: %w", s.paths.SchedulePath, err))
	}

	if err := permErrs.ErrorOrNil(); err != nil {
		s.logger.Warn("could not relax schedule permissions (continuing)",
			zap.String("path", s.paths.SchedulePath),
			zap.Error(err))
	}

	s.logger.Debug("wrote wake schedule",
		zap.String("path", s.paths.SchedulePath),
		zap.Bool("armed", schedule.Armed()))
	return nil
}

// atomicWrite writes data to a per-process temp file and renames it into place.
func (s *FileScheduleStore) atomicWrite(data []byte) error {
	path := s.paths.SchedulePath
	tmpPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%d.tmp", filepath.Base(path), os.Getpid()))

	if err := afero.WriteFile(s.fs, tmpPath, data, ScheduleFileMode); err != nil {
		_ = s.fs.Remove(tmpPath)
		return &domain.FilesystemError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return &domain.FilesystemError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Read loads the schedule. Missing and malformed files both mean "no schedule".
func (s *FileScheduleStore) Read() (domain.WakeSchedule, bool) {
	data, err := afero.ReadFile(s.fs, s.paths.SchedulePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("schedule unreadable", zap.String("path", s.paths.SchedulePath), zap.Error(err))
		}
		return domain.WakeSchedule{}, false
	}

	var schedule domain.WakeSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		s.logger.Debug("schedule malformed", zap.String("path", s.paths.SchedulePath), zap.Error(err))
		return domain.WakeSchedule{}, false
	}
	return schedule, true
}

// Ensure FileScheduleStore implements domain.ScheduleStore.
var _ domain.ScheduleStore = (*FileScheduleStore)(nil)
