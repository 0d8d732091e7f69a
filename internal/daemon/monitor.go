// Package daemon follows the helper daemon from the user's side: it watches
// the shared directory and re-reads the status whenever something changes.
package daemon

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// MonitorConfig holds monitor configuration.
type MonitorConfig struct {
	SharedDir string        // Directory holding schedule.json and helper.log
	Interval  time.Duration // How often to re-check launchd even without file events
	Debounce  time.Duration // Coalesce bursts of file events
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig(sharedDir string) MonitorConfig {
	return MonitorConfig{
		SharedDir: sharedDir,
		Interval:  30 * time.Second,
		Debounce:  200 * time.Millisecond,
	}
}

// Monitor emits a fresh HelperStatusSnapshot on start, after file changes in
// the shared directory, and on every interval tick.
type Monitor struct {
	config    MonitorConfig
	inspector domain.StatusInspector
	clock     clock.Clock
	logger    *zap.Logger
}

// NewMonitor creates a new monitor.
func NewMonitor(config MonitorConfig, inspector domain.StatusInspector, clk clock.Clock, logger *zap.Logger) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		config:    config,
		inspector: inspector,
		clock:     clk,
		logger:    logger,
	}
}

// Run blocks until ctx is canceled, calling emit for every snapshot.
func (m *Monitor) Run(ctx context.Context, emit func(domain.HelperStatusSnapshot)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directory, not the files: the schedule is replaced by rename
	// and the log may not exist yet.
	watching := m.tryWatch(fw)

	emit(m.inspector.Status(ctx))

	ticker := m.clock.Ticker(m.config.Interval)
	defer ticker.Stop()

	var debounce *clock.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return ctx.Err()

		case <-ticker.C:
			if !watching {
				watching = m.tryWatch(fw)
			}
			emit(m.inspector.Status(ctx))

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !m.relevant(ev) {
				continue
			}
			if debounce == nil {
				debounce = m.clock.Timer(m.config.Debounce)
			} else {
				debounce.Reset(m.config.Debounce)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			emit(m.inspector.Status(ctx))

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("file watch error", zap.Error(err))
		}
	}
}

// tryWatch adds the shared dir to the watcher; it may not exist before the
// first schedule write, in which case the ticker retries.
func (m *Monitor) tryWatch(fw *fsnotify.Watcher) bool {
	if _, err := os.Stat(m.config.SharedDir); err != nil {
		m.logger.Debug("shared directory not present yet", zap.String("dir", m.config.SharedDir))
		return false
	}
	if err := fw.Add(m.config.SharedDir); err != nil {
		m.logger.Warn("failed to watch shared directory", zap.String("dir", m.config.SharedDir), zap.Error(err))
		return false
	}
	return true
}

// relevant ignores our own temp files and chmod-only events.
func (m *Monitor) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	return len(base) > 0 && base[0] != '.'
}
