package usecase

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

func strPtr(s string) *string { return &s }

// mockScheduleStore is an in-memory domain.ScheduleStore
type mockScheduleStore struct {
	mu       sync.Mutex
	current  *domain.WakeSchedule
	writes   []domain.WakeSchedule
	writeErr error
}

func (m *mockScheduleStore) Write(schedule domain.WakeSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, schedule)
	m.current = &schedule
	return nil
}

func (m *mockScheduleStore) Read() (domain.WakeSchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.WakeSchedule{}, false
	}
	return *m.current, true
}

func (m *mockScheduleStore) Path() string { return "/shared/schedule.json" }

// mockEscalator records privileged runs and returns a canned result
type mockEscalator struct {
	calls  [][]string
	result domain.PrivilegedResult
	err    error
}

func (m *mockEscalator) RunPrivileged(ctx context.Context, script string, args ...string) (domain.PrivilegedResult, error) {
	m.calls = append(m.calls, append([]string{script}, args...))
	return m.result, m.err
}

// mockRegistry is a mock implementation of domain.ServiceRegistry
type mockRegistry struct {
	registered bool
	err        error
	queried    []string
}

func (m *mockRegistry) IsRegistered(ctx context.Context, label string) (bool, error) {
	m.queried = append(m.queried, label)
	return m.registered, m.err
}

// mockInstaller is a mock implementation of domain.HelperInstaller
type mockInstaller struct {
	outcome domain.Outcome
	err     error
	calls   []domain.HelperAction
}

func (m *mockInstaller) Install(ctx context.Context) (domain.Outcome, error) {
	m.calls = append(m.calls, domain.ActionInstall)
	out := m.outcome
	out.Action = domain.ActionInstall
	return out, m.err
}

func (m *mockInstaller) Uninstall(ctx context.Context) (domain.Outcome, error) {
	m.calls = append(m.calls, domain.ActionUninstall)
	out := m.outcome
	out.Action = domain.ActionUninstall
	return out, m.err
}

// mockInspector is a mock implementation of domain.StatusInspector
type mockInspector struct {
	snapshot  domain.HelperStatusSnapshot
	installed bool
}

func (m *mockInspector) Status(ctx context.Context) domain.HelperStatusSnapshot {
	return m.snapshot
}

func (m *mockInspector) InstallationState(ctx context.Context) domain.HelperInstallationState {
	return domain.HelperInstallationState{BinaryPresent: m.installed, DescriptorPresent: m.installed}
}

func (m *mockInspector) IsInstalled() bool { return m.installed }

// mockSleepAssertions is a mock implementation of domain.SleepAssertions
type mockSleepAssertions struct {
	prevented []int
	woken     int
	active    []int
	err       error
}

func (m *mockSleepAssertions) PreventSleep(minutes int) error {
	if m.err != nil {
		return m.err
	}
	m.prevented = append(m.prevented, minutes)
	return nil
}

func (m *mockSleepAssertions) WakeScreen() error {
	if m.err != nil {
		return m.err
	}
	m.woken++
	return nil
}

func (m *mockSleepAssertions) Active() ([]int, error) { return m.active, m.err }

func (m *mockSleepAssertions) Release() (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := len(m.active)
	m.active = nil
	return n, nil
}
