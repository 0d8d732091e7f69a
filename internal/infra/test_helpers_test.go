package infra

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// commandCall records one invocation of the fake runner.
type commandCall struct {
	name string
	args []string
}

func (c commandCall) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// fakeRunner is a scripted CommandRunner. handler decides the result of Run;
// without one every command exits 0 with no output.
type fakeRunner struct {
	mu       sync.Mutex
	handler  func(ctx context.Context, call commandCall) (CommandResult, error)
	runs     []commandCall
	starts   []commandCall
	startErr error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	call := commandCall{name: name, args: args}
	f.mu.Lock()
	f.runs = append(f.runs, call)
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return CommandResult{}, nil
	}
	return handler(ctx, call)
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, commandCall{name: name, args: args})
	return f.startErr
}

func (f *fakeRunner) Runs() []commandCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]commandCall(nil), f.runs...)
}

func (f *fakeRunner) Starts() []commandCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]commandCall(nil), f.starts...)
}

// mockProcessManager is a mock implementation of domain.ProcessManager
type mockProcessManager struct {
	byName  map[string][]int
	findErr error
	killErr map[int]error
	killed  []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		byName:  make(map[string][]int),
		killErr: make(map[int]error),
	}
}

func (m *mockProcessManager) FindByName(name string) ([]int, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byName[name], nil
}

func (m *mockProcessManager) Kill(pid int) error {
	if err := m.killErr[pid]; err != nil {
		return err
	}
	m.killed = append(m.killed, pid)
	return nil
}

// chmodFailingFs behaves like the wrapped Fs except that Chmod always fails,
// which is what a shared dir owned by another user looks like.
type chmodFailingFs struct {
	afero.Fs
}

func (c chmodFailingFs) Chmod(name string, mode os.FileMode) error {
	return fmt.Errorf("chmod %s: operation not permitted", name)
}
