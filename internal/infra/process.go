package infra

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes whose executable name equals name.
func (pm *ProcessManagerImpl) FindByName(name string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	for _, p := range procs {
		procName, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		if procName == name {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// Kill terminates a process by PID using SIGKILL.
func (pm *ProcessManagerImpl) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
