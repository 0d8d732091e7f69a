package infra

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandResult captures a finished command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	// Run executes a command and waits for it. A non-zero exit is reported in
	// the result, not as an error; the error is reserved for commands that
	// could not be started or were stopped by ctx.
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)

	// Start launches a detached command without waiting for it.
	Start(name string, args ...string) error
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// NewCommandRunner returns a runner backed by os/exec.
func NewCommandRunner() *RealCommandRunner {
	return &RealCommandRunner{}
}

// Run executes a command and collects its output
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// A killed process also looks like an ExitError, so check ctx first.
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		result.ExitCode = -1
		return result, err
	}
	return result, nil
}

// Start spawns the command detached so it outlives the caller.
func (r *RealCommandRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap in the background so short-lived children do not linger as zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}

// Ensure RealCommandRunner implements CommandRunner.
var _ CommandRunner = (*RealCommandRunner)(nil)
