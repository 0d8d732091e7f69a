package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

func TestOsascriptEscalator_RunPrivileged(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			name: "invokes osascript with an administrator shell script",
			test: func(t *testing.T) {
				runner := &fakeRunner{}
				esc := NewOsascriptEscalator(runner, time.Minute, nil)

				_, err := esc.RunPrivileged(context.Background(), "/res/install-helper.sh", "/res")
				require.NoError(t, err)

				runs := runner.Runs()
				require.Len(t, runs, 1)
				assert.Equal(t, "/usr/bin/osascript", runs[0].name)
				assert.Equal(t, []string{
					"-e",
					`do shell script "'/bin/sh' '/res/install-helper.sh' '/res'" with administrator privileges`,
				}, runs[0].args)
			},
		},
		{
			name: "passes the script result through",
			test: func(t *testing.T) {
				runner := &fakeRunner{handler: func(ctx context.Context, call commandCall) (CommandResult, error) {
					return CommandResult{ExitCode: 2, Stdout: "partial", Stderr: "launchctl bootstrap failed"}, nil
				}}
				esc := NewOsascriptEscalator(runner, time.Minute, nil)

				res, err := esc.RunPrivileged(context.Background(), "/res/install-helper.sh", "/res")
				require.NoError(t, err)
				assert.Equal(t, domain.PrivilegedResult{ExitCode: 2, Stdout: "partial", Stderr: "launchctl bootstrap failed"}, res)
			},
		},
		{
			name: "prompt cannot be invoked",
			test: func(t *testing.T) {
				runner := &fakeRunner{handler: func(ctx context.Context, call commandCall) (CommandResult, error) {
					return CommandResult{ExitCode: -1}, errors.New("exec: \"/usr/bin/osascript\": file does not exist")
				}}
				esc := NewOsascriptEscalator(runner, time.Minute, nil)

				_, err := esc.RunPrivileged(context.Background(), "/res/install-helper.sh", "/res")
				assert.ErrorIs(t, err, domain.ErrEscalationUnavailable)
			},
		},
		{
			name: "prompt left open past the timeout",
			test: func(t *testing.T) {
				runner := &fakeRunner{handler: func(ctx context.Context, call commandCall) (CommandResult, error) {
					<-ctx.Done()
					return CommandResult{ExitCode: -1}, ctx.Err()
				}}
				esc := NewOsascriptEscalator(runner, 20*time.Millisecond, nil)

				_, err := esc.RunPrivileged(context.Background(), "/res/install-helper.sh", "/res")
				assert.ErrorIs(t, err, domain.ErrEscalationTimedOut)
			},
		},
		{
			name: "zero timeout uses default",
			test: func(t *testing.T) {
				esc := NewOsascriptEscalator(&fakeRunner{}, 0, nil)
				assert.Equal(t, DefaultEscalationTimeout, esc.timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		stderr string
		want   bool
	}{
		{"0:113: execution error: User canceled. (-128)", true},
		{"execution error: User cancelled.", true},
		{"execution error: (-128)", true},
		{"USER CANCELED", true},
		{"install-helper.sh: line 12: launchctl: command not found", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCancellation(tt.stderr))
		})
	}
}

func TestBuildAdminScript_Quoting(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{
			name: "spaces stay inside one argument",
			argv: []string{"/bin/sh", "/Applications/Alarm Master.app/helpers/install-helper.sh"},
			want: `do shell script "'/bin/sh' '/Applications/Alarm Master.app/helpers/install-helper.sh'" with administrator privileges`,
		},
		{
			name: "single quote",
			argv: []string{"/tmp/it's"},
			want: `do shell script "'/tmp/it'\\''s'" with administrator privileges`,
		},
		{
			name: "double quote and backslash",
			argv: []string{`/tmp/a"b\c`},
			want: `do shell script "'/tmp/a\"b\\c'" with administrator privileges`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildAdminScript(tt.argv))
		})
	}
}
