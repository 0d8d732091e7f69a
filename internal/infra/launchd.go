package infra

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"howett.net/plist"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// LaunchDaemon plist template for the wake helper (runs as root).
// launchd starts the helper whenever the schedule file changes and at load.
const helperDaemonTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
    </array>

    <key>WatchPaths</key>
    <array>
        <string>{{.SchedulePath}}</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>
`

const (
	logDir        = "/var/tmp"
	launchdDomain = "system"
)

type plistConfig struct {
	Label          string
	ExecutablePath string
	SchedulePath   string
	LogPath        string
	ErrorLogPath   string
}

// ServiceDescriptor is the subset of the installed plist we inspect.
type ServiceDescriptor struct {
	Label            string   `plist:"Label"`
	ProgramArguments []string `plist:"ProgramArguments"`
	WatchPaths       []string `plist:"WatchPaths"`
}

// RenderHelperDescriptor produces the LaunchDaemon plist the install script
// places at paths.PlistPath.
func RenderHelperDescriptor(paths Paths) ([]byte, error) {
	config := plistConfig{
		Label:          paths.Label,
		ExecutablePath: paths.BinaryPath,
		SchedulePath:   paths.SchedulePath,
		LogPath:        logDir + "/" + paths.Label + ".log",
		ErrorLogPath:   logDir + "/" + paths.Label + ".error.log",
	}

	tmpl, err := template.New("plist").Parse(helperDaemonTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadServiceDescriptor decodes an installed plist (XML or binary).
func ReadServiceDescriptor(fs afero.Fs, path string) (*ServiceDescriptor, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var desc ServiceDescriptor
	if _, err := plist.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to decode plist %s: %w", path, err)
	}
	return &desc, nil
}

// LaunchctlRegistry implements domain.ServiceRegistry with launchctl.
type LaunchctlRegistry struct {
	runner CommandRunner
}

// NewLaunchctlRegistry creates a registry query backed by the given runner.
func NewLaunchctlRegistry(runner CommandRunner) *LaunchctlRegistry {
	return &LaunchctlRegistry{runner: runner}
}

// IsRegistered checks the system domain first. `launchctl print` works
// without root for reading; older systems fall back to `launchctl list`.
func (r *LaunchctlRegistry) IsRegistered(ctx context.Context, label string) (bool, error) {
	res, err := r.runner.Run(ctx, "launchctl", "print", launchdDomain+"/"+label)
	if err == nil && res.ExitCode == 0 {
		return true, nil
	}

	res, err = r.runner.Run(ctx, "launchctl", "list")
	if err != nil {
		return false, fmt.Errorf("launchctl list: %w", err)
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("launchctl list exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return listContainsLabel(res.Stdout, label), nil
}

// listContainsLabel scans `launchctl list` output ("PID\tStatus\tLabel").
func listContainsLabel(output, label string) bool {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[len(fields)-1] == label {
			return true
		}
	}
	return false
}

// Ensure LaunchctlRegistry implements domain.ServiceRegistry.
var _ domain.ServiceRegistry = (*LaunchctlRegistry)(nil)
