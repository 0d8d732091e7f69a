// Package infra implements infrastructure concerns (filesystem, launchd, privilege prompt, processes).
package infra

import (
	"os"
	"path/filepath"
)

// Well-known locations shared by convention with the helper daemon.
// The daemon is built and deployed separately, so these values are a contract:
// change them only together with the daemon and the install scripts.
const (
	// SharedDir is readable and writable by both the user and the daemon.
	SharedDir = "/Users/Shared/AlarmMaster"

	ScheduleFileName = "schedule.json"
	LogFileName      = "helper.log"
	StateFileName    = "state.json"

	// HelperLabel is the launchd job label of the daemon.
	HelperLabel = "com.alarmmaster.wakehelper"

	HelperBinaryPath = "/Library/PrivilegedHelperTools/" + HelperLabel
	HelperPlistPath  = "/Library/LaunchDaemons/" + HelperLabel + ".plist"

	InstallScriptName   = "install-helper.sh"
	UninstallScriptName = "uninstall-helper.sh"

	// helperAssetsDirName is the bundled directory holding the scripts and the binary.
	helperAssetsDirName = "helpers"

	// SharedDirMode and ScheduleFileMode let both principals read and write.
	SharedDirMode    os.FileMode = 0o777
	ScheduleFileMode os.FileMode = 0o666

	// LogTailLines is how many daemon log lines the status snapshot carries.
	LogTailLines = 10
)

// Paths holds every location the subsystem touches.
// Production code uses DefaultPaths; tests point it at a temp dir.
type Paths struct {
	SharedDir    string
	SchedulePath string
	LogPath      string
	StatePath    string
	BinaryPath   string
	PlistPath    string
	Label        string
}

// DefaultPaths returns the well-known production locations.
func DefaultPaths() Paths {
	return PathsUnder(SharedDir, HelperBinaryPath, HelperPlistPath)
}

// PathsUnder builds Paths for a custom shared dir and install locations.
func PathsUnder(sharedDir, binaryPath, plistPath string) Paths {
	return Paths{
		SharedDir:    sharedDir,
		SchedulePath: filepath.Join(sharedDir, ScheduleFileName),
		LogPath:      filepath.Join(sharedDir, LogFileName),
		StatePath:    filepath.Join(sharedDir, StateFileName),
		BinaryPath:   binaryPath,
		PlistPath:    plistPath,
		Label:        HelperLabel,
	}
}

// ResolveResourceDir finds the bundled helper assets directory.
// An explicit override wins. Otherwise the app bundle layout
// (Contents/MacOS/<exe> -> Contents/Resources/helpers) is tried, then a
// "helpers" directory next to the executable. The returned directory is not
// checked for the scripts; the installer does that before prompting.
func ResolveResourceDir(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}

	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	exeDir := filepath.Dir(exe)

	bundled := filepath.Join(exeDir, "..", "Resources", helperAssetsDirName)
	if info, err := os.Stat(bundled); err == nil && info.IsDir() {
		return filepath.Clean(bundled), nil
	}
	return filepath.Join(exeDir, helperAssetsDirName), nil
}
