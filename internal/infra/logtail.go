package infra

import (
	"encoding/json"
	"strings"

	"github.com/spf13/afero"

	"github.com/eliteGoblin/focusd/wake_helper/internal/domain"
)

// TailLines returns at most n trailing lines of the file joined with "\n",
// in their original order. ok is false when the file is missing or unreadable.
func TailLines(fs afero.Fs, path string, n int) (tail string, ok bool) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", false
	}
	return lastLines(string(data), n), true
}

func lastLines(content string, n int) string {
	content = strings.TrimRight(content, "\r\n")
	if content == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return strings.Join(lines, "\n")
}

// ReadHelperState loads the daemon's bookkeeping file.
func ReadHelperState(fs afero.Fs, path string) (domain.HelperState, bool) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return domain.HelperState{}, false
	}
	var state domain.HelperState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.HelperState{}, false
	}
	return state, true
}
