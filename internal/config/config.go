// Package config loads caller-side settings for wakectl.
// The locations shared with the helper daemon are not settings; they live in
// internal/infra/paths.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/wake_helper/internal/infra"
)

const (
	envPrefix      = "WAKECTL"
	configName     = "config"
	configType     = "yaml"
	configSubdir   = "wakectl"
	defaultLevel   = "info"
	defaultLogFile = "/var/tmp/wakectl.log"
)

// Keys understood by Load; cobra flags bind onto the same names.
const (
	KeyResourceDir       = "resource_dir"
	KeyEscalationTimeout = "escalation_timeout"
	KeyLogLevel          = "log_level"
	KeyLogFile           = "log_file"
	KeyJSON              = "json"
)

// Config holds wakectl's caller-side settings.
type Config struct {
	// ResourceDir overrides where install-helper.sh and friends are looked up.
	ResourceDir string
	// EscalationTimeout bounds a pending administrator prompt.
	EscalationTimeout time.Duration
	LogLevel          string
	// LogFile is where structured logs go; "stderr" or empty logs to the terminal.
	LogFile string
	JSON    bool
}

// New returns a viper instance with defaults, env binding and the config file search path.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyResourceDir, "")
	v.SetDefault(KeyEscalationTimeout, infra.DefaultEscalationTimeout)
	v.SetDefault(KeyLogLevel, defaultLevel)
	v.SetDefault(KeyLogFile, defaultLogFile)
	v.SetDefault(KeyJSON, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configSubdir))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", configSubdir))
	}
	return v
}

// Load reads the config file (explicit path, or the search path) and decodes it.
// A missing config file in the search path is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		ResourceDir:       v.GetString(KeyResourceDir),
		EscalationTimeout: v.GetDuration(KeyEscalationTimeout),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFile:           v.GetString(KeyLogFile),
		JSON:              v.GetBool(KeyJSON),
	}
	if cfg.EscalationTimeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyEscalationTimeout, cfg.EscalationTimeout)
	}
	return cfg, nil
}
