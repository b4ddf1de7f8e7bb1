// Package config loads runtime configuration. Defaults are overridden first
// by an optional livebridge.yml next to the working directory, then by
// BRIDGE_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the optional yaml config file looked up in the working
// directory.
const FileName = "livebridge.yml"

// Config holds all runtime configuration.
type Config struct {
	// HTTP server (WebSocket clients + static UI)
	HTTPPort int `yaml:"httpPort"`

	// OSC link to the remote script
	RemoteHost     string `yaml:"remoteHost"`
	OSCSendPort    int    `yaml:"oscSendPort"`
	OSCReceivePort int    `yaml:"oscReceivePort"`

	// Remote script installation
	RemoteScriptName string `yaml:"remoteScriptName"`

	// Sync behavior
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
	SyncBatchSize  int           `yaml:"syncBatchSize"`
	HealthInterval time.Duration `yaml:"healthInterval"`
	HealthTimeout  time.Duration `yaml:"healthTimeout"`

	LogLevel string `yaml:"logLevel"`
}

// Load builds the configuration from defaults, the yaml file if present, and
// environment variables, in that order of precedence.
func Load() Config {
	cfg := Config{
		HTTPPort:         5555,
		RemoteHost:       "127.0.0.1",
		OSCSendPort:      11000,
		OSCReceivePort:   11001,
		RemoteScriptName: "AbletonOSC",
		QueryTimeout:     5 * time.Second,
		SyncBatchSize:    32,
		HealthInterval:   5 * time.Second,
		HealthTimeout:    2 * time.Second,
		LogLevel:         "info",
	}
	if b, err := os.ReadFile(FileName); err == nil {
		// Ignore a malformed file rather than refusing to start.
		_ = yaml.Unmarshal(b, &cfg)
	}

	cfg.HTTPPort = envInt("BRIDGE_HTTP_PORT", cfg.HTTPPort)
	cfg.RemoteHost = envStr("BRIDGE_REMOTE_HOST", cfg.RemoteHost)
	cfg.OSCSendPort = envInt("BRIDGE_OSC_SEND_PORT", cfg.OSCSendPort)
	cfg.OSCReceivePort = envInt("BRIDGE_OSC_RECEIVE_PORT", cfg.OSCReceivePort)
	cfg.RemoteScriptName = envStr("BRIDGE_REMOTE_SCRIPT", cfg.RemoteScriptName)
	cfg.QueryTimeout = envDuration("BRIDGE_QUERY_TIMEOUT", cfg.QueryTimeout)
	cfg.SyncBatchSize = envInt("BRIDGE_SYNC_BATCH", cfg.SyncBatchSize)
	cfg.HealthInterval = envDuration("BRIDGE_HEALTH_INTERVAL", cfg.HealthInterval)
	cfg.HealthTimeout = envDuration("BRIDGE_HEALTH_TIMEOUT", cfg.HealthTimeout)
	cfg.LogLevel = envStr("BRIDGE_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

// SendAddr is the remote script's command port.
func (c Config) SendAddr() string {
	return c.RemoteHost + ":" + strconv.Itoa(c.OSCSendPort)
}

// ListenAddr is the local port the remote script replies to.
func (c Config) ListenAddr() string {
	return "0.0.0.0:" + strconv.Itoa(c.OSCReceivePort)
}

// RemoteScriptsDir returns Live's MIDI Remote Scripts directory for this
// platform.
func RemoteScriptsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Music", "Ableton", "User Library", "Remote Scripts"), nil
	case "windows":
		return filepath.Join(home, "Documents", "Ableton", "User Library", "Remote Scripts"), nil
	default:
		return "", errors.Errorf("unsupported platform %s: Ableton Live runs on macOS and Windows only", runtime.GOOS)
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
