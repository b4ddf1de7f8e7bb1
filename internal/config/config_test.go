package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"BRIDGE_HTTP_PORT", "BRIDGE_REMOTE_HOST", "BRIDGE_OSC_SEND_PORT",
		"BRIDGE_OSC_RECEIVE_PORT", "BRIDGE_REMOTE_SCRIPT",
		"BRIDGE_QUERY_TIMEOUT", "BRIDGE_SYNC_BATCH",
		"BRIDGE_HEALTH_INTERVAL", "BRIDGE_HEALTH_TIMEOUT", "BRIDGE_LOG_LEVEL",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.HTTPPort != 5555 {
		t.Errorf("HTTPPort = %d, want 5555", cfg.HTTPPort)
	}
	if cfg.RemoteHost != "127.0.0.1" {
		t.Errorf("RemoteHost = %q, want 127.0.0.1", cfg.RemoteHost)
	}
	if cfg.OSCSendPort != 11000 {
		t.Errorf("OSCSendPort = %d, want 11000", cfg.OSCSendPort)
	}
	if cfg.OSCReceivePort != 11001 {
		t.Errorf("OSCReceivePort = %d, want 11001", cfg.OSCReceivePort)
	}
	if cfg.RemoteScriptName != "AbletonOSC" {
		t.Errorf("RemoteScriptName = %q, want AbletonOSC", cfg.RemoteScriptName)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", cfg.QueryTimeout)
	}
	if cfg.SyncBatchSize != 32 {
		t.Errorf("SyncBatchSize = %d, want 32", cfg.SyncBatchSize)
	}
	if cfg.HealthInterval != 5*time.Second {
		t.Errorf("HealthInterval = %v, want 5s", cfg.HealthInterval)
	}
	if cfg.HealthTimeout != 2*time.Second {
		t.Errorf("HealthTimeout = %v, want 2s", cfg.HealthTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BRIDGE_HTTP_PORT", "8080")
	t.Setenv("BRIDGE_REMOTE_HOST", "10.0.0.5")
	t.Setenv("BRIDGE_OSC_SEND_PORT", "12000")
	t.Setenv("BRIDGE_OSC_RECEIVE_PORT", "12001")
	t.Setenv("BRIDGE_REMOTE_SCRIPT", "CustomOSC")
	t.Setenv("BRIDGE_QUERY_TIMEOUT", "2s")
	t.Setenv("BRIDGE_SYNC_BATCH", "16")
	t.Setenv("BRIDGE_HEALTH_INTERVAL", "10s")
	t.Setenv("BRIDGE_HEALTH_TIMEOUT", "500ms")

	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.RemoteHost != "10.0.0.5" {
		t.Errorf("RemoteHost = %q, want env override", cfg.RemoteHost)
	}
	if cfg.OSCSendPort != 12000 {
		t.Errorf("OSCSendPort = %d, want 12000", cfg.OSCSendPort)
	}
	if cfg.OSCReceivePort != 12001 {
		t.Errorf("OSCReceivePort = %d, want 12001", cfg.OSCReceivePort)
	}
	if cfg.RemoteScriptName != "CustomOSC" {
		t.Errorf("RemoteScriptName = %q, want CustomOSC", cfg.RemoteScriptName)
	}
	if cfg.QueryTimeout != 2*time.Second {
		t.Errorf("QueryTimeout = %v, want 2s", cfg.QueryTimeout)
	}
	if cfg.SyncBatchSize != 16 {
		t.Errorf("SyncBatchSize = %d, want 16", cfg.SyncBatchSize)
	}
	if cfg.HealthInterval != 10*time.Second {
		t.Errorf("HealthInterval = %v, want 10s", cfg.HealthInterval)
	}
	if cfg.HealthTimeout != 500*time.Millisecond {
		t.Errorf("HealthTimeout = %v, want 500ms", cfg.HealthTimeout)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("BRIDGE_HTTP_PORT", "not-a-number")
	cfg := Load()
	if cfg.HTTPPort != 5555 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 5555", cfg.HTTPPort)
	}
}

func TestEnvDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("BRIDGE_QUERY_TIMEOUT", "soon")
	cfg := Load()
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("Invalid duration env should fallback to default: got %v", cfg.QueryTimeout)
	}
}

func TestAddrHelpers(t *testing.T) {
	cfg := Config{RemoteHost: "127.0.0.1", OSCSendPort: 11000, OSCReceivePort: 11001}
	if got := cfg.SendAddr(); got != "127.0.0.1:11000" {
		t.Errorf("SendAddr = %q, want 127.0.0.1:11000", got)
	}
	if got := cfg.ListenAddr(); got != "0.0.0.0:11001" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:11001", got)
	}
}
