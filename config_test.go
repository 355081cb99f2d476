package raxftp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Addr() != "127.0.0.1:2121" {
		t.Errorf("Addr = %q, want 127.0.0.1:2121", cfg.Addr())
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout())
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.DataPortStart != 2122 || cfg.DataPortEnd != 2130 {
		t.Errorf("data port range = %d-%d, want 2122-2130", cfg.DataPortStart, cfg.DataPortEnd)
	}
	if cfg.LocalDirectory != "./client_root" {
		t.Errorf("LocalDirectory = %q", cfg.LocalDirectory)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
host = "ftp.example.com"
port = 21
timeout = 30
max_retries = 5
retry_base_delay_ms = 250
local_directory = "` + filepath.ToSlash(filepath.Join(dir, "files")) + `"
data_port_start = 40000
data_port_end = 40010
host_name = "example"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr() != "ftp.example.com:21" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
	if cfg.DisplayName() != "example" {
		t.Errorf("DisplayName = %q", cfg.DisplayName())
	}

	p := cfg.RetryPolicy()
	if p.MaxAttempts != 5 || p.BaseDelay != 250*time.Millisecond {
		t.Errorf("RetryPolicy = %+v", p)
	}

	// Validation creates the local directory when missing.
	info, err := os.Stat(filepath.Join(dir, "files"))
	if err != nil || !info.IsDir() {
		t.Errorf("local directory not created: %v", err)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
host = "10.0.0.9"
local_directory = "` + filepath.ToSlash(dir) + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Host != "10.0.0.9" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 2121 || cfg.TimeoutSeconds != 5 {
		t.Errorf("defaults not kept: port=%d timeout=%d", cfg.Port, cfg.TimeoutSeconds)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadConfig on missing file succeeded")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RAX_FTP_HOST", "override.example.com")
	t.Setenv("RAX_FTP_PORT", "2221")
	t.Setenv("RAX_FTP_MAX_RETRIES", "7")
	t.Setenv("RAX_FTP_DATA_PORT_START", "5000")
	t.Setenv("RAX_FTP_DATA_PORT_END", "5010")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Host != "override.example.com" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 2221 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.DataPortStart != 5000 || cfg.DataPortEnd != 5010 {
		t.Errorf("range = %d-%d", cfg.DataPortStart, cfg.DataPortEnd)
	}
}

func TestApplyEnvIgnoresBadInts(t *testing.T) {
	t.Setenv("RAX_FTP_PORT", "not-a-number")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Port != 2121 {
		t.Errorf("Port = %d, want default kept", cfg.Port)
	}
}

// Validate reports every fault in one pass instead of stopping at the
// first.
func TestValidateCollectsAllFaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Host:           "",
		Port:           0,
		TimeoutSeconds: 0,
		MaxRetries:     0,
		DataPortStart:  3000,
		DataPortEnd:    2000,
		LocalDirectory: "",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed on broken config")
	}
	for _, want := range []string{"host", "port", "timeout", "max_retries", "data_port_start"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q fault", err, want)
		}
	}
}

func TestValidateRangeTooSmall(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.LocalDirectory = t.TempDir()
	cfg.DataPortStart = 2122
	cfg.DataPortEnd = 2124
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "too small") {
		t.Errorf("err = %v, want range-too-small fault", err)
	}
}

func TestValidateRejectsFileAsDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "plainfile")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.LocalDirectory = file
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("err = %v, want not-a-directory fault", err)
	}
}

func TestClientOptionsApply(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.TimeoutSeconds = 9
	cfg.DataPortStart = 4000
	cfg.DataPortEnd = 4010

	c := &Client{}
	for _, opt := range cfg.ClientOptions() {
		if err := opt(c); err != nil {
			t.Fatalf("option: %v", err)
		}
	}
	if c.timeout != 9*time.Second {
		t.Errorf("timeout = %v", c.timeout)
	}
	if c.portRange != (PortRange{Start: 4000, End: 4010}) {
		t.Errorf("portRange = %+v", c.portRange)
	}
	if c.retry.MaxAttempts != 3 {
		t.Errorf("retry = %+v", c.retry)
	}
}
