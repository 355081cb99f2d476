package raxftp

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// Config is the client configuration read at startup: server coordinates,
// connection policy, and the local settings transfers depend on. It is the
// only persisted state the client has.
type Config struct {
	// Host is the FTP server hostname or IP address.
	Host string `toml:"host"`

	// Port is the FTP server control port.
	Port int `toml:"port"`

	// TimeoutSeconds bounds every blocking socket operation.
	TimeoutSeconds int `toml:"timeout"`

	// MaxRetries is the number of connection attempts.
	MaxRetries int `toml:"max_retries"`

	// RetryBaseDelayMillis is the backoff delay before the second attempt.
	RetryBaseDelayMillis int `toml:"retry_base_delay_ms"`

	// LocalDirectory is where uploads are read from and downloads written.
	LocalDirectory string `toml:"local_directory"`

	// DataPortStart and DataPortEnd bound the active-mode port range.
	DataPortStart int `toml:"data_port_start"`
	DataPortEnd   int `toml:"data_port_end"`

	// HostName is an optional friendly name for display.
	HostName string `toml:"host_name"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "127.0.0.1",
		Port:                 2121,
		TimeoutSeconds:       5,
		MaxRetries:           3,
		RetryBaseDelayMillis: 500,
		LocalDirectory:       "./client_root",
		DataPortStart:        2122,
		DataPortEnd:          2130,
	}
}

// LoadConfig reads a TOML configuration file, applies RAX_FTP_* environment
// overrides on top, and validates the result. Values absent from both the
// file and the environment keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RAX_FTP_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("RAX_FTP_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("RAX_FTP_LOCAL_DIRECTORY"); v != "" {
		c.LocalDirectory = v
	}
	if v := os.Getenv("RAX_FTP_HOST_NAME"); v != "" {
		c.HostName = v
	}
	envInt("RAX_FTP_PORT", &c.Port)
	envInt("RAX_FTP_TIMEOUT", &c.TimeoutSeconds)
	envInt("RAX_FTP_MAX_RETRIES", &c.MaxRetries)
	envInt("RAX_FTP_RETRY_BASE_DELAY_MS", &c.RetryBaseDelayMillis)
	envInt("RAX_FTP_DATA_PORT_START", &c.DataPortStart)
	envInt("RAX_FTP_DATA_PORT_END", &c.DataPortEnd)
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate checks the configuration and reports every fault at once.
// The local directory is created when missing.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Host == "" {
		result = multierror.Append(result, fmt.Errorf("host cannot be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TimeoutSeconds <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout cannot be zero"))
	}
	if c.MaxRetries < 1 {
		result = multierror.Append(result, fmt.Errorf("max_retries must be at least 1"))
	}
	if c.DataPortStart >= c.DataPortEnd {
		result = multierror.Append(result, fmt.Errorf("data_port_start must be less than data_port_end"))
	} else if c.DataPortEnd-c.DataPortStart < 5 {
		result = multierror.Append(result, fmt.Errorf("data port range too small (need at least 5 ports)"))
	}

	if c.LocalDirectory != "" {
		if info, err := os.Stat(c.LocalDirectory); err != nil {
			if mkErr := os.MkdirAll(c.LocalDirectory, 0o755); mkErr != nil {
				result = multierror.Append(result, fmt.Errorf("failed to create local directory %q: %w", c.LocalDirectory, mkErr))
			}
		} else if !info.IsDir() {
			result = multierror.Append(result, fmt.Errorf("%q exists but is not a directory", c.LocalDirectory))
		}
	}

	return result.ErrorOrNil()
}

// Addr returns the control connection address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DisplayName returns the friendly server name, falling back to the
// address.
func (c *Config) DisplayName() string {
	if c.HostName != "" {
		return c.HostName
	}
	return c.Addr()
}

// Timeout returns the configured timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxRetries,
		BaseDelay:   time.Duration(c.RetryBaseDelayMillis) * time.Millisecond,
		MaxDelay:    defaultRetryPolicy.MaxDelay,
	}
}

// ClientOptions translates the configuration into dial options.
func (c *Config) ClientOptions() []Option {
	return []Option{
		WithTimeout(c.Timeout()),
		WithRetryPolicy(c.RetryPolicy()),
		WithDataPortRange(c.DataPortStart, c.DataPortEnd),
	}
}
