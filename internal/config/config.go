// Package config loads the optional per-workspace TOML override file,
// <cache>/config.toml. Absence of the file is not an error; every field
// falls back to its built-in default.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the runner's tunable timeouts and windows, overridable
// per workspace.
type Config struct {
	RPCTimeout       Duration `toml:"rpc_timeout"`
	PingTimeout      Duration `toml:"ping_timeout"`
	ToolTimeout      Duration `toml:"tool_timeout"`
	LockPollInterval Duration `toml:"lock_poll_interval"`
	LockTimeout      Duration `toml:"lock_timeout"`
	PortFileTimeout  Duration `toml:"port_file_timeout"`
	SocketTimeout    Duration `toml:"socket_timeout"`
	RateLimitWindow  Duration `toml:"rate_limit_window"`
}

// Duration wraps time.Duration so it unmarshals from a TOML string like
// "30s" rather than a raw nanosecond integer.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) AsTimeDuration() time.Duration { return time.Duration(d) }

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		RPCTimeout:       Duration(30 * time.Second),
		PingTimeout:      Duration(5 * time.Second),
		ToolTimeout:      Duration(5 * time.Minute),
		LockPollInterval: Duration(100 * time.Millisecond),
		LockTimeout:      Duration(30 * time.Second),
		PortFileTimeout:  Duration(10 * time.Second),
		SocketTimeout:    Duration(10 * time.Second),
		RateLimitWindow:  Duration(1 * time.Second),
	}
}

// Load reads <cache>/config.toml if present, overlaying its fields onto
// Default(). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}
