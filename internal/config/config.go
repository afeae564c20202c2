// Package config loads wayvnc's "key = value" configuration file into a
// typed Config using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of options read from the config file over
// Defaults; `wayvnc serve` flags override the output and socket path
// afterwards. No option is read from the environment.
type Config struct {
	Capture    CaptureConfig    `mapstructure:"capture"`
	Control    ControlConfig    `mapstructure:"control"`
	Seat       SeatConfig       `mapstructure:"seat"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LogLevel   string           `mapstructure:"log_level"`
}

// CaptureConfig controls format negotiation and capture scheduling.
type CaptureConfig struct {
	Output         string  `mapstructure:"output"`          // name of the output to capture; "" = first
	PreferDMABuf   bool    `mapstructure:"prefer_dmabuf"`
	RateLimit      float64 `mapstructure:"rate_limit"` // frames/sec
	UnblankOutputs bool    `mapstructure:"unblank_outputs"`  // parsed, but not read by the server
}

// ControlConfig configures the Unix-socket control plane.
type ControlConfig struct {
	SocketPath string `mapstructure:"socket_path"` // "" = resolve from XDG_RUNTIME_DIR
}

// SeatConfig names the seat whose virtual-input devices receive forwarded
// VNC keyboard/pointer/clipboard events.
type SeatConfig struct {
	Name string `mapstructure:"name"`
}

// AuthConfig configures the external PAM-backed or static-token authenticator.
type AuthConfig struct {
	Enable      bool   `mapstructure:"enable"`
	StaticToken string `mapstructure:"static_token"`
}

// Defaults holds sensible zero-config behavior.
var Defaults = Config{
	Capture: CaptureConfig{
		PreferDMABuf: true,
		RateLimit:    30,
	},
	Control: ControlConfig{},
	Seat:    SeatConfig{Name: ""},
	Auth:    AuthConfig{Enable: false},
	LogLevel: "info",
}

var cfg *Config

// Init loads the config file (if present) over Defaults. Config file
// locations, in precedence order: $XDG_CONFIG_HOME/wayvnc/config, then
// $HOME/.config/wayvnc/config.
func Init() error {
	return InitFromPath("")
}

// InitFromPath is Init, except an explicit path (e.g. from `wayvnc
// --config`) takes precedence over every search-path default.
func InitFromPath(explicitPath string) error {
	if explicitPath != "" {
		viper.SetConfigFile(explicitPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")

		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "wayvnc"))
		}
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "wayvnc"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetDefault("capture", Defaults.Capture)
	viper.SetDefault("control", Defaults.Control)
	viper.SetDefault("seat", Defaults.Seat)
	viper.SetDefault("auth", Defaults.Auth)
	viper.SetDefault("log_level", Defaults.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Get returns the active configuration, or Defaults if Init was never
// called (useful for tests and `wayvncctl`'s one-shot invocations).
func Get() *Config {
	if cfg == nil {
		d := Defaults
		return &d
	}
	return cfg
}

// ParseLine parses one "key = value" config line per the format:
// "#" starts a comment, whitespace is trimmed, and a missing "=" is an
// error. Returned for callers (e.g. the legacy flat key=value loader some
// deployments still ship) that want line-at-a-time parsing rather than
// Viper's TOML reader.
func ParseLine(line string) (key, value string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false, nil
	}
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false, fmt.Errorf("malformed config line %q: missing '='", line)
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return key, value, true, nil
}

// ParseBool treats "true" (case-insensitive) as true, anything else as
// false.
func ParseBool(value string) bool {
	return strings.EqualFold(value, "true")
}
