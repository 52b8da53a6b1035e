// Package config provides configuration file parsing for logport.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Server holds the HTTP listener settings.
type Server struct {
	Bind           string `toml:"bind"`
	LegacyBindPath string `toml:"legacy_bind_path"`
}

// Watch selects how log content is followed.
type Watch struct {
	// Mode is "native" or "process". Empty picks the platform default.
	Mode        string   `toml:"mode"`
	EOL         string   `toml:"eol"`
	TailCommand []string `toml:"tail_command"`
}

// Paths locates logport's own files.
type Paths struct {
	DBPath        string `toml:"db_path"`
	PIDFile       string `toml:"pid_file"`
	LogFile       string `toml:"log_file"`
	AllowlistFile string `toml:"allowlist_file"`
}

// Logging configures the daemon logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full logport configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Watch   Watch   `toml:"watch"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
}

const (
	defaultBind           = "127.0.0.1:7490"
	defaultLegacyBindPath = "/ws"
	configFileName        = "config.toml"
)

// Dir returns the logport config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/logport if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "logport"), nil
}

// DefaultConfigPath returns {Dir}/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Default returns a configuration with every path under the config dir.
func Default() Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	return Config{
		Server: Server{
			Bind:           defaultBind,
			LegacyBindPath: defaultLegacyBindPath,
		},
		Watch: Watch{
			EOL: "\n",
		},
		Paths: Paths{
			DBPath:        filepath.Join(dir, "logport.db"),
			PIDFile:       filepath.Join(dir, "logport.pid"),
			LogFile:       filepath.Join(dir, "logport.log"),
			AllowlistFile: filepath.Join(dir, "allowlist"),
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config at path, or at DefaultConfigPath when path is
// empty. A missing file yields the defaults. It returns the resolved path
// and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		def, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = def
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.LegacyBindPath = strings.TrimSpace(c.Server.LegacyBindPath)
	if c.Server.LegacyBindPath == "" {
		c.Server.LegacyBindPath = defaultLegacyBindPath
	}

	c.Watch.Mode = strings.ToLower(strings.TrimSpace(c.Watch.Mode))
	c.Watch.EOL = unescapeEOL(c.Watch.EOL)
	if c.Watch.EOL == "" {
		c.Watch.EOL = "\n"
	}

	for _, p := range []*string{&c.Paths.DBPath, &c.Paths.PIDFile, &c.Paths.LogFile, &c.Paths.AllowlistFile} {
		if strings.TrimSpace(*p) == "" {
			continue
		}
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Watch.Mode {
	case "", "native", "process":
	default:
		return fmt.Errorf("watch.mode must be native or process, got %q", c.Watch.Mode)
	}
	if !strings.HasPrefix(c.Server.LegacyBindPath, "/") {
		return fmt.Errorf("server.legacy_bind_path must start with /, got %q", c.Server.LegacyBindPath)
	}
	if c.Server.LegacyBindPath == "/api/v1/logs/watch" {
		return errors.New("server.legacy_bind_path collides with the v1 watch endpoint")
	}
	if c.Paths.DBPath == "" {
		return errors.New("paths.db_path is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// unescapeEOL lets the config spell line endings as \n or \r\n.
func unescapeEOL(eol string) string {
	return strings.NewReplacer(`\r`, "\r", `\n`, "\n").Replace(eol)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

// ExpandPath resolves ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}
