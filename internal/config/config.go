// ABOUTME: Configuration loading and parsing for setlist-bot
// ABOUTME: Supports TOML and YAML files with environment variable expansion

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load for fields left unset.
const (
	DefaultCommandPrefix       = "~"
	DefaultModeratorRole       = "moderator"
	DefaultModeratorPowerLevel = 50
	DefaultEditWindow          = time.Hour
	DefaultWorkers             = 4
)

// Config is the complete setlist-bot configuration. It is constructed
// once at startup and treated as immutable for the process lifetime.
type Config struct {
	Matrix   MatrixConfig   `toml:"matrix" yaml:"matrix"`
	Bot      BotConfig      `toml:"bot" yaml:"bot"`
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// MatrixConfig holds homeserver connection settings.
type MatrixConfig struct {
	Homeserver  string `toml:"homeserver" yaml:"homeserver"`
	UserID      string `toml:"user_id" yaml:"user_id"`
	AccessToken string `toml:"access_token" yaml:"access_token"`
}

// BotConfig holds command handling and moderation settings.
type BotConfig struct {
	CommandPrefix string   `toml:"command_prefix" yaml:"command_prefix"`
	AllowedRooms  []string `toml:"allowed_rooms" yaml:"allowed_rooms"`

	// ModeratorRole is the role identifier the gate checks for.
	// ModeratorPowerLevel is the room power level at or above which a
	// caller is granted that role.
	ModeratorRole       string `toml:"moderator_role" yaml:"moderator_role"`
	ModeratorPowerLevel int    `toml:"-" yaml:"-"`

	// Raw pointer value for unmarshaling; an explicit 0 is a valid
	// level and must stay distinguishable from an absent key
	ModeratorPowerLevelRaw *int `toml:"moderator_power_level" yaml:"moderator_power_level"`

	// Workers is the size of the blocking-operation pool.
	Workers int `toml:"workers" yaml:"workers"`

	EditWindow time.Duration `toml:"-" yaml:"-"`

	// Raw string value for unmarshaling
	EditWindowRaw string `toml:"edit_window" yaml:"edit_window"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Load reads a configuration file, expands ${VAR} environment
// references, decodes it (YAML for .yaml/.yml, TOML otherwise),
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func (c *Config) parseDurations() error {
	if c.Bot.EditWindowRaw != "" {
		var err error
		c.Bot.EditWindow, err = time.ParseDuration(c.Bot.EditWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing edit_window %q: %w", c.Bot.EditWindowRaw, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = DefaultCommandPrefix
	}
	if c.Bot.ModeratorRole == "" {
		c.Bot.ModeratorRole = DefaultModeratorRole
	}
	if c.Bot.ModeratorPowerLevelRaw != nil {
		c.Bot.ModeratorPowerLevel = *c.Bot.ModeratorPowerLevelRaw
	} else {
		c.Bot.ModeratorPowerLevel = DefaultModeratorPowerLevel
	}
	if c.Bot.EditWindow == 0 {
		c.Bot.EditWindow = DefaultEditWindow
	}
	if c.Bot.Workers == 0 {
		c.Bot.Workers = DefaultWorkers
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present
// and valid. Returns an error describing the first failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("matrix.homeserver must be an http(s) URL")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if !strings.HasPrefix(c.Matrix.UserID, "@") {
		return fmt.Errorf("matrix.user_id must be a full Matrix user id (@user:server)")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Bot.Workers < 1 {
		return fmt.Errorf("bot.workers must be at least 1")
	}
	return nil
}
