package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

const (
	envPrefix = "SLACKMANAGER"
	appName   = "slackmanager"
)

// Config holds application configuration loaded from YAML.
type Config struct {
	BotToken           string        `yaml:"bot_token" mapstructure:"bot_token"`
	AppToken           string        `yaml:"app_token" mapstructure:"app_token"`
	BotName            string        `yaml:"bot_name" mapstructure:"bot_name"`
	HandshakeTimeout   time.Duration `yaml:"-" mapstructure:"handshake_timeout"`
	UnboundedWait      bool          `yaml:"unbounded_wait" mapstructure:"unbounded_wait"`
	HistoryLimit       int           `yaml:"history_limit" mapstructure:"history_limit"`
	NotifyQueueSize    int           `yaml:"notify_queue_size" mapstructure:"notify_queue_size"`
	RefreshAfterCreate bool          `yaml:"refresh_after_create" mapstructure:"refresh_after_create"`
	APIURL             string        `yaml:"api_url,omitempty" mapstructure:"api_url"`
	Timezone           string        `yaml:"timezone" mapstructure:"timezone"`
	Include            []string      `yaml:"include" mapstructure:"include"`
	Exclude            []string      `yaml:"exclude" mapstructure:"exclude"`
	OutputDir          string        `yaml:"output_dir" mapstructure:"output_dir"`
	MetricsAddr        string        `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
	LogLevel           string        `yaml:"log_level" mapstructure:"log_level"`

	configFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("app_token", "")
	v.SetDefault("bot_name", "SlackManager")
	v.SetDefault("handshake_timeout", 5*time.Second)
	v.SetDefault("unbounded_wait", false)
	v.SetDefault("history_limit", slack.DefaultHistoryLimit)
	v.SetDefault("notify_queue_size", 64)
	v.SetDefault("refresh_after_create", false)
	v.SetDefault("api_url", "")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("output_dir", "./slack-logs")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. Values come from defaults, then the YAML file,
// then SLACKMANAGER_* environment variables. An empty path looks for the
// default config file and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if def := DefaultConfigPath(); def != "" {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Dir(def))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.configFile = v.ConfigFileUsed()
	return cfg, nil
}

// LoadEnvFile adds the variables in a dotenv file to the environment so that
// Load sees them. Variables already set are left alone. A missing file is
// not an error unless required is set.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ConfigFile returns the file the configuration was read from, or "" when
// only defaults and the environment were used.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// DefaultConfigPath returns ~/.config/slackmanager/slackmanager.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, appName+".yaml")
}

// MarshalYAML writes the handshake timeout in duration notation ("5s").
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	return struct {
		plain            `yaml:",inline"`
		HandshakeTimeout string `yaml:"handshake_timeout"`
	}{plain(c), c.HandshakeTimeout.String()}, nil
}

// Save writes the configuration to path, creating parent directories.
// The file holds tokens, so it is readable by the owner only.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Validate checks that the configuration is usable for connecting.
func (c *Config) Validate() error {
	if err := c.Credentials().Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake_timeout must not be negative, got %s", c.HandshakeTimeout)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	if c.NotifyQueueSize < 0 {
		return fmt.Errorf("notify_queue_size must not be negative, got %d", c.NotifyQueueSize)
	}
	return nil
}

// Credentials returns the Slack tokens.
func (c *Config) Credentials() slack.Credentials {
	return slack.Credentials{Token: c.BotToken, AppToken: c.AppToken}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level parses the configured log level. An empty value means info.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
