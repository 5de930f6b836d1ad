// Package config loads VibeAlong configuration from files, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. VIBEALONG_SERVER_PORT.
const EnvPrefix = "VIBEALONG"

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Store     StoreConfig     `mapstructure:"store"`
	Scripts   ScriptsConfig   `mapstructure:"scripts"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP and gRPC health listeners.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	GRPCPort    int      `mapstructure:"grpc_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	MaxSessions int      `mapstructure:"max_sessions"`

	// SessionIdleTimeout closes playback sessions nobody has touched or
	// watched for this long.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// SequencerConfig tunes playback timing.
type SequencerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// StoreConfig selects the key/value backend used for wizard drafts.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// ScriptsConfig points at extra script directories.
type ScriptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TUIConfig configures the terminal UI.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(DefaultDataDir(), "vibealong.db")},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			GRPCPort:    8081,
			CORSOrigins: []string{"http://localhost:3000"},
			MaxSessions: 256,

			SessionIdleTimeout: 15 * time.Minute,
		},
		Auth:      AuthConfig{Issuer: "vibealong"},
		Sequencer: SequencerConfig{TickInterval: 100 * time.Millisecond},
		Store:     StoreConfig{Backend: BackendSQLite, RedisAddr: "localhost:6379"},
		TUI:       TUIConfig{Theme: "default"},
	}
}

// DefaultDataDir is where the database lives unless configured otherwise.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "vibealong")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "vibealong")
	}
	return ".vibealong"
}

// DefaultConfigDir is searched for config.yaml.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vibealong")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "vibealong")
	}
	return ".vibealong"
}

// Load reads configuration. An empty path searches the working directory and
// DefaultConfigDir; a missing file there is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vibealong")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.session_idle_timeout", d.Server.SessionIdleTimeout)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("sequencer.tick_interval", d.Sequencer.TickInterval)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("scripts.dir", d.Scripts.Dir)
	v.SetDefault("tui.theme", d.TUI.Theme)
}

// Validate rejects values the rest of the program cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("unknown tui theme %q", c.TUI.Theme)
	}
	if c.Sequencer.TickInterval <= 0 {
		return fmt.Errorf("sequencer.tick_interval must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("server.max_sessions must be positive")
	}
	if c.Server.SessionIdleTimeout <= 0 {
		return fmt.Errorf("server.session_idle_timeout must be positive")
	}
	return nil
}
