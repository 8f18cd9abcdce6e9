// Package config loads the runtime configuration for the custom player.
//
// Values come from three layers, later layers winning: the embedded example
// config, an optional TOML file, and environment variables (optionally seeded
// from a .env file).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Session storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

var (
	// ErrMissingCredentials is returned when the Spotify client id or secret is not set.
	ErrMissingCredentials = errors.New("missing Spotify client id or secret (set SPOTIFY_ID and SPOTIFY_SECRET)")

	// ErrMissingConfig is returned when an explicitly requested config file does not exist.
	ErrMissingConfig = errors.New("configuration file not found")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the application configuration. It is built once at startup and
// passed to every component that needs it.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	Images  ImagesConfig  `toml:"images"`
	Log     LogConfig     `toml:"log"`
}

// SpotifyConfig holds the OAuth client registration.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string        `toml:"addr"`
	ReadTimeout   time.Duration `toml:"read_timeout"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	IdleTimeout   time.Duration `toml:"idle_timeout"`
	SecureCookies bool          `toml:"secure_cookies"`
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Backend         string        `toml:"backend"`
	Dir             string        `toml:"dir"`
	Lifetime        time.Duration `toml:"lifetime"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
	DatabaseURL     string        `toml:"database_url"`
	RedisAddr       string        `toml:"redis_addr"`
	RedisPassword   string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
}

// ImagesConfig bounds the background image intake.
type ImagesConfig struct {
	FetchTimeout     time.Duration `toml:"fetch_timeout"`
	MaxBytes         int64         `toml:"max_bytes"`
	UploadsPerMinute int           `toml:"uploads_per_minute"`
	UploadBurst      int           `toml:"upload_burst"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration described by the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded default config: %v", err))
	}
	return &cfg
}

// Load builds the configuration from defaults, the TOML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
			}
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDotEnv loads environment variables from the file at path if it exists.
// Variables already present in the environment are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// WriteExample writes the example configuration to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate reports the first problem that would prevent the server from starting.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify.redirect_uri is empty", ErrInvalidConfig)
	}

	switch c.Session.Backend {
	case BackendFile:
		if c.Session.Dir == "" {
			return fmt.Errorf("%w: session.dir is empty", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Session.DatabaseURL == "" {
			return fmt.Errorf("%w: session.database_url is empty", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("%w: session.redis_addr is empty", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("%w: session.lifetime must be positive", ErrInvalidConfig)
	}
	if c.Images.MaxBytes <= 0 {
		return fmt.Errorf("%w: images.max_bytes must be positive", ErrInvalidConfig)
	}
	if c.Images.FetchTimeout <= 0 {
		return fmt.Errorf("%w: images.fetch_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Spotify.ClientID = getString("SPOTIFY_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getString("SPOTIFY_SECRET", c.Spotify.ClientSecret)
	c.Spotify.RedirectURI = getString("SPOTIFY_REDIRECT_URI", c.Spotify.RedirectURI)

	c.Server.Addr = getString("CUSTOM_PLAYER_ADDR", c.Server.Addr)
	c.Server.SecureCookies = getBool("CUSTOM_PLAYER_SECURE_COOKIES", c.Server.SecureCookies)

	c.Session.Backend = strings.ToLower(getString("CUSTOM_PLAYER_SESSION_BACKEND", c.Session.Backend))
	c.Session.Dir = getString("CUSTOM_PLAYER_SESSION_DIR", c.Session.Dir)
	c.Session.Lifetime = getDuration("CUSTOM_PLAYER_SESSION_LIFETIME", c.Session.Lifetime)
	c.Session.DatabaseURL = getString("CUSTOM_PLAYER_DATABASE_URL", c.Session.DatabaseURL)
	c.Session.RedisAddr = getString("CUSTOM_PLAYER_REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getString("CUSTOM_PLAYER_REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getInt("CUSTOM_PLAYER_REDIS_DB", c.Session.RedisDB)

	c.Images.FetchTimeout = getDuration("CUSTOM_PLAYER_IMAGE_FETCH_TIMEOUT", c.Images.FetchTimeout)

	c.Log.Level = getString("CUSTOM_PLAYER_LOG_LEVEL", c.Log.Level)
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
