// Package config loads the service configuration from a TOML file, applying
// defaults first so a missing file still yields a runnable (if credential-less)
// configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultLanguage        = "ja"
	DefaultVisionModel     = "gemini-1.5-pro"
	DefaultDetectModel     = "gemini-1.5-flash"
	DefaultTimeoutSeconds  = 30
	DefaultMaxContentBytes = 10 << 20
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "snapguide"
	DefaultPGSSLMode       = "disable"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Line     LineConfig     `toml:"line"`
	Gemini   GeminiConfig   `toml:"gemini"`
	LangPref LangPrefConfig `toml:"langpref"`
	Postgres PostgresConfig `toml:"postgres"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LineConfig carries the Messaging API credentials. The channel secret signs
// webhook bodies; the access token authorizes reply and content calls.
type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret" validate:"required"`
	ChannelAccessToken string `toml:"channel_access_token" validate:"required"`
	MaxContentBytes    int64  `toml:"max_content_bytes"`
}

type GeminiConfig struct {
	APIKey         string `toml:"api_key" validate:"required"`
	VisionModel    string `toml:"vision_model"`
	DetectModel    string `toml:"detect_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LangPrefConfig selects the preference store backend and the resolution
// fallback. ProfileLookup enables querying the platform profile for a locale
// before falling back to DefaultLanguage.
type LangPrefConfig struct {
	Store           string `toml:"store" validate:"oneof=memory postgres"`
	DefaultLanguage string `toml:"default_language" validate:"required"`
	ProfileLookup   bool   `toml:"profile_lookup"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns a pgx-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Line: LineConfig{
			MaxContentBytes: DefaultMaxContentBytes,
		},
		Gemini: GeminiConfig{
			VisionModel:    DefaultVisionModel,
			DetectModel:    DefaultDetectModel,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		LangPref: LangPrefConfig{
			Store:           StoreMemory,
			DefaultLanguage: DefaultLanguage,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks that every field required at serve time is present.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
