package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Storage  StorageConfig  `yaml:"storage"`
	Push     PushConfig     `yaml:"push"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Cache    CacheConfig    `yaml:"cache"`
	Couple   CoupleConfig   `yaml:"couple"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the view bridge listen address
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// BackendConfig points at the hosted backend
type BackendConfig struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
}

// StorageConfig holds the S3-compatible object storage settings
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`   // defaults to <backend>/storage/v1/s3
	PublicURL string `yaml:"public_url"` // defaults to <backend>/storage/v1/object/public
}

// PushConfig holds the push relay settings
type PushConfig struct {
	Function       string `yaml:"function"`
	DefaultHeading string `yaml:"default_heading"`
	PartnerPlayer  string `yaml:"partner_player_id"`
}

// RealtimeConfig holds realtime feed settings
type RealtimeConfig struct {
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// CacheConfig holds on-device persistence settings
type CacheConfig struct {
	Path string `yaml:"path"`
}

// CoupleConfig holds facts about the couple
type CoupleConfig struct {
	Anniversary string `yaml:"anniversary"`
	Timezone    string `yaml:"timezone"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file and applies environment
// overrides, including those from a .env file in the working directory
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Backend.URL, "LOVENEST_BACKEND_URL")
	override(&c.Backend.AnonKey, "LOVENEST_ANON_KEY")
	override(&c.Storage.AccessKey, "LOVENEST_S3_ACCESS_KEY")
	override(&c.Storage.SecretKey, "LOVENEST_S3_SECRET_KEY")
	override(&c.Push.PartnerPlayer, "LOVENEST_PUSH_PLAYER_ID")
}

func (c *Config) applyDefaults() {
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8787
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "couple_uploads"
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.Endpoint == "" && c.Backend.URL != "" {
		c.Storage.Endpoint = c.Backend.URL + "/storage/v1/s3"
	}
	if c.Storage.PublicURL == "" && c.Backend.URL != "" {
		c.Storage.PublicURL = c.Backend.URL + "/storage/v1/object/public"
	}
	if c.Push.Function == "" {
		c.Push.Function = "push-notification"
	}
	if c.Push.DefaultHeading == "" {
		c.Push.DefaultHeading = "New note 💌"
	}
	if c.Realtime.Heartbeat <= 0 {
		c.Realtime.Heartbeat = 25 * time.Second
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "lovenest-cache.yaml"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the client cannot start with
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.AnonKey == "" {
		return fmt.Errorf("backend.anon_key is required")
	}
	if c.Couple.Anniversary != "" {
		if _, err := time.Parse(time.DateOnly, c.Couple.Anniversary); err != nil {
			return fmt.Errorf("couple.anniversary must be YYYY-MM-DD: %w", err)
		}
	}
	if _, err := c.Couple.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone, the process local zone when unset
func (c CoupleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid couple.timezone: %w", err)
	}
	return loc, nil
}

// AnniversaryDate parses the anniversary, zero when unset
func (c CoupleConfig) AnniversaryDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.Anniversary)
	return t
}
