package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for plurald.
type Config struct {
	// UserID is the Discord user id of the operator; CLI commands resolve
	// the acting system through it.
	UserID      string        `toml:"user_id"`
	BaseDir     string        `toml:"base_dir"`
	LogDir      string        `toml:"log_dir"`
	RecentLimit int           `toml:"recent_limit"` // recent-proxy list cap; 0 uses the default
	Store       StoreConfig   `toml:"store"`
	Webhook     WebhookConfig `toml:"webhook"`
	Cache       CacheConfig   `toml:"cache"`
	Media       MediaConfig   `toml:"media"`
	API         APIConfig     `toml:"api"`
}

// StoreConfig represents configuration for the entity store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// WebhookConfig represents configuration for the message executor.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type WebhookConfig struct {
	Type     string `toml:"type"`                // "discord" or "memory"
	BotToken string `toml:"bot_token,omitempty"` // only used for type=discord
	APIBase  string `toml:"api_base,omitempty"`  // override for testing; defaults to the public API
}

// CacheConfig represents configuration for the channel-webhook cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CacheConfig struct {
	Type       string `toml:"type"`                  // "memory" or "redis"
	RedisURL   string `toml:"redis_url,omitempty"`   // only used for type=redis
	TTLSeconds int    `toml:"ttl_seconds,omitempty"` // entry lifetime; 0 uses the default
}

// MediaConfig represents configuration for avatar storage.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MediaConfig struct {
	Type string `toml:"type"` // "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3"). Endpoint supports
	// S3-compatible services such as Cloudflare R2.
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
	PublicBase  string `toml:"public_base,omitempty"` // public URL prefix for stored objects

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// APIConfig holds settings for the companion HTTP API.
type APIConfig struct {
	Listen string `toml:"listen"` // address for the HTTP server, e.g. ":8234"
}

// NewConfig creates a new Config with the provided values and sensible defaults.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:  userID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store:   StoreConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "data")},
		Webhook: WebhookConfig{Type: "discord"},
		Cache:   CacheConfig{Type: "memory"},
		Media:   MediaConfig{Type: "filesystem", FSRoot: filepath.Join(baseDir, "media")},
		API:     APIConfig{Listen: ":8234"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
