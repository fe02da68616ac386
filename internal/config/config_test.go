package config_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"plurald/internal/config"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := config.NewConfig("user-123", "/var/lib/plurald")

	var buf bytes.Buffer
	m := &config.Manager{}
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", got.UserID)
	}
	if got.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want sqlite", got.Store.Type)
	}
	if got.Store.DataDir != filepath.Join("/var/lib/plurald", "data") {
		t.Errorf("Store.DataDir = %q", got.Store.DataDir)
	}
	if got.Webhook.Type != "discord" {
		t.Errorf("Webhook.Type = %q, want discord", got.Webhook.Type)
	}
	if got.API.Listen != ":8234" {
		t.Errorf("API.Listen = %q, want :8234", got.API.Listen)
	}
}

func TestReadTaggedUnions(t *testing.T) {
	raw := `
user_id = "u-1"
base_dir = "/tmp/plurald"
log_dir = "/tmp/plurald/log"
recent_limit = 5

[store]
type = "memory"

[webhook]
type = "discord"
bot_token = "secret"

[cache]
type = "redis"
redis_url = "redis://localhost:6379/0"
ttl_seconds = 120

[media]
type = "s3"
s3_bucket = "avatars"
s3_region = "auto"
s3_endpoint = "https://example.r2.cloudflarestorage.com"

[api]
listen = ":9000"
`
	m := &config.Manager{}
	cfg, err := m.Read(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if cfg.RecentLimit != 5 {
		t.Errorf("RecentLimit = %d, want 5", cfg.RecentLimit)
	}
	if cfg.Webhook.BotToken != "secret" {
		t.Errorf("BotToken = %q", cfg.Webhook.BotToken)
	}
	if cfg.Cache.Type != "redis" || cfg.Cache.RedisURL == "" || cfg.Cache.TTLSeconds != 120 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Media.S3Bucket != "avatars" {
		t.Errorf("S3Bucket = %q", cfg.Media.S3Bucket)
	}
	if cfg.API.Listen != ":9000" {
		t.Errorf("Listen = %q", cfg.API.Listen)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plurald.toml")
		cfg := config.NewConfig("u-1", t.TempDir())

		if err := config.Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := config.ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.UserID != "u-1" {
			t.Errorf("UserID = %q, want u-1", got.UserID)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plurald.toml")
		cfg := config.NewConfig("u-1", t.TempDir())

		if err := config.Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := config.Init(path, cfg); err == nil {
			t.Error("second Init() succeeded, want error")
		}
	})
}
