package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != ":8080" {
		t.Errorf("address: got %q", cfg.Address)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr: got %q", cfg.RedisAddr)
	}
	if cfg.BlobBackend != BlobBackendDisk {
		t.Errorf("blob backend: got %q", cfg.BlobBackend)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers: got %d", cfg.Workers)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl: got %v", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FILEDEN_ADDRESS", ":9090")
	t.Setenv("FILEDEN_BLOB_BACKEND", "s3")
	t.Setenv("FILEDEN_WORKERS", "16")
	t.Setenv("FILEDEN_SESSION_TTL", "30m")
	t.Setenv("FILEDEN_S3_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != ":9090" {
		t.Errorf("address: got %q", cfg.Address)
	}
	if cfg.BlobBackend != BlobBackendS3 {
		t.Errorf("blob backend: got %q", cfg.BlobBackend)
	}
	if cfg.Workers != 16 {
		t.Errorf("workers: got %d", cfg.Workers)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("session ttl: got %v", cfg.SessionTTL)
	}
	if !cfg.S3UseSSL {
		t.Error("s3 ssl: expected true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("FILEDEN_WORKERS", "-2")
	t.Setenv("FILEDEN_SESSION_TTL", "bogus")
	t.Setenv("FILEDEN_BLOB_BACKEND", "tape")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers: got %d, want default", cfg.Workers)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl: got %v, want default", cfg.SessionTTL)
	}
	if cfg.BlobBackend != BlobBackendDisk {
		t.Errorf("blob backend: got %q, want disk", cfg.BlobBackend)
	}
}
