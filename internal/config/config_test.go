package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "drawhub_test")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
}

func TestLoadConfig_LockDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Lock.AcquireTimeout <= 0 {
		t.Fatalf("lock acquire timeout must be positive, got %v", cfg.Lock.AcquireTimeout)
	}
	if cfg.Lock.Lease < cfg.Lock.AcquireTimeout {
		t.Fatalf("lease %v must cover acquire timeout %v", cfg.Lock.Lease, cfg.Lock.AcquireTimeout)
	}
	if cfg.Lock.AcquireTimeout > time.Minute {
		t.Fatalf("unreasonable default acquire timeout: %v", cfg.Lock.AcquireTimeout)
	}
}
