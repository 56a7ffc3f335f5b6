package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "STORAGE_DRIVER", "DB_SSLMODE", "WORKER_COUNT",
		"AUTHOR_CACHE_SIZE", "AUTHOR_CACHE_TTL_SECONDS", "DEFAULT_AVATAR_URL",
		"CORS_ALLOWED_ORIGINS", "R2_ACCOUNT_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.StorageDriver != StoragePostgres {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, StoragePostgres)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, want disable", cfg.DBSSLMode)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
	if cfg.AuthorCacheTTL != 300*time.Second {
		t.Errorf("AuthorCacheTTL = %v, want 5m", cfg.AuthorCacheTTL)
	}
	if cfg.DefaultAvatarURL == "" {
		t.Error("expected a default avatar URL")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.MediaEnabled() {
		t.Error("media should be disabled without R2 settings")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://talksphere.app")
	t.Setenv("ADMIN_USER_IDS", "mod-1,, mod-2 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StorageDriver != StorageMemory {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageMemory)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	want := []string{"http://localhost:5173", "https://talksphere.app"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Errorf("origin[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[0] != "mod-1" || cfg.AdminUserIDs[1] != "mod-2" {
		t.Errorf("AdminUserIDs = %v, want [mod-1 mod-2]", cfg.AdminUserIDs)
	}
}
