package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "UNDO_WINDOW", "LOG_LEVEL", "JOB_QUEUE_SIZE", "EXPORT_INTERVAL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != DriverMemory || cfg.UndoWindow != 5*time.Second || cfg.JobQueueSize != 100 || cfg.ExportInterval != 24*time.Hour {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	os.Unsetenv("PORT")
	t.Cleanup(func() { os.Unsetenv("PORT") })
	t.Setenv("STORE_DRIVER", "sqlite")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=9090\nSTORE_DRIVER=memory\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090 from .env", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver = %q, environment must win over .env", cfg.StoreDriver)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{StoreDriver: DriverMemory, UndoWindow: time.Second, JobQueueSize: 1, ExportInterval: time.Hour}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.StoreDriver = DriverPostgres }, true},
		{"postgres with url", func(c *Config) { c.StoreDriver = DriverPostgres; c.DatabaseURL = "postgres://x" }, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, true},
		{"zero undo window", func(c *Config) { c.UndoWindow = 0 }, true},
		{"empty queue", func(c *Config) { c.JobQueueSize = 0 }, true},
		{"zero export interval", func(c *Config) { c.ExportInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"10s", 10 * time.Second},
		{"3", 3 * time.Second},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.val)
			if got := GetDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("GetDuration(%q) = %s, want %s", tt.val, got, tt.want)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	if got := GetInt("TEST_INT", 7); got != 7 {
		t.Errorf("GetInt(abc) = %d, want fallback 7", got)
	}
	t.Setenv("TEST_INT", "42")
	if got := GetInt("TEST_INT", 7); got != 42 {
		t.Errorf("GetInt(42) = %d, want 42", got)
	}
}
