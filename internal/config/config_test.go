package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServer_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServer(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("BindAddress = %q, want 0.0.0.0", cfg.BindAddress)
	}
	if cfg.MaxClients != 64 {
		t.Errorf("MaxClients = %d, want 64", cfg.MaxClients)
	}
	if cfg.Port != 0 {
		t.Errorf("Port = %d, want 0 (no default)", cfg.Port)
	}
}

func TestLoadServer_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := "bind_address: 127.0.0.1\nport: 3333\nmax_clients: 8\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	if cfg.BindAddress != "127.0.0.1" || cfg.Port != 3333 || cfg.MaxClients != 8 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadServer_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("port: [nope"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadServer(path); err == nil {
		t.Fatal("LoadServer should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultServer()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail without a port")
	}

	cfg.Port = 3333
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on good config: %v", err)
	}

	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject out-of-range port")
	}

	cfg.Port = 3333
	cfg.MaxClients = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject zero max_clients")
	}
}
