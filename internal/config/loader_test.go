package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.QueueSize != 256 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsValuesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("log_level: debug\nqueue_size: 32\narchive_enable: false\narchive_flush: 2s\nauto_connect:\n  - server: irc.example.org:6667\n    nick: crow\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.QueueSize != 32 || cfg.ArchiveEnable {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ArchiveFlush != 2*time.Second {
		t.Fatalf("archive_flush = %v, want 2s", cfg.ArchiveFlush)
	}
	if len(cfg.AutoConnect) != 1 || cfg.AutoConnect[0].Nick != "crow" {
		t.Fatalf("unexpected auto_connect: %+v", cfg.AutoConnect)
	}
}
