package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"roadeye/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ROADEYE_API_URL", "https://jobs.example.com/")
	t.Setenv("ROADEYE_API_TOKEN", " secret ")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Service.BaseURL != "https://jobs.example.com" {
		t.Fatalf("unexpected base url: %q", cfg.Service.BaseURL)
	}
	if cfg.Service.APIToken != "secret" {
		t.Fatalf("expected trimmed token from env, got %q", cfg.Service.APIToken)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "roadeye")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !cfg.Polling.Enabled {
		t.Fatal("expected polling enabled by default")
	}
	if cfg.PollTimeout() != 12*time.Hour {
		t.Fatalf("unexpected poll timeout: %s", cfg.PollTimeout())
	}
	if cfg.QueuedInterval() != 2*time.Second || cfg.ProcessingInterval() != 3*time.Second || cfg.RetryInterval() != 2*time.Second {
		t.Fatalf("unexpected poll intervals: %s %s %s", cfg.QueuedInterval(), cfg.ProcessingInterval(), cfg.RetryInterval())
	}
	if cfg.Upload.Mode != config.UploadModeDirect {
		t.Fatalf("unexpected upload mode: %q", cfg.Upload.Mode)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.StateDir); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "roadeye.toml")

	type payload struct {
		Service struct {
			BaseURL string `toml:"base_url"`
		} `toml:"service"`
		Upload struct {
			Mode       string   `toml:"mode"`
			Extensions []string `toml:"extensions"`
		} `toml:"upload"`
		Polling struct {
			Enabled      bool    `toml:"enabled"`
			TimeoutHours float64 `toml:"timeout_hours"`
		} `toml:"polling"`
		Assets struct {
			Default []string `toml:"default"`
		} `toml:"assets"`
	}
	custom := payload{}
	custom.Service.BaseURL = "http://localhost:9000"
	custom.Upload.Mode = "Presigned"
	custom.Upload.Extensions = []string{"MP4", ".mov", "mp4"}
	custom.Polling.Enabled = false
	custom.Polling.TimeoutHours = 0.5
	custom.Assets.Default = []string{"Mileposts", "guardrails", "mileposts"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Upload.Mode != config.UploadModePresigned {
		t.Fatalf("unexpected upload mode: %q", cfg.Upload.Mode)
	}
	if strings.Join(cfg.Upload.Extensions, ",") != ".mp4,.mov" {
		t.Fatalf("unexpected extensions: %v", cfg.Upload.Extensions)
	}
	if cfg.Polling.Enabled {
		t.Fatal("expected polling disabled")
	}
	if cfg.PollTimeout() != 30*time.Minute {
		t.Fatalf("unexpected poll timeout: %s", cfg.PollTimeout())
	}
	if strings.Join(cfg.Assets.Default, ",") != "mileposts,guardrails" {
		t.Fatalf("unexpected default assets: %v", cfg.Assets.Default)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"scheme", func(c *config.Config) { c.Service.BaseURL = "ftp://host" }, "service.base_url"},
		{"upload mode", func(c *config.Config) { c.Upload.Mode = "carrier-pigeon" }, "upload.mode"},
		{"asset", func(c *config.Config) { c.Assets.Default = []string{"potholes"} }, "assets.default"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"timeout", func(c *config.Config) { c.Polling.TimeoutHours = 10000 }, "polling.timeout_hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Service.BaseURL != config.Default().Service.BaseURL {
		t.Fatalf("unexpected sample base url: %q", cfg.Service.BaseURL)
	}
}
