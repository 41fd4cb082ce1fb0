package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service contains connection settings for the remote job service.
type Service struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Upload contains configuration for how media files reach the job service.
type Upload struct {
	// Mode is "direct" (multipart POST to the service) or "presigned"
	// (PUT to a storage URL issued by the service).
	Mode       string   `toml:"mode"`
	Extensions []string `toml:"extensions"`
}

// Polling contains configuration for remote status polling.
type Polling struct {
	Enabled            bool    `toml:"enabled"`
	TimeoutHours       float64 `toml:"timeout_hours"`
	QueuedInterval     int     `toml:"queued_interval"`
	ProcessingInterval int     `toml:"processing_interval"`
	RetryInterval      int     `toml:"retry_interval"`
}

// Assets contains the default asset categories requested for new batches.
type Assets struct {
	Default []string `toml:"default"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for roadeye.
//
// Configuration sections by subsystem:
//   - Service: remote job service endpoint and credentials
//   - Upload: upload transport and accepted media extensions
//   - Polling: status polling cadence and deadline
//   - Assets: default asset categories
//   - Paths: state directory (session lock, log file)
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Service       Service       `toml:"service"`
	Upload        Upload        `toml:"upload"`
	Polling       Polling       `toml:"polling"`
	Assets        Assets        `toml:"assets"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/roadeye/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("roadeye.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for the session lock and log file.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LogPath returns the session log file path.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "roadeye.log")
}

// LockPath returns the path of the submit session lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "roadeye.lock")
}

// RequestTimeout returns the per-request HTTP timeout for the job service.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.RequestTimeout) * time.Second
}

// PollTimeout returns the wall-clock polling deadline for a single job.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutHours * float64(time.Hour))
}

// QueuedInterval returns the wait between polls while a job is queued remotely.
func (c *Config) QueuedInterval() time.Duration {
	return time.Duration(c.Polling.QueuedInterval) * time.Second
}

// ProcessingInterval returns the wait between polls once remote work has started.
func (c *Config) ProcessingInterval() time.Duration {
	return time.Duration(c.Polling.ProcessingInterval) * time.Second
}

// RetryInterval returns the wait after a failed status query.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Polling.RetryInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
