package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeService()
	c.normalizeUpload()
	c.normalizePolling()
	c.normalizeAssets()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv("ROADEYE_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.Service.BaseURL = value
	}
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultBaseURL
	}
	if c.Service.APIToken == "" {
		if value, ok := os.LookupEnv("ROADEYE_API_TOKEN"); ok {
			c.Service.APIToken = value
		}
	}
	c.Service.APIToken = strings.TrimSpace(c.Service.APIToken)
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.Mode = strings.ToLower(strings.TrimSpace(c.Upload.Mode))
	if c.Upload.Mode == "" {
		c.Upload.Mode = defaultUploadMode
	}
	exts := make([]string, 0, len(c.Upload.Extensions))
	seen := make(map[string]struct{}, len(c.Upload.Extensions))
	for _, ext := range c.Upload.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Upload.Extensions = exts
}

func (c *Config) normalizePolling() {
	if c.Polling.TimeoutHours <= 0 {
		c.Polling.TimeoutHours = defaultPollTimeoutHours
	}
	if c.Polling.QueuedInterval <= 0 {
		c.Polling.QueuedInterval = defaultQueuedInterval
	}
	if c.Polling.ProcessingInterval <= 0 {
		c.Polling.ProcessingInterval = defaultProcessingInterval
	}
	if c.Polling.RetryInterval <= 0 {
		c.Polling.RetryInterval = defaultRetryInterval
	}
}

func (c *Config) normalizeAssets() {
	if len(c.Assets.Default) == 0 {
		return
	}
	out := make([]string, 0, len(c.Assets.Default))
	seen := make(map[string]struct{}, len(c.Assets.Default))
	for _, name := range c.Assets.Default {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	c.Assets.Default = out
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
