package config

import (
	"errors"
	"fmt"
	"net/url"

	"roadeye/internal/assets"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("service.base_url must use http or https, got %q", c.Service.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("service.base_url is missing a host: %q", c.Service.BaseURL)
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.Mode {
	case UploadModeDirect, UploadModePresigned:
		return nil
	default:
		return fmt.Errorf("upload.mode must be %q or %q, got %q", UploadModeDirect, UploadModePresigned, c.Upload.Mode)
	}
}

func (c *Config) validatePolling() error {
	if c.Polling.TimeoutHours > defaultMaxPollTimeoutHours {
		return fmt.Errorf("polling.timeout_hours must be at most %d", defaultMaxPollTimeoutHours)
	}
	for name, value := range map[string]int{
		"polling.queued_interval":     c.Polling.QueuedInterval,
		"polling.processing_interval": c.Polling.ProcessingInterval,
		"polling.retry_interval":      c.Polling.RetryInterval,
	} {
		if value > defaultMaxPollIntervalSeconds {
			return fmt.Errorf("%s must be at most %d seconds", name, defaultMaxPollIntervalSeconds)
		}
	}
	return nil
}

func (c *Config) validateAssets() error {
	for _, name := range c.Assets.Default {
		if _, err := assets.ParseCategory(name); err != nil {
			return fmt.Errorf("assets.default: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
