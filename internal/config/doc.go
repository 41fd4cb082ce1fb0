// Package config loads, normalizes, and validates roadeye configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ROADEYE_API_URL and ROADEYE_API_TOKEN. The Config type centralizes every knob
// the CLI needs: the remote job service endpoint, upload mode, polling cadence,
// default asset selection, logging, and notifications.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
