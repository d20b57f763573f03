package config

import (
	"fmt"
	"strings"
	"time"
)

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// GraceDuration returns the parsed misfire grace window.
func (c *Config) GraceDuration() time.Duration {
	d, err := parseDurationOrDefault("schedule.grace", c.Schedule.Grace, defaultGrace)
	if err != nil {
		return defaultGrace
	}
	return d
}

// BusyTimeout returns the parsed sqlite busy timeout (0 = driver default).
func (c *Config) BusyTimeout() time.Duration {
	d, err := parseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}

// CatalogTimeout returns the parsed fetch timeout (0 = fetcher default).
func (c *Config) CatalogTimeout() time.Duration {
	d, err := parseDurationField("catalog.timeout", c.Catalog.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ConsoleLogging resolves the optional console flag (default on).
func (c *Config) ConsoleLogging() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}
