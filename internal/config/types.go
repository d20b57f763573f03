// Package config loads the agent's immutable configuration: a YAML or
// JSON file, overlaid with environment variables (LEETBOT_*). Required
// values are validated before any scheduling begins; the loaded Config is
// never mutated afterwards.
package config

import "time"

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Schedule ScheduleConfig `json:"schedule"`
	Storage  StorageConfig  `json:"storage"`
	Catalog  CatalogConfig  `json:"catalog"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token      string `json:"token" env:"TELEGRAM_TOKEN"`
	ChatID     int64  `json:"chat_id" env:"TELEGRAM_CHAT_ID"`
	RatePerSec int    `json:"rate_per_sec,omitempty" env:"TELEGRAM_RATE_PER_SEC"`
}

// ScheduleConfig controls the daily trigger.
//
// Grace is a Go duration string (e.g. "5m"); a firing observed later than
// that after its slot is skipped for the day.
type ScheduleConfig struct {
	Time     string `json:"time,omitempty" env:"DAILY_SEND_TIME"`    // "HH:MM", default "09:00"
	Timezone string `json:"timezone,omitempty" env:"TIMEZONE"`       // IANA TZ, default "America/New_York"
	Grace    string `json:"grace,omitempty" env:"SCHEDULE_GRACE"`
}

type StorageConfig struct {
	Path        string `json:"path,omitempty" env:"DATABASE_PATH"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type CatalogConfig struct {
	GraphQLURL string `json:"graphql_url,omitempty" env:"LEETCODE_GRAPHQL_URL"`
	Timeout    string `json:"timeout,omitempty"` // Go duration string, default "30s"
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty" env:"LOG_LEVEL"`
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

const (
	defaultSendTime = "09:00"
	defaultTimezone = "America/New_York"
	defaultDBPath   = "leetbot.db"
	defaultGrace    = 5 * time.Minute
)
