// Package config loads app config from env and an optional .env file
// using Viper.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds device configuration loaded from the environment.
type Config struct {
	// DBPath is the sqlite database file holding the event log and sync
	// links (default marlowe.db).
	DBPath string `mapstructure:"MARLOWE_DB_PATH"`
	// DeviceID identifies this device in every event it authors.
	// Generated on first run when unset; set it explicitly to keep a
	// stable identity across reinstalls.
	DeviceID string `mapstructure:"MARLOWE_DEVICE_ID"`
	// DeviceSecret is the backup encryption secret. Required for export
	// and import; never written to disk by this program.
	DeviceSecret string `mapstructure:"MARLOWE_DEVICE_SECRET"`
	// CalendarProvider selects the external calendar backend (only "ics"
	// in this build).
	CalendarProvider string `mapstructure:"MARLOWE_CALENDAR_PROVIDER"`
	// CalendarID names the external calendar to reconcile against.
	CalendarID string `mapstructure:"MARLOWE_CALENDAR_ID"`
	// CalendarDir is the directory holding .ics calendar files for the
	// ics provider.
	CalendarDir string `mapstructure:"MARLOWE_CALENDAR_DIR"`
	// SyncSchedule is the cron spec for periodic reconciliation
	// (default "@every 15m").
	SyncSchedule string `mapstructure:"MARLOWE_SYNC_SCHEDULE"`
	// LogLevel is the minimum slog level: debug, info, warn, error.
	LogLevel string `mapstructure:"MARLOWE_LOG_LEVEL"`
}

// Default returns the built-in configuration, the same values Load falls
// back to when the environment sets nothing.
func Default() *Config {
	return &Config{
		DBPath:           "marlowe.db",
		CalendarProvider: "ics",
		CalendarID:       "personal",
		CalendarDir:      "calendars",
		SyncSchedule:     "@every 15m",
		LogLevel:         "info",
	}
}

// Load reads .env (if present), then builds Config from the environment.
// Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	def := Default()
	v.SetDefault("MARLOWE_DB_PATH", def.DBPath)
	v.SetDefault("MARLOWE_DEVICE_ID", def.DeviceID)
	v.SetDefault("MARLOWE_DEVICE_SECRET", def.DeviceSecret)
	v.SetDefault("MARLOWE_CALENDAR_PROVIDER", def.CalendarProvider)
	v.SetDefault("MARLOWE_CALENDAR_ID", def.CalendarID)
	v.SetDefault("MARLOWE_CALENDAR_DIR", def.CalendarDir)
	v.SetDefault("MARLOWE_SYNC_SCHEDULE", def.SyncSchedule)
	v.SetDefault("MARLOWE_LOG_LEVEL", def.LogLevel)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.DBPath == "" {
		return nil, errors.New("config: MARLOWE_DB_PATH must be set")
	}
	if cfg.CalendarProvider != "ics" {
		return nil, fmt.Errorf("config: unknown calendar provider %q", cfg.CalendarProvider)
	}
	return &cfg, nil
}
