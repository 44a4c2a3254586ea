package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/diary.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Dispatch and resupply cadence. The dispatcher polls for due
	// checks; the resupplier refills each user's day once, at the
	// given UTC hour.
	DispatchInterval time.Duration `envconfig:"DISPATCH_INTERVAL" default:"1m"`
	ResupplyHourUTC  int           `envconfig:"RESUPPLY_HOUR_UTC" default:"0"`

	// Weekly digest slot. Weekday follows time.Weekday numbering,
	// Sunday = 0.
	DigestWeekday int `envconfig:"DIGEST_WEEKDAY" default:"0"`
	DigestHourUTC int `envconfig:"DIGEST_HOUR_UTC" default:"20"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
