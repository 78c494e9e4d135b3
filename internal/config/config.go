// Package config loads application configuration from environment variables.
//
// Missing required credentials are a startup failure, not a runtime
// condition: the process refuses to boot rather than limping along with a
// webhook it cannot verify or a push channel it cannot use.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the server reads from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":5000"`
	DBPath   string `envconfig:"DB_PATH" default:"data/ohaline.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	// Session signing secret. Generate with: openssl rand -hex 32
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// LINE Login (web OAuth) credentials.
	LineLoginChannelID     string `envconfig:"LINE_LOGIN_CHANNEL_ID" required:"true"`
	LineLoginChannelSecret string `envconfig:"LINE_LOGIN_CHANNEL_SECRET" required:"true"`
	LineLoginCallbackURL   string `envconfig:"LINE_LOGIN_CALLBACK_URL"`

	// LINE Messaging API (bot) credentials.
	LineChannelSecret      string `envconfig:"LINE_CHANNEL_SECRET" required:"true"`
	LineChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN" required:"true"`
	// Bot basic ID used to build the add-friend URL on the link page,
	// e.g. "@123abcd".
	LineBotBasicID string `envconfig:"LINE_BOT_BASIC_ID"`

	BackendURL  string `envconfig:"BACKEND_URL" default:"http://localhost:5000"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	// Zone the notification scheduler is pinned to. Delivery slots are
	// evaluated in this zone for everyone; per-user zones are out of scope.
	Timezone string `envconfig:"NOTIFICATION_TZ" default:"Asia/Tokyo"`
}

// Load reads environment variables into Config and validates the
// non-envconfig constraints.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if cfg.LineLoginCallbackURL == "" {
		cfg.LineLoginCallbackURL = cfg.BackendURL + "/auth/line/callback"
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("config: invalid NOTIFICATION_TZ %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}
