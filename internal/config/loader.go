package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the calbook service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	SessionTTL         time.Duration
	GatewayTimeout     time.Duration
	SyncWindowDays     int
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	CalDAVEndpoint     string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to sensible defaults. Google OAuth credentials are
// optional as a pair: setting only one of them is reported as invalid.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:calbook.db",
		SessionTTL:     24 * time.Hour,
		GatewayTimeout: 10 * time.Second,
		SyncWindowDays: 60,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CALBOOK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CALBOOK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CALBOOK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CALBOOK_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CALBOOK_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("CALBOOK_GATEWAY_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "CALBOOK_GATEWAY_TIMEOUT")
		} else {
			cfg.GatewayTimeout = timeout
		}
	}

	if daysValue := strings.TrimSpace(os.Getenv("CALBOOK_SYNC_WINDOW_DAYS")); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "CALBOOK_SYNC_WINDOW_DAYS")
		} else {
			cfg.SyncWindowDays = days
		}
	}

	cfg.GoogleClientID = strings.TrimSpace(os.Getenv("CALBOOK_GOOGLE_CLIENT_ID"))
	cfg.GoogleClientSecret = strings.TrimSpace(os.Getenv("CALBOOK_GOOGLE_CLIENT_SECRET"))
	cfg.OAuthRedirectURL = strings.TrimSpace(os.Getenv("CALBOOK_OAUTH_REDIRECT_URL"))
	cfg.CalDAVEndpoint = strings.TrimSpace(os.Getenv("CALBOOK_CALDAV_ENDPOINT"))

	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		invalid = append(invalid, "CALBOOK_GOOGLE_CLIENT_ID/CALBOOK_GOOGLE_CLIENT_SECRET")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// GoogleEnabled reports whether Google OAuth credentials were provided.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
