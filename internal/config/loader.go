package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSQLiteDSN = "file:events.db"

// Environment names accepted by EVENTS_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config captures environment driven configuration values for the event site.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	SessionSecret   string
	SessionTTL      time.Duration
	Environment     string
	BaseURL         string
	ResetTokenTTL   time.Duration
	PageSize        int
	SecureCookies   bool
	// ListingCacheTTL keeps public listings in memory; zero disables it.
	ListingCacheTTL time.Duration
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// LoadDotenv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; missing required values and
// malformed entries are reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        3000,
		SessionTTL:      24 * time.Hour,
		Environment:     EnvDevelopment,
		ResetTokenTTL:   time.Hour,
		PageSize:        10,
		ListingCacheTTL: 15 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := lookup("EVENTS_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "EVENTS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	cfg.SQLiteDSN = SQLiteDSN()

	if secret := lookup("EVENTS_SESSION_SECRET"); secret == "" {
		missing = append(missing, "EVENTS_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := lookup("EVENTS_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "EVENTS_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if env := strings.ToLower(lookup("EVENTS_ENV")); env != "" {
		switch env {
		case EnvDevelopment, EnvProduction, EnvTest:
			cfg.Environment = env
		default:
			invalid = append(invalid, "EVENTS_ENV")
		}
	}

	if ttlValue := lookup("EVENTS_RESET_TOKEN_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "EVENTS_RESET_TOKEN_TTL")
		} else {
			cfg.ResetTokenTTL = ttl
		}
	}

	if sizeValue := lookup("EVENTS_PAGE_SIZE"); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 || size > 100 {
			invalid = append(invalid, "EVENTS_PAGE_SIZE")
		} else {
			cfg.PageSize = size
		}
	}

	if ttlValue := lookup("EVENTS_LISTING_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "EVENTS_LISTING_CACHE_TTL")
		} else {
			cfg.ListingCacheTTL = ttl
		}
	}

	cfg.SecureCookies = cfg.Environment == EnvProduction
	if secureValue := lookup("EVENTS_SECURE_COOKIES"); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, "EVENTS_SECURE_COOKIES")
		} else {
			cfg.SecureCookies = secure
		}
	}

	cfg.BaseURL = strings.TrimRight(lookup("EVENTS_BASE_URL"), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// SQLiteDSN returns EVENTS_SQLITE_DSN or the default database file. Tools
// that only touch the database use it instead of Load.
func SQLiteDSN() string {
	if dsn := lookup("EVENTS_SQLITE_DSN"); dsn != "" {
		return dsn
	}
	return defaultSQLiteDSN
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
