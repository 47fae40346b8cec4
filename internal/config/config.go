package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Joseda-hg/lazyplan/internal/clock"
)

const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	DBPath           string   `json:"db_path" env:"LAZYPLAN_DB_PATH"`
	WebEnabled       bool     `json:"web_enabled" env:"LAZYPLAN_WEB_ENABLED"`
	WebPort          int      `json:"web_port" env:"LAZYPLAN_WEB_PORT"`
	Timezone         string   `json:"timezone" env:"LAZYPLAN_TIMEZONE"`
	Cache            string   `json:"cache" env:"LAZYPLAN_CACHE"`
	RedisURL         string   `json:"redis_url,omitempty" env:"LAZYPLAN_REDIS_URL"`
	CacheTTL         Duration `json:"cache_ttl" env:"LAZYPLAN_CACHE_TTL"`
	ReminderInterval Duration `json:"reminder_interval" env:"LAZYPLAN_REMINDER_INTERVAL"`
	RateLimit        float64  `json:"rate_limit" env:"LAZYPLAN_RATE_LIMIT"`
	RateBurst        int      `json:"rate_burst" env:"LAZYPLAN_RATE_BURST"`
	CORSOrigins      []string `json:"cors_origins,omitempty" env:"LAZYPLAN_CORS_ORIGINS" env-separator:","`
}

func Default() Config {
	return Config{
		WebPort:          8080,
		Cache:            CacheMemory,
		CacheTTL:         Duration(30 * time.Second),
		ReminderInterval: Duration(time.Minute),
		RateLimit:        10,
		RateBurst:        20,
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazyplan", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path over the defaults, then applies LAZYPLAN_* environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	config := Default()

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(path, &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&config); err != nil {
			return Config{}, fmt.Errorf("read config env: %w", err)
		}
	default:
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	c.Cache = strings.ToLower(strings.TrimSpace(c.Cache))
	switch c.Cache {
	case "":
		c.Cache = CacheNone
	case CacheNone, CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("config: cache %q requires redis_url", CacheRedis)
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache)
	}

	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("config: web_port %d out of range", c.WebPort)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves Timezone; empty means the system zone.
func (c Config) Location() (*time.Location, error) {
	return clock.LoadLocation(c.Timezone)
}

// Duration accepts "90s", "5m" or a bare number of seconds, in JSON and in
// the environment.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.SetValue(string(text))
}

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(value string) error {
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}
