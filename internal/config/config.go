package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the server.
type Config struct {
	HTTPAddr   string   `yaml:"http_addr"`
	GinMode    string   `yaml:"gin_mode"`
	ClientURLs []string `yaml:"client_urls"`
	Timezone   string   `yaml:"timezone"`

	Database struct {
		Driver       string        `yaml:"driver"`
		URL          string        `yaml:"url"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		JWTTTL    time.Duration `yaml:"jwt_ttl"`
	} `yaml:"auth"`

	OpenAI struct {
		APIKey string `yaml:"api_key"`
		URL    string `yaml:"url"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Telegram struct {
		Token      string `yaml:"token"`
		DigestTime string `yaml:"digest_time"`
	} `yaml:"telegram"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	Analytics struct {
		StrictGranularity bool `yaml:"strict_granularity"`
	} `yaml:"analytics"`

	// Location is resolved from Timezone by Load.
	Location *time.Location `yaml:"-"`
}

func defaults() Config {
	var cfg Config
	cfg.HTTPAddr = ":5000"
	cfg.GinMode = "release"
	cfg.ClientURLs = []string{"http://localhost:3000"}
	cfg.Timezone = "Local"
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = "taskpulse.db"
	cfg.Database.QueryTimeout = 10 * time.Second
	cfg.Auth.JWTTTL = 7 * 24 * time.Hour
	cfg.OpenAI.URL = "https://api.openai.com/v1/chat/completions"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.Telegram.DigestTime = "20:00"
	cfg.Mongo.Database = "taskpulse"
	return cfg
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CONFIG_FILE), then environment variables. Later sources win.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.Timezone, "TIMEZONE")
	if raw := strings.TrimSpace(os.Getenv("CLIENT_URLS")); raw != "" {
		cfg.ClientURLs = splitList(raw)
	}

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.URL, "OPENAI_API_URL")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.Telegram.DigestTime, "DIGEST_TIME")
	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DATABASE")

	var errs []error
	errs = append(errs,
		setDuration(&cfg.Database.QueryTimeout, "DB_QUERY_TIMEOUT"),
		setDuration(&cfg.Auth.JWTTTL, "JWT_TTL"),
		setBool(&cfg.Analytics.StrictGranularity, "ANALYTICS_STRICT_GRANULARITY"),
	)
	return errors.Join(errs...)
}

func (c Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be positive")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = b
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
