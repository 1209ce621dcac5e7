package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Swahilies SwahiliesConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	BaseURL        string // public address of this service, used for webhook callbacks
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	TrustedProxies []string // may set the client IP via X-Forwarded-For; empty means the socket peer
}

// DatabaseConfig with an empty DSN leaves payment outcomes in the log only.
type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig with an empty secret treats every caller as a guest.
type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type SwahiliesConfig struct {
	APIKey       string
	SecretKey    string
	BaseURL      string
	APIURL       string
	Timeout      time.Duration
	MaxBodyBytes int64
	CountryCode  string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type LogConfig struct {
	Level string
}

// IsProduction reports whether payments are sent to the live gateway.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "5000")
	v.SetDefault("BASE_URL", "http://localhost:5000")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_ISSUER", "momogate")

	v.SetDefault("SWAHILIES_API_KEY", "")
	v.SetDefault("SWAHILIES_SECRET_KEY", "")
	v.SetDefault("SWAHILIES_BASE_URL", "https://swahiliesapi.invict.site")
	v.SetDefault("SWAHILIES_API_URL", "https://swahiliesapi.invict.site/Api")
	v.SetDefault("GATEWAY_TIMEOUT", 20*time.Second)
	v.SetDefault("GATEWAY_MAX_BODY_BYTES", 1_000_000)
	v.SetDefault("PHONE_COUNTRY_CODE", "255")

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", 60*time.Second)

	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return FromViper(v)
}

// FromViper builds the config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Env:            v.GetString("APP_ENV"),
			BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
			ReadTimeout:    v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			Issuer:       v.GetString("JWT_ISSUER"),
		},
		Swahilies: SwahiliesConfig{
			APIKey:       v.GetString("SWAHILIES_API_KEY"),
			SecretKey:    v.GetString("SWAHILIES_SECRET_KEY"),
			BaseURL:      v.GetString("SWAHILIES_BASE_URL"),
			APIURL:       v.GetString("SWAHILIES_API_URL"),
			Timeout:      v.GetDuration("GATEWAY_TIMEOUT"),
			MaxBodyBytes: v.GetInt64("GATEWAY_MAX_BODY_BYTES"),
			CountryCode:  v.GetString("PHONE_COUNTRY_CODE"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate fails fast on anything the gateway client cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Swahilies.APIKey == "" {
		errs = append(errs, errors.New("SWAHILIES_API_KEY is required"))
	}
	if c.Swahilies.SecretKey == "" {
		errs = append(errs, errors.New("SWAHILIES_SECRET_KEY is required"))
	}
	if c.Swahilies.APIURL == "" {
		errs = append(errs, errors.New("SWAHILIES_API_URL is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}
