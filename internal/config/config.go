// Package config содержит логику чтения конфигурации сервиса QuickDeliver.
package config

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса QuickDeliver.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	DB DatabaseConfig

	OpenRouter OpenRouterConfig

	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	AssistantRate  float64       `env:"ASSISTANT_RATE" envDefault:"1"`
	AssistantBurst int           `env:"ASSISTANT_BURST" envDefault:"3"`
}

// DatabaseConfig содержит параметры подключения к PostgreSQL, если DATABASE_URI не задан.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME" envDefault:"quickdeliver"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
}

// OpenRouterConfig содержит параметры провайдера ассистента.
type OpenRouterConfig struct {
	APIURL  string `env:"OPENROUTER_API_URL" envDefault:"https://openrouter.ai/api/v1"`
	APIKey  string `env:"OPENROUTER_API_KEY"`
	Model   string `env:"OPENROUTER_MODEL" envDefault:"anthropic/claude-3.5-sonnet"`
	SiteURL string `env:"OPENROUTER_SITE_URL" envDefault:"https://quickdeliver.app"`
	AppName string `env:"OPENROUTER_APP_NAME" envDefault:"QuickDeliver"`
}

// DSN собирает строку подключения из параметров DB_*.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable&connect_timeout=5",
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	return u.String()
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DatabaseURI == "" {
		cfg.DatabaseURI = cfg.DB.DSN()
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.AssistantRate <= 0 || cfg.AssistantBurst <= 0 {
		return nil, fmt.Errorf("ASSISTANT_RATE and ASSISTANT_BURST must be positive")
	}

	return cfg, nil
}
