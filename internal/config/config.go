// Package config содержит логику чтения конфигурации сервиса доставки стирки.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	StoreDriver string `env:"STORE_DRIVER"`
	MongoURI    string `env:"MONGO_URI"`

	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"joyful"`

	AuthSecret   string        `env:"AUTH_SECRET"`
	AuthTokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"8760h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	GeocoderURL       string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"joyful-laundry/1.0"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"laundry.orders"`

	PricingPolicy   string  `env:"PRICING_POLICY" envDefault:"flat"`
	FlatServiceRate float64 `env:"FLAT_SERVICE_RATE" envDefault:"15"`

	SlotTimezone       string   `env:"SLOT_TIMEZONE" envDefault:"Local"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env необязателен.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStoreDriver := cfg.StoreDriver
	envMongoURI := cfg.MongoURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StoreDriver, "s", "postgres", "store driver: postgres or mongo")
	flag.StringVar(&cfg.MongoURI, "m", "", "MongoDB URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStoreDriver != "" {
		cfg.StoreDriver = envStoreDriver
	}
	if envMongoURI != "" {
		cfg.MongoURI = envMongoURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// Validate проверяет согласованность параметров.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required for postgres store"))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	switch c.PricingPolicy {
	case "flat", "itemized":
	default:
		errs = append(errs, fmt.Errorf("unknown pricing policy %q", c.PricingPolicy))
	}

	if c.FlatServiceRate <= 0 {
		errs = append(errs, errors.New("FLAT_SERVICE_RATE must be positive"))
	}

	if c.GoogleClientID != "" && c.GoogleRedirectURL == "" {
		errs = append(errs, errors.New("GOOGLE_REDIRECT_URL is required with GOOGLE_CLIENT_ID"))
	}

	if _, err := time.LoadLocation(c.SlotTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid SLOT_TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Location возвращает часовой пояс, в котором генерируются интервалы.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SlotTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// KafkaEnabled сообщает, заданы ли брокеры Kafka.
func (c *Config) KafkaEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}
