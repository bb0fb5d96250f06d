package config

import (
	"errors"  // Error values
	"fmt"     // DSN formatting
	"strings" // String helpers
	"time"    // Token lifetimes and windows

	"github.com/joho/godotenv"             // For loading .env files
	"github.com/kelseyhightower/envconfig" // Environment to struct decoding
)

// Development secrets used when none are configured
const (
	DevJWTSecret        = "dev-secret-change-me"
	DevJWTRefreshSecret = "dev-refresh-secret-change-me"
)

// Config holds the application configuration
type Config struct {
	AppPort string `envconfig:"APP_PORT" default:"3001"`       // Application port
	AppEnv  string `envconfig:"APP_ENV" default:"development"` // development, test or production

	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`          // sqlite, mysql or postgres
	DBPath     string `envconfig:"DB_PATH" default:"./data/roundup.db"` // SQLite file path
	DBUser     string `envconfig:"DB_USER"`                             // Database user
	DBPassword string `envconfig:"DB_PASSWORD"`                         // Database password
	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`         // Database host
	DBPort     string `envconfig:"DB_PORT"`                             // Database port
	DBName     string `envconfig:"DB_NAME" default:"roundup"`           // Database name

	JWTSecret            string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`                 // Access token secret
	JWTRefreshSecret     string        `envconfig:"JWT_REFRESH_SECRET" default:"dev-refresh-secret-change-me"` // Refresh token secret
	JWTExpiresIn         time.Duration `envconfig:"JWT_EXPIRES_IN" default:"15m"`                              // Access token lifetime
	JWTRefreshExpiresIn  time.Duration `envconfig:"JWT_REFRESH_EXPIRES_IN" default:"168h"`                     // Refresh token lifetime
	OTPTTL               time.Duration `envconfig:"OTP_TTL" default:"10m"`                                     // OTP validity
	RedisAddr            string        `envconfig:"REDIS_ADDR"`                                                // Redis server address, empty disables Redis
	RedisPass            string        `envconfig:"REDIS_PASS"`                                                // Redis password
	RedisDB              int           `envconfig:"REDIS_DB" default:"0"`                                      // Redis database number
	AMQPURL              string        `envconfig:"AMQP_URL"`                                                  // RabbitMQ URL, empty logs events instead
	AMQPExchange         string        `envconfig:"AMQP_EXCHANGE" default:"roundup.events"`                    // Topic exchange for domain events
	FrontendURL          string        `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`              // Allowed CORS origin
	RateLimitWindow      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`                           // Rate limit window
	RateLimitMax         int           `envconfig:"RATE_LIMIT_MAX" default:"200"`                              // Requests per window per client
	AuthRateLimitMax     int           `envconfig:"AUTH_RATE_LIMIT_MAX" default:"10"`                          // Auth attempts per window per client
	SchedulerEnabled     bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`                          // Run background jobs in the server
	RecurringSchedule    string        `envconfig:"RECURRING_SCHEDULE" default:"@hourly"`                      // Recurring deposit job
	MonthlyResetSchedule string        `envconfig:"MONTHLY_RESET_SCHEDULE" default:"5 0 * * *"`                // Monthly balance reset job
	InvestmentSchedule   string        `envconfig:"INVESTMENT_SCHEDULE" default:"0 1 1 * *"`                   // Investment return job
	SentryDSN            string        `envconfig:"SENTRY_DSN"`                                                // Sentry error reporting
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.IsProd() && (c.JWTSecret == DevJWTSecret || c.JWTRefreshSecret == DevJWTRefreshSecret) {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}

// IsProd reports whether the server runs in production
func (c *Config) IsProd() bool {
	return c.AppEnv == "production"
}

// IsDevelopment reports whether mock secrets such as OTPs may be echoed to clients
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", c.DBHost, port, c.DBUser, c.DBPassword, c.DBName)
	default:
		return c.DBPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
}
