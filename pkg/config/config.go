package config

import (
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the API and the operator tools read from the environment.
type Config struct {
	AppName  string `envconfig:"APP_NAME" default:"Recicla Ledger v1.0"`
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"3000"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"America/Sao_Paulo"`

	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBHost            string        `envconfig:"DB_HOST" default:"localhost"`
	DBUser            string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword        string        `envconfig:"DB_PASSWORD"`
	DBName            string        `envconfig:"DB_NAME" default:"reciclagem"`
	DBPort            string        `envconfig:"DB_PORT" default:"5432"`
	DBSSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	DBLogLevel        string        `envconfig:"DB_LOG_LEVEL" default:"warn"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"your-super-secret-key-change-in-production"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"go-recycling-ledger"`

	// Seeded at startup when both are set and no user with that email exists.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrador"`

	Ledger LedgerConfig
}

// LedgerConfig tunes movement code generation and sale concurrency.
// Keys are read with the LEDGER_ prefix, e.g. LEDGER_CODE_MAX_ATTEMPTS.
type LedgerConfig struct {
	CodeMaxAttempts     int           `envconfig:"CODE_MAX_ATTEMPTS" default:"3"`
	CodeMinBackoff      time.Duration `envconfig:"CODE_MIN_BACKOFF" default:"50ms"`
	CodeMaxBackoff      time.Duration `envconfig:"CODE_MAX_BACKOFF" default:"150ms"`
	LockMaterialsOnSale bool          `envconfig:"LOCK_MATERIALS_ON_SALE" default:"true"`
}

const defaultJWTSecret = "your-super-secret-key-change-in-production"

// Load reads .env (when present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.Ledger.CodeMaxAttempts < 1 {
		return errors.New("config: LEDGER_CODE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Ledger.CodeMinBackoff < 0 || c.Ledger.CodeMaxBackoff < c.Ledger.CodeMinBackoff {
		return errors.New("config: LEDGER_CODE_MAX_BACKOFF must be >= LEDGER_CODE_MIN_BACKOFF >= 0")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location returns the timezone used to stamp movement codes.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns DATABASE_URL or a key/value DSN built from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.Timezone,
	)
}
