package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port   string `env:"PORT" envDefault:"3000"`
	AppEnv string `env:"APP_ENV" envDefault:"production"`

	StoreDriver         string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI            string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName         string `env:"MONGO_DB_NAME" envDefault:"city_list"`
	MongoConnectRetries int    `env:"MONGO_CONNECT_RETRIES" envDefault:"5"`

	CSVMinFileSize int64  `env:"CSV_MIN_FILE_SIZE" envDefault:"1"`
	CSVMaxFileSize int64  `env:"CSV_MAX_FILE_SIZE" envDefault:"10485760"`
	CSVDelimiter   string `env:"CSV_DELIMITER" envDefault:","`

	ImportConcurrency       int           `env:"IMPORT_CONCURRENCY" envDefault:"16"`
	ImportTimeout           time.Duration `env:"IMPORT_TIMEOUT" envDefault:"10m"`
	ImportSkipMalformedRows bool          `env:"IMPORT_SKIP_MALFORMED_ROWS" envDefault:"false"`

	ReconcileDSN      string        `env:"RECONCILE_DSN"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"0s"`

	ListCacheTTL       time.Duration `env:"LIST_CACHE_TTL" envDefault:"5m"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadEnv loads the first .env file found. Variables already set in the
// environment win over the file.
func LoadEnv() (string, error) {
	possiblePaths := []string{
		os.Getenv("CITYLIST_ENV"),
		".env",
		"../.env",
	}
	for _, path := range possiblePaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return path, fmt.Errorf("error loading %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if _, err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory {
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if c.CSVMinFileSize < 0 || c.CSVMaxFileSize < c.CSVMinFileSize {
		return fmt.Errorf("CSV_MIN_FILE_SIZE (%d) and CSV_MAX_FILE_SIZE (%d) do not form a range", c.CSVMinFileSize, c.CSVMaxFileSize)
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("CSV_DELIMITER must be a single character, got %q", c.CSVDelimiter)
	}
	if c.ImportConcurrency <= 0 {
		return fmt.Errorf("IMPORT_CONCURRENCY must be positive, got %d", c.ImportConcurrency)
	}
	return nil
}

func (c Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// NewLogger returns a console logger in development and a JSON logger
// everywhere else.
func NewLogger(c *Config) (*zap.Logger, error) {
	if c.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
