package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the runtime configuration.
var Module = fx.Provide(Load)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// Legacy WordPress source.
	SourceBaseURL string
	WCKey         string
	WCSecret      string
	PageSize      int
	PageDelay     time.Duration
	MaxPages      int
	FetchWorkers  int
	CheckpointDir string

	// Destination load.
	BatchSize int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "claw"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		SourceBaseURL: strings.TrimRight(getenv("SOURCE_BASE_URL", "https://yeshinnorbu.se/wp-json"), "/"),
		WCKey:         strings.TrimSpace(getenv("WC_CONSUMER_KEY", "")),
		WCSecret:      strings.TrimSpace(getenv("WC_CONSUMER_SECRET", "")),
		PageSize:      getenvInt("SOURCE_PAGE_SIZE", 100),
		PageDelay:     getenvDuration("SOURCE_PAGE_DELAY", 300*time.Millisecond),
		MaxPages:      getenvInt("SOURCE_MAX_PAGES", 200),
		FetchWorkers:  getenvInt("SOURCE_FETCH_WORKERS", 4),
		CheckpointDir: getenv("CHECKPOINT_DIR", "extracted"),

		BatchSize: getenvInt("LOAD_BATCH_SIZE", 500),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
