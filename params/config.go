package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ProductFile is the catalog path. Required, normally the first
	// command line argument.
	ProductFile string

	// APIAddr is the observer HTTP listen address. Empty disables the
	// observer API.
	APIAddr string

	// LogFile mirrors structured logs to a file when set.
	LogFile string

	// DataDir holds the trade journal. Empty disables journaling.
	DataDir string

	// FillNotifyGap is the pause between notifying the resting and the
	// incoming party of one fill.
	FillNotifyGap time.Duration

	// ConnectTimeout bounds how long the exchange waits for a launched
	// trader to dial back.
	ConnectTimeout time.Duration

	Verbose bool
}

func Default() Config {
	return Config{
		APIAddr:        ":8080",
		DataDir:        "data",
		FillNotifyGap:  100 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: env > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.APIAddr = getEnv("SPX_API_ADDR", cfg.APIAddr)
	cfg.LogFile = getEnv("SPX_LOG_FILE", cfg.LogFile)
	cfg.DataDir = getEnv("SPX_DATA_DIR", cfg.DataDir)

	if gap := os.Getenv("SPX_FILL_NOTIFY_GAP_MS"); gap != "" {
		if ms, err := strconv.Atoi(gap); err == nil && ms >= 0 {
			cfg.FillNotifyGap = time.Duration(ms) * time.Millisecond
		}
	}
	if t := os.Getenv("SPX_CONNECT_TIMEOUT_MS"); t != "" {
		if ms, err := strconv.Atoi(t); err == nil && ms > 0 {
			cfg.ConnectTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SPX_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1"
	}

	return cfg
}

// getEnv returns the environment variable value or the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
