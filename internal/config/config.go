package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// minJWTSecretLen guards against trivially guessable signing keys.
const minJWTSecretLen = 16

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                string
	DBURL               string
	JWTSecret           string
	JWTTTLSecs          int
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int
	DBMaxConns          int
	DBMinConns          int
	DBMaxIdleSecs       int
	DBMaxLifeSecs       int
	DBConnTimeoutSecs   int
	DBStatementCache    int
	DBSlowQueryMillis   int
	LogLevel            string
	LogFormat           string
	CORSAllowedOrigins  []string
	RateLimitRequests   int
	RateLimitWindowSecs int
	Export              ExportConfig
}

// ExportConfig points the movie export at an S3-compatible bucket. Upload is
// disabled when Endpoint is empty.
type ExportConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an upload target is configured.
func (e ExportConfig) Enabled() bool {
	return e.Endpoint != ""
}

// LoadDotEnv loads variables from a .env file when one exists. Variables that
// are already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration for the HTTP server, applying defaults and validation.
func Load() (Config, error) {
	cfg := read()

	if err := validateJWT(cfg); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRequests <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.RateLimitWindowSecs <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive")
	}
	if err := validateDB(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadJob reads configuration for the batch CLI, which only needs the database
// and, for export uploads, the bucket settings.
func LoadJob() (Config, error) {
	cfg := read()
	if err := validateDB(cfg); err != nil {
		return Config{}, err
	}
	if cfg.Export.Enabled() && cfg.Export.Bucket == "" {
		return Config{}, fmt.Errorf("EXPORT_S3_BUCKET is required when EXPORT_S3_ENDPOINT is set")
	}
	return cfg, nil
}

func read() Config {
	return Config{
		Port:                getEnv("PORT", "8080"),
		DBURL:               os.Getenv("DB_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTTTLSecs:          getEnvInt("JWT_TTL_SECS", 86400),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:          getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:       getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:       getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:   getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:    getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		DBSlowQueryMillis:   getEnvInt("DB_SLOW_QUERY_MS", 500),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		RateLimitRequests:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSecs: getEnvInt("RATE_LIMIT_WINDOW_SECS", 60),
		Export: ExportConfig{
			Endpoint:  os.Getenv("EXPORT_S3_ENDPOINT"),
			AccessKey: os.Getenv("EXPORT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("EXPORT_S3_SECRET_KEY"),
			Bucket:    os.Getenv("EXPORT_S3_BUCKET"),
			UseSSL:    getEnvBool("EXPORT_S3_USE_SSL", true),
		},
	}
}

// LoadSigning reads only the token signing settings.
func LoadSigning() (Config, error) {
	cfg := read()
	if err := validateJWT(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateJWT(cfg Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen)
	}
	if cfg.JWTTTLSecs <= 0 {
		return fmt.Errorf("JWT_TTL_SECS must be positive")
	}
	return nil
}

func validateDB(cfg Config) error {
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.DBSlowQueryMillis < 0 {
		return fmt.Errorf("DB_SLOW_QUERY_MS must be non-negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
