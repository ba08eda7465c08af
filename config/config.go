package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTKey = "defaultSecret"

// Config holds application configuration
type Config struct {
	Port   string
	AppEnv string

	DBDriver       string // postgres, mysql, sqlite
	DatabaseURL    string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBMaxOpenConns int

	JWTKey          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SaltRound       int

	// External identity provider (RS256 bearer tokens)
	IdentityPublicKey      string
	IdentityPublicKeyURL   string
	IdentityUsernameMaxLen int

	SessionCookieName string
	SessionTTL        time.Duration
	RequestTimeout    time.Duration
	CorsOrigins       string

	RedisAddr        string
	RedisPassword    string
	ReconcileLockTTL time.Duration

	ReconcileSweepSchedule string

	SendgridAPIKey string
	EmailSender    string
	PublicBaseURL  string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:   getEnv("PORT", "3000"),
		AppEnv: getEnv("APP_ENV", "development"),

		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "scholar"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),

		JWTKey:          getEnv("JWT_SECRET_KEY", defaultJWTKey),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SaltRound:       getEnvInt("SALT_ROUND", 10),

		IdentityPublicKey:      strings.ReplaceAll(getEnv("IDENTITY_PUBLIC_KEY", ""), `\n`, "\n"),
		IdentityPublicKeyURL:   getEnv("IDENTITY_PUBLIC_KEY_URL", ""),
		IdentityUsernameMaxLen: getEnvInt("IDENTITY_USERNAME_MAX_LEN", 30),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "scholar_session"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		CorsOrigins:       getEnv("CORS_ORIGINS", "*"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		ReconcileLockTTL: getEnvDuration("RECONCILE_LOCK_TTL", 10*time.Second),

		ReconcileSweepSchedule: getEnv("RECONCILE_SWEEP_SCHEDULE", ""),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "no-reply@scholar.local"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == defaultJWTKey {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.IdentityPublicKey == "" && AppConfig.IdentityPublicKeyURL == "" {
		log.Println("Warning: No identity provider public key configured. External bearer tokens will be rejected.")
	}

	return AppConfig
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvDuration accepts Go durations ("30m") or plain seconds via KEY_SECONDS.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("Error converting environment variable %s to duration: %q", key, value)
	}
	if value := os.Getenv(key + "_SECONDS"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
