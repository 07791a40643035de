package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// DevSessionSecret signs cookies on developer machines only.
	DevSessionSecret = "dev-session-secret-change-me"
)

var ErrInsecureSessionSecret = errors.New("config: SESSION_SECRET must be set outside development")

type Config struct {
	APIPort       string
	AppEnv        string
	LogLevel      string
	SessionSecret []byte
	BcryptCost    int

	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	DBConnStr   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRateLimitMaxAttempts int
	AuthRateLimitWindow      time.Duration

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// IsDevelopment reports whether the app runs on a local developer machine.
// Session cookies drop the Secure attribute only in this mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// RateLimitEnabled is false when no Redis address is configured.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisAddr != "" && c.AuthRateLimitMaxAttempts > 0
}

// SeedAdmin reports whether an initial admin account should be ensured on startup.
func (c *Config) SeedAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// Validate rejects settings the server must not start with.
func (c *Config) Validate() error {
	if !c.IsDevelopment() && (len(c.SessionSecret) == 0 || string(c.SessionSecret) == DevSessionSecret) {
		return ErrInsecureSessionSecret
	}
	return nil
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		AppEnv:        strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SessionSecret: []byte(getEnv("SESSION_SECRET", DevSessionSecret)),
		BcryptCost:    getEnvAsInt("BCRYPT_COST", 10),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "user"),
		DBPassword:  getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "impactlab"),
		DBSslMode:   getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AuthRateLimitMaxAttempts: getEnvAsInt("AUTH_RATE_LIMIT_MAX_ATTEMPTS", 10),
		AuthRateLimitWindow:      getEnvAsDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),

		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
