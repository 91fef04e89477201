package config

import (
	"os"
	"strings"
)

// Config holds all process configuration, read once at startup.
type Config struct {
	Port string

	// Persistence: sqlite locally, postgres when DBHost is set.
	SQLitePath string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	NATSURL       string

	JWTSecret  string
	SessionKey string
	LogLevel   string

	// AdminEmails is the out-of-band allow-list that is the root of trust
	// for admin status. Matched case-insensitively on every observation.
	AdminEmails []string
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", ":9090"),
		SQLitePath:    getEnv("DATABASE", "vimos.db"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       os.Getenv("NATS_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "JWT_SECRET"),
		SessionKey:    getEnv("SESSION_KEY", "SESSION_KEY"),
		LogLevel:      getEnv("LOG_LEVEL", "warn"),
	}

	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, email)
		}
	}

	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	return cfg
}

// Privileged returns the allow-list policy function. Admin status is always
// recomputed through this; a stored admin flag is never trusted.
func (c *Config) Privileged() func(email string) bool {
	allowed := make(map[string]bool, len(c.AdminEmails))
	for _, email := range c.AdminEmails {
		allowed[strings.ToLower(email)] = true
	}
	return func(email string) bool {
		if email == "" {
			return false
		}
		return allowed[strings.ToLower(email)]
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
