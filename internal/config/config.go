package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// SecurityConfig is the immutable account-security policy for the process.
// All values are read once at startup; an unparsable value is fatal rather
// than silently replaced by a default.
type SecurityConfig struct {
	Pepper          string
	BcryptCost      int
	MaxAttempts     int
	LockoutDuration time.Duration
	AttemptWindow   time.Duration

	// DistributedAttackThreshold is the number of in-window failures for a
	// single email, aggregated across all origins, that flags a spread-out
	// credential-stuffing run even when no single origin reached lockout.
	DistributedAttackThreshold int

	// ResetClearsGlobal controls whether a successful login from one origin
	// also clears the cross-origin failure counter for that email. See
	// DESIGN.md for why this is a named policy rather than hardcoded.
	ResetClearsGlobal bool

	// BreachCheckFailOpen allows passwords through (with a logged warning)
	// when the breach-lookup service is unreachable. Flipping this to false
	// rejects passwords during outages.
	BreachCheckFailOpen bool

	LoginRateCapacity int
	LoginRateWindow   time.Duration
	CodeHourlyQuota   int
	CodeDailyQuota    int
	CodeTTL           time.Duration

	ReaperInterval time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	pepper := getEnv("PASSWORD_PEPPER", "")
	if pepper == "" {
		return nil, fmt.Errorf("PASSWORD_PEPPER is required")
	}

	env := getEnv("ENV", "development")

	security, err := loadSecurityConfig(pepper)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "reelhaven"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Security: *security,
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@reelhaven.dev"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validatePepper(pepper, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSecurityConfig reads the security policy strictly: a value that is set
// but does not parse halts startup instead of falling back to a default.
func loadSecurityConfig(pepper string) (*SecurityConfig, error) {
	cfg := &SecurityConfig{Pepper: pepper}

	var err error
	if cfg.BcryptCost, err = getEnvAsIntStrict("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 10 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 10 and 31 (got %d)", cfg.BcryptCost)
	}
	if cfg.MaxAttempts, err = getEnvAsIntStrict("MAX_LOGIN_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be positive (got %d)", cfg.MaxAttempts)
	}
	if cfg.LockoutDuration, err = getEnvAsDurationStrict("LOCKOUT_DURATION", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AttemptWindow, err = getEnvAsDurationStrict("ATTEMPT_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DistributedAttackThreshold, err = getEnvAsIntStrict("DISTRIBUTED_ATTACK_THRESHOLD", 10); err != nil {
		return nil, err
	}
	if cfg.LoginRateCapacity, err = getEnvAsIntStrict("LOGIN_RATE_CAPACITY", 5); err != nil {
		return nil, err
	}
	if cfg.LoginRateWindow, err = getEnvAsDurationStrict("LOGIN_RATE_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CodeHourlyQuota, err = getEnvAsIntStrict("CODE_HOURLY_QUOTA", 3); err != nil {
		return nil, err
	}
	if cfg.CodeDailyQuota, err = getEnvAsIntStrict("CODE_DAILY_QUOTA", 10); err != nil {
		return nil, err
	}
	if cfg.CodeTTL, err = getEnvAsDurationStrict("CODE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReaperInterval, err = getEnvAsDurationStrict("SECURITY_REAPER_INTERVAL", 1*time.Hour); err != nil {
		return nil, err
	}

	cfg.ResetClearsGlobal = getEnvAsBool("RESET_CLEARS_GLOBAL", true)
	cfg.BreachCheckFailOpen = getEnvAsBool("BREACH_CHECK_FAIL_OPEN", true)

	return cfg, nil
}

// validatePepper enforces minimum strength for the process-wide pepper
func validatePepper(pepper, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(pepper) < minLength {
		return fmt.Errorf("PASSWORD_PEPPER must be at least %d characters in %s environment (got %d)",
			minLength, env, len(pepper))
	}

	weakValues := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example", "pepper",
	}

	pepperLower := strings.ToLower(pepper)
	for _, weak := range weakValues {
		if pepperLower == weak {
			return fmt.Errorf("PASSWORD_PEPPER cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsIntStrict(key string, defaultVal int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, value)
	}
	return intVal, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsDurationStrict(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 15m or 1h (got %q)", key, value)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive (got %s)", key, duration)
	}
	return duration, nil
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
