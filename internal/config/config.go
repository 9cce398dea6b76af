package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	DBAutoMigrate bool

	// secrets and key material; empty values surface as 500s at first use
	HashSecret         string
	RefreshTokenSecret string
	PrivateKeyPEM      string
	PrivateKeyPath     string
	JWKSURI            string
	JWTKeyID           string
	JWTIssuer          string

	CookieDomain   string
	AllowedOrigins []string
	BcryptCost     int
	ExposeOTP      bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MailQueueKey  string

	WorkerHealthPort   int
	MailMaxAttempts    int
	TokenPruneInterval time.Duration

	SMTPHost     string
	SMTPPort     int
	MailUser     string
	MailPassword string
	MailFrom     string

	OTelEndpoint    string
	OTelServiceName string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")

	// dotenv files are optional; real env vars always win
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")

	return Config{
		Env:   env,
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", env != "prod"),

		HashSecret:         os.Getenv("HASH_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		PrivateKeyPEM:      os.Getenv("PRIVATE_KEY"),
		PrivateKeyPath:     getEnv("PRIVATE_KEY_PATH", "certs/private.pem"),
		JWKSURI:            os.Getenv("JWKS_URI"),
		JWTKeyID:           getEnv("JWT_KEY_ID", "auth-service-1"),
		JWTIssuer:          getEnv("JWT_ISSUER", "auth-service"),

		CookieDomain:   getEnv("COOKIE_DOMAIN", "localhost"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		BcryptCost:     getEnvInt("BCRYPT_COST", 10),
		ExposeOTP:      getEnvBool("EXPOSE_OTP", env != "prod"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		MailQueueKey:  getEnv("MAIL_QUEUE_KEY", "authhub:mail"),

		WorkerHealthPort:   getEnvInt("WORKER_HEALTH_PORT", 8081),
		MailMaxAttempts:    getEnvInt("MAIL_MAX_ATTEMPTS", 5),
		TokenPruneInterval: getEnvDuration("TOKEN_PRUNE_INTERVAL", time.Hour),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		MailUser:     os.Getenv("MAIL_USER"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "Team Auth <no-reply@localhost>"),

		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "auth-service"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "auth")
	pass := getEnv("DB_PASSWORD", "auth")
	name := getEnv("DB_NAME", "auth")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: invalid int for %s: %q, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		fmt.Fprintf(os.Stderr, "config: invalid duration for %s: %q, using %s\n", key, v, fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
