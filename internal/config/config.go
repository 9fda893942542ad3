// Package config loads application configuration from environment
// variables.  Required variables are enforced at startup; the process
// exits rather than run half-configured.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field maps to an
// environment variable.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	ChapaSecret  string // payment provider secret key
	ChapaBaseURL string // override for the provider API root (optional)
	AppBaseURL   string // externally reachable root, used for callback/return URLs

	AMQPURL string // RabbitMQ connection string (optional)

	MailFrom     string // sender address for outbox mail
	SMTPHost     string // empty disables real delivery (log-only mailer)
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	BcryptCost int

	PendingTTL     time.Duration // age after which unpaid batches are abandoned
	ReaperInterval time.Duration
	OutboxInterval time.Duration
}

// Load reads configuration from environment variables.  Missing
// required values cause a fatal log and exit.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		ChapaSecret:  must("CHAPA_SECRET_KEY"),
		ChapaBaseURL: os.Getenv("CHAPA_BASE_URL"),
		AppBaseURL:   must("APP_BASE_URL"),

		AMQPURL: os.Getenv("AMQP_URL"),

		MailFrom:     envStr("MAIL_FROM", "tickets@originexpo.example"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envStr("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		BcryptCost: mustInt("BCRYPT_COST"),

		PendingTTL:     envDur("PENDING_TTL", 24*time.Hour),
		ReaperInterval: envDur("REAPER_INTERVAL", 10*time.Minute),
		OutboxInterval: envDur("OUTBOX_INTERVAL", 30*time.Second),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// Optional-variable helpers shared by the rate-limit, cache and redis
// loaders.  Unparseable values fall back to the default rather than
// aborting; only Load's required variables are fatal.

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
