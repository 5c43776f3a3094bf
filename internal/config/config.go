// Package config reads the server configuration from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fitplan/internal/database"
	"fitplan/internal/llm"
	"fitplan/internal/session"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is everything the server needs at startup.
type Config struct {
	Port   int
	AppEnv string

	SessionSecret    string
	SessionStore     string
	SessionTTL       time.Duration
	SessionCacheSize int

	DB database.Config

	Chat   llm.ChatConfig
	Gemini llm.GeminiConfig

	// GenerateRateLimit is the number of model-backed requests per minute allowed per client IP.
	GenerateRateLimit float64

	// TrustProxy takes the client IP from X-Forwarded-For when the request comes
	// through a proxy on a private network.
	TrustProxy bool
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Load reads .env files (if present) and the process environment. Variables already
// set in the environment win over the files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	var errs []error

	cfg := Config{
		AppEnv:        strings.ToLower(getenv("APP_ENV")),
		SessionSecret: getenv("SESSION_SECRET"),
		SessionStore:  strings.ToLower(getenv("SESSION_STORE")),
		DB: database.Config{
			Database: getenv("BLUEPRINT_DB_DATABASE"),
			Password: getenv("BLUEPRINT_DB_PASSWORD"),
			Username: getenv("BLUEPRINT_DB_USERNAME"),
			Port:     getenv("BLUEPRINT_DB_PORT"),
			Host:     getenv("BLUEPRINT_DB_HOST"),
			Schema:   getenv("BLUEPRINT_DB_SCHEMA"),
		},
		Chat: llm.ChatConfig{
			BaseURL: getenv("LLAMA_API_BASE_URL"),
			APIKey:  getenv("LLAMA_API_KEY"),
			Model:   getenv("LLAMA_MODEL"),
		},
		Gemini: llm.GeminiConfig{
			APIKey: getenv("GEMINI_API_KEY"),
			Model:  getenv("GEMINI_MODEL"),
		},
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = EnvDevelopment
	}
	if cfg.SessionStore == "" {
		cfg.SessionStore = StoreMemory
	}
	if cfg.SessionStore != StoreMemory && cfg.SessionStore != StorePostgres {
		errs = append(errs, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, cfg.SessionStore))
	}
	if cfg.DB.Port == "" {
		cfg.DB.Port = "5432"
	}
	if cfg.SessionStore == StorePostgres && (cfg.DB.Host == "" || cfg.DB.Database == "") {
		errs = append(errs, errors.New("SESSION_STORE=postgres needs BLUEPRINT_DB_HOST and BLUEPRINT_DB_DATABASE"))
	}
	if cfg.IsProduction() && len(cfg.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be set to at least 32 characters in production"))
	}

	// PORT defaults to 8080; a malformed value is an error.
	cfg.Port = 8080
	if raw := getenv("PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			cfg.Port = port
		} else {
			errs = append(errs, fmt.Errorf("PORT: invalid value %q", raw))
		}
	}

	cfg.SessionTTL = parseDuration(getenv, "SESSION_TTL", session.DefaultTTL, &errs)
	cfg.SessionCacheSize = parseInt(getenv, "SESSION_CACHE_SIZE", session.DefaultCacheSize, &errs)
	cfg.Chat.MaxTokens = parseInt(getenv, "LLAMA_MAX_TOKENS", llm.DefaultChatMaxTokens, &errs)

	timeout := parseDuration(getenv, "LLM_TIMEOUT", 120*time.Second, &errs)
	cfg.Chat.Timeout = timeout
	cfg.Gemini.Timeout = timeout

	cfg.GenerateRateLimit = 10
	if raw := getenv("GENERATE_RATE_LIMIT"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("GENERATE_RATE_LIMIT: invalid value %q", raw))
		} else {
			cfg.GenerateRateLimit = v
		}
	}

	if raw := getenv("TRUST_PROXY"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRUST_PROXY: invalid value %q", raw))
		}
		cfg.TrustProxy = v
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func parseInt(getenv func(string) string, key string, fallback int, errs *[]error) int {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid value %q", key, raw))
		return fallback
	}
	return v
}

func parseDuration(getenv func(string) string, key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return v
}
