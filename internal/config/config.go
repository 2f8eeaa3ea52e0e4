package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default instruction templates. Operators usually override these via env to
// tune the persona without rebuilding.
const (
	defaultPersona = "You are Mnemo, a friendly chat companion with a long memory. " +
		"Answer conversationally, keep replies concise, and use the facts you " +
		"have been given about the current user and about yourself."

	defaultUserExtract = "From the conversation turn below, extract any durable facts about the USER " +
		"worth remembering for future conversations (preferences, biography, plans). " +
		"Return one fact per line, or the single word NONE if nothing is worth keeping."

	defaultBotExtract = "From the conversation turn below, extract any durable insights the BOT itself " +
		"expressed or committed to (opinions, promises, running jokes). " +
		"Return one fact per line, or the single word NONE if nothing is worth keeping."
)

// Config contains all runtime settings for the mnemo companion service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	BotName string

	GeminiAPIKey string
	GeminiAPIURL string

	MaxHistoryMessages int
	ReplyTimeout       time.Duration
	ExtractTimeout     time.Duration

	UserFactsFile string
	BotFactsFile  string
	DatabaseURL   string

	Persona           string
	UserExtractPrompt string
	BotExtractPrompt  string

	StorePrefix     string
	ChatPrefix      string
	ChatPrefixShort string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("MNEMO_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("MNEMO_METRICS_NAMESPACE", "mnemo"),
		AllowAnyOrigin:   false,
		BotName:          envOrDefault("MNEMO_BOT_NAME", "mnemo"),
		GeminiAPIKey:     envTrimmed("GEMINI_API_KEY"),
		GeminiAPIURL: envOrDefault("GEMINI_API_URL",
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),
		MaxHistoryMessages: 20,
		ReplyTimeout:       30 * time.Second,
		ExtractTimeout:     8 * time.Second,
		UserFactsFile:      envOrDefault("MNEMO_USER_FACTS_FILE", "data/user_facts.json"),
		BotFactsFile:       envOrDefault("MNEMO_BOT_FACTS_FILE", "data/bot_facts.json"),
		DatabaseURL:        envTrimmed("DATABASE_URL"),
		Persona:            envOrDefault("MNEMO_PERSONA", defaultPersona),
		UserExtractPrompt:  envOrDefault("MNEMO_USER_EXTRACT_PROMPT", defaultUserExtract),
		BotExtractPrompt:   envOrDefault("MNEMO_BOT_EXTRACT_PROMPT", defaultBotExtract),
		StorePrefix:        envOrDefault("MNEMO_STORE_PREFIX", "!remember "),
		ChatPrefix:         envOrDefault("MNEMO_CHAT_PREFIX", "!chat "),
		ChatPrefixShort:    envOrDefault("MNEMO_CHAT_PREFIX_SHORT", "!c "),
		ShutdownTimeout:    15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("MNEMO_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyTimeout, err = durationFromEnv("MNEMO_REPLY_TIMEOUT", cfg.ReplyTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ExtractTimeout, err = durationFromEnv("MNEMO_EXTRACT_TIMEOUT", cfg.ExtractTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxHistoryMessages, err = intFromEnv("MNEMO_MAX_HISTORY", cfg.MaxHistoryMessages)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("MNEMO_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MaxHistoryMessages <= 0 {
		return Config{}, fmt.Errorf("MNEMO_MAX_HISTORY must be positive")
	}
	if cfg.ReplyTimeout <= 0 {
		return Config{}, fmt.Errorf("MNEMO_REPLY_TIMEOUT must be positive")
	}
	if cfg.ExtractTimeout <= 0 {
		return Config{}, fmt.Errorf("MNEMO_EXTRACT_TIMEOUT must be positive")
	}
	if strings.TrimSpace(cfg.GeminiAPIURL) == "" {
		return Config{}, fmt.Errorf("GEMINI_API_URL must not be empty")
	}
	if strings.TrimSpace(cfg.UserFactsFile) == "" || strings.TrimSpace(cfg.BotFactsFile) == "" {
		return Config{}, fmt.Errorf("MNEMO_USER_FACTS_FILE and MNEMO_BOT_FACTS_FILE must not be empty")
	}
	if cfg.StorePrefix == "" || cfg.ChatPrefix == "" || cfg.ChatPrefixShort == "" {
		return Config{}, fmt.Errorf("trigger prefixes must not be empty")
	}
	if strings.TrimSpace(cfg.Persona) == "" {
		return Config{}, fmt.Errorf("MNEMO_PERSONA must not be empty")
	}
	if strings.TrimSpace(cfg.UserExtractPrompt) == "" || strings.TrimSpace(cfg.BotExtractPrompt) == "" {
		return Config{}, fmt.Errorf("extraction instruction templates must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
