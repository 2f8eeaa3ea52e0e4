package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.MaxHistoryMessages != 20 {
		t.Fatalf("MaxHistoryMessages = %d, want 20", cfg.MaxHistoryMessages)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey = %q, want empty default", cfg.GeminiAPIKey)
	}
	if cfg.StorePrefix != "!remember " {
		t.Fatalf("StorePrefix = %q, want %q", cfg.StorePrefix, "!remember ")
	}
	if cfg.Persona == "" || cfg.UserExtractPrompt == "" || cfg.BotExtractPrompt == "" {
		t.Fatalf("instruction templates should have non-empty defaults")
	}
	if cfg.ReplyTimeout <= cfg.ExtractTimeout {
		t.Fatalf("ReplyTimeout %v should exceed ExtractTimeout %v", cfg.ReplyTimeout, cfg.ExtractTimeout)
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MNEMO_BIND_ADDR", ":9090")
	t.Setenv("MNEMO_MAX_HISTORY", "6")
	t.Setenv("MNEMO_EXTRACT_TIMEOUT", "5s")
	t.Setenv("GEMINI_API_KEY", "  key-123  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.MaxHistoryMessages != 6 {
		t.Fatalf("MaxHistoryMessages = %d, want 6", cfg.MaxHistoryMessages)
	}
	if cfg.ExtractTimeout.Seconds() != 5 {
		t.Fatalf("ExtractTimeout = %v, want 5s", cfg.ExtractTimeout)
	}
	if cfg.GeminiAPIKey != "key-123" {
		t.Fatalf("GeminiAPIKey = %q, want trimmed value", cfg.GeminiAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"MNEMO_MAX_HISTORY":     "0",
		"MNEMO_REPLY_TIMEOUT":   "-1s",
		"MNEMO_EXTRACT_TIMEOUT": "not-a-duration",
		"GEMINI_API_URL":        "   ",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q should fail", key, val)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"MNEMO_BIND_ADDR",
		"MNEMO_SHUTDOWN_TIMEOUT",
		"MNEMO_METRICS_NAMESPACE",
		"MNEMO_ALLOW_ANY_ORIGIN",
		"MNEMO_BOT_NAME",
		"GEMINI_API_KEY",
		"GEMINI_API_URL",
		"MNEMO_MAX_HISTORY",
		"MNEMO_REPLY_TIMEOUT",
		"MNEMO_EXTRACT_TIMEOUT",
		"MNEMO_USER_FACTS_FILE",
		"MNEMO_BOT_FACTS_FILE",
		"DATABASE_URL",
		"MNEMO_PERSONA",
		"MNEMO_USER_EXTRACT_PROMPT",
		"MNEMO_BOT_EXTRACT_PROMPT",
		"MNEMO_STORE_PREFIX",
		"MNEMO_CHAT_PREFIX",
		"MNEMO_CHAT_PREFIX_SHORT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
