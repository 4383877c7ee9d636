package config

import "time"

// DraftingConfig configures the Gemini task generator.
// With no API key the server drafts tasks with the offline heuristic.
type DraftingConfig struct {
	GeminiAPIKey string        `env:"ATLAS_GEMINI_API_KEY"`
	Model        string        `env:"ATLAS_GEMINI_MODEL"`
	BaseURL      string        `env:"ATLAS_GEMINI_BASE_URL"`
	Timeout      time.Duration `env:"ATLAS_GEMINI_TIMEOUT"`
	MaxAttempts  int           `env:"ATLAS_GEMINI_MAX_ATTEMPTS"`
	BaseDelay    time.Duration `env:"ATLAS_GEMINI_BASE_DELAY"`
}

// Online reports whether a Gemini key is configured.
func (c DraftingConfig) Online() bool {
	return c.GeminiAPIKey != ""
}
