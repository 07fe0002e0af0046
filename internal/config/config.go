// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the service. Values come from the
// environment with sensible defaults; only the API key is mandatory.
type Config struct {
	Port           string `env:"PORT" envDefault:"8000"`
	Environment    string `env:"ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresURL    string `env:"POSTGRES_URL"`
	TranscriptsDir string `env:"TRANSCRIPTS_DIR" envDefault:"./transcripts"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	AgentModel   string `env:"AGENT_MODEL" envDefault:"gemini-2.5-flash"`
	JudgeModel   string `env:"JUDGE_MODEL" envDefault:"gemini-2.0-flash-exp"`

	AgentTemperature  float64 `env:"AGENT_TEMPERATURE" envDefault:"0.7"`
	DebtorTemperature float64 `env:"DEBTOR_TEMPERATURE" envDefault:"0.7"`
	JudgeTemperature  float64 `env:"JUDGE_TEMPERATURE" envDefault:"0.2"`

	// RateLimitDelay is the minimum spacing between capability calls,
	// shared by every simulator/judge/refiner request in the process.
	RateLimitDelay time.Duration `env:"LLM_RATE_LIMIT_DELAY" envDefault:"8s"`

	MaxCritiqueCycles  int `env:"MAX_CRITIQUE_CYCLES" envDefault:"3"`
	ContextTokenBudget int `env:"CONTEXT_TOKEN_BUDGET" envDefault:"6000"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `env:"TWILIO_PHONE_NUMBER"`
	TwilioVoiceURL    string `env:"TWILIO_VOICE_URL"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing required environment variable: GEMINI_API_KEY")
	}
	return cfg, nil
}
