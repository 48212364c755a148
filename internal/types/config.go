package types

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EngineConfig holds the escalation engine settings, read once at startup.
type EngineConfig struct {
	EscalationWindow time.Duration // time a contact has before the next level is notified
	SweepInterval    time.Duration // how often the sweeper scans for overdue issues
	SweepTimeout     time.Duration // upper bound for a single sweep tick
	TokenTTL         time.Duration // capability token lifetime, usually > EscalationWindow
	TokenSecret      string
	PublicBaseURL    string // base URL for token links embedded in notifications
}

func LoadEngineConfig() (EngineConfig, error) {
	cfg := EngineConfig{
		EscalationWindow: envDuration("ESCALATION_WINDOW_MINUTES", 30) * time.Minute,
		SweepInterval:    envDuration("SWEEP_INTERVAL_SECONDS", 60) * time.Second,
		SweepTimeout:     envDuration("SWEEP_TIMEOUT_SECONDS", 30) * time.Second,
		TokenTTL:         envDuration("ESCALATION_TOKEN_TTL_HOURS", 72) * time.Hour,
		TokenSecret:      os.Getenv("ESCALATION_TOKEN_SECRET"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
	}

	if cfg.TokenSecret == "" {
		return EngineConfig{}, fmt.Errorf("ESCALATION_TOKEN_SECRET environment variable is not set")
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:3000"
	}

	return cfg, nil
}

func envDuration(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
