package types

import (
	"os"
	"strings"
)

const ContextOperatorKey = "operator"

// Issue statuses. RESOLVED, AUTO_RESOLVED and EXHAUSTED are terminal.
const (
	StatusOpen         = "OPEN"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusInProgress   = "IN_PROGRESS"
	StatusResolved     = "RESOLVED"
	StatusExhausted    = "EXHAUSTED"
	StatusAutoResolved = "AUTO_RESOLVED"
)

// Event types for the append-only escalation log.
const (
	EventCreated      = "CREATED"
	EventViewed       = "VIEWED"
	EventAcknowledged = "ACKNOWLEDGED"
	EventInProgress   = "IN_PROGRESS"
	EventResolved     = "RESOLVED"
	EventEscalated    = "ESCALATED"
	EventExhausted    = "EXHAUSTED"
	EventAutoResolved = "AUTO_RESOLVED"
	EventReportAdded  = "REPORT_ADDED"
)

// Check result statuses reported by the agent pipeline.
const (
	CheckStatusSuccess = "success"
	CheckStatusFailure = "failure"
)

// MaxEscalationLevels is the depth of the contact ladder.
const MaxEscalationLevels = 3

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusResolved, StatusAutoResolved, StatusExhausted:
		return true
	}
	return false
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
