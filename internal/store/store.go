package store

import (
	"context"
	"errors"
	"time"

	"github.com/hexascan-dev/hexascan/internal/models"
)

var (
	// ErrNotFound means no issue exists with the given id.
	ErrNotFound = errors.New("escalation issue not found")
	// ErrStaleState means a conditional write lost a race: the issue changed
	// between the caller's read and its write. The caller must re-read.
	ErrStaleState = errors.New("escalation issue was modified concurrently")
)

// IssueStore persists escalation issues and their append-only event logs.
//
// UpdateWithEvent is the compare-and-swap primitive every state transition
// rides on: the row is written only if its lock version still equals
// baseVersion, and the transition's event is appended in the same
// transaction. Two racing transitions on one issue therefore produce exactly
// one winner and one ErrStaleState.
type IssueStore interface {
	// Create persists a new issue plus its CREATED event atomically.
	Create(ctx context.Context, issue *models.EscalationIssue, event *models.EscalationEvent) error

	// Get returns the current row for an issue.
	Get(ctx context.Context, id uint) (*models.EscalationIssue, error)

	// Events returns an issue's full event log in creation order.
	Events(ctx context.Context, issueID uint) ([]models.EscalationEvent, error)

	// UpdateWithEvent conditionally writes the issue's mutable fields and
	// appends the event, failing with ErrStaleState on a version mismatch.
	UpdateWithEvent(ctx context.Context, issue *models.EscalationIssue, baseVersion uint, event *models.EscalationEvent) error

	// AppendEvent appends an event without touching the issue row. Used for
	// VIEWED and REPORT_ADDED, which change no state and need no version check.
	AppendEvent(ctx context.Context, event *models.EscalationEvent) error

	// ListEscalatable returns non-terminal issues whose current level was
	// notified at or before cutoff, i.e. whose escalation deadline has passed
	// when cutoff = now - window.
	ListEscalatable(ctx context.Context, cutoff time.Time) ([]models.EscalationIssue, error)

	// FindOpenBySiteCheck returns the non-terminal issue for a site+check
	// pair, or ErrNotFound. Used by intake to avoid duplicate issues.
	FindOpenBySiteCheck(ctx context.Context, siteID uint, checkName string) (*models.EscalationIssue, error)
}
