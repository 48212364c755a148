package notify

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Notification is the "notify level K of issue I" side effect the engine
// emits. The engine decides that and to whom a notification goes; delivery
// itself (email, SMS) is the dispatcher's problem.
type Notification struct {
	IssueID            uint
	OrganizationID     uint
	SiteName           string
	SiteURL            string
	CheckName          string
	MonitorType        string
	Level              int
	RecipientName      string
	RecipientEmail     string
	EscalationDeadline time.Time
	Token              string
	PublicURL          string
}

// Dispatcher consumes escalation notifications. Implementations must not be
// relied on for ordering or delivery guarantees; the engine fires and forgets.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// LogDispatcher writes notifications to the process log. Default sink when no
// webhook is configured, and the capture point in local development.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	log.Printf("notify level %d of issue %d: %s <%s> for %s (%s), deadline %s",
		n.Level, n.IssueID, n.RecipientName, n.RecipientEmail, n.CheckName, n.SiteName,
		n.EscalationDeadline.Format(time.RFC3339))
	return nil
}

// Fanout dispatches to every sink, collecting the first error.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, n Notification) error {
	var firstErr error

	for _, d := range f {
		if err := d.Dispatch(ctx, n); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dispatch issue %d level %d: %w", n.IssueID, n.Level, err)
		}
	}

	return firstErr
}
