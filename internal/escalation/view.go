package escalation

import (
	"context"
	"time"

	"github.com/hexascan-dev/hexascan/internal/models"
)

// EventView is one audit log entry as exposed to callers.
type EventView struct {
	ID        uint      `json:"id"`
	EventType string    `json:"event_type"`
	Level     *int      `json:"level"`
	UserName  string    `json:"user_name,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactView is one ladder entry. Contact emails are internal bookkeeping
// and are not exposed on the view.
type ContactView struct {
	Level      int        `json:"level"`
	Name       string     `json:"name"`
	NotifiedAt *time.Time `json:"notified_at"`
}

// IssueView is the projection of an issue returned to token holders and
// operators. canUpdate and canAddReport are computed against the caller's
// capability level so the page can render the right controls.
type IssueView struct {
	ID                 uint          `json:"id"`
	SiteName           string        `json:"site_name"`
	SiteURL            string        `json:"site_url"`
	CheckName          string        `json:"check_name"`
	MonitorType        string        `json:"monitor_type"`
	Status             string        `json:"status"`
	CurrentLevel       int           `json:"current_level"`
	MaxLevel           int           `json:"max_level"`
	Contacts           []ContactView `json:"contacts"`
	ResolvedByName     string        `json:"resolved_by_name,omitempty"`
	ResolvedAt         *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	EscalationDeadline *time.Time    `json:"escalation_deadline"`
	TimeRemainingSecs  *int64        `json:"time_remaining_seconds"`
	CanUpdate          bool          `json:"can_update"`
	CanAddReport       bool          `json:"can_add_report"`
	Events             []EventView   `json:"events"`
}

// View loads an issue and builds its projection for a caller holding the
// given capability level (OperatorLevel sees everything and may always act).
func (e *Engine) View(ctx context.Context, issueID uint, level int) (*IssueView, error) {
	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return nil, err
	}

	events, err := e.store.Events(ctx, issueID)

	if err != nil {
		return nil, err
	}

	return e.buildView(issue, events, level), nil
}

func (e *Engine) buildView(issue *models.EscalationIssue, events []models.EscalationEvent, level int) *IssueView {
	view := &IssueView{
		ID:             issue.ID,
		SiteName:       issue.SiteName,
		SiteURL:        issue.SiteURL,
		CheckName:      issue.CheckName,
		MonitorType:    issue.MonitorType,
		Status:         issue.Status,
		CurrentLevel:   issue.CurrentLevel,
		MaxLevel:       issue.MaxLevel,
		ResolvedByName: issue.ResolvedByName,
		ResolvedAt:     issue.ResolvedAt,
		CreatedAt:      issue.CreatedAt,
		CanUpdate:      (level == OperatorLevel || level == issue.CurrentLevel) && !issue.IsTerminal(),
		CanAddReport:   level == OperatorLevel || level <= issue.CurrentLevel,
	}

	for l := 1; l <= issue.MaxLevel; l++ {
		view.Contacts = append(view.Contacts, ContactView{
			Level:      l,
			Name:       issue.ContactName(l),
			NotifiedAt: issue.NotifiedAt(l),
		})
	}

	if !issue.IsTerminal() {
		deadline := issue.EscalationDeadline(e.cfg.Window)

		if !deadline.IsZero() {
			remaining := int64(issue.TimeRemaining(e.cfg.Window, e.clock.Now()).Seconds())
			view.EscalationDeadline = &deadline
			view.TimeRemainingSecs = &remaining
		}
	}

	for _, ev := range events {
		view.Events = append(view.Events, EventView{
			ID:        ev.ID,
			EventType: ev.EventType,
			Level:     ev.Level,
			UserName:  ev.UserName,
			UserEmail: ev.UserEmail,
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt,
		})
	}

	return view
}
