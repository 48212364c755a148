package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/hexascan-dev/hexascan/internal/types"
)

// EscalationIssue is the unit of the escalation workflow: one issue per
// triggering check failure, walked up a ladder of at most three contacts.
// Site and check fields are snapshots taken at creation so the issue stays
// readable after the site or check is renamed or deleted.
//
// All mutations go through the state machine and the store's conditional
// write on LockVersion; the row itself holds only current state, history
// lives in EscalationEvent.
type EscalationIssue struct {
	gorm.Model

	OrganizationID uint `gorm:"not null;index"`
	SiteID         uint `gorm:"not null;index"`
	CheckResultID  uint `gorm:"not null;index"`

	SiteName    string `gorm:"not null"`
	SiteURL     string `gorm:"not null"`
	CheckName   string `gorm:"not null"`
	MonitorType string `gorm:"not null"`

	CurrentLevel int `gorm:"not null"`
	MaxLevel     int `gorm:"not null"`

	Level1Name       string
	Level1Email      string
	Level1NotifiedAt *time.Time
	Level2Name       string
	Level2Email      string
	Level2NotifiedAt *time.Time
	Level3Name       string
	Level3Email      string
	Level3NotifiedAt *time.Time

	Status          string `gorm:"not null;index"`
	ResolvedByName  string
	ResolvedByEmail string
	ResolvedAt      *time.Time

	LockVersion uint `gorm:"not null;default:0"`

	// Relationships
	Events []EscalationEvent `gorm:"foreignKey:EscalationIssueID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// ContactName returns the ladder contact name for level 1..3.
func (i *EscalationIssue) ContactName(level int) string {
	switch level {
	case 1:
		return i.Level1Name
	case 2:
		return i.Level2Name
	case 3:
		return i.Level3Name
	}
	return ""
}

// ContactEmail returns the ladder contact email for level 1..3.
func (i *EscalationIssue) ContactEmail(level int) string {
	switch level {
	case 1:
		return i.Level1Email
	case 2:
		return i.Level2Email
	case 3:
		return i.Level3Email
	}
	return ""
}

// NotifiedAt returns when the given level was notified, nil if it never was.
func (i *EscalationIssue) NotifiedAt(level int) *time.Time {
	switch level {
	case 1:
		return i.Level1NotifiedAt
	case 2:
		return i.Level2NotifiedAt
	case 3:
		return i.Level3NotifiedAt
	}
	return nil
}

// SetNotifiedAt records the notification time for the given level.
func (i *EscalationIssue) SetNotifiedAt(level int, at time.Time) {
	switch level {
	case 1:
		i.Level1NotifiedAt = &at
	case 2:
		i.Level2NotifiedAt = &at
	case 3:
		i.Level3NotifiedAt = &at
	}
}

// EscalationDeadline is the moment the current level's window runs out. It is
// always derived from the current level's notification time plus the
// configured window, never stored. Returns the zero time if the current level
// was somehow never notified.
func (i *EscalationIssue) EscalationDeadline(window time.Duration) time.Time {
	notified := i.NotifiedAt(i.CurrentLevel)
	if notified == nil {
		return time.Time{}
	}
	return notified.Add(window)
}

// TimeRemaining is the time left until the deadline; negative means overdue.
func (i *EscalationIssue) TimeRemaining(window time.Duration, now time.Time) time.Duration {
	return i.EscalationDeadline(window).Sub(now)
}

// IsTerminal reports whether the issue reached a terminal status.
func (i *EscalationIssue) IsTerminal() bool {
	return types.IsTerminalStatus(i.Status)
}
