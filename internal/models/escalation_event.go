package models

import "gorm.io/gorm"

// EscalationEvent is one entry in an issue's append-only audit log. Events are
// never updated or deleted; ordering is creation order.
type EscalationEvent struct {
	gorm.Model

	EscalationIssueID uint   `gorm:"not null;index"`
	EventType         string `gorm:"not null"`
	Level             *int   // which ladder level acted or was targeted, nil for system events
	UserName          string // empty for system-caused events
	UserEmail         string
	Message           string

	// Relationships
	EscalationIssue EscalationIssue `gorm:"foreignKey:EscalationIssueID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
