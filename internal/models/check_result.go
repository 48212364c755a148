package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckResult is one agent-reported check outcome. A failing result with no
// open issue for its site+check opens an escalation issue.
type CheckResult struct {
	gorm.Model

	SiteID      uint   `gorm:"not null;index"`
	CheckName   string `gorm:"not null"`
	MonitorType string `gorm:"not null"` // "system_health", "cpu", "wordpress_health", etc.
	Status      string `gorm:"not null"` // "success", "failure"
	Message     string
	Details     datatypes.JSON `gorm:"type:jsonb"` // raw agent payload
	CheckedAt   time.Time      `gorm:"not null"`

	// Relationships
	Site Site `gorm:"foreignKey:SiteID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
