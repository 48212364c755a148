package models

import "gorm.io/gorm"

// Site is a monitored site owned by an organization. The engine only reads
// sites: the ticket contacts feed the escalation ladder, everything else is
// display context snapshotted onto issues at creation time.
type Site struct {
	gorm.Model

	OrganizationID uint   `gorm:"not null;index"`
	Name           string `gorm:"not null"`
	URL            string `gorm:"not null"`

	TicketContact1Name  string
	TicketContact1Email string
	TicketContact2Name  string
	TicketContact2Email string
	TicketContact3Name  string
	TicketContact3Email string

	// Relationships
	Organization     Organization      `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	CheckResults     []CheckResult     `gorm:"foreignKey:SiteID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	EscalationIssues []EscalationIssue `gorm:"foreignKey:SiteID"`
}
