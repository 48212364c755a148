package models

import "gorm.io/gorm"

type Organization struct {
	gorm.Model

	Name           string `gorm:"not null"`
	DiscordWebhook string
	SlackWebhook   string

	// Relationships
	Sites []Site `gorm:"foreignKey:OrganizationID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
