package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/hexascan-dev/hexascan/internal/models"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorRed    = 16711680 // #FF0000 - level 1 alert
	ColorOrange = 16753920 // #FFA500 - escalated past level 1

	Username = "Hexascan Escalations"
)

// WebhookDispatcher mirrors escalation notifications onto organization
// Slack/Discord webhooks. It is a courtesy channel next to the authoritative
// email delivery, which lives outside this service.
type WebhookDispatcher struct {
	db *gorm.DB
}

func NewWebhookDispatcher(db *gorm.DB) *WebhookDispatcher {
	return &WebhookDispatcher{db: db}
}

func (w *WebhookDispatcher) Dispatch(ctx context.Context, n Notification) error {
	var org models.Organization

	if err := w.db.WithContext(ctx).First(&org, n.OrganizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load organization %d: %w", n.OrganizationID, err)
	}

	if org.DiscordWebhook != "" {
		if err := w.sendDiscord(org.DiscordWebhook, n); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
	}

	if org.SlackWebhook != "" {
		if err := w.sendSlack(org.SlackWebhook, n); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
	}

	return nil
}

func (w *WebhookDispatcher) sendDiscord(webhookURL string, n Notification) error {
	color := ColorRed
	title := "🚨 **CHECK FAILURE — CONTACT NOTIFIED**"
	description := fmt.Sprintf("**%s** on **%s** is failing. %s has been notified.", n.CheckName, n.SiteName, n.RecipientName)

	if n.Level > 1 {
		color = ColorOrange
		title = fmt.Sprintf("⏫ **ESCALATED TO LEVEL %d**", n.Level)
		description = fmt.Sprintf("**%s** on **%s** was not handled in time and escalated to %s.", n.CheckName, n.SiteName, n.RecipientName)
	}

	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       title,
				Description: description,
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "🌐 Site", Value: fmt.Sprintf("%s (%s)", n.SiteName, n.SiteURL), Inline: true},
					{Name: "📊 Check", Value: n.CheckName, Inline: true},
					{Name: "🏷️ Type", Value: n.MonitorType, Inline: true},
					{Name: "👤 Contact", Value: fmt.Sprintf("%s <%s>", n.RecipientName, n.RecipientEmail), Inline: false},
					{Name: "🔢 Level", Value: fmt.Sprintf("%d", n.Level), Inline: true},
					{Name: "⏰ Escalates At", Value: n.EscalationDeadline.Format("2006-01-02 15:04:05 UTC"), Inline: true},
				},
				Footer: &DiscordFooter{
					Text: "Hexascan Escalation Engine",
				},
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
	}

	return sendDiscordWebhook(webhookURL, payload)
}

func (w *WebhookDispatcher) sendSlack(webhookURL string, n Notification) error {
	color := "danger"
	text := ":rotating_light: *CHECK FAILURE — CONTACT NOTIFIED*"

	if n.Level > 1 {
		color = "warning"
		text = fmt.Sprintf(":arrow_double_up: *ESCALATED TO LEVEL %d*", n.Level)
	}

	payload := SlackWebhookRequest{
		Username:  Username,
		IconEmoji: ":rotating_light:",
		Text:      text,
		Attachments: []SlackAttachment{
			{
				Color: color,
				Title: fmt.Sprintf("Check '%s' on %s is failing", n.CheckName, n.SiteName),
				Text:  fmt.Sprintf("%s <%s> has been notified and has until %s to respond.", n.RecipientName, n.RecipientEmail, n.EscalationDeadline.Format("2006-01-02 15:04:05 UTC")),
				Fields: []SlackField{
					{Title: "Site", Value: n.SiteName, Short: true},
					{Title: "Check Type", Value: n.MonitorType, Short: true},
					{Title: "Level", Value: fmt.Sprintf("%d", n.Level), Short: true},
					{Title: "Contact", Value: n.RecipientEmail, Short: true},
				},
				Footer:    "Hexascan Escalation Engine",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return sendSlackWebhook(webhookURL, payload)
}

func sendDiscordWebhook(webhookURL string, payload DiscordWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func sendSlackWebhook(webhookURL string, payload SlackWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
