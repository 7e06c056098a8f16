package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationEmailData holds data for the invitation email. InvitationURL
// carries the invitee's QR token so the card can be retrieved and scanned.
type InvitationEmailData struct {
	Email         string
	GuestName     string
	EventTitle    string
	EventDesc     string
	EventLocation string
	StartTime     time.Time
	InvitationURL string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}
