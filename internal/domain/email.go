package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// OpportunityApprovedEmailData holds data for the email sent to a host on approval.
type OpportunityApprovedEmailData struct {
	Email           string
	FirstName       string
	OpportunityName string
	Date            string
	TimeRange       string
}

// SignUpConfirmationEmailData holds data for the signup confirmation email.
type SignUpConfirmationEmailData struct {
	Email           string
	FirstName       string
	OpportunityName string
	Date            string
	TimeRange       string
	Address         string
	RedirectURL     string // optional external registration link
}

// AnnouncementEmailData holds data for a host announcement sent to registrants.
type AnnouncementEmailData struct {
	Email           string
	FirstName       string
	OpportunityName string
	Message         string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendOpportunityApproved(ctx context.Context, data *OpportunityApprovedEmailData) error
	SendSignUpConfirmation(ctx context.Context, data *SignUpConfirmationEmailData) error
	SendAnnouncement(ctx context.Context, data *AnnouncementEmailData) error
}
