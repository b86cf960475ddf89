package services

import (
	"context"
	"fmt"
	"log/slog"

	"volunteermatch/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendOpportunityApproved tells the host their opportunity is now public.
func (s *emailService) SendOpportunityApproved(ctx context.Context, data *domain.OpportunityApprovedEmailData) error {
	if data == nil {
		return fmt.Errorf("opportunity approved data is nil")
	}
	return s.send(ctx, "opportunity_approved", data.Email, data)
}

// SendSignUpConfirmation confirms a signup, including the external registration link when present.
func (s *emailService) SendSignUpConfirmation(ctx context.Context, data *domain.SignUpConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("signup confirmation data is nil")
	}
	return s.send(ctx, "signup_confirmation", data.Email, data)
}

// SendAnnouncement forwards a host announcement to one registrant.
func (s *emailService) SendAnnouncement(ctx context.Context, data *domain.AnnouncementEmailData) error {
	if data == nil {
		return fmt.Errorf("announcement data is nil")
	}
	return s.send(ctx, "announcement", data.Email, data)
}

func (s *emailService) send(ctx context.Context, templateName, to string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", templateName, "to", to)
	return nil
}
