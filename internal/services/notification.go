package services

import (
	"context"
	"log/slog"

	"volunteermatch/internal/domain"
)

// notifier sends best-effort emails. Failures are logged and never fail the calling operation.
type notifier struct {
	users  domain.UserRepository
	emails domain.EmailService
	logger *slog.Logger
}

func newNotifier(users domain.UserRepository, emails domain.EmailService, logger *slog.Logger) *notifier {
	if users == nil || emails == nil {
		return nil
	}
	return &notifier{users: users, emails: emails, logger: logger}
}

func (n *notifier) opportunityApproved(ctx context.Context, o *domain.Opportunity) {
	if n == nil || o == nil || o.HostUserID == "" {
		return
	}
	host, err := n.users.GetByID(ctx, o.HostUserID)
	if err != nil {
		n.logger.WarnContext(ctx, "approval email skipped", "opportunity_id", o.ID, "err", err)
		return
	}
	timeRange, _ := domain.DisplayTimeRange(o)
	err = n.emails.SendOpportunityApproved(ctx, &domain.OpportunityApprovedEmailData{
		Email:           host.Email,
		FirstName:       host.Name,
		OpportunityName: o.Name,
		Date:            o.Date,
		TimeRange:       timeRange,
	})
	if err != nil {
		n.logger.WarnContext(ctx, "approval email failed", "opportunity_id", o.ID, "err", err)
	}
}

func (n *notifier) signedUp(ctx context.Context, userID string, o *domain.Opportunity) {
	if n == nil || o == nil {
		return
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.WarnContext(ctx, "signup email skipped", "opportunity_id", o.ID, "user_id", userID, "err", err)
		return
	}
	timeRange, _ := domain.DisplayTimeRange(o)
	err = n.emails.SendSignUpConfirmation(ctx, &domain.SignUpConfirmationEmailData{
		Email:           user.Email,
		FirstName:       user.Name,
		OpportunityName: o.Name,
		Date:            o.Date,
		TimeRange:       timeRange,
		Address:         o.Address,
		RedirectURL:     o.RedirectURL,
	})
	if err != nil {
		n.logger.WarnContext(ctx, "signup email failed", "opportunity_id", o.ID, "user_id", userID, "err", err)
	}
}

func (n *notifier) announce(ctx context.Context, o *domain.Opportunity, message string) {
	if n == nil || o == nil {
		return
	}
	ids := make([]string, 0, len(o.Registrations))
	for _, p := range o.Participants() {
		if !p.Host {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	users, err := n.users.ListByIDs(ctx, ids)
	if err != nil {
		n.logger.WarnContext(ctx, "announcement skipped", "opportunity_id", o.ID, "err", err)
		return
	}
	failed := 0
	for _, u := range users {
		err := n.emails.SendAnnouncement(ctx, &domain.AnnouncementEmailData{
			Email:           u.Email,
			FirstName:       u.Name,
			OpportunityName: o.Name,
			Message:         message,
		})
		if err != nil {
			failed++
			n.logger.WarnContext(ctx, "announcement email failed", "opportunity_id", o.ID, "user_id", u.ID, "err", err)
		}
	}
	n.logger.InfoContext(ctx, "announcement sent", "opportunity_id", o.ID, "recipients", len(users), "failed", failed)
}
