package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"volunteermatch/internal/domain"
	"volunteermatch/internal/projection"
)

const maxCommentLength = 2000

type opportunityService struct {
	oppRepo         domain.OpportunityRepository
	userRepo        domain.UserRepository
	notify          *notifier
	cache           *projection.Cache
	logger          *slog.Logger
	now             func() time.Time
	contextTimeout  time.Duration
	defaultTimezone string
}

func NewOpportunityService(
	oppRepo domain.OpportunityRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	cache *projection.Cache,
	logger *slog.Logger,
	defaultTimezone string,
	timeout time.Duration,
) domain.OpportunityService {
	return &opportunityService{
		oppRepo:         oppRepo,
		userRepo:        userRepo,
		notify:          newNotifier(userRepo, emailService, logger),
		cache:           cache,
		logger:          logger,
		now:             time.Now,
		contextTimeout:  timeout,
		defaultTimezone: defaultTimezone,
	}
}

func (s *opportunityService) Create(ctx context.Context, viewer *domain.Viewer, in domain.NewOpportunityInput) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	in.HostOrgID = strings.TrimSpace(in.HostOrgID)
	if in.HostOrgID != "" && !viewer.Admin && !viewer.MemberOf(in.HostOrgID) {
		return nil, fmt.Errorf("%w: not a member of organization %s", domain.ErrForbidden, in.HostOrgID)
	}

	now := s.now().UTC()
	o := &domain.Opportunity{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		ImageURL:        strings.TrimSpace(in.ImageURL),
		HostOrgID:       in.HostOrgID,
		CreatedBy:       viewer.ID,
		TotalSlots:      in.TotalSlots,
		Date:            strings.TrimSpace(in.Date),
		Time:            strings.TrimSpace(in.Time),
		DurationMinutes: in.DurationMinutes,
		Timezone:        strings.TrimSpace(in.Timezone),
		Causes:          domain.NormalizeTags(in.Causes),
		Address:         strings.TrimSpace(in.Address),
		Visibility:      domain.NormalizeIDs(in.Visibility),
		Approved:        viewer.Admin,
		RedirectURL:     strings.TrimSpace(in.RedirectURL),
		Comments:        []string{},
		Registrations:   []domain.Participant{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if o.HostOrgID == "" {
		o.HostUserID = viewer.ID
	}
	if o.Timezone == "" {
		o.Timezone = s.defaultTimezone
	}
	if err := validateOpportunity(o); err != nil {
		return nil, err
	}

	if err := s.oppRepo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create opportunity: %w", err)
	}
	s.cache.Put(o)
	s.logger.InfoContext(ctx, "opportunity created", "opportunity_id", o.ID, "created_by", viewer.ID, "state", o.State())
	return o, nil
}

func (s *opportunityService) Update(ctx context.Context, viewer *domain.Viewer, id string, patch domain.OpportunityPatch) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.manageable(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}
	normalizePatch(&patch)

	next := current.Clone()
	patch.Apply(next)
	if err := validateOpportunity(next); err != nil {
		return nil, err
	}
	if next.TotalSlots < current.ParticipantCount() {
		return nil, fmt.Errorf("%w: total slots below current participant count %d", domain.ErrInvalidInput, current.ParticipantCount())
	}

	updated, err := s.cache.Apply(ctx, id, patch.Apply, func(ctx context.Context) (*domain.Opportunity, error) {
		return s.oppRepo.Update(ctx, id, patch)
	})
	if err != nil {
		return nil, fmt.Errorf("update opportunity: %w", err)
	}
	s.logger.InfoContext(ctx, "opportunity updated", "opportunity_id", id, "by", viewer.ID)
	return updated, nil
}

// Approve moves a pending opportunity to approved. Approving an approved opportunity is a no-op.
func (s *opportunityService) Approve(ctx context.Context, viewer *domain.Viewer, id string) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if viewer == nil || !viewer.Admin {
		return nil, domain.ErrForbidden
	}
	current, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Approved {
		return current, nil
	}

	updated, err := s.setApproved(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "opportunity approved", "opportunity_id", id, "by", viewer.ID)
	s.notify.opportunityApproved(ctx, updated)
	return updated, nil
}

// Unapprove moves an approved opportunity back to pending. Registrations are kept.
func (s *opportunityService) Unapprove(ctx context.Context, viewer *domain.Viewer, id string) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.manageable(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !current.Approved {
		return current, nil
	}

	updated, err := s.setApproved(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "opportunity unapproved", "opportunity_id", id, "by", viewer.ID)
	return updated, nil
}

func (s *opportunityService) setApproved(ctx context.Context, id string, approved bool) (*domain.Opportunity, error) {
	updated, err := s.cache.Apply(ctx, id,
		func(o *domain.Opportunity) { o.Approved = approved },
		func(ctx context.Context) (*domain.Opportunity, error) {
			return s.oppRepo.SetApproved(ctx, id, approved)
		})
	if err != nil {
		return nil, fmt.Errorf("set approval: %w", err)
	}
	return updated, nil
}

// Delete removes an opportunity. Admins may delete anything; the creator only while pending.
func (s *opportunityService) Delete(ctx context.Context, viewer *domain.Viewer, id string) error {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return err
	}
	current, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	pendingOnly := !viewer.Admin
	if pendingOnly {
		if current.CreatedBy != viewer.ID {
			return domain.ErrForbidden
		}
		if current.Approved {
			return fmt.Errorf("%w: approved opportunities can only be deleted by an admin", domain.ErrForbidden)
		}
	}

	_, err = s.cache.Apply(ctx, id, nil, func(ctx context.Context) (*domain.Opportunity, error) {
		return nil, s.oppRepo.Delete(ctx, id, pendingOnly)
	})
	if err != nil {
		return fmt.Errorf("delete opportunity: %w", err)
	}
	s.logger.InfoContext(ctx, "opportunity deleted", "opportunity_id", id, "by", viewer.ID)
	return nil
}

// AddComment appends a host announcement and forwards it to active registrants.
func (s *opportunityService) AddComment(ctx context.Context, viewer *domain.Viewer, id, comment string) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is required", domain.ErrInvalidInput)
	}
	if len(comment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", domain.ErrInvalidInput, maxCommentLength)
	}
	if _, err := s.manageable(ctx, viewer, id); err != nil {
		return nil, err
	}

	updated, err := s.cache.Apply(ctx, id,
		func(o *domain.Opportunity) { o.Comments = append(o.Comments, comment) },
		func(ctx context.Context) (*domain.Opportunity, error) {
			return s.oppRepo.AppendComment(ctx, id, comment)
		})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	s.notify.announce(ctx, updated, comment)
	return updated, nil
}

// ExportContacts returns the host and every active registrant with their contact details.
// The host row is present only for user-hosted opportunities.
func (s *opportunityService) ExportContacts(ctx context.Context, viewer *domain.Viewer, id string) ([]*domain.Contact, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	o, err := s.manageable(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	participants := o.Participants()
	if o.HostUserID == "" {
		participants = participants[1:]
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	contacts := make([]*domain.Contact, 0, len(participants))
	for _, p := range participants {
		c := &domain.Contact{UserID: p.ID, Host: p.Host, Attended: p.Attended}
		if u, ok := byID[p.ID]; ok {
			c.Name = u.Name
			c.LastName = u.LastName
			c.Email = u.Email
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// manageable loads the opportunity from the store and checks that viewer may manage it.
func (s *opportunityService) manageable(ctx context.Context, viewer *domain.Viewer, id string) (*domain.Opportunity, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	o, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if !o.CanManage(viewer) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func normalizePatch(p *domain.OpportunityPatch) {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	p.Name = trim(p.Name)
	p.ImageURL = trim(p.ImageURL)
	p.Date = trim(p.Date)
	p.Time = trim(p.Time)
	p.Timezone = trim(p.Timezone)
	p.Address = trim(p.Address)
	p.RedirectURL = trim(p.RedirectURL)
	if p.Causes != nil {
		v := domain.NormalizeTags(*p.Causes)
		p.Causes = &v
	}
	if p.Visibility != nil {
		v := domain.NormalizeIDs(*p.Visibility)
		p.Visibility = &v
	}
}

func validateOpportunity(o *domain.Opportunity) error {
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if o.TotalSlots < 1 {
		return fmt.Errorf("%w: total slots must be at least 1", domain.ErrInvalidInput)
	}
	if err := domain.ValidateSchedule(o); err != nil {
		return err
	}
	if o.RedirectURL != "" {
		if err := validateExternalURL(o.RedirectURL); err != nil {
			return fmt.Errorf("%w: redirect url: %v", domain.ErrInvalidInput, err)
		}
	}
	if o.ImageURL != "" {
		if err := validateExternalURL(o.ImageURL); err != nil {
			return fmt.Errorf("%w: image url: %v", domain.ErrInvalidInput, err)
		}
	}
	return nil
}

func validateExternalURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
