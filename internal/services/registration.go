package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"volunteermatch/internal/domain"
	"volunteermatch/internal/projection"
)

type registrationService struct {
	oppRepo        domain.OpportunityRepository
	regRepo        domain.RegistrationRepository
	notify         *notifier
	cache          *projection.Cache
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

func NewRegistrationService(
	oppRepo domain.OpportunityRepository,
	regRepo domain.RegistrationRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	cache *projection.Cache,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		oppRepo:        oppRepo,
		regRepo:        regRepo,
		notify:         newNotifier(userRepo, emailService, logger),
		cache:          cache,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// SignUp registers the viewer for the opportunity. Capacity, approval and duplicate checks are
// enforced by the store atomically with the write.
func (s *registrationService) SignUp(ctx context.Context, viewer *domain.Viewer, opportunityID string) (*domain.SignUpResult, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	o, err := s.oppRepo.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if o.IsHost(viewer) {
		return nil, fmt.Errorf("%w: the host is already a participant", domain.ErrAlreadyRegistered)
	}
	if !domain.InAudience(o, viewer) {
		return nil, domain.ErrNotFound
	}
	start, err := o.StartsAt()
	if err != nil {
		return nil, err
	}
	if !s.now().Before(start) {
		return nil, fmt.Errorf("%w: the opportunity has already started", domain.ErrInvalidInput)
	}

	var reg *domain.Registration
	write := func(ctx context.Context) error {
		var err error
		reg, err = s.regRepo.Register(ctx, viewer.ID, opportunityID, viewer.Admin)
		return err
	}
	mutate := func(o *domain.Opportunity) {
		setParticipant(o, viewer.ID, func(p *domain.Participant) {
			p.Registered = true
			p.Attended = false
		})
	}
	updated, err := s.cache.Apply(ctx, opportunityID, mutate, commitThenRefresh(s.oppRepo, opportunityID, s.logger, write))
	if err != nil {
		s.logger.InfoContext(ctx, "signup rejected", "opportunity_id", opportunityID, "user_id", viewer.ID, "err", err)
		return nil, err
	}
	if updated == nil {
		updated = o
	}

	s.logger.InfoContext(ctx, "signed up", "opportunity_id", opportunityID, "user_id", viewer.ID)
	s.notify.signedUp(ctx, viewer.ID, updated)
	return &domain.SignUpResult{
		Registration: reg,
		Opportunity:  updated,
		RedirectURL:  updated.RedirectURL,
	}, nil
}

// UnSignUp withdraws the viewer's registration. The cancellation window is checked against the
// current time before anything else.
func (s *registrationService) UnSignUp(ctx context.Context, viewer *domain.Viewer, opportunityID string) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	o, err := s.oppRepo.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	check, err := domain.CanUnregister(o, s.now())
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &domain.WindowClosedError{HoursRemaining: check.HoursRemaining}
	}
	if o.IsHost(viewer) {
		return nil, domain.ErrHostCannotLeave
	}

	write := func(ctx context.Context) error {
		return s.regRepo.Unregister(ctx, viewer.ID, opportunityID)
	}
	mutate := func(o *domain.Opportunity) {
		setParticipant(o, viewer.ID, func(p *domain.Participant) { p.Registered = false })
	}
	updated, err := s.cache.Apply(ctx, opportunityID, mutate, commitThenRefresh(s.oppRepo, opportunityID, s.logger, write))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = o
		mutate(updated)
	}
	s.logger.InfoContext(ctx, "unregistered", "opportunity_id", opportunityID, "user_id", viewer.ID,
		"hours_remaining", check.HoursRemaining)
	return updated, nil
}

// ListMyRegistrations returns the viewer's active registrations, soonest opportunity first.
func (s *registrationService) ListMyRegistrations(ctx context.Context, viewer *domain.Viewer) ([]*domain.RegistrationWithOpportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	regs, err := s.regRepo.ListActiveByUser(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	ids := make([]string, 0, len(regs))
	byOpp := make(map[string]*domain.Registration, len(regs))
	for _, r := range regs {
		ids = append(ids, r.OpportunityID)
		byOpp[r.OpportunityID] = r
	}
	opps, err := s.oppRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	domain.SortByStart(opps)

	out := make([]*domain.RegistrationWithOpportunity, 0, len(opps))
	for _, o := range opps {
		out = append(out, &domain.RegistrationWithOpportunity{Registration: byOpp[o.ID], Opportunity: o})
	}
	return out, nil
}
