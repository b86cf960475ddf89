package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"volunteermatch/internal/domain"
	"volunteermatch/internal/projection"
)

type attendanceService struct {
	oppRepo        domain.OpportunityRepository
	regRepo        domain.RegistrationRepository
	cache          *projection.Cache
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

func NewAttendanceService(
	oppRepo domain.OpportunityRepository,
	regRepo domain.RegistrationRepository,
	cache *projection.Cache,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AttendanceService {
	return &attendanceService{
		oppRepo:        oppRepo,
		regRepo:        regRepo,
		cache:          cache,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// MarkAttendance records that userID attended. Marking the same participant again is a no-op.
func (s *attendanceService) MarkAttendance(ctx context.Context, viewer *domain.Viewer, opportunityID, userID string) error {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	o, err := s.recordable(ctx, viewer, opportunityID)
	if err != nil {
		return err
	}
	return s.mark(ctx, o, userID)
}

// MarkAttendanceBatch records attendance for each user independently. The opportunity is flagged
// as having had attendance taken even when no user in the batch could be marked.
func (s *attendanceService) MarkAttendanceBatch(ctx context.Context, viewer *domain.Viewer, opportunityID string, userIDs []string) ([]domain.AttendanceResult, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids := domain.NormalizeIDs(userIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: user_ids is required", domain.ErrInvalidInput)
	}
	o, err := s.recordable(ctx, viewer, opportunityID)
	if err != nil {
		return nil, err
	}
	if err := s.markTaken(ctx, o); err != nil {
		return nil, err
	}

	results := make([]domain.AttendanceResult, 0, len(ids))
	failed := 0
	for _, id := range ids {
		err := s.mark(ctx, o, id)
		if err != nil {
			failed++
		}
		results = append(results, domain.AttendanceResult{UserID: id, Err: err})
	}
	s.logger.InfoContext(ctx, "attendance batch recorded", "opportunity_id", opportunityID,
		"requested", len(ids), "failed", failed)
	return results, nil
}

// Roster returns the host and every active registrant with their attendance flags.
func (s *attendanceService) Roster(ctx context.Context, viewer *domain.Viewer, opportunityID string) ([]domain.Participant, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	o, err := s.oppRepo.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if !o.CanManage(viewer) {
		return nil, domain.ErrForbidden
	}
	return o.Participants(), nil
}

// recordable loads the opportunity and checks that viewer may record attendance for it now.
func (s *attendanceService) recordable(ctx context.Context, viewer *domain.Viewer, opportunityID string) (*domain.Opportunity, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	o, err := s.oppRepo.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if !o.CanManage(viewer) {
		return nil, domain.ErrForbidden
	}
	start, err := o.StartsAt()
	if err != nil {
		return nil, err
	}
	if s.now().Before(start) {
		return nil, fmt.Errorf("%w: attendance opens when the event starts", domain.ErrInvalidInput)
	}
	return o, nil
}

func (s *attendanceService) mark(ctx context.Context, o *domain.Opportunity, userID string) error {
	if userID == o.HostID() {
		return s.markHost(ctx, o)
	}

	changed := false
	write := func(ctx context.Context) error {
		var err error
		changed, err = s.regRepo.MarkAttended(ctx, userID, o.ID)
		return err
	}
	mutate := func(c *domain.Opportunity) {
		if c.IsRegistered(userID) {
			setParticipant(c, userID, func(p *domain.Participant) { p.Attended = true })
			c.AttendanceMarked = true
		}
	}
	_, err := s.cache.Apply(ctx, o.ID, mutate, commitThenRefresh(s.oppRepo, o.ID, s.logger, write))
	if err != nil {
		if !errors.Is(err, domain.ErrNotRegistered) {
			s.logger.WarnContext(ctx, "mark attendance failed", "opportunity_id", o.ID, "user_id", userID, "err", err)
		}
		return err
	}
	if changed {
		s.logger.InfoContext(ctx, "attendance marked", "opportunity_id", o.ID, "user_id", userID)
	}
	return nil
}

func (s *attendanceService) markTaken(ctx context.Context, o *domain.Opportunity) error {
	if o.AttendanceMarked {
		return nil
	}
	_, err := s.cache.Apply(ctx, o.ID,
		func(c *domain.Opportunity) { c.AttendanceMarked = true },
		func(ctx context.Context) (*domain.Opportunity, error) {
			return s.oppRepo.MarkAttendanceTaken(ctx, o.ID)
		})
	if err != nil {
		return fmt.Errorf("mark attendance taken: %w", err)
	}
	o.AttendanceMarked = true
	return nil
}

func (s *attendanceService) markHost(ctx context.Context, o *domain.Opportunity) error {
	if o.HostAttended {
		return nil
	}
	_, err := s.cache.Apply(ctx, o.ID,
		func(c *domain.Opportunity) {
			c.HostAttended = true
			c.AttendanceMarked = true
		},
		func(ctx context.Context) (*domain.Opportunity, error) {
			return s.oppRepo.MarkHostAttended(ctx, o.ID)
		})
	if err != nil {
		return fmt.Errorf("mark host attended: %w", err)
	}
	o.HostAttended = true
	s.logger.InfoContext(ctx, "host attendance marked", "opportunity_id", o.ID)
	return nil
}
