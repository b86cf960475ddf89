package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"volunteermatch/internal/domain"
	"volunteermatch/internal/projection"
)

type listingService struct {
	oppRepo        domain.OpportunityRepository
	cache          *projection.Cache
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

func NewListingService(
	oppRepo domain.OpportunityRepository,
	cache *projection.Cache,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ListingService {
	return &listingService{
		oppRepo:        oppRepo,
		cache:          cache,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// ListOpportunities returns the page of opportunities visible to viewer, ordered by start,
// together with the total number of matches.
func (s *listingService) ListOpportunities(ctx context.Context, viewer *domain.Viewer, filter domain.ListFilter) ([]*domain.Opportunity, int, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	cause := domain.NormalizeTags([]string{filter.Cause})
	visible := make([]*domain.Opportunity, 0, len(all))
	for _, o := range all {
		if !domain.IsVisible(o, viewer, now) {
			continue
		}
		if len(cause) == 1 && !slices.Contains(o.Causes, cause[0]) {
			continue
		}
		visible = append(visible, o)
	}
	domain.SortByStart(visible)

	start, end := filter.Pagination.Bounds(len(visible))
	return visible[start:end], len(visible), nil
}

// snapshot serves the full listing from the projection while it is fresh and reloads it
// from the store otherwise.
func (s *listingService) snapshot(ctx context.Context) ([]*domain.Opportunity, error) {
	if opps, ok := s.cache.List(); ok {
		return opps, nil
	}
	opps, err := s.oppRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	s.cache.ReplaceAll(opps)
	s.logger.DebugContext(ctx, "opportunity listing reloaded", "count", len(opps))
	return opps, nil
}

// GetOpportunity returns one opportunity. Hosts, admins and registrants always see it; anyone
// else only while it is visible. A hidden opportunity reads as not found.
func (s *listingService) GetOpportunity(ctx context.Context, viewer *domain.Viewer, id string) (*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	o, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(o)

	if domain.IsVisible(o, viewer, s.now()) || o.CanManage(viewer) {
		return o, nil
	}
	if viewer != nil && o.IsRegistered(viewer.ID) {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

// ListPending returns every opportunity awaiting approval. Admin only.
func (s *listingService) ListPending(ctx context.Context, viewer *domain.Viewer) ([]*domain.Opportunity, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if viewer == nil || !viewer.Admin {
		return nil, domain.ErrForbidden
	}
	opps, err := s.oppRepo.ListUnapproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	domain.SortByStart(opps)
	return opps, nil
}
