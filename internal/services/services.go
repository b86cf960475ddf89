package services

import (
	"context"
	"log/slog"
	"time"

	"volunteermatch/internal/domain"
)

// withTimeout bounds ctx by d. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// commitThenRefresh returns a projection commit that runs write and then re-reads the
// opportunity from the store. When the re-read fails after a successful write, it returns
// (nil, nil) so the projection drops the entry instead of reporting the write as failed.
func commitThenRefresh(
	repo domain.OpportunityRepository,
	id string,
	logger *slog.Logger,
	write func(context.Context) error,
) func(context.Context) (*domain.Opportunity, error) {
	return func(ctx context.Context) (*domain.Opportunity, error) {
		if err := write(ctx); err != nil {
			return nil, err
		}
		o, err := repo.GetByID(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "refresh after write failed", "opportunity_id", id, "err", err)
			return nil, nil
		}
		return o, nil
	}
}

// setParticipant upserts userID in the local participant summary.
func setParticipant(o *domain.Opportunity, userID string, update func(*domain.Participant)) {
	for i := range o.Registrations {
		if o.Registrations[i].ID == userID {
			update(&o.Registrations[i])
			return
		}
	}
	p := domain.Participant{ID: userID}
	update(&p)
	o.Registrations = append(o.Registrations, p)
}

func requireViewer(v *domain.Viewer) error {
	if v == nil || v.ID == "" {
		return domain.ErrForbidden
	}
	return nil
}
