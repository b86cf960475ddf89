package controllers

import (
	"time"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

// OpportunityView is an opportunity as presented to one caller at one moment.
// swagger:model OpportunityView
type OpportunityView struct {
	*domain.Opportunity
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	TimeRange string     `json:"time_range,omitempty"`
	// CanUnregister is true when the caller holds an active registration and the event
	// starts more than seven hours from now.
	CanUnregister  bool    `json:"can_unregister"`
	HoursRemaining float64 `json:"hours_remaining"`
}

// OpportunityViewSuccessResponse is the success response envelope for GET /opportunities/{id}.
type OpportunityViewSuccessResponse struct {
	Data  OpportunityView   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// newOpportunityView derives the presentation fields. A schedule that cannot be resolved
// leaves them zero.
func newOpportunityView(o *domain.Opportunity, v *domain.Viewer, now time.Time) OpportunityView {
	view := OpportunityView{Opportunity: o}
	if end, err := o.EndsAt(); err == nil {
		view.EndsAt = &end
	}
	if tr, err := domain.DisplayTimeRange(o); err == nil {
		view.TimeRange = tr
	}
	check, err := domain.CanUnregister(o, now)
	if err != nil {
		return view
	}
	view.HoursRemaining = check.HoursRemaining
	view.CanUnregister = check.Allowed && v != nil && !o.IsHost(v) && o.IsRegistered(v.ID)
	return view
}

func newOpportunityViews(opps []*domain.Opportunity, v *domain.Viewer, now time.Time) []OpportunityView {
	out := make([]OpportunityView, 0, len(opps))
	for _, o := range opps {
		out = append(out, newOpportunityView(o, v, now))
	}
	return out
}
