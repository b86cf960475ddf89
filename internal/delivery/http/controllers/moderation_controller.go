package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

type ModerationController struct {
	Logger  *slog.Logger
	Service domain.OpportunityService
	Listing domain.ListingService
}

func NewModerationController(logger *slog.Logger, svc domain.OpportunityService, listing domain.ListingService) *ModerationController {
	return &ModerationController{
		Logger:  logger,
		Service: svc,
		Listing: listing,
	}
}

// ListPendingSuccessResponse is the success response envelope for GET /moderation/opportunities (200).
type ListPendingSuccessResponse struct {
	Data  []*domain.Opportunity `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListPending godoc
// @Summary List opportunities awaiting approval
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListPendingSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an admin)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /moderation/opportunities [get]
func (c *ModerationController) ListPending(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	opps, err := c.Listing.ListPending(r.Context(), v)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, opps)
}

// Approve godoc
// @Summary Approve an opportunity
// @Description Makes a pending opportunity visible and notifies the host. Admin only. Approving an approved opportunity changes nothing.
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} controllers.OpportunitySuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/approve [post]
func (c *ModerationController) Approve(w http.ResponseWriter, r *http.Request) {
	c.setApproval(w, r, c.Service.Approve)
}

// Unapprove godoc
// @Summary Return an opportunity to pending
// @Description Hides an approved opportunity from listings. Registrations are kept. Host or admin.
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} controllers.OpportunitySuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/unapprove [post]
func (c *ModerationController) Unapprove(w http.ResponseWriter, r *http.Request) {
	c.setApproval(w, r, c.Service.Unapprove)
}

func (c *ModerationController) setApproval(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, v *domain.Viewer, id string) (*domain.Opportunity, error)) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	o, err := op(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, o)
}
