package controllers

import (
	"log/slog"
	"net/http"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// SignUpSuccessResponse is the success response envelope for POST /opportunities/{opportunityID}/registrations (201).
type SignUpSuccessResponse struct {
	Data  *domain.SignUpResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// SignUp godoc
// @Summary Sign up for an opportunity
// @Description Registers the caller. Fails with 409 when the opportunity is full, pending, or the caller is already registered. When redirect_url is set in the response the host expects the volunteer to complete an external form as well.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 201 {object} controllers.SignUpSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities/{opportunityID}/registrations [post]
func (c *RegistrationController) SignUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	res, err := c.Service.SignUp(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// UnSignUp godoc
// @Summary Withdraw from an opportunity
// @Description Cancels the caller's registration. Rejected with 409 within 7 hours of the start; the message carries the hours remaining. Hosts cannot withdraw.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} controllers.OpportunitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (host)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities/{opportunityID}/registrations [delete]
func (c *RegistrationController) UnSignUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	o, err := c.Service.UnSignUp(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, o)
}

// ListMyRegistrationsSuccessResponse is the success response envelope for GET /me/registrations (200).
type ListMyRegistrationsSuccessResponse struct {
	Data  []*domain.RegistrationWithOpportunity `json:"data"`
	Error *helpers.APIError                     `json:"error"`
}

// ListMyRegistrations godoc
// @Summary List my registrations
// @Description Returns the caller's active registrations with their opportunities, soonest first.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListMyRegistrationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /me/registrations [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	regs, err := c.Service.ListMyRegistrations(r.Context(), v)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}
