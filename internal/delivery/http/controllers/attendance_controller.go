package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.AttendanceService
}

func NewAttendanceController(logger *slog.Logger, svc domain.AttendanceService) *AttendanceController {
	return &AttendanceController{
		Logger:  logger,
		Service: svc,
	}
}

// RosterSuccessResponse is the success response envelope for GET /opportunities/{opportunityID}/roster (200).
type RosterSuccessResponse struct {
	Data  []domain.Participant `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Roster godoc
// @Summary Get the roster
// @Description Returns the host followed by every registered volunteer, with attendance flags. Host or admin only.
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} controllers.RosterSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/roster [get]
func (c *AttendanceController) Roster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	roster, err := c.Service.Roster(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, roster)
}

// MarkAttendanceRequest is the request body for POST /opportunities/{opportunityID}/attendance.
type MarkAttendanceRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=500,dive,uuid"`
}

// AttendanceOutcome reports the result for one user of a batch.
type AttendanceOutcome struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// MarkAttendanceSuccessResponse is the success response envelope for POST /opportunities/{opportunityID}/attendance (200).
type MarkAttendanceSuccessResponse struct {
	Data  []AttendanceOutcome `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// MarkAttendance godoc
// @Summary Record attendance
// @Description Marks each listed user as attended. Users are processed independently: the response lists a status per user. Marking twice is harmless. Host or admin only, once the event has started. Include the host's id to record the host.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param body body controllers.MarkAttendanceRequest true "Users to mark"
// @Success 200 {object} controllers.MarkAttendanceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/attendance [post]
func (c *AttendanceController) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	var req MarkAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	results, err := c.Service.MarkAttendanceBatch(r.Context(), v, id, req.UserIDs)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}

	out := make([]AttendanceOutcome, 0, len(results))
	for _, res := range results {
		o := AttendanceOutcome{UserID: res.UserID, Status: "marked"}
		switch {
		case res.Err == nil:
		case errors.Is(res.Err, domain.ErrNotRegistered):
			o.Status, o.Error = "skipped", "not registered"
		default:
			o.Status, o.Error = "failed", "could not record attendance"
		}
		out = append(out, o)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}
