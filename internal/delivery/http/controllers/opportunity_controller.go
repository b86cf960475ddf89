package controllers

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

type OpportunityController struct {
	Logger  *slog.Logger
	Service domain.OpportunityService
	Listing domain.ListingService
	Now     func() time.Time
}

func NewOpportunityController(logger *slog.Logger, svc domain.OpportunityService, listing domain.ListingService) *OpportunityController {
	return &OpportunityController{
		Logger:  logger,
		Service: svc,
		Listing: listing,
		Now:     time.Now,
	}
}

// ListOpportunitiesResponse is the data payload for GET /opportunities.
type ListOpportunitiesResponse struct {
	Items      []OpportunityView      `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListOpportunitiesSuccessResponse is the success response envelope for GET /opportunities (200).
type ListOpportunitiesSuccessResponse struct {
	Data  ListOpportunitiesResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// ListOpportunities godoc
// @Summary List visible opportunities
// @Description Approved opportunities dated today or later (in each opportunity's timezone) that are public or shared with one of the caller's organizations, ordered by start. Authentication is optional.
// @Tags opportunities
// @Produce json
// @Param cause query string false "Only opportunities tagged with this cause"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListOpportunitiesSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (bad token)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /opportunities [get]
func (c *OpportunityController) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	filter := helpers.ParseListFilter(r)
	v := optionalViewer(r)
	items, total, err := c.Listing.ListOpportunities(r.Context(), v, filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListOpportunitiesResponse{
		Items:      newOpportunityViews(items, v, c.Now()),
		Pagination: helpers.NewPaginationMeta(filter.Pagination, total),
	})
}

// GetOpportunity godoc
// @Summary Get an opportunity
// @Description Returns one opportunity with its participant summary, end time, display time range and whether the caller may still unregister. Hidden opportunities read as not found unless the caller hosts, moderates or is registered for them.
// @Tags opportunities
// @Produce json
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} controllers.OpportunityViewSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities/{opportunityID} [get]
func (c *OpportunityController) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v := optionalViewer(r)
	o, err := c.Listing.GetOpportunity(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newOpportunityView(o, v, c.Now()))
}

// CreateOpportunityRequest is the request body for POST /opportunities.
type CreateOpportunityRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=5000"`
	ImageURL        string   `json:"image_url" validate:"omitempty,http_url"`
	HostOrgID       string   `json:"host_org_id" validate:"omitempty,uuid"`
	TotalSlots      int      `json:"total_slots" validate:"required,min=1,max=10000"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string   `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0,max=1440"`
	Timezone        string   `json:"timezone" validate:"omitempty,timezone"`
	Causes          []string `json:"causes" validate:"max=20,dive,required,max=50"`
	Address         string   `json:"address" validate:"max=500"`
	Visibility      []string `json:"visibility" validate:"max=50,dive,uuid"`
	RedirectURL     string   `json:"redirect_url" validate:"omitempty,http_url"`
}

// CreateOpportunity godoc
// @Summary Create an opportunity
// @Description Creates an opportunity hosted by the caller, or by host_org_id when the caller belongs to it. Opportunities created by admins are approved immediately; all others start pending.
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateOpportunityRequest true "Opportunity details"
// @Success 201 {object} controllers.OpportunitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not a member of host_org_id)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities [post]
func (c *OpportunityController) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req CreateOpportunityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	o, err := c.Service.Create(r.Context(), v, domain.NewOpportunityInput{
		Name:            req.Name,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		HostOrgID:       req.HostOrgID,
		TotalSlots:      req.TotalSlots,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		Timezone:        req.Timezone,
		Causes:          req.Causes,
		Address:         req.Address,
		Visibility:      req.Visibility,
		RedirectURL:     req.RedirectURL,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, o)
}

// UpdateOpportunityRequest is the request body for PATCH /opportunities/{opportunityID}.
// Omitted fields are left unchanged.
type UpdateOpportunityRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description     *string   `json:"description" validate:"omitempty,max=5000"`
	ImageURL        *string   `json:"image_url" validate:"omitempty,http_url"`
	TotalSlots      *int      `json:"total_slots" validate:"omitempty,min=1,max=10000"`
	Date            *string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time            *string   `json:"time" validate:"omitempty,datetime=15:04"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,min=0,max=1440"`
	Timezone        *string   `json:"timezone" validate:"omitempty,timezone"`
	Causes          *[]string `json:"causes" validate:"omitempty,max=20,dive,required,max=50"`
	Address         *string   `json:"address" validate:"omitempty,max=500"`
	Visibility      *[]string `json:"visibility" validate:"omitempty,max=50,dive,uuid"`
	RedirectURL     *string   `json:"redirect_url" validate:"omitempty,http_url"`
}

func (req *UpdateOpportunityRequest) patch() domain.OpportunityPatch {
	return domain.OpportunityPatch{
		Name:            req.Name,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		TotalSlots:      req.TotalSlots,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		Timezone:        req.Timezone,
		Causes:          req.Causes,
		Address:         req.Address,
		Visibility:      req.Visibility,
		RedirectURL:     req.RedirectURL,
	}
}

// Validate implements helpers.Validator.
func (req *UpdateOpportunityRequest) Validate() []string {
	if req.patch().IsEmpty() {
		return []string{"at least one field is required"}
	}
	return nil
}

// UpdateOpportunity godoc
// @Summary Update an opportunity
// @Description Partially updates an opportunity. Host or admin only. total_slots may not drop below the current number of registered volunteers.
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param body body controllers.UpdateOpportunityRequest true "Fields to change"
// @Success 200 {object} controllers.OpportunitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities/{opportunityID} [patch]
func (c *OpportunityController) UpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	var req UpdateOpportunityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	o, err := c.Service.Update(r.Context(), v, id, req.patch())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, o)
}

// DeleteOpportunityResponse is the data payload for DELETE /opportunities/{opportunityID} (200).
type DeleteOpportunityResponse struct {
	Status string `json:"status"`
}

// DeleteOpportunity godoc
// @Summary Delete an opportunity
// @Description Deletes an opportunity and its registrations. Admins may delete any opportunity; the creator only while it is pending.
// @Tags opportunities
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /opportunities/{opportunityID} [delete]
func (c *OpportunityController) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), v, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteOpportunityResponse{Status: "deleted"})
}

// AddCommentRequest is the request body for POST /opportunities/{opportunityID}/comments.
type AddCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

// AddComment godoc
// @Summary Post an announcement
// @Description Appends a comment to the opportunity and e-mails it to every registered volunteer. Host or admin only.
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param body body controllers.AddCommentRequest true "Announcement"
// @Success 201 {object} controllers.OpportunitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/comments [post]
func (c *OpportunityController) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	var req AddCommentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	o, err := c.Service.AddComment(r.Context(), v, id, req.Comment)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, o)
}

// ContactsSuccessResponse is the success response envelope for GET /opportunities/{opportunityID}/contacts (200).
type ContactsSuccessResponse struct {
	Data  []*domain.Contact `json:"data"`
	Error *helpers.APIError `json:"error"`
}

var contactsCSVHeader = []string{"user_id", "name", "last_name", "email", "host", "attended"}

// ExportContacts godoc
// @Summary Export participant contacts
// @Description Lists the host and every registered volunteer with name and e-mail. Host or admin only. Pass format=csv for a CSV download.
// @Tags opportunities
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} controllers.ContactsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/contacts [get]
func (c *OpportunityController) ExportContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "format must be json or csv")
		return
	}
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	contacts, err := c.Service.ExportContacts(r.Context(), v, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if format != "csv" {
		helpers.WriteJSONSuccess(w, http.StatusOK, contacts)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="opportunity-`+id+`-contacts.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write(contactsCSVHeader)
	for _, ct := range contacts {
		_ = cw.Write([]string{
			ct.UserID,
			ct.Name,
			ct.LastName,
			ct.Email,
			strconv.FormatBool(ct.Host),
			strconv.FormatBool(ct.Attended),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		c.Logger.ErrorContext(r.Context(), "csv export failed", "opportunity_id", id, "err", err)
	}
}
