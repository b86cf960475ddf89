package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/delivery/http/middleware"
	"volunteermatch/internal/domain"
)

// pathID reads the named path value and checks it is a UUID. It writes a 400 and returns false otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return id.String(), true
}

// viewer returns the authenticated viewer. It writes a 401 and returns false when there is none.
func viewer(w http.ResponseWriter, r *http.Request) (*domain.Viewer, bool) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return v, true
}

// optionalViewer returns the viewer if the request is authenticated, nil otherwise.
func optionalViewer(r *http.Request) *domain.Viewer {
	v, _ := middleware.ViewerFromContext(r.Context())
	return v
}

// OpportunitySuccessResponse is the success response envelope for endpoints returning one opportunity.
type OpportunitySuccessResponse struct {
	Data  *domain.Opportunity `json:"data"`
	Error *helpers.APIError   `json:"error"`
}
