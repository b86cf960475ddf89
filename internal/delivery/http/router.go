package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"volunteermatch/internal/delivery/http/controllers"
	"volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/delivery/http/middleware"
	"volunteermatch/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Opportunities *controllers.OpportunityController
	Moderation    *controllers.ModerationController
	Registrations *controllers.RegistrationController
	Attendance    *controllers.AttendanceController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, resolver domain.ViewerResolver, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(resolver, logger)
	optional := middleware.OptionalAuth(resolver, logger)

	// Opportunities
	mux.HandleFunc("GET /opportunities", optional(c.Opportunities.ListOpportunities))
	mux.HandleFunc("POST /opportunities", auth(c.Opportunities.CreateOpportunity))
	mux.HandleFunc("GET /opportunities/{opportunityID}", optional(c.Opportunities.GetOpportunity))
	mux.HandleFunc("PATCH /opportunities/{opportunityID}", auth(c.Opportunities.UpdateOpportunity))
	mux.HandleFunc("DELETE /opportunities/{opportunityID}", auth(c.Opportunities.DeleteOpportunity))
	mux.HandleFunc("POST /opportunities/{opportunityID}/comments", auth(c.Opportunities.AddComment))
	mux.HandleFunc("GET /opportunities/{opportunityID}/contacts", auth(c.Opportunities.ExportContacts))

	// Moderation
	mux.HandleFunc("GET /moderation/opportunities", auth(c.Moderation.ListPending))
	mux.HandleFunc("POST /opportunities/{opportunityID}/approve", auth(c.Moderation.Approve))
	mux.HandleFunc("POST /opportunities/{opportunityID}/unapprove", auth(c.Moderation.Unapprove))

	// Registrations
	mux.HandleFunc("POST /opportunities/{opportunityID}/registrations", auth(c.Registrations.SignUp))
	mux.HandleFunc("DELETE /opportunities/{opportunityID}/registrations", auth(c.Registrations.UnSignUp))
	mux.HandleFunc("GET /me/registrations", auth(c.Registrations.ListMyRegistrations))

	// Attendance
	mux.HandleFunc("GET /opportunities/{opportunityID}/roster", auth(c.Attendance.Roster))
	mux.HandleFunc("POST /opportunities/{opportunityID}/attendance", auth(c.Attendance.MarkAttendance))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
