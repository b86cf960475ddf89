package domain

import (
	"context"
	"time"
)

// Registration is a user's recorded participation in an opportunity, keyed by (UserID, OpportunityID).
// swagger:model Registration
type Registration struct {
	UserID        string    `json:"user_id"`
	OpportunityID string    `json:"opportunity_id"`
	Registered    bool      `json:"registered"`
	Attended      bool      `json:"attended"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegistrationWithOpportunity bundles a registration with its opportunity.
type RegistrationWithOpportunity struct {
	Registration *Registration `json:"registration"`
	Opportunity  *Opportunity  `json:"opportunity"`
}

// SignUpResult is returned by a successful signup. RedirectURL, when set, points to the
// host's external registration page; completing it is left to the caller.
type SignUpResult struct {
	Registration *Registration `json:"registration"`
	Opportunity  *Opportunity  `json:"opportunity"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// Register creates or reactivates the registration. Capacity, approval and duplicate checks
	// run atomically with the write. allowUnapproved skips the approval check.
	Register(ctx context.Context, userID, opportunityID string, allowUnapproved bool) (*Registration, error)
	// Unregister flips an active registration to registered=false.
	Unregister(ctx context.Context, userID, opportunityID string) error
	// MarkAttended sets attended=true on an active registration and flags the opportunity's
	// attendance_marked. changed is false when the registration was already marked.
	MarkAttended(ctx context.Context, userID, opportunityID string) (changed bool, err error)
	ListActiveByUser(ctx context.Context, userID string) ([]*Registration, error)
}

// RegistrationService is the registration ledger.
type RegistrationService interface {
	SignUp(ctx context.Context, viewer *Viewer, opportunityID string) (*SignUpResult, error)
	UnSignUp(ctx context.Context, viewer *Viewer, opportunityID string) (*Opportunity, error)
	ListMyRegistrations(ctx context.Context, viewer *Viewer) ([]*RegistrationWithOpportunity, error)
}

// AttendanceResult is the outcome of marking one user within a batch.
type AttendanceResult struct {
	UserID string `json:"user_id"`
	Err    error  `json:"-"`
}

// AttendanceService records who showed up after the event.
type AttendanceService interface {
	MarkAttendance(ctx context.Context, viewer *Viewer, opportunityID, userID string) error
	// MarkAttendanceBatch marks each user independently; failures do not stop the others.
	MarkAttendanceBatch(ctx context.Context, viewer *Viewer, opportunityID string, userIDs []string) ([]AttendanceResult, error)
	Roster(ctx context.Context, viewer *Viewer, opportunityID string) ([]Participant, error)
}
