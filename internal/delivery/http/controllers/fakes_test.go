package controllers

import (
	"context"
	"io"
	"log/slog"

	"volunteermatch/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	oppID  = "6f1c2a8e-3b5d-4c7e-9f10-2a3b4c5d6e7f"
	userA  = "0b7e8c1d-2f3a-4b5c-8d9e-0f1a2b3c4d5e"
	userB  = "1c8f9d2e-3a4b-4c6d-9e0f-1a2b3c4d5e6f"
	hostID = "2d9a0e3f-4b5c-4d7e-8f1a-2b3c4d5e6f70"
)

var testViewer = &domain.Viewer{ID: userA}

// fakeOpportunityService implements domain.OpportunityService and domain.ListingService.
type fakeOpportunityService struct {
	opp      *domain.Opportunity
	list     []*domain.Opportunity
	total    int
	contacts []*domain.Contact
	err      error

	lastViewer *domain.Viewer
	lastID     string
	lastInput  domain.NewOpportunityInput
	lastPatch  domain.OpportunityPatch
	lastFilter domain.ListFilter
	lastText   string
}

func (f *fakeOpportunityService) Create(ctx context.Context, v *domain.Viewer, in domain.NewOpportunityInput) (*domain.Opportunity, error) {
	f.lastViewer, f.lastInput = v, in
	return f.opp, f.err
}

func (f *fakeOpportunityService) Update(ctx context.Context, v *domain.Viewer, id string, p domain.OpportunityPatch) (*domain.Opportunity, error) {
	f.lastViewer, f.lastID, f.lastPatch = v, id, p
	return f.opp, f.err
}

func (f *fakeOpportunityService) Approve(ctx context.Context, v *domain.Viewer, id string) (*domain.Opportunity, error) {
	f.lastViewer, f.lastID = v, id
	return f.opp, f.err
}

func (f *fakeOpportunityService) Unapprove(ctx context.Context, v *domain.Viewer, id string) (*domain.Opportunity, error) {
	f.lastViewer, f.lastID = v, id
	return f.opp, f.err
}

func (f *fakeOpportunityService) Delete(ctx context.Context, v *domain.Viewer, id string) error {
	f.lastViewer, f.lastID = v, id
	return f.err
}

func (f *fakeOpportunityService) AddComment(ctx context.Context, v *domain.Viewer, id, comment string) (*domain.Opportunity, error) {
	f.lastViewer, f.lastID, f.lastText = v, id, comment
	return f.opp, f.err
}

func (f *fakeOpportunityService) ExportContacts(ctx context.Context, v *domain.Viewer, id string) ([]*domain.Contact, error) {
	f.lastViewer, f.lastID = v, id
	return f.contacts, f.err
}

func (f *fakeOpportunityService) ListOpportunities(ctx context.Context, v *domain.Viewer, filter domain.ListFilter) ([]*domain.Opportunity, int, error) {
	f.lastViewer, f.lastFilter = v, filter
	return f.list, f.total, f.err
}

func (f *fakeOpportunityService) GetOpportunity(ctx context.Context, v *domain.Viewer, id string) (*domain.Opportunity, error) {
	f.lastViewer, f.lastID = v, id
	return f.opp, f.err
}

func (f *fakeOpportunityService) ListPending(ctx context.Context, v *domain.Viewer) ([]*domain.Opportunity, error) {
	f.lastViewer = v
	return f.list, f.err
}

type fakeRegistrationService struct {
	result *domain.SignUpResult
	opp    *domain.Opportunity
	mine   []*domain.RegistrationWithOpportunity
	err    error
	lastID string
}

func (f *fakeRegistrationService) SignUp(ctx context.Context, v *domain.Viewer, id string) (*domain.SignUpResult, error) {
	f.lastID = id
	return f.result, f.err
}

func (f *fakeRegistrationService) UnSignUp(ctx context.Context, v *domain.Viewer, id string) (*domain.Opportunity, error) {
	f.lastID = id
	return f.opp, f.err
}

func (f *fakeRegistrationService) ListMyRegistrations(ctx context.Context, v *domain.Viewer) ([]*domain.RegistrationWithOpportunity, error) {
	return f.mine, f.err
}

type fakeAttendanceService struct {
	results     []domain.AttendanceResult
	roster      []domain.Participant
	err         error
	lastUserIDs []string
}

func (f *fakeAttendanceService) MarkAttendance(ctx context.Context, v *domain.Viewer, id, userID string) error {
	return f.err
}

func (f *fakeAttendanceService) MarkAttendanceBatch(ctx context.Context, v *domain.Viewer, id string, userIDs []string) ([]domain.AttendanceResult, error) {
	f.lastUserIDs = userIDs
	return f.results, f.err
}

func (f *fakeAttendanceService) Roster(ctx context.Context, v *domain.Viewer, id string) ([]domain.Participant, error) {
	return f.roster, f.err
}
