package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteermatch/internal/domain"
)

func TestModerationController_ListPending(t *testing.T) {
	fake := &fakeOpportunityService{list: []*domain.Opportunity{{ID: oppID, Name: "Awaiting review"}}}
	ctrl := NewModerationController(testLogger, fake, fake)

	rr := httptest.NewRecorder()
	ctrl.ListPending(rr, newRequest(http.MethodGet, "/moderation/opportunities", "", testViewer, ""))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []*domain.Opportunity
	decodeData(t, rr, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "Awaiting review", got[0].Name)

	fake.err = domain.ErrForbidden
	rr = httptest.NewRecorder()
	ctrl.ListPending(rr, newRequest(http.MethodGet, "/moderation/opportunities", "", testViewer, ""))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestModerationController_SetApproval(t *testing.T) {
	tests := []struct {
		name       string
		unapprove  bool
		id         string
		noViewer   bool
		fakeErr    error
		wantStatus int
	}{
		{name: "approve", id: oppID, wantStatus: http.StatusOK},
		{name: "unapprove", unapprove: true, id: oppID, wantStatus: http.StatusOK},
		{name: "approve by non-admin", id: oppID, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "unknown", id: oppID, fakeErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "malformed id", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "no viewer", id: oppID, noViewer: true, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpportunityService{opp: &domain.Opportunity{ID: oppID, Approved: !tt.unapprove}, err: tt.fakeErr}
			ctrl := NewModerationController(testLogger, fake, fake)
			v := testViewer
			if tt.noViewer {
				v = nil
			}
			handler, action := ctrl.Approve, "/approve"
			if tt.unapprove {
				handler, action = ctrl.Unapprove, "/unapprove"
			}
			rr := httptest.NewRecorder()

			handler(rr, newRequest(http.MethodPost, "/opportunities/"+tt.id+action, "", v, tt.id))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				var o domain.Opportunity
				decodeData(t, rr, &o)
				assert.Equal(t, !tt.unapprove, o.Approved)
				assert.Equal(t, oppID, fake.lastID)
			}
		})
	}
}
