package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteermatch/internal/domain"
)

func TestAttendanceController_MarkAttendance(t *testing.T) {
	t.Run("per-user outcomes", func(t *testing.T) {
		fake := &fakeAttendanceService{results: []domain.AttendanceResult{
			{UserID: userA},
			{UserID: userB, Err: domain.ErrNotRegistered},
			{UserID: hostID, Err: errors.New("connection reset")},
		}}
		ctrl := NewAttendanceController(testLogger, fake)
		body := `{"user_ids":["` + userA + `","` + userB + `","` + hostID + `"]}`
		rr := httptest.NewRecorder()

		ctrl.MarkAttendance(rr, newRequest(http.MethodPost, "/opportunities/"+oppID+"/attendance", body, testViewer, oppID))

		require.Equal(t, http.StatusOK, rr.Code)
		var got []AttendanceOutcome
		decodeData(t, rr, &got)
		assert.Equal(t, []AttendanceOutcome{
			{UserID: userA, Status: "marked"},
			{UserID: userB, Status: "skipped", Error: "not registered"},
			{UserID: hostID, Status: "failed", Error: "could not record attendance"},
		}, got)
		assert.Equal(t, []string{userA, userB, hostID}, fake.lastUserIDs)
	})

	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
		wantMsg    string
	}{
		{name: "empty list", body: `{"user_ids":[]}`, wantStatus: http.StatusBadRequest, wantMsg: "user_ids must be at least 1"},
		{name: "missing list", body: `{}`, wantStatus: http.StatusBadRequest, wantMsg: "user_ids is required"},
		{name: "malformed user id", body: `{"user_ids":["vol-a"]}`, wantStatus: http.StatusBadRequest, wantMsg: "must be a UUID"},
		{name: "before start", body: `{"user_ids":["` + userA + `"]}`, fakeErr: errors.Join(domain.ErrInvalidInput, errors.New("the event has not started")), wantStatus: http.StatusBadRequest, wantMsg: "not started"},
		{name: "not the host", body: `{"user_ids":["` + userA + `"]}`, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{err: tt.fakeErr}
			ctrl := NewAttendanceController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.MarkAttendance(rr, newRequest(http.MethodPost, "/opportunities/"+oppID+"/attendance", tt.body, testViewer, oppID))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, decodeError(t, rr).Message, tt.wantMsg)
		})
	}
}

func TestAttendanceController_Roster(t *testing.T) {
	fake := &fakeAttendanceService{roster: []domain.Participant{
		{ID: hostID, Registered: true, Host: true},
		{ID: userA, Registered: true, Attended: true},
	}}
	ctrl := NewAttendanceController(testLogger, fake)

	rr := httptest.NewRecorder()
	ctrl.Roster(rr, newRequest(http.MethodGet, "/opportunities/"+oppID+"/roster", "", testViewer, oppID))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.Participant
	decodeData(t, rr, &got)
	assert.Equal(t, fake.roster, got)

	fake.err = domain.ErrForbidden
	rr = httptest.NewRecorder()
	ctrl.Roster(rr, newRequest(http.MethodGet, "/opportunities/"+oppID+"/roster", "", testViewer, oppID))
	require.Equal(t, http.StatusForbidden, rr.Code)
}
