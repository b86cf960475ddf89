package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"volunteermatch/internal/domain"
)

var registrationCols = []string{"user_id", "opportunity_id", "registered", "attended", "created_at", "updated_at"}

func TestRegistrationRepository_Register(t *testing.T) {
	ctx := context.Background()

	lockOpportunity := func(mock sqlmock.Sqlmock, totalSlots int, approved bool) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT total_slots, approved FROM opportunities WHERE id = \$1 FOR UPDATE`).
			WithArgs("opp-1").
			WillReturnRows(sqlmock.NewRows([]string{"total_slots", "approved"}).AddRow(totalSlots, approved))
	}
	noExisting := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`SELECT registered FROM registrations WHERE user_id = \$1 AND opportunity_id = \$2`).
			WithArgs("user-a", "opp-1").
			WillReturnRows(sqlmock.NewRows([]string{"registered"}))
	}
	countActive := func(mock sqlmock.Sqlmock, n int) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations WHERE opportunity_id = \$1 AND registered`).
			WithArgs("opp-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
	}

	tests := []struct {
		name            string
		allowUnapproved bool
		mock            func(mock sqlmock.Sqlmock)
		wantErr         error
	}{
		{
			name: "success takes a free slot",
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 2, true)
				noExisting(mock)
				countActive(mock, 1)
				mock.ExpectQuery(`INSERT INTO registrations .* ON CONFLICT \(user_id, opportunity_id\)`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows(registrationCols).AddRow("user-a", "opp-1", true, false, fixedTime, fixedTime))
				mock.ExpectCommit()
			},
		},
		{
			name: "reactivates an inactive registration",
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 1, true)
				mock.ExpectQuery(`SELECT registered FROM registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"registered"}).AddRow(false))
				countActive(mock, 0)
				mock.ExpectQuery(`INSERT INTO registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows(registrationCols).AddRow("user-a", "opp-1", true, false, fixedTime, fixedTime))
				mock.ExpectCommit()
			},
		},
		{
			name: "full opportunity",
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 1, true)
				noExisting(mock)
				countActive(mock, 1)
				mock.ExpectRollback()
			},
			wantErr: domain.ErrCapacityExceeded,
		},
		{
			name: "already registered",
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 3, true)
				mock.ExpectQuery(`SELECT registered FROM registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"registered"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrAlreadyRegistered,
		},
		{
			name: "pending opportunity",
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 3, false)
				mock.ExpectRollback()
			},
			wantErr: domain.ErrNotApproved,
		},
		{
			name:            "pending opportunity for privileged caller",
			allowUnapproved: true,
			mock: func(mock sqlmock.Sqlmock) {
				lockOpportunity(mock, 3, false)
				noExisting(mock)
				countActive(mock, 0)
				mock.ExpectQuery(`INSERT INTO registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows(registrationCols).AddRow("user-a", "opp-1", true, false, fixedTime, fixedTime))
				mock.ExpectCommit()
			},
		},
		{
			name: "missing opportunity",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT total_slots, approved FROM opportunities`).
					WithArgs("opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"total_slots", "approved"}))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			reg, err := repo.Register(ctx, "user-a", "opp-1", tt.allowUnapproved)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.True(t, reg.Registered)
			require.False(t, reg.Attended)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_Unregister(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "active registration", affected: 1},
		{name: "no active registration", affected: 0, wantErr: domain.ErrNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE registrations SET registered = false`).
				WithArgs("user-a", "opp-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			repo := NewRegistrationRepository(db)
			err = repo.Unregister(ctx, "user-a", "opp-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_MarkAttended(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		wantChanged bool
		wantErr     error
	}{
		{
			name: "first mark",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT attended FROM registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"attended"}).AddRow(false))
				mock.ExpectExec(`UPDATE registrations SET attended = true`).
					WithArgs("user-a", "opp-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE opportunities SET attendance_marked = true`).
					WithArgs("opp-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantChanged: true,
		},
		{
			name: "repeat mark is a no-op",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT attended FROM registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"attended"}).AddRow(true))
				mock.ExpectExec(`UPDATE opportunities SET attendance_marked = true`).
					WithArgs("opp-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
			wantChanged: false,
		},
		{
			name: "not a registrant",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT attended FROM registrations`).
					WithArgs("user-a", "opp-1").
					WillReturnRows(sqlmock.NewRows([]string{"attended"}))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrNotRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			changed, err := repo.MarkAttended(ctx, "user-a", "opp-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantChanged, changed)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_ListActiveByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM registrations WHERE user_id = \$1 AND registered`).
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow("user-a", "opp-1", true, false, fixedTime, fixedTime).
			AddRow("user-a", "opp-2", true, true, fixedTime, fixedTime))

	repo := NewRegistrationRepository(db)
	got, err := repo.ListActiveByUser(context.Background(), "user-a")
	require.NoError(t, err)
	require.Equal(t, []*domain.Registration{
		{UserID: "user-a", OpportunityID: "opp-1", Registered: true, CreatedAt: fixedTime, UpdatedAt: fixedTime},
		{UserID: "user-a", OpportunityID: "opp-2", Registered: true, Attended: true, CreatedAt: fixedTime, UpdatedAt: fixedTime},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
