package postgres

import (
	"context"
	"database/sql"
	"errors"

	"volunteermatch/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	if err := row.Scan(&reg.UserID, &reg.OpportunityID, &reg.Registered, &reg.Attended, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register holds a row lock on the opportunity for the whole check-then-write, so concurrent
// signups for the same opportunity are serialized and capacity can never be overshot.
func (r *registrationRepository) Register(ctx context.Context, userID, opportunityID string, allowUnapproved bool) (*domain.Registration, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	var totalSlots int
	var approved bool
	err = tx.QueryRowContext(ctx, `SELECT total_slots, approved FROM opportunities WHERE id = $1 FOR UPDATE`, opportunityID).
		Scan(&totalSlots, &approved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}
	if !approved && !allowUnapproved {
		return nil, domain.ErrNotApproved
	}

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT registered FROM registrations WHERE user_id = $1 AND opportunity_id = $2`, userID, opportunityID).
		Scan(&active)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeErr(err)
	}
	if active {
		return nil, domain.ErrAlreadyRegistered
	}

	var taken int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE opportunity_id = $1 AND registered`, opportunityID).
		Scan(&taken)
	if err != nil {
		return nil, storeErr(err)
	}
	if taken >= totalSlots {
		return nil, domain.ErrCapacityExceeded
	}

	query := `
		INSERT INTO registrations (user_id, opportunity_id, registered, attended, created_at, updated_at)
		VALUES ($1, $2, true, false, NOW(), NOW())
		ON CONFLICT (user_id, opportunity_id)
		DO UPDATE SET registered = true, attended = false, updated_at = NOW()
		RETURNING user_id, opportunity_id, registered, attended, created_at, updated_at
	`
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query, userID, opportunityID))
	if err != nil {
		return nil, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return reg, nil
}

func (r *registrationRepository) Unregister(ctx context.Context, userID, opportunityID string) error {
	query := `
		UPDATE registrations SET registered = false, updated_at = NOW()
		WHERE user_id = $1 AND opportunity_id = $2 AND registered
	`
	result, err := r.DB.ExecContext(ctx, query, userID, opportunityID)
	if err != nil {
		return storeErr(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotRegistered
	}
	return nil
}

func (r *registrationRepository) MarkAttended(ctx context.Context, userID, opportunityID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, storeErr(err)
	}
	defer tx.Rollback()

	var attended bool
	err = tx.QueryRowContext(ctx, `
		SELECT attended FROM registrations
		WHERE user_id = $1 AND opportunity_id = $2 AND registered
		FOR UPDATE
	`, userID, opportunityID).Scan(&attended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotRegistered
		}
		return false, storeErr(err)
	}
	if !attended {
		_, err = tx.ExecContext(ctx, `
			UPDATE registrations SET attended = true, updated_at = NOW()
			WHERE user_id = $1 AND opportunity_id = $2
		`, userID, opportunityID)
		if err != nil {
			return false, storeErr(err)
		}
	}
	_, err = tx.ExecContext(ctx, `UPDATE opportunities SET attendance_marked = true WHERE id = $1 AND NOT attendance_marked`, opportunityID)
	if err != nil {
		return false, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return false, storeErr(err)
	}
	return !attended, nil
}

func (r *registrationRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `
		SELECT user_id, opportunity_id, registered, attended, created_at, updated_at
		FROM registrations
		WHERE user_id = $1 AND registered
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return regs, nil
}
