package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"volunteermatch/internal/domain"
)

const opportunityColumns = `id, name, description, image_url, host_user_id, host_org_id, created_by, total_slots,
		to_char(event_date, 'YYYY-MM-DD'), start_time, duration_minutes, timezone, causes, address, visibility,
		approved, redirect_url, comments, attendance_marked, host_attended, created_at, updated_at`

type opportunityRepository struct {
	DB *sql.DB
}

func NewOpportunityRepository(db *sql.DB) domain.OpportunityRepository {
	return &opportunityRepository{
		DB: db,
	}
}

// scanOpportunity is the single mapping from an opportunities row to domain.Opportunity.
func scanOpportunity(row rowScanner) (*domain.Opportunity, error) {
	o := &domain.Opportunity{}
	var imageURL, hostUserID, hostOrgID, redirectURL sql.NullString
	err := row.Scan(
		&o.ID, &o.Name, &o.Description, &imageURL, &hostUserID, &hostOrgID, &o.CreatedBy, &o.TotalSlots,
		&o.Date, &o.Time, &o.DurationMinutes, &o.Timezone, pq.Array(&o.Causes), &o.Address, pq.Array(&o.Visibility),
		&o.Approved, &redirectURL, pq.Array(&o.Comments), &o.AttendanceMarked, &o.HostAttended, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.ImageURL = imageURL.String
	o.HostUserID = hostUserID.String
	o.HostOrgID = hostOrgID.String
	o.RedirectURL = redirectURL.String
	o.Causes = emptyIfNil(o.Causes)
	o.Visibility = emptyIfNil(o.Visibility)
	o.Comments = emptyIfNil(o.Comments)
	o.Registrations = []domain.Participant{}
	return o, nil
}

func (r *opportunityRepository) Create(ctx context.Context, o *domain.Opportunity) error {
	query := `
		INSERT INTO opportunities (name, description, image_url, host_user_id, host_org_id, created_by, total_slots,
			event_date, start_time, duration_minutes, timezone, causes, address, visibility, approved, redirect_url,
			comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, '{}', $17, $18)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		o.Name, o.Description, nullString(o.ImageURL), nullString(o.HostUserID), nullString(o.HostOrgID), o.CreatedBy,
		o.TotalSlots, o.Date, o.Time, o.DurationMinutes, o.Timezone, pq.Array(o.Causes), o.Address,
		pq.Array(o.Visibility), o.Approved, nullString(o.RedirectURL), o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return storeErr(err)
	}
	o.Comments = []string{}
	o.Registrations = []domain.Participant{}
	return nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	o, err := scanOpportunity(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}
	if err := loadParticipants(ctx, r.DB, []*domain.Opportunity{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *opportunityRepository) List(ctx context.Context) ([]*domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities ORDER BY event_date, start_time, id`
	return r.list(ctx, query)
}

func (r *opportunityRepository) ListUnapproved(ctx context.Context) ([]*domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE approved = false ORDER BY created_at, id`
	return r.list(ctx, query)
}

func (r *opportunityRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Opportunity, error) {
	if len(ids) == 0 {
		return []*domain.Opportunity{}, nil
	}
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = ANY($1) ORDER BY event_date, start_time, id`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *opportunityRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Opportunity, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	opps := make([]*domain.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	if err := loadParticipants(ctx, r.DB, opps); err != nil {
		return nil, err
	}
	return opps, nil
}

// loadParticipants fills the participant summary of every opportunity with one query.
func loadParticipants(ctx context.Context, q querier, opps []*domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Opportunity, len(opps))
	ids := make([]string, 0, len(opps))
	for _, o := range opps {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	query := `
		SELECT opportunity_id, user_id, registered, attended
		FROM registrations
		WHERE opportunity_id = ANY($1)
		ORDER BY created_at, user_id
	`
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return storeErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var oppID string
		var p domain.Participant
		if err := rows.Scan(&oppID, &p.ID, &p.Registered, &p.Attended); err != nil {
			return storeErr(err)
		}
		if o, ok := byID[oppID]; ok {
			o.Registrations = append(o.Registrations, p)
		}
	}
	return storeErr(rows.Err())
}

func (r *opportunityRepository) Update(ctx context.Context, id string, patch domain.OpportunityPatch) (*domain.Opportunity, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ImageURL != nil {
		add("image_url", nullString(*patch.ImageURL))
	}
	if patch.Date != nil {
		add("event_date", *patch.Date)
	}
	if patch.Time != nil {
		add("start_time", *patch.Time)
	}
	if patch.DurationMinutes != nil {
		add("duration_minutes", *patch.DurationMinutes)
	}
	if patch.Timezone != nil {
		add("timezone", *patch.Timezone)
	}
	if patch.Causes != nil {
		add("causes", pq.Array(*patch.Causes))
	}
	if patch.Address != nil {
		add("address", *patch.Address)
	}
	if patch.Visibility != nil {
		add("visibility", pq.Array(*patch.Visibility))
	}
	if patch.RedirectURL != nil {
		add("redirect_url", nullString(*patch.RedirectURL))
	}
	if patch.TotalSlots != nil {
		add("total_slots", *patch.TotalSlots)
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE opportunities SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), n)

	// The row lock serializes this with Register, so the slot limit is checked against
	// a participant count no signup can change before commit.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	var totalSlots int
	err = tx.QueryRowContext(ctx, `SELECT total_slots FROM opportunities WHERE id = $1 FOR UPDATE`, id).Scan(&totalSlots)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}
	if patch.TotalSlots != nil && *patch.TotalSlots < totalSlots {
		var taken int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE opportunity_id = $1 AND registered`, id).
			Scan(&taken)
		if err != nil {
			return nil, storeErr(err)
		}
		if *patch.TotalSlots < taken {
			return nil, fmt.Errorf("%w: total_slots is below the current participant count", domain.ErrInvalidInput)
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return r.GetByID(ctx, id)
}

func (r *opportunityRepository) SetApproved(ctx context.Context, id string, approved bool) (*domain.Opportunity, error) {
	query := `UPDATE opportunities SET approved = $2, updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id, approved); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *opportunityRepository) AppendComment(ctx context.Context, id, comment string) (*domain.Opportunity, error) {
	query := `UPDATE opportunities SET comments = array_append(comments, $2), updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id, comment); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *opportunityRepository) MarkHostAttended(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `UPDATE opportunities SET host_attended = true, attendance_marked = true, updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *opportunityRepository) MarkAttendanceTaken(ctx context.Context, id string) (*domain.Opportunity, error) {
	query := `UPDATE opportunities SET attendance_marked = true, updated_at = NOW() WHERE id = $1`
	if err := r.execOne(ctx, query, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete relies on registrations.opportunity_id ON DELETE CASCADE.
func (r *opportunityRepository) Delete(ctx context.Context, id string, pendingOnly bool) error {
	query := `DELETE FROM opportunities WHERE id = $1`
	if pendingOnly {
		query += ` AND approved = false`
	}
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return storeErr(err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}
	if !pendingOnly {
		return domain.ErrNotFound
	}
	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: approved opportunities can only be deleted by an administrator", domain.ErrForbidden)
	}
	return domain.ErrNotFound
}

func (r *opportunityRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *opportunityRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM opportunities WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, storeErr(err)
	}
	return exists, nil
}
