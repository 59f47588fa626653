package job

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

const jobColumns = `id::text, job_code, customer_id::text, handyman_id::text, category, description,
       lng, lat, address, area_name, status, price::float8, commission::float8,
       preferred_time, scheduled_time, completed_at, cancelled_at,
       COALESCE(cancellation_reason, ''), COALESCE(cancelled_by, ''), COALESCE(rating_id::text, ''),
       payment_status, COALESCE(last_message_text, ''), last_message_at, created_at, updated_at`

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobCode, &j.CustomerID, &j.HandymanID, &j.Category, &j.Description,
		&j.Location.Lng, &j.Location.Lat, &j.Location.Address, &j.Location.AreaName,
		&j.Status, &j.Price, &j.Commission,
		&j.PreferredTime, &j.ScheduledTime, &j.CompletedAt, &j.CancelledAt,
		&j.CancellationReason, &j.CancelledBy, &j.RatingID,
		&j.PaymentStatus, &j.LastMessageText, &j.LastMessageAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PGStore) GetHandymanRef(ctx context.Context, handymanID string) (*HandymanRef, error) {
	var ref HandymanRef
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id::text, is_active FROM handymen WHERE id = $1`, handymanID,
	).Scan(&ref.ID, &ref.UserID, &ref.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("handyman not found or inactive")
		}
		return nil, apperrors.Internal("failed to fetch handyman", err)
	}
	return &ref, nil
}

func (s *PGStore) GetHandymanRefByUserID(ctx context.Context, userID string) (*HandymanRef, error) {
	var ref HandymanRef
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id::text, is_active FROM handymen WHERE user_id = $1`, userID,
	).Scan(&ref.ID, &ref.UserID, &ref.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("handyman profile not found")
		}
		return nil, apperrors.Internal("failed to fetch handyman profile", err)
	}
	return &ref, nil
}

func (s *PGStore) CreateJob(ctx context.Context, j *Job) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (job_code, customer_id, handyman_id, category, description,
             lng, lat, address, area_name, status, price, commission, preferred_time, payment_status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
         RETURNING id::text, created_at, updated_at`,
		j.JobCode, j.CustomerID, j.HandymanID, j.Category, j.Description,
		j.Location.Lng, j.Location.Lat, j.Location.Address, j.Location.AreaName,
		j.Status, j.Price, j.Commission, j.PreferredTime, j.PaymentStatus,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return apperrors.Internal("failed to create job", err)
	}
	return nil
}

func (s *PGStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found")
		}
		return nil, apperrors.Internal("failed to fetch job", err)
	}
	return j, nil
}

// Accept is the status-guarded conditional write: of two concurrent accepts
// on a requested job exactly one matches the WHERE clause.
func (s *PGStore) Accept(ctx context.Context, jobID, handymanID string, scheduledTime *time.Time) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'accepted', scheduled_time = COALESCE($3, scheduled_time), updated_at = NOW()
         WHERE id = $1 AND handyman_id = $2 AND status = 'requested'
         RETURNING `+jobColumns,
		jobID, handymanID, scheduledTime,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found or already processed")
		}
		return nil, apperrors.Internal("failed to accept job", err)
	}
	return j, nil
}

func (s *PGStore) Reject(ctx context.Context, jobID, handymanID, reason string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'rejected', cancelled_at = NOW(), cancellation_reason = $3,
             cancelled_by = 'handyman', updated_at = NOW()
         WHERE id = $1 AND handyman_id = $2 AND status = 'requested'
         RETURNING `+jobColumns,
		jobID, handymanID, reason,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found or already processed")
		}
		return nil, apperrors.Internal("failed to reject job", err)
	}
	return j, nil
}

func (s *PGStore) CancelByCustomer(ctx context.Context, jobID, customerID, reason string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'cancelled', cancelled_at = NOW(), cancellation_reason = $3,
             cancelled_by = 'customer', updated_at = NOW()
         WHERE id = $1 AND customer_id = $2 AND status IN ('requested', 'accepted')
         RETURNING `+jobColumns,
		jobID, customerID, reason,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found or cannot be cancelled")
		}
		return nil, apperrors.Internal("failed to cancel job", err)
	}
	return j, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, jobID, handymanID, target string, from []string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = $3,
             completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END,
             cancelled_at = CASE WHEN $3 = 'cancelled' THEN NOW() ELSE cancelled_at END,
             cancelled_by = CASE WHEN $3 = 'cancelled' THEN 'handyman' ELSE cancelled_by END,
             updated_at = NOW()
         WHERE id = $1 AND handyman_id = $2 AND status = ANY($4)
         RETURNING `+jobColumns,
		jobID, handymanID, target, from,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found or already processed")
		}
		return nil, apperrors.Internal("failed to update job status", err)
	}
	return j, nil
}

func (s *PGStore) IncrementTotalJobs(ctx context.Context, handymanID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE handymen SET total_jobs = total_jobs + 1, updated_at = NOW() WHERE id = $1`, handymanID)
	return err
}

func (s *PGStore) IncrementCompletedJobs(ctx context.Context, handymanID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE handymen SET completed_jobs = completed_jobs + 1, updated_at = NOW() WHERE id = $1`, handymanID)
	return err
}

func (s *PGStore) CreatePayment(ctx context.Context, p *Payment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO payments (job_id, customer_id, handyman_id, amount, commission, handyman_earning, status, payment_method)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id::text, created_at`,
		p.JobID, p.CustomerID, p.HandymanID, p.Amount, p.Commission, p.HandymanEarning, p.Status, p.PaymentMethod,
	).Scan(&p.ID, &p.CreatedAt)
	return err
}

func (s *PGStore) ListByCustomer(ctx context.Context, customerID, status string, limit int) ([]Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE customer_id = $1 AND ($2 = '' OR status = $2)
         ORDER BY last_message_at DESC NULLS LAST, updated_at DESC, created_at DESC
         LIMIT $3`,
		customerID, status, limit,
	)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch jobs", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *PGStore) ListByHandyman(ctx context.Context, handymanID, status string, limit int) ([]Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE handyman_id = $1 AND ($2 = '' OR status = $2)
         ORDER BY last_message_at DESC NULLS LAST, updated_at DESC, created_at DESC
         LIMIT $3`,
		handymanID, status, limit,
	)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch jobs", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]Job, error) {
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to parse job record", err)
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read jobs", err)
	}
	return out, nil
}
