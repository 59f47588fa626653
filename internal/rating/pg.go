package rating

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetJob(ctx context.Context, jobID string) (*JobRef, error) {
	var j JobRef
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, customer_id::text, handyman_id::text, category, status, COALESCE(rating_id::text, '')
         FROM jobs WHERE id = $1`, jobID,
	).Scan(&j.ID, &j.CustomerID, &j.HandymanID, &j.Category, &j.Status, &j.RatingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found")
		}
		return nil, apperrors.Internal("failed to fetch job", err)
	}
	return &j, nil
}

func (s *PGStore) CreateRating(ctx context.Context, r *Rating) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ratings (job_id, customer_id, handyman_id, rating, comment)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id::text, created_at`,
		r.JobID, r.CustomerID, r.HandymanID, r.Rating, r.Comment,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("job already rated")
		}
		return apperrors.Internal("failed to create rating", err)
	}
	return nil
}

func (s *PGStore) SetJobRating(ctx context.Context, jobID, ratingID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET rating_id = $2, updated_at = NOW() WHERE id = $1`, jobID, ratingID)
	if err != nil {
		return apperrors.Internal("failed to link rating to job", err)
	}
	return nil
}

func (s *PGStore) HandymanRatingStats(ctx context.Context, handymanID string) (float64, int, error) {
	var average float64
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM ratings WHERE handyman_id = $1`,
		handymanID,
	).Scan(&average, &count)
	if err != nil {
		return 0, 0, apperrors.Internal("failed to compute rating stats", err)
	}
	return average, count, nil
}

func (s *PGStore) UpdateHandymanRating(ctx context.Context, handymanID string, average float64, count int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE handymen SET rating_average = $2, rating_count = $3, updated_at = NOW() WHERE id = $1`,
		handymanID, average, count)
	if err != nil {
		return apperrors.Internal("failed to update handyman rating", err)
	}
	return nil
}

func (s *PGStore) GetHandymanUserID(ctx context.Context, handymanID string) (string, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id::text FROM handymen WHERE id = $1`, handymanID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("handyman not found")
		}
		return "", apperrors.Internal("failed to fetch handyman", err)
	}
	return userID, nil
}

func (s *PGStore) ListByHandyman(ctx context.Context, handymanID string, limit int) ([]Rating, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, job_id::text, customer_id::text, handyman_id::text, rating, comment, created_at
         FROM ratings WHERE handyman_id = $1
         ORDER BY created_at DESC LIMIT $2`,
		handymanID, limit,
	)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch ratings", err)
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.JobID, &r.CustomerID, &r.HandymanID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, apperrors.Internal("failed to parse rating record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read ratings", err)
	}
	return out, nil
}
