package handyman

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

const handymanColumns = `id::text, user_id::text, skill_categories, experience_years, service_description,
       base_price::float8, price_type, availability_days, available_from, available_to,
       lng, lat, area_name, address, city,
       rating_average::float8, rating_count, total_jobs, completed_jobs,
       is_verified, is_active, created_at, updated_at`

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func scanHandyman(row pgx.Row) (*Handyman, error) {
	var h Handyman
	err := row.Scan(
		&h.ID, &h.UserID, &h.SkillCategories, &h.ExperienceYears, &h.ServiceDescription,
		&h.BasePrice, &h.PriceType, &h.AvailabilityDays, &h.AvailableFrom, &h.AvailableTo,
		&h.Lng, &h.Lat, &h.AreaName, &h.Address, &h.City,
		&h.RatingAverage, &h.RatingCount, &h.TotalJobs, &h.CompletedJobs,
		&h.IsVerified, &h.IsActive, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *PGStore) Create(ctx context.Context, h *Handyman) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO handymen (user_id, skill_categories, experience_years, service_description,
             base_price, price_type, availability_days, available_from, available_to,
             lng, lat, area_name, address, city, is_active)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
         RETURNING id::text, created_at, updated_at`,
		h.UserID, h.SkillCategories, h.ExperienceYears, h.ServiceDescription,
		h.BasePrice, h.PriceType, h.AvailabilityDays, h.AvailableFrom, h.AvailableTo,
		h.Lng, h.Lat, h.AreaName, h.Address, h.City, h.IsActive,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("handyman profile already exists")
		}
		return apperrors.Internal("failed to create handyman profile", err)
	}
	return nil
}

func (s *PGStore) GetByUserID(ctx context.Context, userID string) (*Handyman, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+handymanColumns+` FROM handymen WHERE user_id = $1`, userID)
	h, err := scanHandyman(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("handyman profile not found")
		}
		return nil, apperrors.Internal("failed to fetch handyman profile", err)
	}
	return h, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Handyman, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+handymanColumns+` FROM handymen WHERE id = $1`, id)
	h, err := scanHandyman(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("handyman not found")
		}
		return nil, apperrors.Internal("failed to fetch handyman", err)
	}
	return h, nil
}

func (s *PGStore) Update(ctx context.Context, h *Handyman) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE handymen SET skill_categories = $1, experience_years = $2, service_description = $3,
             base_price = $4, price_type = $5, availability_days = $6, available_from = $7,
             available_to = $8, lng = $9, lat = $10, area_name = $11, address = $12, city = $13,
             updated_at = NOW()
         WHERE id = $14`,
		h.SkillCategories, h.ExperienceYears, h.ServiceDescription,
		h.BasePrice, h.PriceType, h.AvailabilityDays, h.AvailableFrom,
		h.AvailableTo, h.Lng, h.Lat, h.AreaName, h.Address, h.City, h.ID,
	)
	if err != nil {
		return apperrors.Internal("failed to update handyman profile", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.NotFound("handyman profile not found")
	}
	return nil
}

func (s *PGStore) SearchNear(ctx context.Context, lng, lat, radiusMeters float64, category string, minRating float64, limit int) ([]Handyman, error) {
	// earth_box prunes via the GIST index, earth_distance is the exact check
	query := `SELECT ` + handymanColumns + `
        FROM handymen
        WHERE is_active = TRUE
          AND earth_box(ll_to_earth($1, $2), $3) @> ll_to_earth(lat, lng)
          AND earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) <= $3
          AND ($4 = '' OR $4 = ANY(skill_categories))
          AND rating_average >= $5
        ORDER BY earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) ASC
        LIMIT $6`
	rows, err := s.pool.Query(ctx, query, lat, lng, radiusMeters, category, minRating, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to search handymen", err)
	}
	defer rows.Close()
	return collectHandymen(rows)
}

func (s *PGStore) SearchByLocationName(ctx context.Context, name, category string, minRating float64, limit int) ([]Handyman, error) {
	query := `SELECT ` + handymanColumns + `
        FROM handymen
        WHERE is_active = TRUE
          AND (area_name ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%' OR city ILIKE '%' || $1 || '%')
          AND ($2 = '' OR $2 = ANY(skill_categories))
          AND rating_average >= $3
        ORDER BY rating_average DESC
        LIMIT $4`
	rows, err := s.pool.Query(ctx, query, name, category, minRating, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to search handymen", err)
	}
	defer rows.Close()
	return collectHandymen(rows)
}

func collectHandymen(rows pgx.Rows) ([]Handyman, error) {
	var out []Handyman
	for rows.Next() {
		h, err := scanHandyman(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to parse handyman record", err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read handymen", err)
	}
	return out, nil
}
