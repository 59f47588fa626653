package handyman

import (
	"context"
	"sort"
	"strings"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/utils"
)

// searchCandidateLimit caps the number of rows pulled from the store before
// price filtering and sorting.
const searchCandidateLimit = 50

const defaultRadiusKM = 10

// Store is the persistence surface the handyman component needs.
type Store interface {
	Create(ctx context.Context, h *Handyman) error
	GetByUserID(ctx context.Context, userID string) (*Handyman, error)
	GetByID(ctx context.Context, id string) (*Handyman, error)
	Update(ctx context.Context, h *Handyman) error
	// SearchNear returns active handymen within radiusMeters of the point,
	// pre-filtered by category / minimum rating, capped at limit.
	SearchNear(ctx context.Context, lng, lat, radiusMeters float64, category string, minRating float64, limit int) ([]Handyman, error)
	// SearchByLocationName matches area name, address or city by
	// case-insensitive substring.
	SearchByLocationName(ctx context.Context, name, category string, minRating float64, limit int) ([]Handyman, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterInput carries the fields needed to create a profile.
type RegisterInput struct {
	SkillCategories    []string `json:"skill_categories"`
	ExperienceYears    int      `json:"experience_years"`
	ServiceDescription string   `json:"service_description"`
	BasePrice          float64  `json:"base_price"`
	PriceType          string   `json:"price_type"`
	AvailabilityDays   []string `json:"availability_days"`
	AvailableFrom      string   `json:"available_from"`
	AvailableTo        string   `json:"available_to"`
	Lng                float64  `json:"lng"`
	Lat                float64  `json:"lat"`
	AreaName           string   `json:"area_name"`
	Address            string   `json:"address"`
	City               string   `json:"city"`
}

// Register creates the caller's handyman profile. At most one profile per
// user; the store's unique constraint is the backstop under races.
func (s *Service) Register(ctx context.Context, userID string, in RegisterInput) (*Handyman, error) {
	if len(in.SkillCategories) == 0 {
		return nil, apperrors.Validation("at least one skill category is required")
	}
	if in.ExperienceYears < 0 {
		return nil, apperrors.Validation("experience years must not be negative")
	}
	if strings.TrimSpace(in.ServiceDescription) == "" {
		return nil, apperrors.Validation("service description is required")
	}
	if !utils.ValidCoordinates(in.Lng, in.Lat) {
		return nil, apperrors.Validation("valid location coordinates are required")
	}
	if strings.TrimSpace(in.AreaName) == "" {
		return nil, apperrors.Validation("area name is required")
	}

	priceType := in.PriceType
	if priceType == "" {
		priceType = PricePerHour
	}
	switch priceType {
	case PricePerHour, PricePerJob, PriceInAgreement:
	default:
		return nil, apperrors.Validation("invalid price type")
	}
	basePrice := in.BasePrice
	if priceType == PriceInAgreement {
		basePrice = 0
	} else if basePrice <= 0 {
		return nil, apperrors.Validation("base price must be greater than 0 unless price type is in_agreement")
	}

	if existing, err := s.store.GetByUserID(ctx, userID); err == nil && existing != nil {
		return nil, apperrors.Conflict("handyman profile already exists")
	}

	h := &Handyman{
		UserID:             userID,
		SkillCategories:    in.SkillCategories,
		ExperienceYears:    in.ExperienceYears,
		ServiceDescription: strings.TrimSpace(in.ServiceDescription),
		BasePrice:          basePrice,
		PriceType:          priceType,
		AvailabilityDays:   in.AvailabilityDays,
		AvailableFrom:      in.AvailableFrom,
		AvailableTo:        in.AvailableTo,
		Lng:                in.Lng,
		Lat:                in.Lat,
		AreaName:           strings.TrimSpace(in.AreaName),
		Address:            strings.TrimSpace(in.Address),
		City:               strings.TrimSpace(in.City),
		IsActive:           true,
	}
	if len(h.AvailabilityDays) == 0 {
		h.AvailabilityDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}
	if h.AvailableFrom == "" {
		h.AvailableFrom = "08:00"
	}
	if h.AvailableTo == "" {
		h.AvailableTo = "18:00"
	}

	if err := s.store.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetByUserID fetches the caller's own profile.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*Handyman, error) {
	return s.store.GetByUserID(ctx, userID)
}

// GetByID fetches a public profile.
func (s *Service) GetByID(ctx context.Context, id string) (*Handyman, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateInput patches only the provided fields.
type UpdateInput struct {
	SkillCategories    []string `json:"skill_categories"`
	ExperienceYears    *int     `json:"experience_years"`
	ServiceDescription *string  `json:"service_description"`
	BasePrice          *float64 `json:"base_price"`
	PriceType          *string  `json:"price_type"`
	AvailabilityDays   []string `json:"availability_days"`
	AvailableFrom      *string  `json:"available_from"`
	AvailableTo        *string  `json:"available_to"`
	Lng                *float64 `json:"lng"`
	Lat                *float64 `json:"lat"`
	AreaName           *string  `json:"area_name"`
	Address            *string  `json:"address"`
	City               *string  `json:"city"`
}

// Update patches the caller's profile. Rating and job counters are owned by
// the rating aggregator and the job state machine and cannot be set here.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*Handyman, error) {
	h, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(in.SkillCategories) > 0 {
		h.SkillCategories = in.SkillCategories
	}
	if in.ExperienceYears != nil {
		if *in.ExperienceYears < 0 {
			return nil, apperrors.Validation("experience years must not be negative")
		}
		h.ExperienceYears = *in.ExperienceYears
	}
	if in.ServiceDescription != nil && strings.TrimSpace(*in.ServiceDescription) != "" {
		h.ServiceDescription = strings.TrimSpace(*in.ServiceDescription)
	}
	if in.PriceType != nil {
		switch *in.PriceType {
		case PricePerHour, PricePerJob, PriceInAgreement:
			h.PriceType = *in.PriceType
		default:
			return nil, apperrors.Validation("invalid price type")
		}
	}
	if in.BasePrice != nil {
		h.BasePrice = *in.BasePrice
	}
	if h.PriceType == PriceInAgreement {
		h.BasePrice = 0
	} else if h.BasePrice <= 0 {
		return nil, apperrors.Validation("base price must be greater than 0 unless price type is in_agreement")
	}
	if len(in.AvailabilityDays) > 0 {
		h.AvailabilityDays = in.AvailabilityDays
	}
	if in.AvailableFrom != nil {
		h.AvailableFrom = *in.AvailableFrom
	}
	if in.AvailableTo != nil {
		h.AvailableTo = *in.AvailableTo
	}
	if in.Lng != nil && in.Lat != nil {
		if !utils.ValidCoordinates(*in.Lng, *in.Lat) {
			return nil, apperrors.Validation("valid location coordinates are required")
		}
		h.Lng = *in.Lng
		h.Lat = *in.Lat
	}
	if in.AreaName != nil && strings.TrimSpace(*in.AreaName) != "" {
		h.AreaName = strings.TrimSpace(*in.AreaName)
	}
	if in.Address != nil {
		h.Address = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		h.City = strings.TrimSpace(*in.City)
	}

	if err := s.store.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Search runs the geo/text query, then applies distance computation, the
// max-price filter and the requested sort in memory, mirroring how the
// candidate cap works: 50 rows before price filtering, no cap after.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	var (
		candidates []Handyman
		err        error
	)

	switch {
	case p.hasCoordinates():
		if !utils.ValidCoordinates(*p.Longitude, *p.Latitude) {
			return nil, apperrors.Validation("invalid search coordinates")
		}
		radiusKM := p.RadiusKM
		if radiusKM <= 0 {
			radiusKM = defaultRadiusKM
		}
		candidates, err = s.store.SearchNear(ctx, *p.Longitude, *p.Latitude, radiusKM*1000,
			p.Category, p.MinRating, searchCandidateLimit)
	case strings.TrimSpace(p.LocationName) != "":
		candidates, err = s.store.SearchByLocationName(ctx, strings.TrimSpace(p.LocationName),
			p.Category, p.MinRating, searchCandidateLimit)
	default:
		return nil, apperrors.Validation("either location coordinates or location name is required")
	}
	if err != nil {
		return nil, err
	}

	results := postProcess(candidates, p)
	return results, nil
}

// postProcess attaches distances, applies the max-price filter and sorts.
// Split out so the filter/sort rules are testable without a store.
func postProcess(candidates []Handyman, p SearchParams) []SearchResult {
	results := make([]SearchResult, 0, len(candidates))
	for _, h := range candidates {
		r := SearchResult{Handyman: h}
		if p.hasCoordinates() {
			r.Distance = utils.Round2(utils.Haversine(*p.Latitude, *p.Longitude, h.Lat, h.Lng))
		}
		// negotiated pricing is exempt from the max-price filter
		if p.MaxPrice != nil && h.PriceType != PriceInAgreement && h.BasePrice > *p.MaxPrice {
			continue
		}
		results = append(results, r)
	}

	switch p.SortBy {
	case SortByDistance:
		if p.hasCoordinates() {
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Distance < results[j].Distance
			})
		}
	case SortByRating:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].RatingAverage > results[j].RatingAverage
		})
	case SortByPrice:
		// negotiated entries sort after all fixed-priced entries
		sort.SliceStable(results, func(i, j int) bool {
			iNeg := results[i].PriceType == PriceInAgreement
			jNeg := results[j].PriceType == PriceInAgreement
			if iNeg != jNeg {
				return !iNeg
			}
			if iNeg {
				return false
			}
			return results[i].BasePrice < results[j].BasePrice
		})
	}

	return results
}
