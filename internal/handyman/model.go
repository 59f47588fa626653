package handyman

import "time"

// Price types
const (
	PricePerHour     = "per_hour"
	PricePerJob      = "per_job"
	PriceInAgreement = "in_agreement" // negotiated out-of-band, exempt from price filters
)

// Sort keys accepted by Search
const (
	SortByDistance = "distance"
	SortByRating   = "rating"
	SortByPrice    = "price"
)

// Handyman is a service-provider profile, one per platform user.
type Handyman struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	SkillCategories    []string  `json:"skill_categories"`
	ExperienceYears    int       `json:"experience_years"`
	ServiceDescription string    `json:"service_description"`
	BasePrice          float64   `json:"base_price"`
	PriceType          string    `json:"price_type"`
	AvailabilityDays   []string  `json:"availability_days,omitempty"`
	AvailableFrom      string    `json:"available_from,omitempty"`
	AvailableTo        string    `json:"available_to,omitempty"`
	Lng                float64   `json:"lng"`
	Lat                float64   `json:"lat"`
	AreaName           string    `json:"area_name"`
	Address            string    `json:"address,omitempty"`
	City               string    `json:"city,omitempty"`
	RatingAverage      float64   `json:"rating_average"`
	RatingCount        int       `json:"rating_count"`
	TotalJobs          int       `json:"total_jobs"`
	CompletedJobs      int       `json:"completed_jobs"`
	IsVerified         bool      `json:"is_verified"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SearchResult is a handyman plus the distance (km) from the searched point.
// Distance is 0 when the search was by location name.
type SearchResult struct {
	Handyman
	Distance float64 `json:"distance"`
}

// SearchParams are the composable filters of the search engine. Either
// coordinates or LocationName must be set.
type SearchParams struct {
	Longitude    *float64
	Latitude     *float64
	RadiusKM     float64 // defaults to 10
	LocationName string
	Category     string
	MinRating    float64
	MaxPrice     *float64
	SortBy       string // distance | rating | price
}

func (p SearchParams) hasCoordinates() bool {
	return p.Longitude != nil && p.Latitude != nil
}
