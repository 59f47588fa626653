package rating

import "time"

// Rating is one customer's 1-5 evaluation of one completed job. Immutable
// after creation.
type Rating struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	CustomerID string    `json:"customer_id"`
	HandymanID string    `json:"handyman_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobRef is the slice of a job the aggregator needs for its gate checks.
type JobRef struct {
	ID         string
	CustomerID string
	HandymanID string
	Category   string
	Status     string
	RatingID   string
}
