package rating

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/notify"
	"github.com/abenezer-sh/fixit/internal/utils"
)

const listRatingsLimit = 50

const maxCommentLength = 500

// Store is the aggregator's persistence surface. CreateRating must surface
// a Conflict when a rating for the job already exists (unique constraint is
// the backstop under concurrent submissions).
type Store interface {
	GetJob(ctx context.Context, jobID string) (*JobRef, error)
	CreateRating(ctx context.Context, r *Rating) error
	SetJobRating(ctx context.Context, jobID, ratingID string) error
	// HandymanRatingStats rescans all of a handyman's ratings; the aggregate
	// is recomputed from source rather than incremented.
	HandymanRatingStats(ctx context.Context, handymanID string) (average float64, count int, err error)
	UpdateHandymanRating(ctx context.Context, handymanID string, average float64, count int) error
	GetHandymanUserID(ctx context.Context, handymanID string) (string, error)
	ListByHandyman(ctx context.Context, handymanID string, limit int) ([]Rating, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) error
}

type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Create persists the rating for a completed job and recomputes the owning
// handyman's rolling average. Only the job's customer may rate, exactly once.
func (s *Service) Create(ctx context.Context, customerID, customerName, jobID string, value int, comment string) (*Rating, error) {
	if value < 1 || value > 5 {
		return nil, apperrors.Validation("rating must be between 1 and 5")
	}
	if len(comment) > maxCommentLength {
		return nil, apperrors.Validation("comment too long (max 500 characters)")
	}

	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.CustomerID != customerID {
		return nil, apperrors.Forbidden("you can only rate your own jobs")
	}
	if j.Status != "completed" {
		return nil, apperrors.InvalidState("you can only rate completed jobs")
	}
	if j.RatingID != "" {
		return nil, apperrors.Conflict("job already rated")
	}

	r := &Rating{
		JobID:      j.ID,
		CustomerID: j.CustomerID,
		HandymanID: j.HandymanID,
		Rating:     value,
		Comment:    strings.TrimSpace(comment),
	}
	if err := s.store.CreateRating(ctx, r); err != nil {
		return nil, err
	}

	if err := s.store.SetJobRating(ctx, j.ID, r.ID); err != nil {
		return nil, err
	}

	average, count, err := s.store.HandymanRatingStats(ctx, j.HandymanID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateHandymanRating(ctx, j.HandymanID, utils.Round2(average), count); err != nil {
		return nil, err
	}

	if userID, err := s.store.GetHandymanUserID(ctx, j.HandymanID); err == nil {
		name := customerName
		if strings.TrimSpace(name) == "" {
			name = "A customer"
		}
		if nerr := s.notifier.Notify(ctx, userID, notify.TypeSystem,
			"New Rating Received",
			fmt.Sprintf("%s has left a %d-star rating for your %s service.", name, value, j.Category),
			map[string]interface{}{"job_id": j.ID, "rating_id": r.ID},
		); nerr != nil {
			log.Printf("rating notification failed (job=%s): %v", j.ID, nerr)
		}
	} else {
		log.Printf("failed to resolve handyman %s for rating notification: %v", j.HandymanID, err)
	}

	return r, nil
}

// ListByHandyman returns a handyman's ratings, newest first.
func (s *Service) ListByHandyman(ctx context.Context, handymanID string) ([]Rating, error) {
	return s.store.ListByHandyman(ctx, handymanID, listRatingsLimit)
}
