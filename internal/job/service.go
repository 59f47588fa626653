package job

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/notify"
	"github.com/abenezer-sh/fixit/internal/utils"
)

const listJobsLimit = 200

// Store is the persistence surface of the state machine. Transition methods
// are conditional updates keyed on the current status: a guard miss returns
// NotFound, which is also how races between concurrent callers resolve.
type Store interface {
	GetHandymanRef(ctx context.Context, handymanID string) (*HandymanRef, error)
	GetHandymanRefByUserID(ctx context.Context, userID string) (*HandymanRef, error)
	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	Accept(ctx context.Context, jobID, handymanID string, scheduledTime *time.Time) (*Job, error)
	Reject(ctx context.Context, jobID, handymanID, reason string) (*Job, error)
	CancelByCustomer(ctx context.Context, jobID, customerID, reason string) (*Job, error)
	// UpdateStatus moves the job to target iff its current status is one of
	// from; stamps completed_at / cancelled_at as the target requires.
	UpdateStatus(ctx context.Context, jobID, handymanID, target string, from []string) (*Job, error)
	IncrementTotalJobs(ctx context.Context, handymanID string) error
	IncrementCompletedJobs(ctx context.Context, handymanID string) error
	CreatePayment(ctx context.Context, p *Payment) error
	ListByCustomer(ctx context.Context, customerID, status string, limit int) ([]Job, error)
	ListByHandyman(ctx context.Context, handymanID, status string, limit int) ([]Job, error)
}

// Notifier is the notification sink; failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) error
}

type Service struct {
	store          Store
	notifier       Notifier
	commissionRate float64 // percent
}

func NewService(store Store, notifier Notifier, commissionRate float64) *Service {
	return &Service{store: store, notifier: notifier, commissionRate: commissionRate}
}

func (s *Service) notifyBestEffort(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) {
	if err := s.notifier.Notify(ctx, recipientID, ntype, title, message, data); err != nil {
		log.Printf("notification failed (recipient=%s title=%q): %v", recipientID, title, err)
	}
}

// CreateInput carries a customer's job request.
type CreateInput struct {
	HandymanID    string     `json:"handyman_id"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
	Location      Location   `json:"location"`
	Price         float64    `json:"price"`
	PreferredTime *time.Time `json:"preferred_time,omitempty"`
}

// Create makes a new job in `requested` status. The commission is fixed here
// from the configured rate and never recomputed. Not idempotent: duplicate
// submissions create duplicate jobs.
func (s *Service) Create(ctx context.Context, customerID, customerName string, in CreateInput) (*Job, error) {
	if in.HandymanID == "" || in.Category == "" || strings.TrimSpace(in.Description) == "" {
		return nil, apperrors.Validation("handyman, category, description and price are required")
	}
	if in.Price <= 0 {
		return nil, apperrors.Validation("price must be greater than 0")
	}
	if !utils.ValidCoordinates(in.Location.Lng, in.Location.Lat) {
		return nil, apperrors.Validation("valid location coordinates are required")
	}
	if strings.TrimSpace(in.Location.Address) == "" {
		return nil, apperrors.Validation("address is required")
	}

	hm, err := s.store.GetHandymanRef(ctx, in.HandymanID)
	if err != nil {
		return nil, err
	}
	if !hm.IsActive {
		return nil, apperrors.NotFound("handyman not found or inactive")
	}

	j := &Job{
		JobCode:       newJobCode(),
		CustomerID:    customerID,
		HandymanID:    in.HandymanID,
		Category:      in.Category,
		Description:   strings.TrimSpace(in.Description),
		Location:      in.Location,
		Status:        StatusRequested,
		Price:         in.Price,
		Commission:    in.Price * s.commissionRate / 100,
		PreferredTime: in.PreferredTime,
		PaymentStatus: PaymentPending,
	}
	if err := s.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	s.notifyBestEffort(ctx, hm.UserID, notify.TypeJobUpdate,
		"New Job Request",
		fmt.Sprintf("%s is requesting your %s services", nameOrDefault(customerName, "A customer"), j.Category),
		map[string]interface{}{"job_id": j.ID, "job_category": j.Category},
	)

	return j, nil
}

// Accept moves a requested job to accepted for the calling handyman. Under
// concurrent accepts the conditional update lets exactly one caller win; the
// loser sees NotFound.
func (s *Service) Accept(ctx context.Context, userID, userName, jobID string, scheduledTime *time.Time) (*Job, error) {
	hm, err := s.store.GetHandymanRefByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	j, err := s.store.Accept(ctx, jobID, hm.ID, scheduledTime)
	if err != nil {
		return nil, err
	}

	if err := s.store.IncrementTotalJobs(ctx, hm.ID); err != nil {
		log.Printf("failed to increment total jobs (handyman=%s): %v", hm.ID, err)
	}

	s.notifyBestEffort(ctx, j.CustomerID, notify.TypeJobUpdate,
		"Job Accepted",
		fmt.Sprintf("%s has accepted your %s request", nameOrDefault(userName, "A handyman"), j.Category),
		map[string]interface{}{"job_id": j.ID, "job_category": j.Category},
	)

	return j, nil
}

// Reject declines a requested job. The job moves to the terminal `rejected`
// status with a cancellation timestamp and reason.
func (s *Service) Reject(ctx context.Context, userID, userName, jobID, reason string) (*Job, error) {
	hm, err := s.store.GetHandymanRefByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	j, err := s.store.Reject(ctx, jobID, hm.ID, reasonOrDefault(reason))
	if err != nil {
		return nil, err
	}

	s.notifyBestEffort(ctx, j.CustomerID, notify.TypeJobUpdate,
		"Job Request Declined",
		fmt.Sprintf("%s has declined your %s request. Reason: %s",
			nameOrDefault(userName, "The handyman"), j.Category, reasonOrDefault(reason)),
		map[string]interface{}{"job_id": j.ID, "job_category": j.Category},
	)

	return j, nil
}

// Cancel lets the customer cancel a job that is still requested or accepted.
func (s *Service) Cancel(ctx context.Context, customerID, customerName, jobID, reason string) (*Job, error) {
	j, err := s.store.CancelByCustomer(ctx, jobID, customerID, reasonOrDefault(reason))
	if err != nil {
		return nil, err
	}

	// the notification goes to the handyman's owning user, not the profile id
	if hm, err := s.store.GetHandymanRef(ctx, j.HandymanID); err == nil {
		s.notifyBestEffort(ctx, hm.UserID, notify.TypeJobUpdate,
			"Job Cancelled by Customer",
			fmt.Sprintf("%s has cancelled the %s request. Reason: %s",
				nameOrDefault(customerName, "The customer"), j.Category, reasonOrDefault(reason)),
			map[string]interface{}{"job_id": j.ID, "job_category": j.Category},
		)
	} else {
		log.Printf("failed to resolve handyman %s for cancel notification: %v", j.HandymanID, err)
	}

	return j, nil
}

var statusTitles = map[string]string{
	StatusOnTheWay:   "Handyman on the way",
	StatusInProgress: "Service Started",
	StatusCompleted:  "Job Completed",
	StatusCancelled:  "Job Cancelled",
}

var statusLabels = map[string]string{
	StatusOnTheWay:   "is on the way",
	StatusInProgress: "has started working",
	StatusCompleted:  "has completed the job",
	StatusCancelled:  "has cancelled the job",
}

// UpdateStatus is the handyman-side transition: on_the_way, in_progress,
// completed or cancelled. Completing requires the job to be in progress and
// fans out the payment record and the completed-jobs counter.
func (s *Service) UpdateStatus(ctx context.Context, userID, userName, jobID, target string) (*Job, error) {
	if _, ok := statusTitles[target]; !ok {
		return nil, apperrors.Validation("invalid status")
	}

	hm, err := s.store.GetHandymanRefByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.HandymanID != hm.ID {
		return nil, apperrors.NotFound("job not found")
	}
	if target == StatusCompleted && current.Status != StatusInProgress {
		return nil, apperrors.InvalidState("job must be in progress before completing")
	}
	if Terminal(current.Status) {
		return nil, apperrors.InvalidState("job already finalized")
	}

	from := []string{StatusRequested, StatusAccepted, StatusOnTheWay, StatusInProgress}
	if target == StatusCompleted {
		from = []string{StatusInProgress}
	}

	j, err := s.store.UpdateStatus(ctx, jobID, hm.ID, target, from)
	if err != nil {
		return nil, err
	}

	if target == StatusCompleted {
		if err := s.store.IncrementCompletedJobs(ctx, hm.ID); err != nil {
			log.Printf("failed to increment completed jobs (handyman=%s): %v", hm.ID, err)
		}
		p := &Payment{
			JobID:           j.ID,
			CustomerID:      j.CustomerID,
			HandymanID:      j.HandymanID,
			Amount:          j.Price,
			Commission:      j.Commission,
			HandymanEarning: j.Price - j.Commission,
			Status:          PaymentPending,
			PaymentMethod:   MethodCash,
		}
		if err := s.store.CreatePayment(ctx, p); err != nil {
			log.Printf("failed to create payment record (job=%s): %v", j.ID, err)
		}
	}

	s.notifyBestEffort(ctx, j.CustomerID, notify.TypeJobUpdate,
		statusTitles[target],
		fmt.Sprintf("%s %s for your %s request",
			nameOrDefault(userName, "The handyman"), statusLabels[target], j.Category),
		map[string]interface{}{"job_id": j.ID, "job_category": j.Category},
	)

	return j, nil
}

// Get returns a job, gated to its participants and admins.
func (s *Service) Get(ctx context.Context, callerID, callerRole, jobID string) (*Job, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if callerRole == "admin" || j.CustomerID == callerID {
		return j, nil
	}
	if hm, err := s.store.GetHandymanRefByUserID(ctx, callerID); err == nil && hm.ID == j.HandymanID {
		return j, nil
	}
	return nil, apperrors.Forbidden("access denied")
}

// ListCustomerJobs returns the caller's jobs, optionally filtered by status,
// ordered by last chat activity then creation time.
func (s *Service) ListCustomerJobs(ctx context.Context, customerID, status string) ([]Job, error) {
	if status != "" && !validStatusFilter(status) {
		return nil, apperrors.Validation("invalid status filter")
	}
	return s.store.ListByCustomer(ctx, customerID, status, listJobsLimit)
}

// ListHandymanJobs is the handyman-side listing, resolved via the caller's
// profile.
func (s *Service) ListHandymanJobs(ctx context.Context, userID, status string) ([]Job, error) {
	if status != "" && !validStatusFilter(status) {
		return nil, apperrors.Validation("invalid status filter")
	}
	hm, err := s.store.GetHandymanRefByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListByHandyman(ctx, hm.ID, status, listJobsLimit)
}

func validStatusFilter(status string) bool {
	switch status {
	case StatusRequested, StatusAccepted, StatusOnTheWay, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

func nameOrDefault(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func reasonOrDefault(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "Not specified"
	}
	return reason
}

// newJobCode builds the human-readable code, e.g. JOB-LX2C41-9F3A2B.
func newJobCode() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper("JOB-" + ts + "-" + rand)
}
