package job

import "time"

// Job statuses. requested → accepted → on_the_way → in_progress → completed.
// cancelled is reachable from requested/accepted (customer) or any active
// state (handyman). rejected is terminal from requested.
const (
	StatusRequested  = "requested"
	StatusAccepted   = "accepted"
	StatusOnTheWay   = "on_the_way"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRejected   = "rejected"
)

// Cancellation actors
const (
	CancelledByCustomer = "customer"
	CancelledByHandyman = "handyman"
	CancelledByAdmin    = "admin"
)

// Payment statuses / methods
const (
	PaymentPending  = "pending"
	PaymentComplete = "completed"
	PaymentRefunded = "refunded"

	MethodCash         = "cash"
	MethodMobileMoney  = "mobile_money"
	MethodBankTransfer = "bank_transfer"
)

// Location is the job site.
type Location struct {
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	Address  string  `json:"address"`
	AreaName string  `json:"area_name,omitempty"`
}

// Job is one service engagement between a customer and a handyman.
type Job struct {
	ID                 string     `json:"id"`
	JobCode            string     `json:"job_code"`
	CustomerID         string     `json:"customer_id"`
	HandymanID         string     `json:"handyman_id"`
	Category           string     `json:"category"`
	Description        string     `json:"description"`
	Location           Location   `json:"location"`
	Status             string     `json:"status"`
	Price              float64    `json:"price"`
	Commission         float64    `json:"commission"`
	PreferredTime      *time.Time `json:"preferred_time,omitempty"`
	ScheduledTime      *time.Time `json:"scheduled_time,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	RatingID           string     `json:"rating_id,omitempty"`
	PaymentStatus      string     `json:"payment_status"`
	LastMessageText    string     `json:"last_message_text,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Terminal reports whether no further transition can leave the status.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusRejected
}

// Payment records the money split for a completed job.
type Payment struct {
	ID              string     `json:"id"`
	JobID           string     `json:"job_id"`
	CustomerID      string     `json:"customer_id"`
	HandymanID      string     `json:"handyman_id"`
	Amount          float64    `json:"amount"`
	Commission      float64    `json:"commission"`
	HandymanEarning float64    `json:"handyman_earning"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"payment_method"`
	TransactionID   string     `json:"transaction_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// HandymanRef is the slice of a handyman profile the state machine needs:
// identity of the owning user and whether the profile can take jobs.
type HandymanRef struct {
	ID       string
	UserID   string
	IsActive bool
}
