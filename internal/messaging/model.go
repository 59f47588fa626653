package messaging

import "time"

// Message delivery statuses; monotonic, never reverting.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message is one chat utterance scoped to a job.
type Message struct {
	ID          string     `json:"id"`
	JobID       string     `json:"job_id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Text        string     `json:"text"`
	Status      string     `json:"status"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Participants identifies the two users allowed in a job's thread.
type Participants struct {
	JobID          string
	CustomerID     string
	HandymanUserID string
	Category       string
}

// Conversation is one row of the derived "latest message per job" view.
type Conversation struct {
	JobID          string  `json:"job_id"`
	JobCode        string  `json:"job_code"`
	Category       string  `json:"category"`
	JobStatus      string  `json:"job_status"`
	CounterpartyID string  `json:"counterparty_id"`
	LastMessage    Message `json:"last_message"`
	UnreadCount    int64   `json:"unread_count"`
}
