package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification types
const (
	TypeMessage   = "message"
	TypeJobUpdate = "job_update"
	TypeSystem    = "system"
)

type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipient_id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Read        bool                   `json:"read"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Service is the notification sink. Producing components call Notify after
// their committing write and must treat a returned error as non-fatal.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Notify persists one in-app notification. No delivery, no retries: the
// inbox is read by polling.
func (s *Service) Notify(ctx context.Context, recipientID, ntype, title, message string, data map[string]interface{}) error {
	var payload []byte
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (recipient_id, type, title, message, data)
         VALUES ($1, $2, $3, $4, $5)`,
		recipientID, ntype, title, message, payload,
	)
	return err
}
