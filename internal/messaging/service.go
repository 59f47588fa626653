package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/notify"
)

const conversationsLimit = 200

// previewLength caps the notification preview, ellipsis appended beyond it.
const previewLength = 30

type Store interface {
	GetJobParticipants(ctx context.Context, jobID string) (*Participants, error)
	CreateMessage(ctx context.Context, m *Message) error
	// SetJobLastMessage refreshes the job's denormalized last-message cache;
	// the messaging component is its sole writer.
	SetJobLastMessage(ctx context.Context, jobID, text string, at time.Time) error
	ListByJob(ctx context.Context, jobID string) ([]Message, error)
	// MarkThreadRead bulk-transitions every unread message addressed to
	// recipientID in the thread, returning how many rows changed.
	MarkThreadRead(ctx context.Context, jobID, recipientID string, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	UnreadCountsByJob(ctx context.Context, recipientID string) (map[string]int64, error)
	Conversations(ctx context.Context, userID string, limit int) ([]Conversation, error)
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

func (p *Participants) includes(userID string) bool {
	return userID == p.CustomerID || userID == p.HandymanUserID
}

// VerifyParticipant gates thread access to the job's two users.
func (s *Service) VerifyParticipant(ctx context.Context, callerID, jobID string) (*Participants, error) {
	p, err := s.store.GetJobParticipants(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !p.includes(callerID) {
		return nil, apperrors.Forbidden("not a participant in this job")
	}
	return p, nil
}

// Send persists the message, refreshes the job's last-message cache and
// notifies the recipient unless they are the sender.
func (s *Service) Send(ctx context.Context, senderID, senderName, jobID, recipientID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if jobID == "" || recipientID == "" || text == "" {
		return nil, apperrors.Validation("job id, recipient id and text are required")
	}

	p, err := s.VerifyParticipant(ctx, senderID, jobID)
	if err != nil {
		return nil, err
	}
	if !p.includes(recipientID) {
		return nil, apperrors.Validation("recipient is not a participant in this job")
	}

	m := &Message{
		JobID:       jobID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		Status:      StatusSent,
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	if err := s.store.SetJobLastMessage(ctx, jobID, m.Text, m.CreatedAt); err != nil {
		log.Printf("failed to update last-message cache (job=%s): %v", jobID, err)
	}

	if senderID != recipientID {
		name := senderName
		if strings.TrimSpace(name) == "" {
			name = "A user"
		}
		if nerr := s.notifier.Notify(ctx, recipientID, notify.TypeMessage,
			"New Message",
			fmt.Sprintf("%s messaged you about %s: %q", name, p.Category, preview(m.Text)),
			map[string]interface{}{
				"job_id":       jobID,
				"message_id":   m.ID,
				"sender_id":    senderID,
				"sender_name":  name,
				"job_category": p.Category,
			},
		); nerr != nil {
			log.Printf("message notification failed (job=%s): %v", jobID, nerr)
		}
	}

	BroadcastNewMessage(jobID, m)

	return m, nil
}

// Thread returns the full conversation oldest-first and, as a side effect,
// marks every message addressed to the caller as read (implicit receipts).
func (s *Service) Thread(ctx context.Context, callerID, jobID string) ([]Message, error) {
	if _, err := s.VerifyParticipant(ctx, callerID, jobID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	n, err := s.store.MarkThreadRead(ctx, jobID, callerID, now)
	if err != nil {
		log.Printf("failed to mark thread read (job=%s): %v", jobID, err)
	} else if n > 0 {
		BroadcastMessagesRead(jobID, callerID, now)
	}

	return msgs, nil
}

// Conversations derives one row per job the caller chatted in, latest
// message first, capped at 200.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	return s.store.Conversations(ctx, userID, conversationsLimit)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *Service) UnreadCountsByJob(ctx context.Context, userID string) (map[string]int64, error) {
	return s.store.UnreadCountsByJob(ctx, userID)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
