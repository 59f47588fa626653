package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abenezer-sh/fixit/internal/apperrors"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetJobParticipants(ctx context.Context, jobID string) (*Participants, error) {
	var p Participants
	err := s.pool.QueryRow(ctx,
		`SELECT j.id::text, j.customer_id::text, h.user_id::text, j.category
         FROM jobs j
         JOIN handymen h ON h.id = j.handyman_id
         WHERE j.id = $1`, jobID,
	).Scan(&p.JobID, &p.CustomerID, &p.HandymanUserID, &p.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("job not found")
		}
		return nil, apperrors.Internal("failed to fetch job participants", err)
	}
	return &p, nil
}

func (s *PGStore) CreateMessage(ctx context.Context, m *Message) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (job_id, sender_id, recipient_id, text, status)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id::text, created_at`,
		m.JobID, m.SenderID, m.RecipientID, m.Text, m.Status,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return apperrors.Internal("failed to create message", err)
	}
	return nil
}

func (s *PGStore) SetJobLastMessage(ctx context.Context, jobID, text string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET last_message_text = $2, last_message_at = $3, updated_at = NOW() WHERE id = $1`,
		jobID, text, at)
	if err != nil {
		return apperrors.Internal("failed to update job last message", err)
	}
	return nil
}

func (s *PGStore) ListByJob(ctx context.Context, jobID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, job_id::text, sender_id::text, recipient_id::text, text, status, read_at, created_at
         FROM messages WHERE job_id = $1
         ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.JobID, &m.SenderID, &m.RecipientID, &m.Text, &m.Status, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, apperrors.Internal("failed to parse message record", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read messages", err)
	}
	return out, nil
}

func (s *PGStore) MarkThreadRead(ctx context.Context, jobID, recipientID string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = 'read', read_at = $3
         WHERE job_id = $1 AND recipient_id = $2 AND status <> 'read'`,
		jobID, recipientID, at)
	if err != nil {
		return 0, apperrors.Internal("failed to mark messages read", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND status <> 'read'`,
		recipientID).Scan(&n)
	if err != nil {
		return 0, apperrors.Internal("failed to count unread messages", err)
	}
	return n, nil
}

func (s *PGStore) UnreadCountsByJob(ctx context.Context, recipientID string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id::text, COUNT(*) FROM messages
         WHERE recipient_id = $1 AND status <> 'read'
         GROUP BY job_id`, recipientID)
	if err != nil {
		return nil, apperrors.Internal("failed to count unread messages", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var jobID string
		var n int64
		if err := rows.Scan(&jobID, &n); err != nil {
			return nil, apperrors.Internal("failed to parse unread counts", err)
		}
		out[jobID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read unread counts", err)
	}
	return out, nil
}

// Conversations folds the message log into one row per job: the latest
// message (created_at, then id, as the tie-break), the job's code, category
// and status, the other participant, and the caller's unread count.
func (s *PGStore) Conversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.job_id::text, j.job_code, j.category, j.status,
                CASE WHEN j.customer_id::text = $1 THEN h.user_id::text ELSE j.customer_id::text END,
                m.id::text, m.sender_id::text, m.recipient_id::text, m.text, m.status, m.read_at, m.created_at,
                (SELECT COUNT(*) FROM messages u
                 WHERE u.job_id = m.job_id AND u.recipient_id::text = $1 AND u.status <> 'read')
         FROM (
             SELECT DISTINCT ON (job_id) *
             FROM messages
             ORDER BY job_id, created_at DESC, id DESC
         ) m
         JOIN jobs j ON j.id = m.job_id
         JOIN handymen h ON h.id = j.handyman_id
         WHERE j.customer_id::text = $1 OR h.user_id::text = $1
         ORDER BY m.created_at DESC
         LIMIT $2`, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch conversations", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var cv Conversation
		m := &cv.LastMessage
		if err := rows.Scan(&cv.JobID, &cv.JobCode, &cv.Category, &cv.JobStatus, &cv.CounterpartyID,
			&m.ID, &m.SenderID, &m.RecipientID, &m.Text, &m.Status, &m.ReadAt, &m.CreatedAt,
			&cv.UnreadCount); err != nil {
			return nil, apperrors.Internal("failed to parse conversation record", err)
		}
		m.JobID = cv.JobID
		out = append(out, cv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read conversations", err)
	}
	return out, nil
}
