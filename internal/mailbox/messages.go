package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/validate"
	"github.com/oklog/ulid/v2"
)

// Status is a message delivery state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusDelivered Status = "delivered"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// Draft is a message composed by voice.
type Draft struct {
	To      string `validate:"required,spokenemail"`
	Subject string `validate:"required"`
	Body    string `validate:"required"`
}

// Message is a stored message.
type Message struct {
	ID        string
	From      string
	To        string
	Subject   string
	Body      string
	Status    Status
	Error     string
	CreatedAt time.Time
}

// Folder selects which side of the mailbox to query.
type Folder int

const (
	FolderInbox Folder = iota
	FolderSent
)

func (s *Store) newMessageID(t time.Time) (string, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return id.String(), nil
}

// Enqueue stores a draft from sender in the queued state.
func (s *Store) Enqueue(ctx context.Context, from string, draft Draft) (Message, error) {
	if err := validate.Struct(draft); err != nil {
		return Message{}, err
	}

	now := s.now()
	id, err := s.newMessageID(now)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        id,
		From:      normalizeAddress(from),
		To:        normalizeAddress(draft.To),
		Subject:   strings.TrimSpace(draft.Subject),
		Body:      strings.TrimSpace(draft.Body),
		Status:    StatusQueued,
		CreatedAt: timeFromMillis(now.UnixMilli()),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_addr, to_addr, subject, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.From, msg.To, msg.Subject, msg.Body, string(msg.Status), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// SetStatus records a delivery outcome. reason is kept for failed messages.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(status), reason, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Message fetches one message by ID.
func (s *Store) Message(ctx context.Context, id string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_addr, to_addr, subject, body, status, error, created_at
		FROM messages WHERE id = ?
	`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	return msg, err
}

// List returns the newest messages first for owner's folder. limit <= 0 means all.
func (s *Store) List(ctx context.Context, owner string, folder Folder, limit int) ([]Message, error) {
	column := "to_addr"
	if folder == FolderSent {
		column = "from_addr"
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_addr, to_addr, subject, body, status, error, created_at
		FROM messages
		WHERE `+column+` = ? AND status != ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, normalizeAddress(owner), string(StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Count returns the number of non-failed messages in owner's folder.
func (s *Store) Count(ctx context.Context, owner string, folder Folder) (int, error) {
	column := "to_addr"
	if folder == FolderSent {
		column = "from_addr"
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE `+column+` = ? AND status != ?
	`, normalizeAddress(owner), string(StatusFailed)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (Message, error) {
	var (
		msg       Message
		status    string
		createdAt int64
	)
	if err := row.Scan(&msg.ID, &msg.From, &msg.To, &msg.Subject, &msg.Body, &status, &msg.Error, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.Status = Status(status)
	msg.CreatedAt = timeFromMillis(createdAt)
	return msg, nil
}
