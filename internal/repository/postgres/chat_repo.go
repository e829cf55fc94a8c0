package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/nexttask/internal/domain"
)

const chatMessageColumns = "id, content, sender_id, receiver_id, is_read, created_at, read_at"

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (content, sender_id, receiver_id)
		VALUES ($1, $2, $3)
		RETURNING id, is_read, created_at`
	err := r.pool.QueryRow(ctx, query, msg.Content, msg.SenderID, msg.ReceiverID).Scan(
		&msg.ID, &msg.IsRead, &msg.CreatedAt,
	)
	return translate(err)
}

func (r *ChatRepo) GetMessageByID(ctx context.Context, id int64) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	err := r.pool.QueryRow(ctx, "SELECT "+chatMessageColumns+" FROM chat_messages WHERE id = $1", id).Scan(
		&m.ID, &m.Content, &m.SenderID, &m.ReceiverID, &m.IsRead, &m.CreatedAt, &m.ReadAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListConversation returns messages between two users, newest first.
func (r *ChatRepo) ListConversation(ctx context.Context, userID, otherUserID int64, limit, offset int) ([]domain.ChatMessage, error) {
	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	return r.listMessages(ctx, query, userID, otherUserID, limit, offset)
}

func (r *ChatRepo) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	return r.listMessages(ctx, query, userID, limit)
}

func (r *ChatRepo) MarkRead(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE chat_messages SET is_read = TRUE, read_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *ChatRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE receiver_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func (r *ChatRepo) CreateWorkspaceMessage(ctx context.Context, msg *domain.WorkspaceChatMessage) error {
	query := `
		INSERT INTO workspace_chat_messages (content, workspace_id, sender_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, msg.Content, msg.WorkspaceID, msg.SenderID).Scan(&msg.ID, &msg.CreatedAt)
	return translate(err)
}

func (r *ChatRepo) ListWorkspaceMessages(ctx context.Context, workspaceID int64, limit, offset int) ([]domain.WorkspaceChatMessage, error) {
	query := `
		SELECT m.id, m.content, m.workspace_id, m.sender_id, m.created_at,
		       u.id, u.name, u.email, u.avatar
		FROM workspace_chat_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.WorkspaceChatMessage
	for rows.Next() {
		var m domain.WorkspaceChatMessage
		var sender domain.UserSummary
		if err := rows.Scan(
			&m.ID, &m.Content, &m.WorkspaceID, &m.SenderID, &m.CreatedAt,
			&sender.ID, &sender.Name, &sender.Email, &sender.Avatar,
		); err != nil {
			return nil, err
		}
		m.Sender = &sender
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *ChatRepo) LastWorkspaceActivity(ctx context.Context, workspaceID int64) (*time.Time, error) {
	var at *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM workspace_chat_messages WHERE workspace_id = $1`, workspaceID).Scan(&at)
	return at, err
}

func (r *ChatRepo) listMessages(ctx context.Context, query string, args ...any) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Content, &m.SenderID, &m.ReceiverID, &m.IsRead, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
