package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, conversation_id, content, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, m.SenderID, m.ConversationID, m.Content)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return r.db.QueryRowContext(ctx, `
		SELECT created_at FROM messages WHERE id = ?
	`, id).Scan(&m.CreatedAt)
}

func (r *MessageRepo) ListPage(ctx context.Context, conversationID int64, page, perPage int) ([]*domain.Message, int, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ?)
	`, conversationID).Scan(&exists); err != nil {
		return nil, 0, fmt.Errorf("check conversation: %w", err)
	}
	if !exists {
		return nil, 0, domain.NotFound("conversation not found")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = ?
	`, conversationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.sender_id, m.conversation_id, m.content, m.created_at,
		       u.id, u.username, u.email, u.name, u.first_name, u.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT ? OFFSET ?
	`, conversationID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{Sender: &domain.User{}}
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ConversationID, &m.Content, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Username, &m.Sender.Email, &m.Sender.Name, &m.Sender.FirstName, &m.Sender.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, total, rows.Err()
}
