package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation, participantIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (name, creator_id, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, c.Name, c.CreatorID)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id

	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
		`, id, uid); err != nil {
			return fmt.Errorf("insert participant %d: %w", uid, err)
		}
	}

	if err := tx.QueryRowContext(ctx, `
		SELECT created_at FROM conversations WHERE id = ?
	`, id).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("read created_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, creator_id, deleted_at
		FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.CreatorID, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) GetSummary(ctx context.Context, id int64) (*domain.ConversationSummary, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NotFound("conversation not found")
	}

	s := &domain.ConversationSummary{Conversation: *c}

	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.name, u.first_name, u.hashed_password, u.created_at
		FROM users u
		JOIN conversation_participants cp ON cp.user_id = u.id
		WHERE cp.conversation_id = ?
		ORDER BY cp.joined_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	s.Participants, err = scanUsers(rows)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = ?
	`, id).Scan(&s.MessageCount); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	lm := &domain.LastMessage{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, id).Scan(&lm.ID, &lm.SenderID, &lm.Content, &lm.CreatedAt)
	if err == nil {
		s.LastMessage = lm
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("last message: %w", err)
	}

	s.Creator = findCreator(s.Participants, c.CreatorID)
	if s.Creator == nil && c.CreatorID != nil {
		u := NewUserRepo(r.db)
		if s.Creator, err = u.GetByID(ctx, *c.CreatorID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at, c.creator_id, c.deleted_at,
		       lm.id, lm.sender_id, lm.content, lm.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		LEFT JOIN messages lm ON lm.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.conversation_id = c.id
			ORDER BY m2.created_at DESC, m2.id DESC
			LIMIT 1
		)
		WHERE cp.user_id = ? AND c.deleted_at IS NULL
		ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.ConversationSummary
	for rows.Next() {
		s := &domain.ConversationSummary{}
		var (
			lmID       sql.NullInt64
			lmSenderID sql.NullInt64
			lmContent  sql.NullString
			lmCreated  sql.NullTime
		)
		if err := rows.Scan(
			&s.ID, &s.Name, &s.CreatedAt, &s.CreatorID, &s.DeletedAt,
			&lmID, &lmSenderID, &lmContent, &lmCreated,
			&s.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if lmID.Valid {
			s.LastMessage = &domain.LastMessage{
				ID:        lmID.Int64,
				SenderID:  lmSenderID.Int64,
				Content:   lmContent.String,
				CreatedAt: lmCreated.Time,
			}
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachParticipants(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ConversationRepo) FindActiveDirect(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.created_at, c.creator_id, c.deleted_at
		FROM conversations c
		WHERE c.deleted_at IS NULL
		  AND c.name IS NULL
		  AND (SELECT COUNT(*) FROM conversation_participants cp WHERE cp.conversation_id = c.id) = 2
		  AND EXISTS (SELECT 1 FROM conversation_participants cp WHERE cp.conversation_id = c.id AND cp.user_id = ?)
		  AND EXISTS (SELECT 1 FROM conversation_participants cp WHERE cp.conversation_id = c.id AND cp.user_id = ?)
		LIMIT 1
	`, userA, userB).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.CreatorID, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active direct: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) FindSoftDeletedDirectCandidate(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, creator_id, deleted_at
		FROM conversations
		WHERE deleted_at IS NOT NULL
		  AND name IS NULL
		  AND creator_id IN (?, ?)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userA, userB).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.CreatorID, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find soft-deleted direct candidate: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) Reactivate(ctx context.Context, conversationID int64, participantIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET deleted_at = NULL WHERE id = ?
	`, conversationID); err != nil {
		return fmt.Errorf("clear deleted_at: %w", err)
	}

	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
		`, conversationID, uid); err != nil {
			return fmt.Errorf("restore participant %d: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Leave(ctx context.Context, conversationID, userID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("delete participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, domain.NotFound("not a participant of this conversation")
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = ?
	`, conversationID).Scan(&remaining); err != nil {
		return false, fmt.Errorf("count remaining: %w", err)
	}

	deleted := remaining == 0
	if deleted {
		if _, err := tx.ExecContext(ctx, `
			UPDATE conversations SET deleted_at = CURRENT_TIMESTAMP
			WHERE id = ? AND deleted_at IS NULL
		`, conversationID); err != nil {
			return false, fmt.Errorf("soft-delete conversation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return deleted, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *ConversationRepo) attachParticipants(ctx context.Context, summaries []*domain.ConversationSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	ids := make([]int64, len(summaries))
	byID := make(map[int64]*domain.ConversationSummary, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	placeholders, args := inArgs(ids)
	rows, err := r.db.QueryContext(ctx, `
		SELECT cp.conversation_id,
		       u.id, u.username, u.email, u.name, u.first_name, u.hashed_password, u.created_at
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id IN (`+placeholders+`)
		ORDER BY cp.joined_at ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var convID int64
		u := &domain.User{}
		if err := rows.Scan(&convID, &u.ID, &u.Username, &u.Email, &u.Name, &u.FirstName, &u.HashedPassword, &u.CreatedAt); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		if s, ok := byID[convID]; ok {
			s.Participants = append(s.Participants, u)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range summaries {
		s.Creator = findCreator(s.Participants, s.CreatorID)
	}
	return nil
}

func findCreator(participants []*domain.User, creatorID *int64) *domain.User {
	if creatorID == nil {
		return nil
	}
	for _, u := range participants {
		if u.ID == *creatorID {
			return u
		}
	}
	return nil
}
