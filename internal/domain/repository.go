package domain

import (
	"context"
)

// UserRepository defines persistence operations for the user directory.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit int) ([]*User, error)
	// FindExistingIDs filters ids down to those with a user row, preserving
	// no particular order. Used to validate participant id sets.
	FindExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// ConversationRepository defines persistence operations for conversations.
// Implementations are authorization-agnostic; access rules live in services.
type ConversationRepository interface {
	// Create inserts the conversation plus one participant row per id in a
	// single transaction and fills in the assigned id and timestamp.
	Create(ctx context.Context, c *Conversation, participantIDs []int64) error
	// GetByID returns nil, nil when no such conversation exists.
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// GetSummary loads a conversation with participants, creator and counts.
	GetSummary(ctx context.Context, id int64) (*ConversationSummary, error)
	// ListForUser returns the active conversations the user participates in,
	// newest last-message first, conversations without messages last.
	ListForUser(ctx context.Context, userID int64) ([]*ConversationSummary, error)
	// FindActiveDirect returns the active unnamed conversation whose only two
	// participants are userA and userB, or nil, nil.
	FindActiveDirect(ctx context.Context, userA, userB int64) (*Conversation, error)
	// FindSoftDeletedDirectCandidate returns the newest soft-deleted unnamed
	// conversation created by either user, or nil, nil.
	FindSoftDeletedDirectCandidate(ctx context.Context, userA, userB int64) (*Conversation, error)
	// Reactivate clears the deletion timestamp and restores any missing
	// participant rows in one transaction.
	Reactivate(ctx context.Context, conversationID int64, participantIDs []int64) error
	// Leave removes the user's participant row; when it was the last row the
	// conversation is soft-deleted in the same transaction. Returns whether
	// the conversation was soft-deleted. Missing membership yields NOT_FOUND.
	Leave(ctx context.Context, conversationID, userID int64) (deleted bool, err error)
}

// ParticipantRepository defines operations around conversation membership.
type ParticipantRepository interface {
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]*User, error)
	ListIDs(ctx context.Context, conversationID int64) ([]int64, error)
	Count(ctx context.Context, conversationID int64) (int, error)
	// Apply inserts and deletes membership rows atomically. Adds are
	// idempotent; partial application is never committed.
	Apply(ctx context.Context, conversationID int64, addIDs, removeIDs []int64) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create persists the message and fills in the assigned id and timestamp.
	Create(ctx context.Context, m *Message) error
	// ListPage returns one page of the conversation's messages ordered by
	// timestamp ascending together with the total message count. A missing
	// conversation yields NOT_FOUND.
	ListPage(ctx context.Context, conversationID int64, page, perPage int) ([]*Message, int, error)
}
