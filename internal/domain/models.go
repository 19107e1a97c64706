package domain

import "time"

// User represents an application user. Profile fields beyond the directory
// basics live in the profile subsystem and are not modeled here.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"user_name"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	FirstName      string    `db:"first_name" json:"first_name"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Conversation represents a chat conversation. A conversation with no name and
// exactly two participants is a direct conversation; DeletedAt marks a
// soft-deleted conversation that may later be reactivated.
type Conversation struct {
	ID        int64      `db:"id" json:"id"`
	Name      *string    `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	CreatorID *int64     `db:"creator_id" json:"creator_id,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

// IsDeleted reports whether the conversation has been soft-deleted.
func (c *Conversation) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ConversationParticipant represents the membership of a user in a conversation.
type ConversationParticipant struct {
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	JoinedAt       time.Time `db:"joined_at" json:"joined_at"`
}

// Message represents a single chat message. Messages are immutable once
// created; they disappear only when their conversation is permanently removed.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"timestamp"`
	Sender         *User     `db:"-" json:"sender,omitempty"`
}

// LastMessage is the reduced message view embedded in conversation listings.
type LastMessage struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// ConversationSummary is the listing/detail DTO for a conversation: the row
// itself plus its participants, creator, message count and most recent message.
type ConversationSummary struct {
	Conversation
	Participants []*User      `json:"participants"`
	Creator      *User        `json:"creator,omitempty"`
	MessageCount int          `json:"message_count"`
	LastMessage  *LastMessage `json:"last_message"`
}

// PageMeta carries pagination metadata for paged listings.
type PageMeta struct {
	TotalItems   int  `json:"total_items"`
	TotalPages   int  `json:"total_pages"`
	CurrentPage  int  `json:"current_page"`
	ItemsPerPage int  `json:"items_per_page"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
	NextPage     *int `json:"next_page"`
	PrevPage     *int `json:"prev_page"`
}

// NewPageMeta derives pagination metadata from a total item count and the
// clamped page/perPage values used for the query.
func NewPageMeta(total, page, perPage int) PageMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	meta := PageMeta{
		TotalItems:   total,
		TotalPages:   totalPages,
		CurrentPage:  page,
		ItemsPerPage: perPage,
		HasNext:      page < totalPages,
		HasPrev:      page > 1 && total > 0,
	}
	if meta.HasNext {
		next := page + 1
		meta.NextPage = &next
	}
	if meta.HasPrev {
		prev := page - 1
		meta.PrevPage = &prev
	}
	return meta
}

// MessagePage is one page of a conversation's messages.
type MessagePage struct {
	Messages []*Message `json:"messages"`
	Meta     PageMeta   `json:"pagination"`
}
