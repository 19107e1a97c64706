package service

import (
	"context"
	"strings"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// MessageService implements message sending and paginated history listing.
type MessageService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	broadcaster   Broadcaster
}

func NewMessageService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	broadcaster Broadcaster,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		users:         users,
		broadcaster:   broadcaster,
	}
}

// Send persists a message and fans it out to the conversation channel. The
// sender must be a current participant and the conversation must be active.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID int64, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.Invalid("content is required")
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.NotFound("conversation not found")
	}
	if conv.IsDeleted() {
		return nil, domain.Forbidden("this conversation has been deleted")
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, domain.Forbidden("you cannot send messages to this conversation")
	}

	msg := &domain.Message{
		SenderID:       senderID,
		ConversationID: conversationID,
		Content:        content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, domain.Persistence("save message", err)
	}

	if msg.Sender == nil {
		if msg.Sender, err = s.users.GetByID(ctx, senderID); err != nil {
			return nil, err
		}
	}

	s.broadcaster.MessageCreated(msg)
	return msg, nil
}

// ListPage returns one page of a conversation's messages in timestamp order
// with pagination metadata. Page and perPage are clamped to sane bounds
// before touching the store.
func (s *MessageService) ListPage(ctx context.Context, userID, conversationID int64, page, perPage int) (*domain.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.NotFound("conversation not found")
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant || conv.IsDeleted() {
		return nil, domain.Forbidden("you are not a participant of this conversation")
	}

	messages, total, err := s.messages.ListPage(ctx, conversationID, page, perPage)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	return &domain.MessagePage{
		Messages: messages,
		Meta:     domain.NewPageMeta(total, page, perPage),
	}, nil
}
