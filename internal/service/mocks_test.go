package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) FindExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation, participantIDs []int64) error {
	args := m.Called(ctx, c, participantIDs)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) GetSummary(ctx context.Context, id int64) (*domain.ConversationSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationSummary), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationSummary), args.Error(1)
}

func (m *MockConversationRepo) FindActiveDirect(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindSoftDeletedDirectCandidate(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) Reactivate(ctx context.Context, conversationID int64, participantIDs []int64) error {
	args := m.Called(ctx, conversationID, participantIDs)
	return args.Error(0)
}

func (m *MockConversationRepo) Leave(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepo) ListByConversation(ctx context.Context, conversationID int64) ([]*domain.User, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockParticipantRepo) ListIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockParticipantRepo) Count(ctx context.Context, conversationID int64) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipantRepo) Apply(ctx context.Context, conversationID int64, addIDs, removeIDs []int64) error {
	args := m.Called(ctx, conversationID, addIDs, removeIDs)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) ListPage(ctx context.Context, conversationID int64, page, perPage int) ([]*domain.Message, int, error) {
	args := m.Called(ctx, conversationID, page, perPage)
	var msgs []*domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]*domain.Message)
	}
	return msgs, args.Int(1), args.Error(2)
}

// recordingBroadcaster captures broadcast events so tests can assert on what
// the services announced.
type recordingBroadcaster struct {
	upserted    []*domain.ConversationSummary
	messages    []*domain.Message
	joined      [][2]int64
	left        [][2]int64
	deleted     []int64
}

func (b *recordingBroadcaster) ConversationUpserted(summary *domain.ConversationSummary) {
	b.upserted = append(b.upserted, summary)
}

func (b *recordingBroadcaster) MessageCreated(msg *domain.Message) {
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) ParticipantJoined(conversationID, userID int64) {
	b.joined = append(b.joined, [2]int64{conversationID, userID})
}

func (b *recordingBroadcaster) ParticipantLeft(conversationID, userID int64) {
	b.left = append(b.left, [2]int64{conversationID, userID})
}

func (b *recordingBroadcaster) ConversationDeleted(conversationID int64) {
	b.deleted = append(b.deleted, conversationID)
}
