package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

// stubParticipants answers membership checks from a fixed map.
type stubParticipants struct {
	members map[int64][]int64
}

func (s *stubParticipants) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	for _, id := range s.members[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubParticipants) ListByConversation(ctx context.Context, conversationID int64) ([]*domain.User, error) {
	return nil, nil
}

func (s *stubParticipants) ListIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	return s.members[conversationID], nil
}

func (s *stubParticipants) Count(ctx context.Context, conversationID int64) (int, error) {
	return len(s.members[conversationID]), nil
}

func (s *stubParticipants) Apply(ctx context.Context, conversationID int64, addIDs, removeIDs []int64) error {
	return nil
}

func newTestHub(members map[int64][]int64) *Hub {
	return NewHub(NewRegistry(), &stubParticipants{members: members})
}

func nextEvent(t *testing.T, sess *Session) map[string]any {
	t.Helper()
	select {
	case payload := <-sess.send:
		var event map[string]any
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

func assertNoEvent(t *testing.T, sess *Session) {
	t.Helper()
	select {
	case payload := <-sess.send:
		t.Fatalf("unexpected event: %s", payload)
	default:
	}
}

func TestHubPersonalChannel(t *testing.T) {
	hub := newTestHub(nil)
	sess := NewSession(nil)
	hub.Connect(sess, 1)

	hub.ConversationUpserted(&domain.ConversationSummary{
		Conversation: domain.Conversation{ID: 7},
		Participants: []*domain.User{{ID: 1}, {ID: 2}},
	})

	event := nextEvent(t, sess)
	assert.Equal(t, "new_conversation", event["type"])
}

func TestHubJoinConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("UnboundSessionRejected", func(t *testing.T) {
		hub := newTestHub(map[int64][]int64{7: {1}})

		err := hub.JoinConversation(ctx, NewSession(nil), 7)
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeUnauthenticated))
	})

	t.Run("NonParticipantRejected", func(t *testing.T) {
		hub := newTestHub(map[int64][]int64{7: {2}})
		sess := NewSession(nil)
		hub.Connect(sess, 1)

		err := hub.JoinConversation(ctx, sess, 7)
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodePermissionDenied))

		hub.MessageCreated(&domain.Message{ID: 1, ConversationID: 7})
		assertNoEvent(t, sess)
	})

	t.Run("JoinNotifiesOtherMembers", func(t *testing.T) {
		hub := newTestHub(map[int64][]int64{7: {1, 2}})
		first := NewSession(nil)
		second := NewSession(nil)
		hub.Connect(first, 1)
		hub.Connect(second, 2)

		require.NoError(t, hub.JoinConversation(ctx, first, 7))
		assertNoEvent(t, first)

		require.NoError(t, hub.JoinConversation(ctx, second, 7))
		event := nextEvent(t, first)
		assert.Equal(t, "user_joined_conv", event["type"])
		assert.Equal(t, float64(2), event["user_id"])
		// the joiner does not receive its own join
		assertNoEvent(t, second)
	})
}

func TestHubMessageFanout(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(map[int64][]int64{7: {1, 2}})

	member := NewSession(nil)
	outsider := NewSession(nil)
	hub.Connect(member, 1)
	hub.Connect(outsider, 3)
	require.NoError(t, hub.JoinConversation(ctx, member, 7))

	hub.MessageCreated(&domain.Message{ID: 5, ConversationID: 7, Content: "hi"})

	event := nextEvent(t, member)
	assert.Equal(t, "new_message", event["type"])
	assert.Equal(t, float64(7), event["conversation_id"])
	assertNoEvent(t, outsider)
}

func TestHubParticipantLeftExcludesLeaver(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(map[int64][]int64{7: {1, 2}})

	stayer := NewSession(nil)
	leaver := NewSession(nil)
	hub.Connect(stayer, 1)
	hub.Connect(leaver, 2)
	require.NoError(t, hub.JoinConversation(ctx, stayer, 7))
	require.NoError(t, hub.JoinConversation(ctx, leaver, 7))
	nextEvent(t, stayer) // drain join notification

	hub.ParticipantLeft(7, 2)

	event := nextEvent(t, stayer)
	assert.Equal(t, "user_left_conv", event["type"])
	assert.Equal(t, float64(2), event["user_id"])
	assertNoEvent(t, leaver)
}

func TestHubLeaveConversation(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(map[int64][]int64{7: {1, 2}})

	first := NewSession(nil)
	second := NewSession(nil)
	hub.Connect(first, 1)
	hub.Connect(second, 2)
	require.NoError(t, hub.JoinConversation(ctx, first, 7))
	require.NoError(t, hub.JoinConversation(ctx, second, 7))
	nextEvent(t, first) // drain join notification

	hub.LeaveConversation(second, 7)

	event := nextEvent(t, first)
	assert.Equal(t, "user_left_conv", event["type"])

	// no longer receives conversation events
	hub.MessageCreated(&domain.Message{ID: 9, ConversationID: 7})
	nextEvent(t, first)
	assertNoEvent(t, second)

	// leaving again changes nothing
	hub.LeaveConversation(second, 7)
	assertNoEvent(t, first)
}

func TestHubDisconnect(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(map[int64][]int64{7: {1}})

	sess := NewSession(nil)
	hub.Connect(sess, 1)
	require.NoError(t, hub.JoinConversation(ctx, sess, 7))

	hub.Disconnect(sess)

	_, ok := hub.registry.Resolve(sess)
	assert.False(t, ok)
	hub.MessageCreated(&domain.Message{ID: 1, ConversationID: 7})
	assert.False(t, sess.Enqueue([]byte("x")))
}

func TestHubDropsSlowSession(t *testing.T) {
	hub := newTestHub(nil)
	sess := NewSession(nil)
	hub.Connect(sess, 1)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, sess.Enqueue([]byte("{}")))
	}

	hub.ConversationUpserted(&domain.ConversationSummary{
		Conversation: domain.Conversation{ID: 7},
		Participants: []*domain.User{{ID: 1}},
	})

	_, ok := hub.registry.Resolve(sess)
	assert.False(t, ok)
}
