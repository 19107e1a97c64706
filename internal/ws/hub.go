package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
)

// Hub manages channel membership and fan-out. Every user gets a personal
// channel ("user_<id>") joined automatically on connect; each conversation
// has its own channel ("conv_<id>") that participants subscribe to
// explicitly. Publishing is best-effort: sessions that cannot keep up are
// dropped, nothing is retried or persisted.
type Hub struct {
	registry     *Registry
	participants domain.ParticipantRepository

	mu       sync.RWMutex
	channels map[string]map[*Session]struct{}
	joined   map[*Session]map[string]struct{}
}

var _ service.Broadcaster = (*Hub)(nil)

func NewHub(registry *Registry, participants domain.ParticipantRepository) *Hub {
	return &Hub{
		registry:     registry,
		participants: participants,
		channels:     make(map[string]map[*Session]struct{}),
		joined:       make(map[*Session]map[string]struct{}),
	}
}

func userChannel(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

func conversationChannel(conversationID int64) string {
	return fmt.Sprintf("conv_%d", conversationID)
}

// Connect binds the session to a user and auto-subscribes it to the user's
// personal channel.
func (h *Hub) Connect(sess *Session, userID int64) {
	h.registry.Bind(sess, userID)
	h.subscribe(sess, userChannel(userID))
}

// Disconnect unbinds the session, removes it from every channel and closes
// its send queue.
func (h *Hub) Disconnect(sess *Session) {
	h.registry.Unbind(sess)

	h.mu.Lock()
	for channel := range h.joined[sess] {
		h.removeFromChannel(sess, channel)
	}
	delete(h.joined, sess)
	h.mu.Unlock()

	sess.Close()
}

// JoinConversation subscribes a bound session to a conversation channel.
// The session's user must be a current participant; failures are reported to
// the caller (as an error event, not a disconnect) via the returned error.
func (h *Hub) JoinConversation(ctx context.Context, sess *Session, conversationID int64) error {
	userID, ok := h.registry.Resolve(sess)
	if !ok {
		return domain.Unauthenticated("session is not bound to a user")
	}

	isParticipant, err := h.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return domain.Persistence("check participant", err)
	}
	if !isParticipant {
		return domain.Forbidden("you are not a participant of this conversation")
	}

	h.subscribe(sess, conversationChannel(conversationID))
	h.publish(conversationChannel(conversationID), map[string]any{
		"type":            "user_joined_conv",
		"conversation_id": conversationID,
		"user_id":         userID,
	}, sess)
	return nil
}

// LeaveConversation unsubscribes the session from a conversation channel and
// tells the remaining members. Leaving a channel the session never joined is
// a no-op.
func (h *Hub) LeaveConversation(sess *Session, conversationID int64) {
	channel := conversationChannel(conversationID)

	h.mu.Lock()
	_, wasMember := h.joined[sess][channel]
	if wasMember {
		h.removeFromChannel(sess, channel)
		delete(h.joined[sess], channel)
	}
	h.mu.Unlock()

	if !wasMember {
		return
	}
	userID, ok := h.registry.Resolve(sess)
	if !ok {
		return
	}
	h.publish(channel, map[string]any{
		"type":            "user_left_conv",
		"conversation_id": conversationID,
		"user_id":         userID,
	}, sess)
}

// ── service.Broadcaster ──────────────────────────────────────────────────────

func (h *Hub) ConversationUpserted(summary *domain.ConversationSummary) {
	event := map[string]any{
		"type":         "new_conversation",
		"conversation": summary,
	}
	for _, u := range summary.Participants {
		h.publish(userChannel(u.ID), event, nil)
	}
}

func (h *Hub) MessageCreated(msg *domain.Message) {
	h.publish(conversationChannel(msg.ConversationID), map[string]any{
		"type":            "new_message",
		"conversation_id": msg.ConversationID,
		"message":         msg,
	}, nil)
}

func (h *Hub) ParticipantJoined(conversationID, userID int64) {
	h.publish(conversationChannel(conversationID), map[string]any{
		"type":            "user_joined_conv",
		"conversation_id": conversationID,
		"user_id":         userID,
	}, nil)
}

// ParticipantLeft announces the departure to the conversation channel,
// skipping the departed user's own sessions.
func (h *Hub) ParticipantLeft(conversationID, userID int64) {
	event := map[string]any{
		"type":            "user_left_conv",
		"conversation_id": conversationID,
		"user_id":         userID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws: marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Session, 0, len(h.channels[conversationChannel(conversationID)]))
	for sess := range h.channels[conversationChannel(conversationID)] {
		if uid, ok := h.registry.Resolve(sess); ok && uid == userID {
			continue
		}
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	h.deliver(targets, payload)
}

func (h *Hub) ConversationDeleted(conversationID int64) {
	h.publish(conversationChannel(conversationID), map[string]any{
		"type":            "conversation_deleted",
		"conversation_id": conversationID,
	}, nil)
}

// ── internals ────────────────────────────────────────────────────────────────

func (h *Hub) subscribe(sess *Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Session]struct{})
	}
	h.channels[channel][sess] = struct{}{}
	if h.joined[sess] == nil {
		h.joined[sess] = make(map[string]struct{})
	}
	h.joined[sess][channel] = struct{}{}
}

// removeFromChannel must be called with h.mu held.
func (h *Hub) removeFromChannel(sess *Session, channel string) {
	if sessions, ok := h.channels[channel]; ok {
		delete(sessions, sess)
		if len(sessions) == 0 {
			delete(h.channels, channel)
		}
	}
}

// publish sends an event to every session in the channel except the excluded
// one. Marshalling happens once per event.
func (h *Hub) publish(channel string, event map[string]any, exclude *Session) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws: marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Session, 0, len(h.channels[channel]))
	for sess := range h.channels[channel] {
		if sess == exclude {
			continue
		}
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	h.deliver(targets, payload)
}

// deliver enqueues the payload on each target outside the hub lock. Sessions
// whose buffer is full are treated as dead and disconnected.
func (h *Hub) deliver(targets []*Session, payload []byte) {
	for _, sess := range targets {
		if !sess.Enqueue(payload) {
			zap.L().Warn("ws: dropping slow session", zap.String("session_id", sess.ID))
			h.Disconnect(sess)
		}
	}
}

// SendEvent delivers an event to a single session, bypassing channels. Used
// for status and error events addressed to one caller.
func (h *Hub) SendEvent(sess *Session, event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("ws: marshal event", zap.Error(err))
		return
	}
	if !sess.Enqueue(payload) {
		h.Disconnect(sess)
	}
}
