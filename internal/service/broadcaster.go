package service

import "github.com/charly05tr/ClassMatchAPI/internal/domain"

// Broadcaster fans realtime events out to connected sessions. Implementations
// must be fire-and-forget: a slow or absent subscriber never blocks the
// caller, and delivery failures are not reported back. The REST response is
// authoritative; these events are hints for other sessions.
type Broadcaster interface {
	// ConversationUpserted announces a created or reactivated conversation on
	// every participant's personal channel.
	ConversationUpserted(summary *domain.ConversationSummary)
	// MessageCreated announces a new message on its conversation channel.
	MessageCreated(msg *domain.Message)
	// ParticipantJoined announces an added participant on the conversation channel.
	ParticipantJoined(conversationID, userID int64)
	// ParticipantLeft announces a removed or departed participant on the
	// conversation channel, excluding that user's own sessions.
	ParticipantLeft(conversationID, userID int64)
	// ConversationDeleted announces the soft-deletion of an emptied conversation.
	ConversationDeleted(conversationID int64)
}

// NopBroadcaster discards all events. Useful for tests and offline tooling.
type NopBroadcaster struct{}

var _ Broadcaster = NopBroadcaster{}

func (NopBroadcaster) ConversationUpserted(*domain.ConversationSummary) {}
func (NopBroadcaster) MessageCreated(*domain.Message)                   {}
func (NopBroadcaster) ParticipantJoined(int64, int64)                   {}
func (NopBroadcaster) ParticipantLeft(int64, int64)                     {}
func (NopBroadcaster) ConversationDeleted(int64)                        {}
