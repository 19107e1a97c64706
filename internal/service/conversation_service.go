package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

// ConversationService implements the conversation business rules: group and
// direct creation, DM deduplication and reactivation, participant management
// and leaving.
type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	users         domain.UserRepository
	broadcaster   Broadcaster
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	users domain.UserRepository,
	broadcaster Broadcaster,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		users:         users,
		broadcaster:   broadcaster,
	}
}

// Create builds a conversation for the normalized participant set. An unnamed
// two-member set is treated as a direct conversation: an existing active DM is
// reused as-is and a soft-deleted candidate is reactivated instead of creating
// a duplicate row. Named or larger sets always create a new conversation.
// The returned flag reports whether a new conversation row was created.
func (s *ConversationService) Create(
	ctx context.Context,
	creatorID int64,
	participantIDs []int64,
	name *string,
) (*domain.ConversationSummary, bool, error) {
	unique := normalizeParticipants(creatorID, participantIDs)
	if len(unique) < 2 {
		return nil, false, domain.Invalid("a conversation requires at least two unique participants")
	}

	if missing, err := s.missingUserIDs(ctx, unique); err != nil {
		return nil, false, err
	} else if len(missing) > 0 {
		return nil, false, domain.InvalidWithDetails("some participant ids are invalid", missing)
	}

	if name != nil && strings.TrimSpace(*name) == "" {
		name = nil
	}

	if name == nil && len(unique) == 2 {
		return s.getOrCreateDirect(ctx, creatorID, unique)
	}

	summary, err := s.createNew(ctx, creatorID, unique, name)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

// CreateDirect resolves or creates the one-to-one conversation between the
// caller and another user.
func (s *ConversationService) CreateDirect(ctx context.Context, userID, otherUserID int64) (*domain.ConversationSummary, bool, error) {
	if userID == otherUserID {
		return nil, false, domain.Invalid("cannot start a direct conversation with yourself")
	}
	other, err := s.users.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, false, err
	}
	if other == nil {
		return nil, false, domain.NotFound("user not found")
	}
	return s.getOrCreateDirect(ctx, userID, []int64{userID, otherUserID})
}

// ListForUser returns the caller's active conversations with their most
// recent message embedded, newest activity first.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	return s.conversations.ListForUser(ctx, userID)
}

// GetForUser returns a single conversation, restricted to participants.
func (s *ConversationService) GetForUser(ctx context.Context, conversationID, userID int64) (*domain.ConversationSummary, error) {
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, domain.Forbidden("you are not a participant of this conversation")
	}
	return s.conversations.GetSummary(ctx, conversationID)
}

// ManageParticipants adds and removes members on behalf of a current
// participant. Adds are idempotent; removals that would leave at most one
// member are rejected; all changes land atomically. Returns the users
// actually added and removed.
func (s *ConversationService) ManageParticipants(
	ctx context.Context,
	requesterID, conversationID int64,
	addIDs, removeIDs []int64,
) (added, removed []*domain.User, err error) {
	addSet := dedupe(addIDs)
	removeSet := dedupe(removeIDs)

	for _, id := range removeSet {
		if id == requesterID {
			return nil, nil, domain.Invalid("use the leave operation to remove yourself from a conversation")
		}
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil || conv.IsDeleted() {
		return nil, nil, domain.NotFound("conversation not found")
	}

	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, nil, err
	}
	if !isParticipant {
		return nil, nil, domain.Forbidden("you are not allowed to manage participants of this conversation")
	}

	if missing, err := s.missingUserIDs(ctx, addSet); err != nil {
		return nil, nil, err
	} else if len(missing) > 0 {
		return nil, nil, domain.InvalidWithDetails("some user ids to add are invalid", missing)
	}
	if missing, err := s.missingUserIDs(ctx, removeSet); err != nil {
		return nil, nil, err
	} else if len(missing) > 0 {
		return nil, nil, domain.InvalidWithDetails("some user ids to remove are invalid", missing)
	}

	currentIDs, err := s.participants.ListIDs(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	current := make(map[int64]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = struct{}{}
	}

	var toAdd, toRemove []int64
	for _, id := range addSet {
		if _, ok := current[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range removeSet {
		if _, ok := current[id]; ok {
			toRemove = append(toRemove, id)
		}
	}

	if len(toRemove) > 0 && len(currentIDs)-len(toRemove) <= 1 {
		return nil, nil, domain.Invalid("cannot remove the last participants of a conversation")
	}

	if err := s.participants.Apply(ctx, conversationID, toAdd, toRemove); err != nil {
		return nil, nil, domain.Persistence("apply participant changes", err)
	}

	if added, err = s.loadUsers(ctx, toAdd); err != nil {
		return nil, nil, err
	}
	if removed, err = s.loadUsers(ctx, toRemove); err != nil {
		return nil, nil, err
	}

	for _, u := range added {
		s.broadcaster.ParticipantJoined(conversationID, u.ID)
	}
	for _, u := range removed {
		s.broadcaster.ParticipantLeft(conversationID, u.ID)
	}
	return added, removed, nil
}

// Leave removes the caller from a conversation. When the caller was the last
// participant the conversation is soft-deleted so its history survives and a
// later DM lookup can reactivate it. Returns whether the conversation was
// soft-deleted.
func (s *ConversationService) Leave(ctx context.Context, userID, conversationID int64) (bool, error) {
	deleted, err := s.conversations.Leave(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}

	s.broadcaster.ParticipantLeft(conversationID, userID)
	if deleted {
		s.broadcaster.ConversationDeleted(conversationID)
	}
	return deleted, nil
}

// ── internals ────────────────────────────────────────────────────────────────

func (s *ConversationService) getOrCreateDirect(ctx context.Context, creatorID int64, pair []int64) (*domain.ConversationSummary, bool, error) {
	existing, err := s.conversations.FindActiveDirect(ctx, pair[0], pair[1])
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		summary, err := s.conversations.GetSummary(ctx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		return summary, false, nil
	}

	candidate, err := s.conversations.FindSoftDeletedDirectCandidate(ctx, pair[0], pair[1])
	if err != nil {
		return nil, false, err
	}
	if candidate != nil {
		if err := s.conversations.Reactivate(ctx, candidate.ID, pair); err != nil {
			return nil, false, domain.Persistence("reactivate conversation", err)
		}
		summary, err := s.conversations.GetSummary(ctx, candidate.ID)
		if err != nil {
			return nil, false, err
		}
		s.broadcaster.ConversationUpserted(summary)
		return summary, false, nil
	}

	summary, err := s.createNew(ctx, creatorID, pair, nil)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

func (s *ConversationService) createNew(ctx context.Context, creatorID int64, participantIDs []int64, name *string) (*domain.ConversationSummary, error) {
	conv := &domain.Conversation{
		Name:      name,
		CreatorID: &creatorID,
	}
	if err := s.conversations.Create(ctx, conv, participantIDs); err != nil {
		return nil, domain.Persistence("create conversation", err)
	}
	summary, err := s.conversations.GetSummary(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.ConversationUpserted(summary)
	return summary, nil
}

func (s *ConversationService) missingUserIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.users.FindExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("validate user ids: %w", err)
	}
	foundSet := make(map[int64]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *ConversationService) loadUsers(ctx context.Context, ids []int64) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// normalizeParticipants deduplicates the requested ids and always includes
// the creator, preserving request order after the creator.
func normalizeParticipants(creatorID int64, ids []int64) []int64 {
	seen := map[int64]struct{}{creatorID: {}}
	unique := []int64{creatorID}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var unique []int64
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
