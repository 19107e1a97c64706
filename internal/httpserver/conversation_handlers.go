package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
)

type createConversationRequest struct {
	ParticipantIDs []int64 `json:"participant_ids"`
	Name           *string `json:"name"`
}

type manageParticipantsRequest struct {
	Add    []int64 `json:"add"`
	Remove []int64 `json:"remove"`
}

type manageParticipantsResponse struct {
	Message string         `json:"message"`
	Added   []*domain.User `json:"added"`
	Removed []*domain.User `json:"removed"`
}

type leaveResponse struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}

func conversationIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		return 0, domain.Invalid("invalid conversation id")
	}
	return id, nil
}

// handleCreateConversation creates a group conversation, or resolves a DM when
// the request is an unnamed two-user set. Returns 201 for a newly created row
// and 200 when an existing DM was reused or reactivated.
func handleCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		var req createConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.Invalid("invalid JSON body"))
			return
		}
		if len(req.ParticipantIDs) == 0 {
			writeError(w, domain.Invalid("participant_ids is required"))
			return
		}

		summary, created, err := convSvc.Create(r.Context(), user.ID, req.ParticipantIDs, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, summary)
	}
}

// handleCreateDirectConversation resolves or creates the one-to-one
// conversation between the caller and the user in the path.
func handleCreateDirectConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		otherUserID, err := strconv.ParseInt(chi.URLParam(r, "otherUserID"), 10, 64)
		if err != nil {
			writeError(w, domain.Invalid("invalid user id"))
			return
		}

		summary, created, err := convSvc.CreateDirect(r.Context(), user.ID, otherUserID)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, summary)
	}
}

func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		summaries, err := convSvc.ListForUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if summaries == nil {
			summaries = []*domain.ConversationSummary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		conversationID, err := conversationIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := convSvc.GetForUser(r.Context(), conversationID, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleManageParticipants(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		conversationID, err := conversationIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req manageParticipantsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.Invalid("invalid JSON body"))
			return
		}
		if len(req.Add) == 0 && len(req.Remove) == 0 {
			writeError(w, domain.Invalid("add and remove must be lists of user ids"))
			return
		}

		added, removed, err := convSvc.ManageParticipants(r.Context(), user.ID, conversationID, req.Add, req.Remove)
		if err != nil {
			writeError(w, err)
			return
		}
		if added == nil {
			added = []*domain.User{}
		}
		if removed == nil {
			removed = []*domain.User{}
		}
		writeJSON(w, http.StatusOK, manageParticipantsResponse{
			Message: "participants updated",
			Added:   added,
			Removed: removed,
		})
	}
}

func handleLeaveConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		conversationID, err := conversationIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}

		deleted, err := convSvc.Leave(r.Context(), user.ID, conversationID)
		if err != nil {
			writeError(w, err)
			return
		}
		msg := "you have left the conversation"
		if deleted {
			msg = "you have left the conversation and it has been deleted"
		}
		writeJSON(w, http.StatusOK, leaveResponse{Message: msg, Deleted: deleted})
	}
}
