package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
)

type createMessageRequest struct {
	Content string `json:"content"`
}

// pageParams parses page/per_page query parameters. Values that are present
// but not integers are a 400; absent values fall back to defaults.
func pageParams(r *http.Request) (page, perPage int, err error) {
	page, perPage = 1, 20

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.Invalid("page and per_page must be integers")
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		perPage, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.Invalid("page and per_page must be integers")
		}
	}
	return page, perPage, nil
}

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		conversationID, err := conversationIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		page, perPage, err := pageParams(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := msgSvc.ListPage(r.Context(), user.ID, conversationID, page, perPage)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)

		conversationID, err := conversationIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.Invalid("invalid JSON body"))
			return
		}

		msg, err := msgSvc.Send(r.Context(), user.ID, conversationID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
