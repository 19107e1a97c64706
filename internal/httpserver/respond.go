package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
)

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// writeError maps a service error to its HTTP status and JSON body. Internal
// errors are logged with their cause but never leak it to the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusForCode(domain.CodeOf(err))

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if status == http.StatusInternalServerError {
			zap.L().Error("internal error", zap.String("message", appErr.Message), zap.Error(err))
			writeJSON(w, status, errorBody{Error: "internal server error"})
			return
		}
		writeJSON(w, status, errorBody{Error: appErr.Message, Details: appErr.Details})
		return
	}

	zap.L().Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
