package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken pulls the bearer token from the Authorization header or, for
// browser clients that cannot set headers on WebSocket upgrades, from the
// Sec-WebSocket-Protocol list ("bearer, <token>").
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1]
		}
	}

	return ""
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// Authenticates via bearer token, registers the session with the hub and
// dispatches inbound events:
//   - join_conversation  -> subscribe to the conversation channel
//   - leave_conversation -> unsubscribe from the conversation channel
//
// Failed joins produce an error event on the caller's connection; the
// connection stays open.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.ParseUserID(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByID(ctx, userID)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		sess := NewSession(conn)
		hub.Connect(sess, user.ID)
		go sess.WritePump()
		defer hub.Disconnect(sess)

		zap.L().Info("ws: session connected",
			zap.String("session_id", sess.ID),
			zap.Int64("user_id", user.ID))

		hub.SendEvent(sess, map[string]any{
			"type":    "status",
			"message": "connected",
			"user_id": user.ID,
		})

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			eventType, _ := payload["type"].(string)
			switch eventType {

			case "join_conversation":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					sendError(hub, sess, "join_conversation requires conversation_id")
					continue
				}
				if err := hub.JoinConversation(ctx, sess, int64(convIDf)); err != nil {
					zap.L().Info("ws: join rejected",
						zap.Int64("user_id", user.ID),
						zap.Int64("conversation_id", int64(convIDf)),
						zap.Error(err))
					sendError(hub, sess, err.Error())
					continue
				}
				hub.SendEvent(sess, map[string]any{
					"type":            "status",
					"message":         "joined conversation",
					"conversation_id": int64(convIDf),
				})

			case "leave_conversation":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					sendError(hub, sess, "leave_conversation requires conversation_id")
					continue
				}
				hub.LeaveConversation(sess, int64(convIDf))

			default:
				zap.L().Debug("ws: unknown event type",
					zap.String("type", eventType),
					zap.Int64("user_id", user.ID))
				sendError(hub, sess, fmt.Sprintf("unknown event type %q", eventType))
			}
		}

		zap.L().Info("ws: session disconnected",
			zap.String("session_id", sess.ID),
			zap.Int64("user_id", user.ID))
	}
}

func sendError(hub *Hub, sess *Session, msg string) {
	hub.SendEvent(sess, map[string]any{
		"type":    "error",
		"message": msg,
	})
}
