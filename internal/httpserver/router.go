package httpserver

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/charly05tr/ClassMatchAPI/internal/config"
	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/security"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
	"github.com/charly05tr/ClassMatchAPI/internal/store/postgres"
	"github.com/charly05tr/ClassMatchAPI/internal/store/sqlite"
	"github.com/charly05tr/ClassMatchAPI/internal/ws"
)

// Repos bundles the repository set for one database driver.
type Repos struct {
	Users         domain.UserRepository
	Conversations domain.ConversationRepository
	Participants  domain.ParticipantRepository
	Messages      domain.MessageRepository
}

// NewRepos builds the repository set for the configured driver.
func NewRepos(driver string, db *sql.DB) Repos {
	if driver == config.DriverSQLite {
		return Repos{
			Users:         sqlite.NewUserRepo(db),
			Conversations: sqlite.NewConversationRepo(db),
			Participants:  sqlite.NewParticipantRepo(db),
			Messages:      sqlite.NewMessageRepo(db),
		}
	}
	return Repos{
		Users:         postgres.NewUserRepo(db),
		Conversations: postgres.NewConversationRepo(db),
		Participants:  postgres.NewParticipantRepo(db),
		Messages:      postgres.NewMessageRepo(db),
	}
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, repos Repos, hub *ws.Hub, tokenSvc *security.TokenService, passwordHasher *security.PasswordHasher) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(repos.Users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(repos.Users)
	convSvc := service.NewConversationService(repos.Conversations, repos.Participants, repos.Users, hub)
	msgSvc := service.NewMessageService(repos.Conversations, repos.Participants, repos.Messages, repos.Users, hub)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"ClassMatch API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Users))

			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userSvc))
				r.Get("/{userID}", handleGetUser(userSvc))
			})

			// Conversations and messages
			r.Route("/messages", func(r chi.Router) {
				r.Route("/conversations", func(r chi.Router) {
					r.Post("/", handleCreateConversation(convSvc))
					r.Get("/", handleListConversations(convSvc))
					r.Get("/{conversationID}", handleGetConversation(convSvc))
					r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
					r.Post("/{conversationID}/messages", handleCreateMessage(msgSvc))
					r.Post("/{conversationID}/participants", handleManageParticipants(convSvc))
					r.Delete("/{conversationID}/participants/me", handleLeaveConversation(convSvc))
				})
				r.Post("/users/{otherUserID}/conversation", handleCreateDirectConversation(convSvc))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, repos.Users, cfg.CORSOrigins))

	return r
}
