package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/service"
)

type registerRequest struct {
	Username  string `json:"user_name"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.Invalid("invalid JSON body"))
			return
		}

		resp, err := authSvc.Register(r.Context(), service.RegisterInput{
			Username:  req.Username,
			Email:     req.Email,
			Name:      req.Name,
			FirstName: req.FirstName,
			Password:  req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.Invalid("invalid JSON body"))
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, domain.Unauthenticated("unauthorized"))
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
