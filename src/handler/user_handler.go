package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"brokergateway/src/auth"
	"brokergateway/src/model"
	"brokergateway/src/repository"
)

type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// RegisterUserHandler creates a platform user. The only unauthenticated
// route besides the healthcheck.
func RegisterUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid register payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		email := strings.ToLower(strings.TrimSpace(payload.Email))
		if email == "" || !strings.Contains(email, "@") {
			http.Error(w, "A valid email is required", http.StatusBadRequest)
			return
		}
		if len(payload.Password) < 8 {
			http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
			return
		}

		userRepo := repository.NewUserRepository()
		existing, err := userRepo.FindByEmail(r.Context(), email)
		if err != nil {
			logger.WithError(err).Error("failed to check existing user")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if existing != nil {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash password")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		user := &model.User{
			Email:        email,
			PasswordHash: string(hashed),
			FullName:     strings.TrimSpace(payload.FullName),
			IsActive:     true,
		}
		if err := userRepo.Create(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to create user")
			http.Error(w, "Unable to register", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

// CurrentUserHandler echoes the authenticated principal.
func CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
