package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

// UserStore is the slice of user persistence the auth handlers need.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateTokens(ctx context.Context, userID, token, refreshToken string) error
}

type Handler struct {
	users  UserStore
	tokens *TokenManager
	logger *logrus.Logger
}

func NewHandler(users UserStore, tokens *TokenManager, logger *logrus.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: logger}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/auth/register", h.SignUp).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
}

type signUpRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		h.respondWithError(w, http.StatusBadRequest, "name, email and a password of at least 6 characters are required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Known() {
		h.respondWithError(w, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Insert(r.Context(), user); err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	token, refreshToken, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate tokens")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := h.users.UpdateTokens(r.Context(), user.ID, token, refreshToken); err != nil {
		h.logger.WithError(err).Error("Failed to store tokens")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	h.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"user":         user,
		"token":        token,
		"refreshToken": refreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		h.respondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.respondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, refreshToken, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate tokens")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := h.users.UpdateTokens(r.Context(), user.ID, token, refreshToken); err != nil {
		h.logger.WithError(err).Error("Failed to store tokens")
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"user":         user,
		"token":        token,
		"refreshToken": refreshToken,
	})
}

func (h *Handler) respondWithServiceError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == 0 {
		h.logger.WithError(err).Error("Unhandled auth error")
	}
	h.respondWithError(w, kind.HTTPStatus(), apperr.MessageOf(err))
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
