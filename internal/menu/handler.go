// Package menu is the menu collaborator: the minimal CRUD surface the order
// service validates carts against. Price and availability live here; orders
// snapshot them at creation time.
package menu

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/internal/auth"
	"github.com/dinehall/orderdesk/pkg/models"
)

type Store interface {
	Insert(ctx context.Context, item *models.MenuItem) error
	MenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	List(ctx context.Context, onlyAvailable bool) ([]*models.MenuItem, error)
	Update(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error)
}

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterPublic mounts the unauthenticated menu view.
func (h *Handler) RegisterPublic(r *mux.Router) {
	r.HandleFunc("/menu", h.ListItems).Methods("GET")
	r.HandleFunc("/menu/{id}", h.GetItem).Methods("GET")
}

// RegisterProtected mounts the staff management routes.
func (h *Handler) RegisterProtected(r *mux.Router) {
	r.HandleFunc("/menu", h.CreateItem).Methods("POST")
	r.HandleFunc("/menu/{id}", h.UpdateItem).Methods("PUT")
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	// The public menu hides unavailable items; staff pass all=true.
	onlyAvailable := r.URL.Query().Get("all") != "true"

	items, err := h.store.List(r.Context(), onlyAvailable)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []*models.MenuItem{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
	})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.MenuItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, item)
}

type itemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Price <= 0 {
		h.respondWithError(w, http.StatusBadRequest, "name and a positive price are required")
		return
	}

	now := time.Now()
	item := &models.MenuItem{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.store.Insert(r.Context(), item); err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{"item_id": item.ID, "name": item.Name}).Info("Menu item created")
	h.respondWithJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}

	existing, err := h.store.MenuItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Price > 0 {
		existing.Price = req.Price
	}
	if req.Category != "" {
		existing.Category = req.Category
	}
	if req.ImageURL != "" {
		existing.ImageURL = req.ImageURL
	}
	if req.IsAvailable != nil {
		existing.IsAvailable = *req.IsAvailable
	}
	existing.UpdatedAt = time.Now()

	updated, err := h.store.Update(r.Context(), existing)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !actor.Role.Privileged() {
		h.respondWithError(w, http.StatusForbidden, "not authorized to manage the menu")
		return false
	}
	return true
}

func (h *Handler) respondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == 0 {
		h.logger.WithError(err).Error("Unhandled menu error")
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
