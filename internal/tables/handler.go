// Package tables is the table collaborator used by dine-in order validation.
package tables

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/internal/auth"
	"github.com/dinehall/orderdesk/pkg/models"
)

type Store interface {
	Insert(ctx context.Context, table *models.Table) error
	List(ctx context.Context) ([]*models.Table, error)
	TableByNumber(ctx context.Context, number int) (*models.Table, error)
}

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/tables", h.ListTables).Methods("GET")
	r.HandleFunc("/tables", h.CreateTable).Methods("POST")
	r.HandleFunc("/tables/{number}", h.GetTable).Methods("GET")
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.List(r.Context())
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}
	if tables == nil {
		tables = []*models.Table{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tables":  tables,
	})
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil || number < 1 {
		h.respondWithError(w, http.StatusBadRequest, "invalid table number")
		return
	}

	table, err := h.store.TableByNumber(r.Context(), number)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, table)
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !actor.Role.Privileged() {
		h.respondWithError(w, http.StatusForbidden, "not authorized to manage tables")
		return
	}

	var req struct {
		Number   int `json:"number"`
		Capacity int `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Number < 1 || req.Capacity < 1 {
		h.respondWithError(w, http.StatusBadRequest, "a positive table number and capacity are required")
		return
	}

	table := &models.Table{
		ID:        uuid.New().String(),
		Number:    req.Number,
		Capacity:  req.Capacity,
		CreatedAt: time.Now(),
	}
	if err := h.store.Insert(r.Context(), table); err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.logger.WithField("table_number", table.Number).Info("Table created")
	h.respondWithJSON(w, http.StatusCreated, table)
}

func (h *Handler) respondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == 0 {
		h.logger.WithError(err).Error("Unhandled table error")
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
