package orders

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/internal/auth"
	"github.com/dinehall/orderdesk/pkg/models"
)

type Handler struct {
	service *Service
	logger  *logrus.Logger
}

func NewHandler(service *Service, logger *logrus.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the order routes on an authenticated subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	r.HandleFunc("/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/orders/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")
	r.HandleFunc("/orders/{id}/status", h.UpdateStatus).Methods("PUT")
	r.HandleFunc("/orders/{id}/payment", h.UpdatePayment).Methods("PUT")
	r.HandleFunc("/orders/{id}", h.CancelOrder).Methods("DELETE")
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode order request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	status := models.OrderStatus(q.Get("status"))
	tableNumber, _ := strconv.Atoi(q.Get("table"))
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	orders, total, err := h.service.List(r.Context(), actor, status, tableNumber, page, limit)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"orders":      orders,
		"totalOrders": total,
		"currentPage": page,
		"totalPages":  int64(math.Ceil(float64(total) / float64(limit))),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.service.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		OrderStatus        models.OrderStatus `json:"orderStatus"`
		CancellationReason string             `json:"cancellationReason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.SetStatus(r.Context(), actor, mux.Vars(r)["id"], req.OrderStatus, req.CancellationReason)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.SetPaymentStatus(r.Context(), actor, mux.Vars(r)["id"], req.PaymentStatus)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// The body is optional: customers cancel without one.
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	order, err := h.service.Cancel(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	stats, err := h.service.GetStats(r.Context(), actor)
	if err != nil {
		h.respondWithAppError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) respondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == 0 {
		h.logger.WithError(err).Error("Unhandled order service error")
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
