package httpapi

import (
	"net/http"
	"strings"
	"time"

	"chatops-admin/internal/domain"
)

type createOrderRequest struct {
	ChatID  int64              `json:"chatId"`
	Items   []domain.OrderItem `json:"items"`
	Total   int64              `json:"total"`
	Address string             `json:"address"`
	Comment string             `json:"comment"`
}

type createReservationRequest struct {
	ChatID     *int64    `json:"chatId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	PartySize  int       `json:"partySize"`
	ReservedAt time.Time `json:"reservedAt"`
	Comment    string    `json:"comment"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	f := domain.OrderFilter{
		Status: domain.OrderStatus(strings.ToLower(r.URL.Query().Get("status"))),
		ChatID: queryInt64(r, "chatId"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	list, err := s.orders.ListOrders(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	order, err := s.orders.CreateOrder(r.Context(), domain.Order{
		ChatID:  req.ChatID,
		Items:   req.Items,
		Total:   req.Total,
		Address: strings.TrimSpace(req.Address),
		Comment: strings.TrimSpace(req.Comment),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid order id")
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	order, err := s.orders.UpdateOrderStatus(r.Context(), id, domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// parseDay принимает RFC3339 или дату YYYY-MM-DD.
func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, okFrom := parseDay(q.Get("from"))
	to, okTo := parseDay(q.Get("to"))
	if !okFrom || !okTo {
		writeError(w, http.StatusBadRequest, "invalid_request", "from/to must be RFC3339 or YYYY-MM-DD")
		return
	}
	f := domain.ReservationFilter{
		Status: domain.ReservationStatus(strings.ToLower(q.Get("status"))),
		From:   from,
		To:     to,
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	list, err := s.orders.ListReservations(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	created, err := s.orders.CreateReservation(r.Context(), domain.Reservation{
		ChatID:     req.ChatID,
		Name:       req.Name,
		Phone:      req.Phone,
		PartySize:  req.PartySize,
		ReservedAt: req.ReservedAt,
		Comment:    strings.TrimSpace(req.Comment),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid reservation id")
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	updated, err := s.orders.UpdateReservationStatus(r.Context(), id, domain.ReservationStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
