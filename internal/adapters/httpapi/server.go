package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/usecase/broadcast"
)

// BroadcastService запускает рассылки и предпросмотр получателей.
type BroadcastService interface {
	Run(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastResult, error)
	Preview(ctx context.Context, platforms []string, filters domain.BroadcastFilters, limit int) (broadcast.PreviewResult, error)
}

// JobService ставит рассылки в очередь и отдаёт их статус.
type JobService interface {
	Enabled() bool
	Submit(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastJobState, error)
	Status(id string) (domain.BroadcastJobState, error)
}

// ChatService управляет чатами и сообщениями.
type ChatService interface {
	ListChats(ctx context.Context, f domain.ChatFilter) ([]domain.Chat, error)
	GetChat(ctx context.Context, id int64) (domain.Chat, error)
	UpdateChat(ctx context.Context, id int64, patch domain.ChatPatch) (domain.Chat, error)
	ListMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]domain.Message, error)
	Reply(ctx context.Context, chatID int64, text string) (domain.Message, error)
}

// OrderService управляет заказами и бронями.
type OrderService interface {
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
	ListReservations(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status domain.ReservationStatus) (domain.Reservation, error)
}

// AnalyticsService строит сводку для главной страницы.
type AnalyticsService interface {
	Summary(ctx context.Context, days int) (domain.AnalyticsSummary, error)
}

// Server обслуживает REST API панели оператора.
type Server struct {
	broadcasts BroadcastService
	jobs       JobService
	chats      ChatService
	orders     OrderService
	analytics  AnalyticsService

	events   http.Handler
	webhooks map[string]http.Handler
	auth     func(http.Handler) http.Handler

	requestTimeout time.Duration
	log            zerolog.Logger
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithJobs включает фоновые рассылки (?async=1).
func WithJobs(jobs JobService) Option {
	return func(s *Server) {
		s.jobs = jobs
	}
}

// WithEvents подключает SSE-поток событий.
func WithEvents(h http.Handler) Option {
	return func(s *Server) {
		s.events = h
	}
}

// WithWebhook подключает вебхук бота по пути /webhooks/{name}.
func WithWebhook(name string, h http.Handler) Option {
	return func(s *Server) {
		s.webhooks[name] = h
	}
}

// WithAuth задаёт middleware авторизации оператора для /api.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.auth = mw
	}
}

// WithRequestTimeout ограничивает время обычных запросов API. d <= 0 оставляет 20 секунд.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewServer(broadcasts BroadcastService, chats ChatService, orders OrderService, analytics AnalyticsService, opts ...Option) *Server {
	srv := &Server{
		broadcasts:     broadcasts,
		chats:          chats,
		orders:         orders,
		analytics:      analytics,
		webhooks:       map[string]http.Handler{},
		auth:           func(next http.Handler) http.Handler { return next },
		requestTimeout: 20 * time.Second,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Mount регистрирует маршруты на роутере.
// Поток событий и живые рассылки работают дольше обычного запроса, поэтому они вне middleware.Timeout.
func (s *Server) Mount(r chi.Router) {
	for name, h := range s.webhooks {
		r.Method(http.MethodPost, "/webhooks/"+name, h)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth)

		if s.events != nil {
			r.Method(http.MethodGet, "/events", s.events)
		}
		r.Post("/broadcast", s.handleBroadcast)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))

			r.Post("/broadcast/preview", s.handleBroadcastPreview)
			r.Get("/broadcast/jobs/{id}", s.handleBroadcastJob)

			r.Get("/chats", s.handleListChats)
			r.Get("/chats/{id}", s.handleGetChat)
			r.Patch("/chats/{id}", s.handleUpdateChat)
			r.Get("/chats/{id}/messages", s.handleListMessages)
			r.Post("/chats/{id}/messages", s.handleReply)

			r.Get("/orders", s.handleListOrders)
			r.Post("/orders", s.handleCreateOrder)
			r.Patch("/orders/{id}", s.handleUpdateOrder)

			r.Get("/reservations", s.handleListReservations)
			r.Post("/reservations", s.handleCreateReservation)
			r.Patch("/reservations/{id}", s.handleUpdateReservation)

			r.Get("/analytics/summary", s.handleAnalyticsSummary)
		})
	})
}

// Router возвращает отдельный роутер с маршрутами API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

// writeServiceError переводит ошибки сервисов в HTTP-ответ.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, broadcast.ErrQueueDisabled):
		writeError(w, http.StatusServiceUnavailable, "queue_disabled", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("ошибка обработки запроса")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func queryInt64(r *http.Request, key string) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
