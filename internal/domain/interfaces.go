package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound возвращается репозиториями, если запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrCacheMiss возвращается кэшем при отсутствии ключа.
	ErrCacheMiss = errors.New("cache miss")
)

// Топики событий для SSE.
const (
	TopicAll          = "*"
	TopicChats        = "chats"
	TopicMessages     = "messages"
	TopicOrders       = "orders"
	TopicReservations = "reservations"
	TopicBroadcast    = "broadcast"
)

// RecipientRepo читает получателей рассылки из справочника чатов.
type RecipientRepo interface {
	ListRecipients(ctx context.Context, q RecipientQuery) ([]Recipient, error)
	ListRecipientsByIDs(ctx context.Context, ids []int64) ([]Recipient, error)
}

// ChatFilter описывает параметры списка чатов.
type ChatFilter struct {
	Platform        Platform
	Query           string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// ChatPatch содержит изменяемые оператором поля чата.
type ChatPatch struct {
	Title    *string
	Archived *bool
}

// ChatRepo управляет справочником чатов.
type ChatRepo interface {
	ListChats(ctx context.Context, f ChatFilter) ([]Chat, error)
	GetChat(ctx context.Context, id int64) (Chat, error)
	UpdateChat(ctx context.Context, id int64, patch ChatPatch) (Chat, error)
	UpsertChatByPeer(ctx context.Context, msg InboundMessage) (Chat, error)
}

// MessageRepo хранит историю сообщений.
type MessageRepo interface {
	SaveMessage(ctx context.Context, msg Message) (Message, error)
	ListMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]Message, error)
}

// OrderFilter описывает параметры списка заказов.
type OrderFilter struct {
	Status OrderStatus
	ChatID int64
	Limit  int
	Offset int
}

// OrderRepo управляет заказами.
type OrderRepo interface {
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	CreateOrder(ctx context.Context, order Order) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (Order, error)
}

// ReservationFilter описывает параметры списка броней.
type ReservationFilter struct {
	Status ReservationStatus
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// ReservationRepo управляет бронями.
type ReservationRepo interface {
	ListReservations(ctx context.Context, f ReservationFilter) ([]Reservation, error)
	CreateReservation(ctx context.Context, r Reservation) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id int64, status ReservationStatus) (Reservation, error)
}

// AnalyticsRepo считает агрегаты для панели.
type AnalyticsRepo interface {
	Summary(ctx context.Context, since time.Time) (AnalyticsSummary, error)
}

// SendAck содержит подтверждение платформы об отправке.
type SendAck struct {
	MessageID string
}

// Sender доставляет сообщение получателю в конкретном мессенджере.
type Sender interface {
	Send(ctx context.Context, to Recipient, payload BroadcastPayload) (SendAck, error)
}

// Publisher рассылает события подписчикам панели.
type Publisher interface {
	Publish(topic string, data any)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
