package domain

import "time"

// Chat описывает диалог с клиентом в одном из ботов.
type Chat struct {
	ID            int64      `json:"id"`
	Platform      Platform   `json:"platform"`
	PeerID        int64      `json:"peerId"`
	Title         string     `json:"title"`
	Username      string     `json:"username,omitempty"`
	Archived      bool       `json:"archived"`
	OrdersCount   int        `json:"ordersCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Recipient описывает адресата рассылки из справочника чатов.
type Recipient struct {
	ChatID   int64    `json:"chatId"`
	Platform Platform `json:"platform"`
	PeerID   int64    `json:"peerId"`
}

// Message представляет сообщение в чате, входящее или от оператора.
type Message struct {
	ID           int64     `json:"id"`
	ChatID       int64     `json:"chatId"`
	FromOperator bool      `json:"fromOperator"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// InboundMessage описывает входящее сообщение от бота до привязки к чату.
type InboundMessage struct {
	Platform Platform
	PeerID   int64
	Title    string
	Username string
	Text     string
	SentAt   time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusCooking    OrderStatus = "cooking"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusConfirmed, OrderStatusCooking, OrderStatusDelivering, OrderStatusDone, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Order представляет заказ, оформленный через бота или оператором.
type Order struct {
	ID        int64       `json:"id"`
	ChatID    int64       `json:"chatId"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	Address   string      `json:"address,omitempty"`
	Comment   string      `json:"comment,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ReservationStatus описывает статус брони.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusSeated    ReservationStatus = "seated"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

// Valid сообщает, известен ли статус.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusSeated, ReservationStatusCancelled, ReservationStatusNoShow:
		return true
	}
	return false
}

// Reservation представляет бронь столика.
type Reservation struct {
	ID         int64             `json:"id"`
	ChatID     *int64            `json:"chatId,omitempty"`
	Name       string            `json:"name"`
	Phone      string            `json:"phone"`
	PartySize  int               `json:"partySize"`
	ReservedAt time.Time         `json:"reservedAt"`
	Status     ReservationStatus `json:"status"`
	Comment    string            `json:"comment,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// DailyStat содержит показатели за один день.
type DailyStat struct {
	Date         time.Time `json:"date"`
	NewChats     int       `json:"newChats"`
	MessagesIn   int       `json:"messagesIn"`
	MessagesOut  int       `json:"messagesOut"`
	Orders       int       `json:"orders"`
	Revenue      int64     `json:"revenue"`
	Reservations int       `json:"reservations"`
}

// AnalyticsSummary содержит сводку для главной страницы панели.
type AnalyticsSummary struct {
	Days         int         `json:"days"`
	TotalChats   int         `json:"totalChats"`
	NewChats     int         `json:"newChats"`
	MessagesIn   int         `json:"messagesIn"`
	MessagesOut  int         `json:"messagesOut"`
	Orders       int         `json:"orders"`
	Revenue      int64       `json:"revenue"`
	Reservations int         `json:"reservations"`
	Series       []DailyStat `json:"series"`
}
