package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatops-admin/internal/domain"
)

var (
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidOrder   = errors.New("order must have a chat and at least one item")
	ErrInvalidBooking = errors.New("reservation needs a name, a party size and a time")
	ErrInvalidRange   = errors.New("reservation range end is before start")
)

// Service управляет заказами и бронями.
type Service struct {
	orders       domain.OrderRepo
	reservations domain.ReservationRepo
	publisher    domain.Publisher
}

// NewService создаёт сервис заказов и броней.
func NewService(orders domain.OrderRepo, reservations domain.ReservationRepo, publisher domain.Publisher) *Service {
	return &Service{orders: orders, reservations: reservations, publisher: publisher}
}

// ListOrders возвращает заказы по фильтру.
func (s *Service) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	list, err := s.orders.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("список заказов: %w", err)
	}
	if list == nil {
		list = []domain.Order{}
	}
	return list, nil
}

// CreateOrder создаёт заказ. Сумма считается по позициям, если не передана.
func (s *Service) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ChatID <= 0 || len(order.Items) == 0 {
		return domain.Order{}, ErrInvalidOrder
	}
	var total int64
	for _, item := range order.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 || item.Price < 0 {
			return domain.Order{}, ErrInvalidOrder
		}
		total += int64(item.Quantity) * item.Price
	}
	if order.Total <= 0 {
		order.Total = total
	}
	order.Status = domain.OrderStatusNew

	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(domain.TopicOrders, created)
	return created, nil
}

// UpdateOrderStatus меняет статус заказа.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, ErrInvalidStatus
	}
	order, err := s.orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(domain.TopicOrders, order)
	return order, nil
}

// ListReservations возвращает брони по фильтру.
func (s *Service) ListReservations(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, ErrInvalidRange
	}
	list, err := s.reservations.ListReservations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("список броней: %w", err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return list, nil
}

// CreateReservation создаёт бронь в статусе pending.
func (s *Service) CreateReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Name == "" || r.PartySize <= 0 || r.ReservedAt.IsZero() {
		return domain.Reservation{}, ErrInvalidBooking
	}
	r.ReservedAt = r.ReservedAt.UTC().Truncate(time.Minute)
	r.Status = domain.ReservationStatusPending

	created, err := s.reservations.CreateReservation(ctx, r)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.publish(domain.TopicReservations, created)
	return created, nil
}

// UpdateReservationStatus меняет статус брони.
func (s *Service) UpdateReservationStatus(ctx context.Context, id int64, status domain.ReservationStatus) (domain.Reservation, error) {
	if !status.Valid() {
		return domain.Reservation{}, ErrInvalidStatus
	}
	r, err := s.reservations.UpdateReservationStatus(ctx, id, status)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.publish(domain.TopicReservations, r)
	return r, nil
}

func (s *Service) publish(topic string, data any) {
	if s.publisher != nil {
		s.publisher.Publish(topic, data)
	}
}
