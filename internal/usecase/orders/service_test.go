package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatops-admin/internal/domain"
)

type stubOrders struct {
	created []domain.Order
	status  map[int64]domain.OrderStatus
}

func (s *stubOrders) ListOrders(context.Context, domain.OrderFilter) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	o.ID = int64(len(s.created) + 1)
	s.created = append(s.created, o)
	return o, nil
}

func (s *stubOrders) UpdateOrderStatus(_ context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	if id != 1 {
		return domain.Order{}, domain.ErrNotFound
	}
	if s.status == nil {
		s.status = map[int64]domain.OrderStatus{}
	}
	s.status[id] = status
	return domain.Order{ID: id, Status: status}, nil
}

type stubReservations struct {
	created []domain.Reservation
	lastF   domain.ReservationFilter
}

func (s *stubReservations) ListReservations(_ context.Context, f domain.ReservationFilter) ([]domain.Reservation, error) {
	s.lastF = f
	return nil, nil
}

func (s *stubReservations) CreateReservation(_ context.Context, r domain.Reservation) (domain.Reservation, error) {
	r.ID = 10
	s.created = append(s.created, r)
	return r, nil
}

func (s *stubReservations) UpdateReservationStatus(_ context.Context, id int64, status domain.ReservationStatus) (domain.Reservation, error) {
	return domain.Reservation{ID: id, Status: status}, nil
}

type stubPublisher struct {
	topics []string
}

func (p *stubPublisher) Publish(topic string, _ any) { p.topics = append(p.topics, topic) }

func TestCreateOrderComputesTotal(t *testing.T) {
	repo, pub := &stubOrders{}, &stubPublisher{}
	svc := NewService(repo, &stubReservations{}, pub)

	order, err := svc.CreateOrder(context.Background(), domain.Order{
		ChatID: 3,
		Status: domain.OrderStatusDone,
		Items: []domain.OrderItem{
			{Name: "Маргарита", Quantity: 2, Price: 550},
			{Name: "Морс", Quantity: 1, Price: 150},
		},
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if order.Total != 1250 || order.Status != domain.OrderStatusNew {
		t.Fatalf("неожиданный заказ: %+v", order)
	}
	if len(pub.topics) != 1 || pub.topics[0] != domain.TopicOrders {
		t.Fatalf("неожиданные события: %v", pub.topics)
	}
}

func TestCreateOrderValidates(t *testing.T) {
	svc := NewService(&stubOrders{}, &stubReservations{}, nil)
	cases := []domain.Order{
		{ChatID: 0, Items: []domain.OrderItem{{Name: "x", Quantity: 1}}},
		{ChatID: 1},
		{ChatID: 1, Items: []domain.OrderItem{{Name: "x", Quantity: 0}}},
		{ChatID: 1, Items: []domain.OrderItem{{Name: " ", Quantity: 1}}},
	}
	for i, o := range cases {
		if _, err := svc.CreateOrder(context.Background(), o); !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("случай %d: ожидали ErrInvalidOrder, получили %v", i, err)
		}
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	repo, pub := &stubOrders{}, &stubPublisher{}
	svc := NewService(repo, &stubReservations{}, pub)

	if _, err := svc.UpdateOrderStatus(context.Background(), 1, "eaten"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("ожидали ErrInvalidStatus, получили %v", err)
	}
	if _, err := svc.UpdateOrderStatus(context.Background(), 2, domain.OrderStatusDone); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("неудачные изменения не публикуются")
	}
	if _, err := svc.UpdateOrderStatus(context.Background(), 1, domain.OrderStatusCooking); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.status[1] != domain.OrderStatusCooking || len(pub.topics) != 1 {
		t.Fatalf("статус не обновлён или событие не опубликовано")
	}
}

func TestReservations(t *testing.T) {
	repo, pub := &stubReservations{}, &stubPublisher{}
	svc := NewService(&stubOrders{}, repo, pub)

	at := time.Date(2026, 5, 9, 19, 30, 45, 0, time.UTC)
	r, err := svc.CreateReservation(context.Background(), domain.Reservation{Name: " Иван ", PartySize: 4, ReservedAt: at})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if r.Name != "Иван" || r.Status != domain.ReservationStatusPending || r.ReservedAt.Second() != 0 {
		t.Fatalf("неожиданная бронь: %+v", r)
	}
	if _, err := svc.CreateReservation(context.Background(), domain.Reservation{Name: "Иван"}); !errors.Is(err, ErrInvalidBooking) {
		t.Fatalf("ожидали ErrInvalidBooking, получили %v", err)
	}

	if _, err := svc.ListReservations(context.Background(), domain.ReservationFilter{From: at, To: at.Add(-time.Hour)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("ожидали ErrInvalidRange, получили %v", err)
	}
	list, err := svc.ListReservations(context.Background(), domain.ReservationFilter{Status: domain.ReservationStatusSeated})
	if err != nil || list == nil {
		t.Fatalf("ожидали пустой список, получили %v, %v", list, err)
	}

	if _, err := svc.UpdateReservationStatus(context.Background(), 10, domain.ReservationStatusNoShow); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(pub.topics) != 2 || pub.topics[1] != domain.TopicReservations {
		t.Fatalf("неожиданные события: %v", pub.topics)
	}
}
