package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

// RabbitBroadcastQueue реализует очередь задач рассылки через AMQP с ручным подтверждением.
type RabbitBroadcastQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   zerolog.Logger

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.BroadcastQueue = (*RabbitBroadcastQueue)(nil)

// NewRabbitBroadcastQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitBroadcastQueue(amqpURL, queue string, log zerolog.Logger) (*RabbitBroadcastQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	// рассылки выполняются по одной, больше одной задачи в полёте не нужно
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitBroadcastQueue{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitBroadcastQueue) Enqueue(ctx context.Context, job domain.BroadcastJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	q.mu.Lock()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	q.mu.Unlock()
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе ждёт задачу. Битые сообщения отклоняются без повторной доставки.
func (q *RabbitBroadcastQueue) Receive(ctx context.Context) (domain.BroadcastJob, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.BroadcastJob{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.BroadcastJob{}, nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return domain.BroadcastJob{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			var job domain.BroadcastJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				q.log.Error().Err(err).Str("message_id", d.MessageId).Msg("rabbitmq: не удалось разобрать задачу")
				_ = d.Reject(false)
				continue
			}
			delivery := d
			ack := func(success bool) error {
				if success {
					return delivery.Ack(false)
				}
				return delivery.Nack(false, true)
			}
			return job, ack, nil
		}
	}
}

func (q *RabbitBroadcastQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	start := time.Now()
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	metrics.ObserveNetworkRequest("rabbitmq", "consume", q.queue, start, err)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// Close закрывает канал и соединение.
func (q *RabbitBroadcastQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}
