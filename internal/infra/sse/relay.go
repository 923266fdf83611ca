package sse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

// RedisRelay переносит события между процессами через Redis pub/sub:
// воркер рассылок публикует, API пересылает их в свой Hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

var _ domain.Publisher = (*RedisRelay)(nil)

type relayEnvelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// NewRedisRelay создаёт релей на указанном канале Redis.
func NewRedisRelay(client *redis.Client, channel string, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, log: log}
}

// Publish отправляет событие в канал Redis. Ошибки только логируются.
func (r *RedisRelay) Publish(topic string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		r.log.Error().Err(err).Str("topic", topic).Msg("relay: не удалось сериализовать событие")
		return
	}
	envelope, err := json.Marshal(relayEnvelope{Topic: topic, Data: raw})
	if err != nil {
		r.log.Error().Err(err).Str("topic", topic).Msg("relay: не удалось сериализовать конверт")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	err = r.client.Publish(ctx, r.channel, envelope).Err()
	metrics.ObserveNetworkRequest("redis", "publish", r.channel, start, err)
	if err != nil {
		r.log.Error().Err(err).Str("topic", topic).Msg("relay: не удалось опубликовать событие")
	}
}

// Run подписывается на канал и пересылает события в target до отмены ctx.
func (r *RedisRelay) Run(ctx context.Context, target domain.Publisher) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	r.log.Info().Str("channel", r.channel).Msg("relay: подписка на события")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.log.Warn().Err(err).Msg("relay: битое событие")
				continue
			}
			if envelope.Topic == "" {
				continue
			}
			target.Publish(envelope.Topic, envelope.Data)
		}
	}
}
