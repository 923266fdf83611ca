package sender

import (
	"context"
	"errors"
	"fmt"

	"chatops-admin/internal/domain"
)

// ErrSenderNotConfigured возвращается, когда для платформы получателя нет отправителя.
var ErrSenderNotConfigured = errors.New("sender not configured")

// Registry выбирает отправителя по платформе получателя.
type Registry struct {
	senders map[domain.Platform]domain.Sender
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[domain.Platform]domain.Sender)}
}

// Register привязывает отправителя к платформе. nil снимает привязку.
func (r *Registry) Register(p domain.Platform, s domain.Sender) *Registry {
	if s == nil {
		delete(r.senders, p)
		return r
	}
	r.senders[p] = s
	return r
}

// Platforms возвращает платформы, для которых настроена отправка.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.senders))
	for _, p := range domain.AllPlatforms() {
		if _, ok := r.senders[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Send реализует domain.Sender.
func (r *Registry) Send(ctx context.Context, to domain.Recipient, payload domain.BroadcastPayload) (domain.SendAck, error) {
	s, ok := r.senders[to.Platform]
	if !ok {
		return domain.SendAck{}, fmt.Errorf("%s: %w", to.Platform, ErrSenderNotConfigured)
	}
	return s.Send(ctx, to, payload)
}
