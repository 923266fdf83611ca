package sender

import (
	"context"
	"errors"
	"testing"

	"chatops-admin/internal/domain"
)

type recordingSender struct {
	calls []domain.Recipient
}

func (r *recordingSender) Send(_ context.Context, to domain.Recipient, _ domain.BroadcastPayload) (domain.SendAck, error) {
	r.calls = append(r.calls, to)
	return domain.SendAck{MessageID: "ok"}, nil
}

func TestRegistryRoutesByPlatform(t *testing.T) {
	tg := &recordingSender{}
	reg := NewRegistry().Register(domain.PlatformTelegram, tg)

	if _, err := reg.Send(context.Background(), domain.Recipient{ChatID: 1, Platform: domain.PlatformTelegram}, domain.BroadcastPayload{Text: "x"}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(tg.calls) != 1 {
		t.Fatalf("ожидали вызов telegram-отправителя")
	}

	_, err := reg.Send(context.Background(), domain.Recipient{ChatID: 2, Platform: domain.PlatformVK}, domain.BroadcastPayload{Text: "x"})
	if !errors.Is(err, ErrSenderNotConfigured) {
		t.Fatalf("ожидали ErrSenderNotConfigured, получили %v", err)
	}

	if got := reg.Platforms(); len(got) != 1 || got[0] != domain.PlatformTelegram {
		t.Fatalf("неожиданный список платформ: %v", got)
	}
}
