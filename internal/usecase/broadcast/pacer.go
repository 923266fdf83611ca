package broadcast

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer выдерживает паузу между отправками.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewRatePacer разрешает не больше одной отправки за delay. Первая отправка проходит сразу.
func NewRatePacer(delay time.Duration) Pacer {
	if delay <= 0 {
		return NoPacer{}
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// NoPacer не ограничивает отправки.
type NoPacer struct{}

func (NoPacer) Wait(context.Context) error { return nil }
