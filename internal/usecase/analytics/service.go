package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

const (
	DefaultDays = 7
	MaxDays     = 90
)

// Service считает сводку для панели и кэширует её.
type Service struct {
	repo  domain.AnalyticsRepo
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт сервис аналитики. cache может быть nil.
func NewService(repo domain.AnalyticsRepo, cache domain.Cache, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "analytics").Logger(),
		now:   time.Now,
	}
}

// ClampDays приводит период к допустимому диапазону.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	}
	return days
}

// Summary возвращает сводку за последние days дней, включая сегодняшний.
func (s *Service) Summary(ctx context.Context, days int) (domain.AnalyticsSummary, error) {
	days = ClampDays(days)
	key := "analytics:summary:" + strconv.Itoa(days)

	if s.cache != nil && s.ttl > 0 {
		raw, err := s.cache.Get(key)
		switch {
		case err == nil:
			var cached domain.AnalyticsSummary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			s.log.Warn().Str("key", key).Msg("повреждённая запись кэша аналитики")
		case !errors.Is(err, domain.ErrCacheMiss):
			s.log.Warn().Err(err).Msg("кэш аналитики недоступен")
		}
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	summary, err := s.repo.Summary(ctx, since)
	if err != nil {
		return domain.AnalyticsSummary{}, fmt.Errorf("сводка аналитики: %w", err)
	}
	summary.Days = days

	if s.cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(key, raw, s.ttl); err != nil {
				s.log.Warn().Err(err).Msg("не удалось сохранить сводку в кэш")
			}
		}
	}
	return summary, nil
}
