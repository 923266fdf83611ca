package recipients

import (
	"context"
	"fmt"
	"strings"

	"chatops-admin/internal/domain"
)

// Service выбирает получателей рассылки из справочника чатов.
type Service struct {
	repo domain.RecipientRepo
}

// NewService создаёт сервис выбора получателей.
func NewService(repo domain.RecipientRepo) *Service {
	return &Service{repo: repo}
}

// ResolvePlatforms приводит список платформ к каноничным кодам.
// Фильтр filters.Platform, если он распознан и не равен "any", важнее списка.
func ResolvePlatforms(filters domain.BroadcastFilters, platforms []string) []domain.Platform {
	if raw := strings.TrimSpace(filters.Platform); raw != "" {
		if p, ok := domain.NormalizePlatform(raw); ok && p != domain.PlatformAny {
			return []domain.Platform{p}
		}
	}
	return domain.NormalizePlatforms(platforms)
}

// Select возвращает получателей по фильтрам, от новых к старым. limit <= 0 снимает ограничение.
func (s *Service) Select(ctx context.Context, filters domain.BroadcastFilters, platforms []string, limit int) ([]domain.Recipient, error) {
	resolved := ResolvePlatforms(filters, platforms)
	if len(resolved) == 0 {
		return nil, nil
	}
	q := domain.RecipientQuery{
		Platforms:      resolved,
		OnlyActiveDays: max(filters.OnlyActiveDays, 0),
		MinOrders:      max(filters.MinOrders, 0),
		Limit:          max(limit, 0),
	}
	list, err := s.repo.ListRecipients(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("выборка получателей: %w", err)
	}
	if q.Limit > 0 && len(list) > q.Limit {
		list = list[:q.Limit]
	}
	return list, nil
}

// SelectByIDs возвращает чаты из переданного списка в том же порядке, фильтры и платформы не учитываются.
func (s *Service) SelectByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}
	list, err := s.repo.ListRecipientsByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("выборка получателей по id: %w", err)
	}
	return list, nil
}
