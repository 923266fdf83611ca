package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

type stubRepo struct {
	calls int
	since time.Time
	err   error
}

func (s *stubRepo) Summary(_ context.Context, since time.Time) (domain.AnalyticsSummary, error) {
	s.calls++
	s.since = since
	if s.err != nil {
		return domain.AnalyticsSummary{}, s.err
	}
	return domain.AnalyticsSummary{TotalChats: 12, Orders: 3, Revenue: 4500}, nil
}

type memoryCache struct {
	data   map[string][]byte
	getErr error
}

func (c *memoryCache) Once(string, time.Duration, func() error) error { return nil }

func (c *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Get(key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func TestSummaryUsesCache(t *testing.T) {
	repo := &stubRepo{}
	cache := &memoryCache{data: map[string][]byte{}}
	svc := NewService(repo, cache, time.Minute, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC) }

	first, err := svc.Summary(context.Background(), 7)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	second, err := svc.Summary(context.Background(), 7)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("ожидали один запрос к БД, получили %d", repo.calls)
	}
	if first.Days != 7 || second.Revenue != 4500 {
		t.Fatalf("неожиданная сводка: %+v / %+v", first, second)
	}
	if want := time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC); !repo.since.Equal(want) {
		t.Fatalf("since = %v, want %v", repo.since, want)
	}
}

func TestSummaryWorksWithoutCache(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, &memoryCache{data: map[string][]byte{}, getErr: errors.New("redis down")}, time.Minute, zerolog.Nop())

	if _, err := svc.Summary(context.Background(), 0); err != nil {
		t.Fatalf("ошибка кэша не должна ломать сводку: %v", err)
	}
	if _, err := NewService(repo, nil, 0, zerolog.Nop()).Summary(context.Background(), 500); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("ожидали два запроса к БД, получили %d", repo.calls)
	}
}

func TestSummaryPropagatesRepoError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&stubRepo{err: boom}, nil, 0, zerolog.Nop())
	if _, err := svc.Summary(context.Background(), 7); !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку БД, получили %v", err)
	}
}

func TestClampDays(t *testing.T) {
	cases := map[int]int{-1: DefaultDays, 0: DefaultDays, 30: 30, 365: MaxDays}
	for in, want := range cases {
		if got := ClampDays(in); got != want {
			t.Fatalf("ClampDays(%d) = %d, want %d", in, got, want)
		}
	}
}
