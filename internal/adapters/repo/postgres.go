package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.RecipientRepo   = (*Postgres)(nil)
	_ domain.ChatRepo        = (*Postgres)(nil)
	_ domain.MessageRepo     = (*Postgres)(nil)
	_ domain.OrderRepo       = (*Postgres)(nil)
	_ domain.ReservationRepo = (*Postgres)(nil)
	_ domain.AnalyticsRepo   = (*Postgres)(nil)
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func (p *Postgres) query(ctx context.Context, op, table, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, sql, args...)
	observe(op, table, start, err)
	return rows, err
}

func observe(op, table string, start time.Time, err error) {
	metrics.ObserveNetworkRequest("postgres", op, table, start, err)
}

// notFoundIsOK не считает пустой результат сетевой ошибкой.
func notFoundIsOK(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	}
	return limit
}

// platformOf приводит сохранённое значение платформы к каноничному коду.
func platformOf(raw string) domain.Platform {
	if p, ok := domain.NormalizePlatform(raw); ok {
		return p
	}
	return domain.Platform(raw)
}
