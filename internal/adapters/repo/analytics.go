package repo

import (
	"context"
	"fmt"
	"time"

	"chatops-admin/internal/domain"
)

// Summary реализует domain.AnalyticsRepo: итоги с момента since и разбивка по дням (UTC).
func (p *Postgres) Summary(ctx context.Context, since time.Time) (domain.AnalyticsSummary, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	since = since.UTC().Truncate(24 * time.Hour)

	var s domain.AnalyticsSummary
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT
	(SELECT count(*) FROM chats),
	(SELECT count(*) FROM chats WHERE created_at >= $1),
	(SELECT count(*) FROM messages WHERE created_at >= $1 AND NOT from_operator),
	(SELECT count(*) FROM messages WHERE created_at >= $1 AND from_operator),
	(SELECT count(*) FROM orders WHERE created_at >= $1 AND status <> 'cancelled'),
	(SELECT COALESCE(sum(total), 0)::bigint FROM orders WHERE created_at >= $1 AND status <> 'cancelled'),
	(SELECT count(*) FROM reservations WHERE created_at >= $1 AND status <> 'cancelled')
`, since).Scan(&s.TotalChats, &s.NewChats, &s.MessagesIn, &s.MessagesOut, &s.Orders, &s.Revenue, &s.Reservations)
	observe("analytics_totals", "analytics", start, err)
	if err != nil {
		return domain.AnalyticsSummary{}, fmt.Errorf("analytics totals: %w", err)
	}

	rows, err := p.query(ctx, "analytics_series", "analytics", `
WITH days AS (
	SELECT generate_series($1::timestamptz, date_trunc('day', now() AT TIME ZONE 'UTC') AT TIME ZONE 'UTC', interval '1 day') AS day
)
SELECT d.day,
	(SELECT count(*) FROM chats c WHERE c.created_at >= d.day AND c.created_at < d.day + interval '1 day'),
	(SELECT count(*) FROM messages m WHERE m.created_at >= d.day AND m.created_at < d.day + interval '1 day' AND NOT m.from_operator),
	(SELECT count(*) FROM messages m WHERE m.created_at >= d.day AND m.created_at < d.day + interval '1 day' AND m.from_operator),
	(SELECT count(*) FROM orders o WHERE o.created_at >= d.day AND o.created_at < d.day + interval '1 day' AND o.status <> 'cancelled'),
	(SELECT COALESCE(sum(o.total), 0)::bigint FROM orders o WHERE o.created_at >= d.day AND o.created_at < d.day + interval '1 day' AND o.status <> 'cancelled'),
	(SELECT count(*) FROM reservations r WHERE r.created_at >= d.day AND r.created_at < d.day + interval '1 day' AND r.status <> 'cancelled')
FROM days d
ORDER BY d.day
`, since)
	if err != nil {
		return domain.AnalyticsSummary{}, fmt.Errorf("analytics series: %w", err)
	}
	defer rows.Close()

	s.Series = []domain.DailyStat{}
	for rows.Next() {
		var d domain.DailyStat
		if err := rows.Scan(&d.Date, &d.NewChats, &d.MessagesIn, &d.MessagesOut, &d.Orders, &d.Revenue, &d.Reservations); err != nil {
			return domain.AnalyticsSummary{}, err
		}
		d.Date = d.Date.UTC()
		s.Series = append(s.Series, d)
	}
	return s, rows.Err()
}
