package repo

import (
	"context"
	"fmt"
	"strings"

	"chatops-admin/internal/domain"
)

// platformVariants собирает все сохранённые варианты написания платформ в нижнем регистре.
func platformVariants(platforms []domain.Platform) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range platforms {
		for _, v := range domain.VariantsFor(p) {
			v = strings.ToLower(v)
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// ListRecipients реализует domain.RecipientRepo. Архивные чаты в рассылку не попадают.
func (p *Postgres) ListRecipients(ctx context.Context, q domain.RecipientQuery) ([]domain.Recipient, error) {
	variants := platformVariants(q.Platforms)
	if len(variants) == 0 {
		return nil, nil
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.query(ctx, "recipients_list", "chats", `
SELECT c.id, c.platform, c.peer_id
FROM chats c
WHERE lower(c.platform) = ANY($1)
  AND NOT c.archived
  AND ($2::int = 0 OR c.last_message_at >= now() - make_interval(days => $2::int))
  AND ($3::int = 0 OR (SELECT count(*) FROM orders o WHERE o.chat_id = c.id) >= $3::int)
ORDER BY c.id DESC
LIMIT NULLIF($4::int, 0)
`, variants, q.OnlyActiveDays, q.MinOrders, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return scanRecipients(rows)
}

// ListRecipientsByIDs реализует domain.RecipientRepo. Порядок совпадает с порядком ids.
func (p *Postgres) ListRecipientsByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.query(ctx, "recipients_by_ids", "chats", `
SELECT id, platform, peer_id FROM chats WHERE id = ANY($1::bigint[]) ORDER BY array_position($1::bigint[], id)
`, ids)
	if err != nil {
		return nil, fmt.Errorf("list recipients by ids: %w", err)
	}
	return scanRecipients(rows)
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func scanRecipients(rows rowsScanner) ([]domain.Recipient, error) {
	defer rows.Close()
	var out []domain.Recipient
	for rows.Next() {
		var (
			r        domain.Recipient
			platform string
		)
		if err := rows.Scan(&r.ChatID, &platform, &r.PeerID); err != nil {
			return nil, err
		}
		r.Platform = platformOf(platform)
		out = append(out, r)
	}
	return out, rows.Err()
}
