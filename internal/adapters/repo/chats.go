package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chatops-admin/internal/domain"
)

const chatColumns = `c.id, c.platform, c.peer_id, c.title, c.username, c.archived,
	(SELECT count(*) FROM orders o WHERE o.chat_id = c.id) AS orders_count,
	c.last_message_at, c.created_at, c.updated_at`

func scanChat(scan func(dest ...any) error) (domain.Chat, error) {
	var (
		c        domain.Chat
		platform string
		lastMsg  sql.NullTime
	)
	if err := scan(&c.ID, &platform, &c.PeerID, &c.Title, &c.Username, &c.Archived, &c.OrdersCount, &lastMsg, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Chat{}, err
	}
	c.Platform = platformOf(platform)
	if lastMsg.Valid {
		ts := lastMsg.Time
		c.LastMessageAt = &ts
	}
	return c, nil
}

// ListChats реализует domain.ChatRepo. Поиск по названию и username не чувствителен к регистру и ё/е.
func (p *Postgres) ListChats(ctx context.Context, f domain.ChatFilter) ([]domain.Chat, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var variants []string
	if f.Platform != "" && f.Platform != domain.PlatformAny {
		variants = platformVariants([]domain.Platform{f.Platform})
	}

	rows, err := p.query(ctx, "chats_list", "chats", `
SELECT `+chatColumns+`
FROM chats c
WHERE ($1::text[] IS NULL OR lower(c.platform) = ANY($1::text[]))
  AND ($2 OR NOT c.archived)
  AND ($3 = '' OR translate(lower(c.title || ' ' || c.username), 'ё', 'е') LIKE '%' || $3 || '%')
ORDER BY c.last_message_at DESC NULLS LAST, c.id DESC
LIMIT $4 OFFSET $5
`, variants, f.IncludeArchived, domain.FoldText(f.Query), pageSize(f.Limit), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var out []domain.Chat
	for rows.Next() {
		c, err := scanChat(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChat реализует domain.ChatRepo.
func (p *Postgres) GetChat(ctx context.Context, id int64) (domain.Chat, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	c, err := scanChat(p.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id=$1`, id).Scan)
	return c, p.rowResult("chats_get", "chats", start, err)
}

// UpdateChat реализует domain.ChatRepo.
func (p *Postgres) UpdateChat(ctx context.Context, id int64, patch domain.ChatPatch) (domain.Chat, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: strings.TrimSpace(*patch.Title), Valid: true}
	}
	var archived sql.NullBool
	if patch.Archived != nil {
		archived = sql.NullBool{Bool: *patch.Archived, Valid: true}
	}

	start := time.Now()
	c, err := scanChat(p.pool.QueryRow(ctx, `
WITH updated AS (
	UPDATE chats SET title = COALESCE($2, title), archived = COALESCE($3, archived), updated_at = now()
	WHERE id = $1
	RETURNING *
)
SELECT `+chatColumns+` FROM updated c
`, id, title, archived).Scan)
	return c, p.rowResult("chats_update", "chats", start, err)
}

// UpsertChatByPeer реализует domain.ChatRepo: находит чат по платформе и peer id или создаёт новый.
func (p *Postgres) UpsertChatByPeer(ctx context.Context, msg domain.InboundMessage) (domain.Chat, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	start := time.Now()
	c, err := scanChat(p.pool.QueryRow(ctx, `
WITH upserted AS (
	INSERT INTO chats (platform, peer_id, title, username, last_message_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (platform, peer_id) DO UPDATE SET
		title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE chats.title END,
		username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE chats.username END,
		last_message_at = GREATEST(chats.last_message_at, EXCLUDED.last_message_at),
		archived = false,
		updated_at = now()
	RETURNING *
)
SELECT `+chatColumns+` FROM upserted c
`, string(msg.Platform), msg.PeerID, strings.TrimSpace(msg.Title), strings.TrimSpace(msg.Username), sentAt).Scan)
	return c, p.rowResult("chats_upsert", "chats", start, err)
}

func (p *Postgres) rowResult(op, table string, start time.Time, err error) error {
	metricsErr := notFoundIsOK(err)
	observe(op, table, start, metricsErr)
	if err != nil && metricsErr == nil {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
