package repo

import (
	"context"
	"fmt"
	"time"

	"chatops-admin/internal/domain"
)

// SaveMessage реализует domain.MessageRepo. Входящее сообщение обновляет время активности чата.
func (p *Postgres) SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
WITH inserted AS (
	INSERT INTO messages (chat_id, from_operator, text, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
), touched AS (
	UPDATE chats SET last_message_at = GREATEST(last_message_at, $4), updated_at = now()
	WHERE id = $1 AND NOT $2
)
SELECT id, created_at FROM inserted
`, msg.ChatID, msg.FromOperator, msg.Text, msg.CreatedAt).Scan(&msg.ID, &msg.CreatedAt)
	observe("messages_insert", "messages", start, err)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages реализует domain.MessageRepo: страница истории от новых к старым, beforeID > 0 листает назад.
func (p *Postgres) ListMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]domain.Message, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.query(ctx, "messages_list", "messages", `
SELECT id, chat_id, from_operator, text, created_at
FROM messages
WHERE chat_id = $1 AND ($2::bigint = 0 OR id < $2::bigint)
ORDER BY id DESC
LIMIT $3
`, chatID, beforeID, pageSize(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.FromOperator, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
