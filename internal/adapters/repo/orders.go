package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatops-admin/internal/domain"
)

const orderColumns = `id, chat_id, status, items, total, address, comment, created_at, updated_at`

func scanOrder(scan func(dest ...any) error) (domain.Order, error) {
	var (
		o      domain.Order
		status string
		items  []byte
	)
	if err := scan(&o.ID, &o.ChatID, &status, &items, &o.Total, &o.Address, &o.Comment, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.Items = []domain.OrderItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return domain.Order{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	return o, nil
}

// ListOrders реализует domain.OrderRepo.
func (p *Postgres) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.query(ctx, "orders_list", "orders", `
SELECT `+orderColumns+`
FROM orders
WHERE ($1 = '' OR status = $1) AND ($2::bigint = 0 OR chat_id = $2::bigint)
ORDER BY id DESC
LIMIT $3 OFFSET $4
`, string(f.Status), f.ChatID, pageSize(f.Limit), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrder реализует domain.OrderRepo.
func (p *Postgres) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode order items: %w", err)
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusNew
	}

	start := time.Now()
	created, err := scanOrder(p.pool.QueryRow(ctx, `
INSERT INTO orders (chat_id, status, items, total, address, comment)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+orderColumns, order.ChatID, string(order.Status), items, order.Total, order.Address, order.Comment).Scan)
	return created, p.rowResult("orders_insert", "orders", start, err)
}

// UpdateOrderStatus реализует domain.OrderRepo.
func (p *Postgres) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	o, err := scanOrder(p.pool.QueryRow(ctx, `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
RETURNING `+orderColumns, id, string(status)).Scan)
	return o, p.rowResult("orders_update_status", "orders", start, err)
}
