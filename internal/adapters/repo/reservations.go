package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatops-admin/internal/domain"
)

const reservationColumns = `id, chat_id, name, phone, party_size, reserved_at, status, comment, created_at, updated_at`

func scanReservation(scan func(dest ...any) error) (domain.Reservation, error) {
	var (
		r      domain.Reservation
		chatID sql.NullInt64
		status string
	)
	if err := scan(&r.ID, &chatID, &r.Name, &r.Phone, &r.PartySize, &r.ReservedAt, &status, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Reservation{}, err
	}
	if chatID.Valid {
		id := chatID.Int64
		r.ChatID = &id
	}
	r.Status = domain.ReservationStatus(status)
	return r, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// ListReservations реализует domain.ReservationRepo: ближайшие брони первыми.
func (p *Postgres) ListReservations(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	rows, err := p.query(ctx, "reservations_list", "reservations", `
SELECT `+reservationColumns+`
FROM reservations
WHERE ($1 = '' OR status = $1)
  AND ($2::timestamptz IS NULL OR reserved_at >= $2::timestamptz)
  AND ($3::timestamptz IS NULL OR reserved_at < $3::timestamptz)
ORDER BY reserved_at, id
LIMIT $4 OFFSET $5
`, string(f.Status), nullTime(f.From), nullTime(f.To), pageSize(f.Limit), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReservation реализует domain.ReservationRepo.
func (p *Postgres) CreateReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var chatID sql.NullInt64
	if r.ChatID != nil {
		chatID = sql.NullInt64{Int64: *r.ChatID, Valid: true}
	}
	if r.Status == "" {
		r.Status = domain.ReservationStatusPending
	}

	start := time.Now()
	created, err := scanReservation(p.pool.QueryRow(ctx, `
INSERT INTO reservations (chat_id, name, phone, party_size, reserved_at, status, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+reservationColumns, chatID, r.Name, r.Phone, r.PartySize, r.ReservedAt, string(r.Status), r.Comment).Scan)
	return created, p.rowResult("reservations_insert", "reservations", start, err)
}

// UpdateReservationStatus реализует domain.ReservationRepo.
func (p *Postgres) UpdateReservationStatus(ctx context.Context, id int64, status domain.ReservationStatus) (domain.Reservation, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanReservation(p.pool.QueryRow(ctx, `
UPDATE reservations SET status = $2, updated_at = now() WHERE id = $1
RETURNING `+reservationColumns, id, string(status)).Scan)
	return r, p.rowResult("reservations_update_status", "reservations", start, err)
}
