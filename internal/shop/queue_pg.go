package shop

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQueueStore persists pending deliveries in Postgres.
type PGQueueStore struct {
	db *pgxpool.Pool
}

func NewPGQueueStore(db *pgxpool.Pool) *PGQueueStore {
	return &PGQueueStore{db: db}
}

func (s *PGQueueStore) Enqueue(ctx context.Context, d *PendingDelivery) error {
	d.Status = DeliveryPending
	return s.db.QueryRow(ctx, `
		INSERT INTO pending_deliveries (player_id, item_name, command, context, price, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at
	`, d.PlayerID, d.ItemName, d.Command, d.Context, d.Price).Scan(&d.ID, &d.CreatedAt)
}

func (s *PGQueueStore) Pending(ctx context.Context) ([]PendingDelivery, error) {
	return s.list(ctx, `WHERE status = 'pending'`)
}

func (s *PGQueueStore) All(ctx context.Context) ([]PendingDelivery, error) {
	return s.list(ctx, ``)
}

func (s *PGQueueStore) list(ctx context.Context, where string) ([]PendingDelivery, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, item_name, command, context, price, status, created_at, delivered_at
		FROM pending_deliveries
	`+where+`
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingDelivery
	for rows.Next() {
		var d PendingDelivery
		if err := rows.Scan(&d.ID, &d.PlayerID, &d.ItemName, &d.Command, &d.Context, &d.Price, &d.Status, &d.CreatedAt, &d.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGQueueStore) MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE pending_deliveries
		SET status = 'delivered', delivered_at = $1
		WHERE id = $2 AND status = 'pending'
	`, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
