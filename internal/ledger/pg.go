package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists transactions in Postgres.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, tx *Transaction) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO transactions (player_id, points, status, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, tx.PlayerID, tx.Points, tx.Status, tx.Source).Scan(&tx.ID, &tx.CreatedAt)
}

// Debit runs the balance check and the append inside one serializable
// transaction, so two debits racing from different processes cannot both
// observe the same balance. Serialization conflicts are retried with
// backoff; a conflict that survives every attempt surfaces as ErrTxConflict.
func (s *PGStore) Debit(ctx context.Context, t *Transaction) (int64, error) {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond

	var balance int64
	for attempt := 1; ; attempt++ {
		err := func() error {
			tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			if err := tx.QueryRow(ctx, `
				SELECT COALESCE(SUM(points), 0)
				FROM transactions
				WHERE player_id = $1
			`, t.PlayerID).Scan(&balance); err != nil {
				return err
			}
			if balance+t.Points < 0 {
				return ErrInsufficientBalance
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO transactions (player_id, points, status, source)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at
			`, t.PlayerID, t.Points, t.Status, t.Source).Scan(&t.ID, &t.CreatedAt); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return balance + t.Points, nil
		}
		if !isSerializationError(err) {
			return 0, err
		}
		if attempt == maxAttempts {
			return 0, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return 0, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *PGStore) SumBalance(ctx context.Context, playerID string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0)
		FROM transactions
		WHERE player_id = $1
	`, playerID).Scan(&balance)
	return balance, err
}

func (s *PGStore) Recent(ctx context.Context, playerID string, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_id, points, status, source, created_at
		FROM transactions
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.PlayerID, &tx.Points, &tx.Status, &tx.Source, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PGStore) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1
		WHERE id = $2
	`, status, id)
	return err
}
