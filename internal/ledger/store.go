package ledger

import (
	"context"
	"errors"
	"time"
)

// Status tags carried by transactions. Balance math ignores them; they are
// provenance only.
const (
	StatusSuccess        = "Success"
	StatusQueued         = "Queued"
	StatusTradeSent      = "TradeSent"
	StatusTradeReceived  = "TradeReceived"
	StatusIntervalReward = "IntervalReward"
	StatusManualRetry    = "ManualRetry"
	StatusTip4serv       = "tip4serv"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroDelta           = errors.New("transaction delta must be non-zero")
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrSelfTrade           = errors.New("cannot send points to yourself")
	ErrTxConflict          = errors.New("transaction conflict, retry")
)

// Transaction is one signed point movement. Deltas are append-only: once a
// row exists its points value never changes, so the sum over a player is
// always the authoritative balance.
type Transaction struct {
	ID        int64     `json:"id"`
	PlayerID  string    `json:"player_id"`
	Points    int64     `json:"points"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence boundary for the ledger. Append and Debit
// assign ID and CreatedAt. Debit is the atomic check-then-append: it
// verifies the player's derived balance covers the (negative) delta and
// appends in one unit visible across every process sharing the store,
// returning the new balance, or ErrInsufficientBalance with no write.
// SetStatus rewrites only the provenance tag of an existing row; deltas
// are immutable.
type Store interface {
	Append(ctx context.Context, tx *Transaction) error
	Debit(ctx context.Context, tx *Transaction) (int64, error)
	SumBalance(ctx context.Context, playerID string) (int64, error)
	Recent(ctx context.Context, playerID string, limit int) ([]Transaction, error)
	SetStatus(ctx context.Context, id int64, status string) error
}
