package ledger

import (
	"context"
	"fmt"
	"log/slog"
)

// Ledger owns all transaction writes. Balances are always derived from the
// delta sum in the store; nothing is cached in-process, so every binary
// sharing the store sees the same balance. The debit check-then-append is
// atomic inside the store itself, which keeps it correct when the API, the
// bot and the worker all write the same ledger.
type Ledger struct {
	store Store
	log   *slog.Logger
}

func New(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, log: logger}
}

// Record appends a transaction and returns the new derived balance. Credits
// always succeed; the only rejected input is a zero delta.
func (l *Ledger) Record(ctx context.Context, playerID string, delta int64, status, source string) (int64, error) {
	if delta == 0 {
		return 0, ErrZeroDelta
	}
	tx := &Transaction{PlayerID: playerID, Points: delta, Status: status, Source: source}
	if err := l.store.Append(ctx, tx); err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	return l.store.SumBalance(ctx, playerID)
}

// Debit checks the balance and appends the negative delta as one atomic
// store operation, so two concurrent debits, in this process or another,
// can never jointly overdraw. Returns the new balance and the id of the
// written transaction.
func (l *Ledger) Debit(ctx context.Context, playerID string, amount int64, status, source string) (int64, int64, error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	tx := &Transaction{PlayerID: playerID, Points: -amount, Status: status, Source: source}
	balance, err := l.store.Debit(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	return balance, tx.ID, nil
}

// Retag rewrites the provenance tag of an already-committed transaction,
// e.g. upgrading a purchase debit from Success to Queued once delivery is
// known to have failed. The delta is untouched.
func (l *Ledger) Retag(ctx context.Context, txID int64, status string) error {
	return l.store.SetStatus(ctx, txID, status)
}

// Balance derives the current balance by replaying the delta sum; 0 for
// players with no history.
func (l *Ledger) Balance(ctx context.Context, playerID string) (int64, error) {
	return l.store.SumBalance(ctx, playerID)
}

// History returns the most recent transactions for a player, newest first.
func (l *Ledger) History(ctx context.Context, playerID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.Recent(ctx, playerID, limit)
}

// Trade moves points between two players. The sender side goes through
// Debit, so a trade can never overdraw regardless of how it was initiated.
// If the receiving credit fails after the debit committed, the debit is
// compensated with an equal credit back to the sender.
func (l *Ledger) Trade(ctx context.Context, fromID, toID string, amount int64, fromName, toName string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTrade
	}
	if _, _, err := l.Debit(ctx, fromID, amount, StatusTradeSent, "to:"+toName); err != nil {
		return err
	}
	if _, err := l.Record(ctx, toID, amount, StatusTradeReceived, "from:"+fromName); err != nil {
		if _, refundErr := l.Record(ctx, fromID, amount, StatusTradeReceived, "refund:"+toName); refundErr != nil {
			l.log.Error("trade refund failed", "from", fromID, "to", toID, "amount", amount, "err", refundErr)
		}
		return fmt.Errorf("credit receiver: %w", err)
	}
	return nil
}
