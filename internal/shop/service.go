package shop

import (
	"context"
	"log/slog"

	"arkshop/internal/catalog"
	"arkshop/internal/ledger"
)

// PurchaseResult is what a completed purchase reports back to the player.
type PurchaseResult struct {
	Status   Outcome `json:"status"`
	ItemName string  `json:"item_name"`
	MapName  string  `json:"map_name,omitempty"`
	Price    int64   `json:"price"`
	Balance  int64   `json:"balance"`
	TxID     int64   `json:"transaction_id"`
}

// Service orchestrates the full purchase flow: session, debit, delivery.
// The debit always commits before the delivery attempt, and no player lock
// is held while the command channel is in flight.
type Service struct {
	ledger   *ledger.Ledger
	exec     *Executor
	sessions *SessionStore
	log      *slog.Logger
}

func NewService(l *ledger.Ledger, exec *Executor, sessions *SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, exec: exec, sessions: sessions, log: logger}
}

// BeginPurchase opens a session for an item the player selected. The
// balance is checked up front so the player is told early, but the real
// check happens again at debit time.
func (s *Service) BeginPurchase(ctx context.Context, playerID string, item catalog.Item) (*Session, error) {
	balance, err := s.ledger.Balance(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if balance < item.Price {
		return nil, ledger.ErrInsufficientBalance
	}
	return s.sessions.Begin(playerID, item.Name, item.Command, item.Price), nil
}

// ConfirmPurchase resolves the session with the chosen map and runs the
// buy. An expired or foreign session fails before any ledger write.
func (s *Service) ConfirmPurchase(ctx context.Context, sessionID, playerID, implantID, mapName string) (*PurchaseResult, error) {
	sess, err := s.sessions.Confirm(sessionID, playerID, mapName)
	if err != nil {
		return nil, err
	}
	command := catalog.ResolveCommand(sess.Command, implantID, mapName)
	return s.Buy(ctx, playerID, sess.ItemName, command, mapName, sess.Price)
}

// Buy debits the price and attempts delivery. The debit is written first,
// tagged as a successful purchase; if the delivery ends up queued the
// transaction is retagged so the ledger records the real outcome. Exactly
// one transaction is written either way.
func (s *Service) Buy(ctx context.Context, playerID, itemName, command, mapName string, price int64) (*PurchaseResult, error) {
	source := "buy:" + itemName + ":" + mapName
	balance, txID, err := s.ledger.Debit(ctx, playerID, price, ledger.StatusSuccess, source)
	if err != nil {
		return nil, err
	}

	outcome, err := s.exec.Deliver(ctx, playerID, itemName, command, mapName, price)
	if err != nil {
		// Enqueue itself failed: the points are spent but no queue row
		// exists. Retag the debit so reconciliation can find the paid,
		// undelivered purchase instead of a row that claims success.
		s.log.Error("delivery could not be queued", "player", playerID, "item", itemName, "err", err)
		if retagErr := s.ledger.Retag(ctx, txID, ledger.StatusQueued); retagErr != nil {
			s.log.Error("retag failed purchase failed", "tx", txID, "err", retagErr)
		}
		return nil, err
	}
	if outcome == Queued {
		if err := s.ledger.Retag(ctx, txID, ledger.StatusQueued); err != nil {
			s.log.Error("retag queued purchase failed", "tx", txID, "err", err)
		}
	}
	return &PurchaseResult{
		Status:   outcome,
		ItemName: itemName,
		MapName:  mapName,
		Price:    price,
		Balance:  balance,
		TxID:     txID,
	}, nil
}

// Flush re-attempts the pending queue. Delivering a queued purchase moves
// no points; the debit happened when the purchase was made.
func (s *Service) Flush(ctx context.Context) (int, error) {
	return s.exec.Flush(ctx)
}

// Pending exposes the queue for the admin surface.
func (s *Service) Pending(ctx context.Context) ([]PendingDelivery, error) {
	return s.exec.Pending(ctx)
}

// SweepSessions drops expired purchase sessions.
func (s *Service) SweepSessions() int {
	return s.sessions.Sweep()
}
