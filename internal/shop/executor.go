package shop

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Outcome of a delivery attempt.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Queued    Outcome = "queued"
)

// Executor attempts deliveries against the command channel and hands
// failures to the queue. It never touches the ledger: every call assumes
// the price has already been debited.
type Executor struct {
	sender CommandSender
	queue  QueueStore
	log    *slog.Logger
	now    func() time.Time
}

func NewExecutor(sender CommandSender, queue QueueStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{sender: sender, queue: queue, log: logger, now: time.Now}
}

// Deliver sends the resolved command once. Every transport failure is
// treated as transient: the purchase is enqueued for a later flush and the
// already-committed debit stands.
func (e *Executor) Deliver(ctx context.Context, playerID, itemName, command, deliveryContext string, price int64) (Outcome, error) {
	if err := e.sender.Send(ctx, command); err == nil {
		return Delivered, nil
	} else {
		e.log.Warn("delivery failed, queuing", "player", playerID, "item", itemName, "err", err)
	}
	d := &PendingDelivery{
		PlayerID: playerID,
		ItemName: itemName,
		Command:  command,
		Context:  deliveryContext,
		Price:    price,
		Status:   DeliveryPending,
	}
	if err := e.queue.Enqueue(ctx, d); err != nil {
		return Queued, fmt.Errorf("enqueue pending delivery: %w", err)
	}
	return Queued, nil
}

// Flush re-attempts every pending delivery once, in creation order, and
// returns how many were delivered. Failures stay pending for the next
// flush; the pending → delivered transition is a compare-and-set, so a
// record is never processed successfully more than once.
func (e *Executor) Flush(ctx context.Context) (int, error) {
	pending, err := e.queue.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending deliveries: %w", err)
	}
	delivered := 0
	for _, d := range pending {
		if err := e.sender.Send(ctx, d.Command); err != nil {
			e.log.Warn("flush attempt failed", "id", d.ID, "player", d.PlayerID, "item", d.ItemName, "err", err)
			continue
		}
		won, err := e.queue.MarkDelivered(ctx, d.ID, e.now())
		if err != nil {
			return delivered, fmt.Errorf("mark delivered %d: %w", d.ID, err)
		}
		if !won {
			e.log.Warn("delivery already marked by a concurrent flush", "id", d.ID)
			continue
		}
		delivered++
	}
	if delivered > 0 {
		e.log.Info("flush complete", "delivered", delivered, "pending", len(pending)-delivered)
	}
	return delivered, nil
}

// Pending lists the queue for the admin surface.
func (e *Executor) Pending(ctx context.Context) ([]PendingDelivery, error) {
	return e.queue.Pending(ctx)
}
