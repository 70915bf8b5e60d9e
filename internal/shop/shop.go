// Package shop implements the delivery half of a purchase: executing the
// resolved command against the game server, queuing undelivered purchases,
// and the interactive session that precedes any debit.
package shop

import (
	"context"
	"errors"
	"time"
)

// Delivery statuses for queued purchases. pending → delivered is one-way.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
)

var (
	ErrSessionNotFound = errors.New("purchase session not found")
	ErrSessionExpired  = errors.New("purchase session expired")
	ErrSessionNotYours = errors.New("purchase session belongs to another player")
)

// CommandSender is the remote command channel: one command in, success or
// failure out. No delivery guarantee of its own.
type CommandSender interface {
	Send(ctx context.Context, command string) error
}

// PendingDelivery is a purchase that has been paid for but not executed
// against the game server. Its price always has a matching negative
// transaction in the ledger; the queue never represents an un-debited
// purchase.
type PendingDelivery struct {
	ID          int64      `json:"id"`
	PlayerID    string     `json:"player_id"`
	ItemName    string     `json:"item_name"`
	Command     string     `json:"command"`
	Context     string     `json:"context"`
	Price       int64      `json:"price"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// QueueStore is the persistence boundary for pending deliveries.
// MarkDelivered is a compare-and-set on status = pending; it reports
// whether this caller won the transition.
type QueueStore interface {
	Enqueue(ctx context.Context, d *PendingDelivery) error
	Pending(ctx context.Context) ([]PendingDelivery, error)
	All(ctx context.Context) ([]PendingDelivery, error)
	MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error)
}
