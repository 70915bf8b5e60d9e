// Package credit is the external intake for points: webhook payloads from
// the payment provider and the manual retry path operators use when a
// payload arrived with a broken identity.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/retrylimit"
)

var (
	ErrInvalidPayload     = errors.New("credit payload must carry a positive point amount")
	ErrRetryLimitExceeded = errors.New("retry limit exceeded for this payload")
)

// Payload is the provider's webhook body. Any one of the identity fields
// may be set; points must be positive.
type Payload struct {
	EOSID    string `json:"eos_id"`
	PlayerID string `json:"player_id"`
	Pseudo   string `json:"pseudo"`
	XUID     string `json:"xuid"`
	SteamID  string `json:"steam_id"`
	Points   int64  `json:"points"`
}

func (p Payload) identity() players.Identity {
	return players.Identity{
		EOSID:    p.EOSID,
		PlayerID: p.PlayerID,
		Pseudo:   p.Pseudo,
		XUID:     p.XUID,
		SteamID:  p.SteamID,
	}
}

// Intake validates, resolves and records incoming credits.
type Intake struct {
	ledger  *ledger.Ledger
	players players.Store
	limiter *retrylimit.Limiter
	log     *slog.Logger
}

func NewIntake(l *ledger.Ledger, ps players.Store, limiter *retrylimit.Limiter, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{ledger: l, players: ps, limiter: limiter, log: logger}
}

// Credit handles a provider webhook: resolve the identity, append one
// positive transaction. A payload that cannot be resolved writes nothing
// and is reported back for manual handling.
func (i *Intake) Credit(ctx context.Context, p Payload) (int64, error) {
	return i.apply(ctx, p, ledger.StatusTip4serv)
}

// Retry is the operator-driven re-submission of a failed payload. It is
// budgeted per operator and payload by the sliding-window limiter; a
// denied retry has no ledger effect and does not consume budget.
func (i *Intake) Retry(ctx context.Context, actorID string, p Payload) (int64, error) {
	subject := p.identity().Ref()
	if !i.limiter.Attempt(actorID, subject) {
		i.log.Warn("credit retry denied", "actor", actorID, "subject", subject)
		return 0, ErrRetryLimitExceeded
	}
	balance, err := i.apply(ctx, p, ledger.StatusManualRetry)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ResetRetries clears the retry budget for one operator and payload
// reference, for the admin surface.
func (i *Intake) ResetRetries(actorID, subject string) {
	i.limiter.Reset(actorID, subject)
}

func (i *Intake) apply(ctx context.Context, p Payload, status string) (int64, error) {
	if p.Points <= 0 {
		return 0, ErrInvalidPayload
	}
	id := p.identity()
	if id.Empty() {
		return 0, players.ErrUnresolvedIdentity
	}
	eosID, err := i.players.Resolve(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("resolve %q: %w", id.Ref(), err)
	}
	balance, err := i.ledger.Record(ctx, eosID, p.Points, status, "tip4serv")
	if err != nil {
		return 0, err
	}
	i.log.Info("credit applied", "player", eosID, "points", p.Points, "status", status, "balance", balance)
	return balance, nil
}
