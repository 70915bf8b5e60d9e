// Package reward grants the periodic playtime bonus to every player with a
// linked Discord account.
package reward

import (
	"context"
	"fmt"
	"log/slog"

	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/rcon"
	"arkshop/internal/shop"
)

// Sweeper credits each linked player a fixed amount per interval and tells
// them in game. A failed in-game notice never rolls the credit back; the
// notice is best effort.
type Sweeper struct {
	ledger  *ledger.Ledger
	players players.Store
	sender  shop.CommandSender
	points  int64
	log     *slog.Logger
}

func NewSweeper(l *ledger.Ledger, ps players.Store, sender shop.CommandSender, points int64, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{ledger: l, players: ps, sender: sender, points: points, log: logger}
}

// Sweep runs one reward pass and returns how many players were credited.
// One player failing does not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	linked, err := s.players.Linked(ctx)
	if err != nil {
		return 0, fmt.Errorf("list linked players: %w", err)
	}
	credited := 0
	for _, p := range linked {
		balance, err := s.ledger.Record(ctx, p.EOSID, s.points, ledger.StatusIntervalReward, "interval")
		if err != nil {
			s.log.Error("interval reward failed", "player", p.EOSID, "err", err)
			continue
		}
		credited++
		if s.sender != nil && p.Pseudo != "" {
			notice := fmt.Sprintf(rcon.MsgReceivedPoints, s.points, balance)
			if err := s.sender.Send(ctx, rcon.ChatCommand(p.Pseudo, notice)); err != nil {
				s.log.Warn("reward notice failed", "player", p.EOSID, "err", err)
			}
		}
	}
	s.log.Info("reward sweep complete", "credited", credited, "linked", len(linked))
	return credited, nil
}
