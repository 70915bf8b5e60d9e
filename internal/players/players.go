// Package players resolves the many identities a player may show up with
// (EOS id, Discord account, in-game pseudo, XUID, Steam id) to the one
// canonical ledger key: the EOS id.
package players

import (
	"context"
	"errors"
)

var (
	ErrUnresolvedIdentity = errors.New("no player matches the given identity")
	ErrAmbiguousIdentity  = errors.New("more than one player matches the given identity")
)

type Player struct {
	DiscordID string `json:"discord_id"`
	EOSID     string `json:"eos_id"`
	Pseudo    string `json:"pseudo"`
	XUID      string `json:"xuid"`
	SteamID   string `json:"steam_id"`
}

// Identity carries the alternative reference fields accepted by credit
// intake. First non-empty field wins, in declaration order.
type Identity struct {
	EOSID    string
	PlayerID string
	Pseudo   string
	XUID     string
	SteamID  string
}

// Empty reports whether no reference field is set at all.
func (id Identity) Empty() bool {
	return id.EOSID == "" && id.PlayerID == "" && id.Pseudo == "" && id.XUID == "" && id.SteamID == ""
}

// Ref returns the first non-empty reference, used as the retry-limiter
// subject when resolution itself failed.
func (id Identity) Ref() string {
	for _, v := range []string{id.EOSID, id.PlayerID, id.Pseudo, id.XUID, id.SteamID} {
		if v != "" {
			return v
		}
	}
	return ""
}

type Store interface {
	// Resolve maps an identity to the canonical EOS id.
	Resolve(ctx context.Context, id Identity) (string, error)
	// ByDiscord maps a Discord user id to the canonical EOS id.
	ByDiscord(ctx context.Context, discordID string) (string, error)
	// Linked lists every player with a Discord link, for the reward sweep.
	Linked(ctx context.Context) ([]Player, error)
	// Upsert creates or updates a player mapping.
	Upsert(ctx context.Context, p Player) error
}
