package players

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	players map[string]Player // keyed by eos_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]Player)}
}

func (s *MemoryStore) Resolve(_ context.Context, id Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(pick func(Player) string, value string) (string, error) {
		var ids []string
		for _, p := range s.players {
			if pick(p) == value {
				ids = append(ids, p.EOSID)
			}
		}
		switch len(ids) {
		case 0:
			return "", ErrUnresolvedIdentity
		case 1:
			return ids[0], nil
		default:
			return "", ErrAmbiguousIdentity
		}
	}

	switch {
	case id.EOSID != "":
		return match(func(p Player) string { return p.EOSID }, id.EOSID)
	case id.PlayerID != "":
		return match(func(p Player) string { return p.EOSID }, id.PlayerID)
	case id.Pseudo != "":
		return match(func(p Player) string { return p.Pseudo }, id.Pseudo)
	case id.XUID != "":
		return match(func(p Player) string { return p.XUID }, id.XUID)
	case id.SteamID != "":
		return match(func(p Player) string { return p.SteamID }, id.SteamID)
	}
	return "", ErrUnresolvedIdentity
}

func (s *MemoryStore) ByDiscord(_ context.Context, discordID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.DiscordID == discordID {
			return p.EOSID, nil
		}
	}
	return "", ErrUnresolvedIdentity
}

func (s *MemoryStore) Linked(_ context.Context) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Player
	for _, p := range s.players {
		if p.DiscordID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.EOSID] = p
	return nil
}
