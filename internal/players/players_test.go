package players

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Player{DiscordID: "d-1", EOSID: "eos-1", Pseudo: "Raptor", XUID: "x-1", SteamID: "76561198000000001"}))
	require.NoError(t, s.Upsert(ctx, Player{DiscordID: "d-2", EOSID: "eos-2", Pseudo: "Rex", XUID: "x-2", SteamID: "76561198000000002"}))
	require.NoError(t, s.Upsert(ctx, Player{EOSID: "eos-3", Pseudo: "Rex"}))
	return s
}

func TestResolveFirstNonEmptyWins(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	// eos_id beats pseudo even when the pseudo belongs to someone else.
	got, err := s.Resolve(ctx, Identity{EOSID: "eos-1", Pseudo: "Rex"})
	require.NoError(t, err)
	require.Equal(t, "eos-1", got)

	got, err = s.Resolve(ctx, Identity{PlayerID: "eos-2"})
	require.NoError(t, err)
	require.Equal(t, "eos-2", got)

	got, err = s.Resolve(ctx, Identity{SteamID: "76561198000000001"})
	require.NoError(t, err)
	require.Equal(t, "eos-1", got)
}

func TestResolveUnknownAndAmbiguous(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	_, err := s.Resolve(ctx, Identity{Pseudo: "Nobody"})
	require.ErrorIs(t, err, ErrUnresolvedIdentity)

	_, err = s.Resolve(ctx, Identity{})
	require.ErrorIs(t, err, ErrUnresolvedIdentity)

	// Two players share the pseudo "Rex".
	_, err = s.Resolve(ctx, Identity{Pseudo: "Rex"})
	require.ErrorIs(t, err, ErrAmbiguousIdentity)
}

func TestByDiscordAndLinked(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	got, err := s.ByDiscord(ctx, "d-2")
	require.NoError(t, err)
	require.Equal(t, "eos-2", got)

	_, err = s.ByDiscord(ctx, "d-999")
	require.ErrorIs(t, err, ErrUnresolvedIdentity)

	linked, err := s.Linked(ctx)
	require.NoError(t, err)
	require.Len(t, linked, 2) // eos-3 has no discord link
}

func TestIdentityRef(t *testing.T) {
	require.Equal(t, "eos-1", Identity{EOSID: "eos-1", Pseudo: "Raptor"}.Ref())
	require.Equal(t, "Raptor", Identity{Pseudo: "Raptor"}.Ref())
	require.Equal(t, "", Identity{}.Ref())
	require.True(t, Identity{}.Empty())
}
