package shop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfirmReturnsSessionWithMap(t *testing.T) {
	store := NewSessionStore(30 * time.Second)
	sess := store.Begin("eos-1", "Rex", "GiveDino {implantID} Rex {map}", 120)
	require.Equal(t, StateAwaitingContext, sess.State)

	confirmed, err := store.Confirm(sess.ID, "eos-1", "Ragnarok")
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, confirmed.State)
	require.Equal(t, "Ragnarok", confirmed.MapName)
	require.Equal(t, int64(120), confirmed.Price)

	// Confirmed sessions are gone; a replay fails.
	_, err = store.Confirm(sess.ID, "eos-1", "Ragnarok")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirmRejectsOtherPlayers(t *testing.T) {
	store := NewSessionStore(30 * time.Second)
	sess := store.Begin("eos-1", "Rex", "cmd", 120)

	_, err := store.Confirm(sess.ID, "eos-2", "Ragnarok")
	require.ErrorIs(t, err, ErrSessionNotYours)

	// The rightful owner can still confirm.
	_, err = store.Confirm(sess.ID, "eos-1", "Ragnarok")
	require.NoError(t, err)
}

func TestExpiredSessionCannotBeConfirmed(t *testing.T) {
	store := NewSessionStore(30 * time.Second)
	now := time.Now()
	store.now = func() time.Time { return now }

	sess := store.Begin("eos-1", "Rex", "cmd", 120)

	now = now.Add(31 * time.Second)
	_, err := store.Confirm(sess.ID, "eos-1", "Ragnarok")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSweepDropsOnlyExpiredSessions(t *testing.T) {
	store := NewSessionStore(30 * time.Second)
	now := time.Now()
	store.now = func() time.Time { return now }

	old := store.Begin("eos-1", "Rex", "cmd", 120)
	now = now.Add(20 * time.Second)
	fresh := store.Begin("eos-2", "Argy", "cmd", 60)

	now = now.Add(15 * time.Second)
	require.Equal(t, 1, store.Sweep())

	_, err := store.Confirm(old.ID, "eos-1", "Ragnarok")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Confirm(fresh.ID, "eos-2", "Ragnarok")
	require.NoError(t, err)
}
