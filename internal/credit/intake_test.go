package credit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/retrylimit"
)

func newIntake(t *testing.T) (*Intake, *ledger.Ledger, *players.MemoryStore) {
	t.Helper()
	led := ledger.New(ledger.NewMemoryStore(), slog.New(slog.DiscardHandler))
	ps := players.NewMemoryStore()
	limiter := retrylimit.New(2, 3*time.Hour)
	return NewIntake(led, ps, limiter, slog.New(slog.DiscardHandler)), led, ps
}

func seedPlayer(t *testing.T, ps *players.MemoryStore) {
	t.Helper()
	require.NoError(t, ps.Upsert(context.Background(), players.Player{
		DiscordID: "discord-1",
		EOSID:     "eos-1",
		Pseudo:    "Rexlord",
		SteamID:   "7656119",
	}))
}

func TestCreditResolvesAndRecords(t *testing.T) {
	intake, led, ps := newIntake(t)
	seedPlayer(t, ps)
	ctx := context.Background()

	balance, err := intake.Credit(ctx, Payload{Pseudo: "Rexlord", Points: 50})
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)

	txs, err := led.History(ctx, "eos-1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, ledger.StatusTip4serv, txs[0].Status)
	require.Equal(t, "tip4serv", txs[0].Source)
}

func TestCreditRejectsNonPositivePoints(t *testing.T) {
	intake, led, ps := newIntake(t)
	seedPlayer(t, ps)
	ctx := context.Background()

	for _, points := range []int64{0, -10} {
		_, err := intake.Credit(ctx, Payload{EOSID: "eos-1", Points: points})
		require.ErrorIs(t, err, ErrInvalidPayload)
	}
	txs, err := led.History(ctx, "eos-1", 10)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestCreditUnresolvedIdentityWritesNothing(t *testing.T) {
	intake, led, _ := newIntake(t)
	ctx := context.Background()

	_, err := intake.Credit(ctx, Payload{Pseudo: "nobody", Points: 50})
	require.ErrorIs(t, err, players.ErrUnresolvedIdentity)

	_, err = intake.Credit(ctx, Payload{Points: 50})
	require.ErrorIs(t, err, players.ErrUnresolvedIdentity)

	txs, err := led.History(ctx, "eos-1", 10)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestRetryBudgetAllowsTwoThenDenies(t *testing.T) {
	intake, led, ps := newIntake(t)
	seedPlayer(t, ps)
	ctx := context.Background()

	payload := Payload{SteamID: "7656119", Points: 25}
	for i := 0; i < 2; i++ {
		_, err := intake.Retry(ctx, "op-1", payload)
		require.NoError(t, err)
	}
	_, err := intake.Retry(ctx, "op-1", payload)
	require.ErrorIs(t, err, ErrRetryLimitExceeded)

	// Two retries landed, the third wrote nothing.
	txs, err := led.History(ctx, "eos-1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		require.Equal(t, ledger.StatusManualRetry, tx.Status)
	}
}

func TestRetryBudgetIsPerActorAndPayload(t *testing.T) {
	intake, _, ps := newIntake(t)
	seedPlayer(t, ps)
	ctx := context.Background()

	payload := Payload{EOSID: "eos-1", Points: 25}
	for i := 0; i < 2; i++ {
		_, err := intake.Retry(ctx, "op-1", payload)
		require.NoError(t, err)
	}
	_, err := intake.Retry(ctx, "op-1", payload)
	require.ErrorIs(t, err, ErrRetryLimitExceeded)

	// A different operator retrying the same payload has its own budget.
	_, err = intake.Retry(ctx, "op-2", payload)
	require.NoError(t, err)
}

func TestResetRetriesRestoresBudget(t *testing.T) {
	intake, _, ps := newIntake(t)
	seedPlayer(t, ps)
	ctx := context.Background()

	payload := Payload{EOSID: "eos-1", Points: 25}
	for i := 0; i < 2; i++ {
		_, err := intake.Retry(ctx, "op-1", payload)
		require.NoError(t, err)
	}
	_, err := intake.Retry(ctx, "op-1", payload)
	require.ErrorIs(t, err, ErrRetryLimitExceeded)

	intake.ResetRetries("op-1", "eos-1")
	_, err = intake.Retry(ctx, "op-1", payload)
	require.NoError(t, err)
}
