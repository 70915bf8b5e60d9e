package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arkshop/internal/catalog"
	"arkshop/internal/config"
	"arkshop/internal/credit"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/retrylimit"
	"arkshop/internal/shop"
)

const (
	testAdminToken   = "admin-token"
	testWebhookToken = "webhook-token"
)

type flakySender struct {
	fail int
	sent []string
}

func (s *flakySender) Send(_ context.Context, command string) error {
	if s.fail > 0 {
		s.fail--
		return errors.New("rcon unreachable")
	}
	s.sent = append(s.sent, command)
	return nil
}

type fixture struct {
	srv    *httptest.Server
	ledger *ledger.Ledger
	sender *flakySender
}

func newFixture(t *testing.T, failSends int) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	led := ledger.New(ledger.NewMemoryStore(), logger)
	ps := players.NewMemoryStore()
	require.NoError(t, ps.Upsert(context.Background(), players.Player{
		DiscordID: "discord-1", EOSID: "eos-1", Pseudo: "Rexlord", SteamID: "7656119",
	}))
	require.NoError(t, ps.Upsert(context.Background(), players.Player{
		DiscordID: "discord-2", EOSID: "eos-2", Pseudo: "Argy",
	}))

	limiter := retrylimit.New(2, 3*time.Hour)
	intake := credit.NewIntake(led, ps, limiter, logger)

	sender := &flakySender{fail: failSends}
	exec := shop.NewExecutor(sender, shop.NewMemoryQueueStore(), logger)
	sessions := shop.NewSessionStore(30 * time.Second)
	shopSvc := shop.NewService(led, exec, sessions, logger)

	cat, err := catalog.Parse([]byte(`{"Dinos": [{"name": "Rex", "price": 30, "command": "GiveDino {implantID} Rex {map}"}]}`))
	require.NoError(t, err)

	cfg := config.APIConfig{
		AdminToken:   testAdminToken,
		WebhookToken: testWebhookToken,
	}
	s := New(cfg, logger, intake, led, ps, shopSvc, cat)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, ledger: led, sender: sender}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (f *fixture) credit(t *testing.T, eosID string, points int64) {
	t.Helper()
	resp, _ := f.do(t, http.MethodPost, "/v1/credits", testWebhookToken, map[string]any{
		"eos_id": eosID, "points": points,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreditWebhook(t *testing.T) {
	f := newFixture(t, 0)

	resp, out := f.do(t, http.MethodPost, "/v1/credits", testWebhookToken, map[string]any{
		"pseudo": "Rexlord", "points": 50,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(50), out["balance"])
}

func TestCreditRejectsBadTokens(t *testing.T) {
	f := newFixture(t, 0)
	for _, token := range []string{"", "wrong", testAdminToken} {
		resp, _ := f.do(t, http.MethodPost, "/v1/credits", token, map[string]any{
			"eos_id": "eos-1", "points": 50,
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestCreditUnresolvedIdentity(t *testing.T) {
	f := newFixture(t, 0)
	resp, _ := f.do(t, http.MethodPost, "/v1/credits", testWebhookToken, map[string]any{
		"pseudo": "nobody", "points": 50,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreditInvalidPoints(t *testing.T) {
	f := newFixture(t, 0)
	resp, _ := f.do(t, http.MethodPost, "/v1/credits", testWebhookToken, map[string]any{
		"eos_id": "eos-1", "points": 0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreditRetryBudget(t *testing.T) {
	f := newFixture(t, 0)
	body := map[string]any{
		"actor":   "op-1",
		"payload": map[string]any{"eos_id": "eos-1", "points": 25},
	}
	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, http.MethodPost, "/v1/credits/retry", testAdminToken, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := f.do(t, http.MethodPost, "/v1/credits/retry", testAdminToken, body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Reset restores the budget.
	resp, _ = f.do(t, http.MethodPost, "/v1/admin/retries/reset", testAdminToken, map[string]any{
		"actor": "op-1", "subject": "eos-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/v1/credits/retry", testAdminToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBalanceAndTransactions(t *testing.T) {
	f := newFixture(t, 0)
	f.credit(t, "eos-1", 50)

	resp, out := f.do(t, http.MethodGet, "/v1/players/Rexlord/balance", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "eos-1", out["player_id"])
	require.Equal(t, float64(50), out["balance"])

	resp, out = f.do(t, http.MethodGet, "/v1/players/eos-1/transactions", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["transactions"], 1)

	resp, _ = f.do(t, http.MethodGet, "/v1/players/nobody/balance", testAdminToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTrade(t *testing.T) {
	f := newFixture(t, 0)
	f.credit(t, "eos-1", 50)

	resp, out := f.do(t, http.MethodPost, "/v1/trades", testAdminToken, map[string]any{
		"from": "Rexlord", "to": "Argy", "amount": 20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(30), out["balance"])

	resp, _ = f.do(t, http.MethodPost, "/v1/trades", testAdminToken, map[string]any{
		"from": "Rexlord", "to": "Argy", "amount": 500,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/v1/trades", testAdminToken, map[string]any{
		"from": "Rexlord", "to": "Rexlord", "amount": 5,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPurchaseDelivered(t *testing.T) {
	f := newFixture(t, 0)
	f.credit(t, "eos-1", 50)

	resp, out := f.do(t, http.MethodPost, "/v1/purchases", testAdminToken, map[string]any{
		"player_id": "eos-1", "item": "Rex", "map": "Ragnarok", "implant_id": "777",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "delivered", out["status"])
	require.Equal(t, float64(20), out["balance"])
	require.Equal(t, []string{"GiveDino 777 Rex Ragnarok"}, f.sender.sent)
}

func TestPurchaseQueuedOnChannelFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.credit(t, "eos-1", 50)

	resp, out := f.do(t, http.MethodPost, "/v1/purchases", testAdminToken, map[string]any{
		"player_id": "eos-1", "item": "Rex", "map": "Ragnarok", "implant_id": "777",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "queued", out["status"])
	require.Equal(t, float64(20), out["balance"])

	resp, out = f.do(t, http.MethodGet, "/v1/admin/deliveries", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["pending"], 1)

	resp, out = f.do(t, http.MethodPost, "/v1/admin/deliveries/flush", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), out["delivered"])

	// Flush moved no points.
	resp, out = f.do(t, http.MethodGet, "/v1/players/eos-1/balance", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(20), out["balance"])
}

func TestPurchaseUnknownItem(t *testing.T) {
	f := newFixture(t, 0)
	f.credit(t, "eos-1", 50)
	resp, _ := f.do(t, http.MethodPost, "/v1/purchases", testAdminToken, map[string]any{
		"player_id": "eos-1", "item": "Wyvern", "map": "Ragnarok",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	f := newFixture(t, 0)
	f.credit(t, "eos-1", 10)
	resp, _ := f.do(t, http.MethodPost, "/v1/purchases", testAdminToken, map[string]any{
		"player_id": "eos-1", "item": "Rex", "map": "Ragnarok",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, f.sender.sent)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, 0)
	resp, out := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["ok"])
}
