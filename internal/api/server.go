// Package api exposes the points economy over HTTP: the provider webhook,
// the player surface used by the front ends, and the admin surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arkshop/internal/auth"
	"arkshop/internal/catalog"
	"arkshop/internal/config"
	"arkshop/internal/credit"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/shop"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	intake  *credit.Intake
	ledger  *ledger.Ledger
	players players.Store
	shop    *shop.Service
	catalog *catalog.Catalog
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, intake *credit.Intake, led *ledger.Ledger, ps players.Store, shopSvc *shop.Service, cat *catalog.Catalog) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		intake:  intake,
		ledger:  led,
		players: ps,
		shop:    shopSvc,
		catalog: cat,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	unauthorized := func(w http.ResponseWriter) {
		writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
	}

	r.Route("/v1", func(r chi.Router) {
		// Payment provider webhook. Its own token, nothing else shares it.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer(s.cfg.WebhookToken, unauthorized))
			r.Post("/credits", s.handleCredit)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer(s.cfg.AdminToken, unauthorized))

			r.Post("/credits/retry", s.handleCreditRetry)
			r.Get("/players/{id}/balance", s.handleBalance)
			r.Get("/players/{id}/transactions", s.handleTransactions)
			r.Post("/trades", s.handleTrade)
			r.Post("/purchases", s.handlePurchase)

			r.Get("/admin/deliveries", s.handleDeliveries)
			r.Post("/admin/deliveries/flush", s.handleFlush)
			r.Post("/admin/retries/reset", s.handleRetryReset)
		})
	})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var in credit.Payload
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	balance, err := s.intake.Credit(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleCreditRetry(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Actor   string         `json:"actor"`
		Payload credit.Payload `json:"payload"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Actor) == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}
	balance, err := s.intake.Retry(r.Context(), in.Actor, in.Payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	eosID, err := s.resolvePathID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := s.ledger.Balance(r.Context(), eosID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player_id": eosID, "balance": balance})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	eosID, err := s.resolvePathID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	txs, err := s.ledger.History(r.Context(), eosID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player_id": eosID, "transactions": txs})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	fromID, err := s.resolveRef(ctx, in.From)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toID, err := s.resolveRef(ctx, in.To)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.ledger.Trade(ctx, fromID, toID, in.Amount, in.From, in.To); err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := s.ledger.Balance(ctx, fromID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "balance": balance})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID  string `json:"player_id"`
		Item      string `json:"item"`
		Map       string `json:"map"`
		ImplantID string `json:"implant_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.catalog.Find(in.Item)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ctx := r.Context()
	eosID, err := s.resolveRef(ctx, in.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	command := catalog.ResolveCommand(item.Command, in.ImplantID, in.Map)
	res, err := s.shop.Buy(ctx, eosID, item.Name, command, in.Map, item.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// A queued purchase is still a success from the caller's side: the
	// points are spent and the item will arrive on the next flush.
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	pending, err := s.shop.Pending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	delivered, err := s.shop.Flush(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}

func (s *Server) handleRetryReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Actor   string `json:"actor"`
		Subject string `json:"subject"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Actor == "" || in.Subject == "" {
		writeError(w, http.StatusBadRequest, "actor and subject are required")
		return
	}
	s.intake.ResetRetries(in.Actor, in.Subject)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// resolvePathID maps the {id} path segment, which may be any known
// identity reference, to the canonical ledger key.
func (s *Server) resolvePathID(r *http.Request) (string, error) {
	return s.resolveRef(r.Context(), chi.URLParam(r, "id"))
}

// resolveRef accepts either a canonical EOS id or an in-game name.
func (s *Server) resolveRef(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", players.ErrUnresolvedIdentity
	}
	eosID, err := s.players.Resolve(ctx, players.Identity{EOSID: ref})
	if errors.Is(err, players.ErrUnresolvedIdentity) {
		return s.players.Resolve(ctx, players.Identity{Pseudo: ref})
	}
	return eosID, err
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrZeroDelta),
		errors.Is(err, ledger.ErrSelfTrade),
		errors.Is(err, credit.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, players.ErrUnresolvedIdentity),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, shop.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, players.ErrAmbiguousIdentity),
		errors.Is(err, ledger.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, credit.ErrRetryLimitExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, shop.ErrSessionExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, shop.ErrSessionNotYours):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// Run serves until the context is cancelled, then drains with a short
// shutdown deadline.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
