package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cac/internal/platform/middleware"
	"cac/internal/transport/http/shared"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/requestcontext"
)

// Service defines the vault operations the handler delegates to.
type Service interface {
	Deposit(ctx context.Context, actor domain.Address, wei int64) error
	Withdraw(ctx context.Context, actor domain.Address, wei int64) error
	BalanceOf(ctx context.Context, account domain.Address) (int64, error)
}

// Handler handles payment vault endpoints.
type Handler struct {
	vault     Service
	logger    *slog.Logger
	validator middleware.JWTValidator
}

func New(vault Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return &Handler{vault: vault, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/payments/balance/{account}", h.handleBalance)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/payments/deposit", h.handleDeposit)
		r.Post("/payments/withdraw", h.handleWithdraw)
	})
}

type weiRequest struct {
	Wei int64 `json:"wei"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req weiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.vault.Deposit(ctx, requestcontext.Actor(ctx), req.Wei); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req weiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.vault.Withdraw(ctx, requestcontext.Actor(ctx), req.Wei); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	balance, err := h.vault.BalanceOf(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"balance_wei": balance})
}
