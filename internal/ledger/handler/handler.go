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
	audit "cac/pkg/platform/audit"
	"cac/pkg/requestcontext"
)

// Service defines the ledger operations the handler delegates to.
type Service interface {
	Mint(ctx context.Context, actor, to domain.Address, amount int64) error
	MintFromQuota(ctx context.Context, actor domain.Address, amount int64) error
	SetQuota(ctx context.Context, actor, account domain.Address, remaining int64) error
	Transfer(ctx context.Context, actor, to domain.Address, amount int64) error
	Approve(ctx context.Context, actor, spender domain.Address, amount int64) error
	TransferFrom(ctx context.Context, actor, from, to domain.Address, amount int64) error
	Surrender(ctx context.Context, actor domain.Address, amount int64, periodID int64, evidenceURI string, vcHash domain.Hash32) error
	BalanceOf(ctx context.Context, account domain.Address) (int64, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (int64, error)
	QuotaOf(ctx context.Context, account domain.Address) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
	Surrenders(ctx context.Context, account domain.Address) ([]audit.Event, error)
}

// Handler handles ledger endpoints.
type Handler struct {
	ledger    Service
	logger    *slog.Logger
	validator middleware.JWTValidator
}

func New(ledger Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return &Handler{ledger: ledger, logger: logger, validator: validator}
}

// Register mounts the ledger routes. Reads are public; mutations require an
// authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/balance/{account}", h.handleBalance)
	r.Get("/ledger/allowance/{owner}/{spender}", h.handleAllowance)
	r.Get("/ledger/quota/{account}", h.handleQuota)
	r.Get("/ledger/total-supply", h.handleTotalSupply)
	r.Get("/ledger/surrenders/{account}", h.handleSurrenders)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/ledger/mint", h.handleMint)
		r.Post("/ledger/mint-from-quota", h.handleMintFromQuota)
		r.Post("/ledger/quota", h.handleSetQuota)
		r.Post("/ledger/transfer", h.handleTransfer)
		r.Post("/ledger/approve", h.handleApprove)
		r.Post("/ledger/transfer-from", h.handleTransferFrom)
		r.Post("/ledger/surrender", h.handleSurrender)
	})
}

type mintRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.ledger.Mint(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "mint failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) handleMintFromQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.ledger.MintFromQuota(ctx, requestcontext.Actor(ctx), req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setQuotaRequest struct {
	Account   string `json:"account"`
	Remaining int64  `json:"remaining"`
}

func (h *Handler) handleSetQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.ledger.SetQuota(ctx, requestcontext.Actor(ctx), account, req.Remaining); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.ledger.Transfer(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	spender, err := domain.ParseAddress(req.Spender)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.ledger.Approve(ctx, requestcontext.Actor(ctx), spender, req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferFromRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.ledger.TransferFrom(ctx, requestcontext.Actor(ctx), from, to, req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type surrenderRequest struct {
	Amount      int64  `json:"amount"`
	PeriodID    int64  `json:"period_id"`
	EvidenceURI string `json:"evidence_uri"`
	VCHash      string `json:"vc_hash"`
}

func (h *Handler) handleSurrender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req surrenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	vcHash := domain.ZeroHash
	if req.VCHash != "" {
		parsed, err := domain.ParseHash32(req.VCHash)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		vcHash = parsed
	}
	actor := requestcontext.Actor(ctx)
	if err := h.ledger.Surrender(ctx, actor, req.Amount, req.PeriodID, req.EvidenceURI, vcHash); err != nil {
		h.logger.WarnContext(ctx, "surrender failed",
			"request_id", middleware.GetRequestID(ctx),
			"account", actor,
			"error", err.Error(),
		)
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
	balance, err := h.ledger.BalanceOf(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	spender, err := domain.ParseAddress(chi.URLParam(r, "spender"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	allowance, err := h.ledger.Allowance(r.Context(), owner, spender)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"allowance": allowance})
}

func (h *Handler) handleQuota(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	quota, err := h.ledger.QuotaOf(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"quota": quota})
}

func (h *Handler) handleTotalSupply(w http.ResponseWriter, r *http.Request) {
	total, err := h.ledger.TotalSupply(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"total_supply": total})
}

func (h *Handler) handleSurrenders(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.ledger.Surrenders(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	shared.WriteJSON(w, http.StatusOK, events)
}
