package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cac/internal/platform/middleware"
	"cac/internal/roles"
	"cac/internal/transport/http/shared"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/requestcontext"
)

// Service defines the role operations the handler delegates to.
type Service interface {
	Grant(ctx context.Context, actor, addr domain.Address, role roles.Role) error
	Revoke(ctx context.Context, actor, addr domain.Address, role roles.Role) error
	Holders(ctx context.Context, actor domain.Address, role roles.Role) ([]domain.Address, error)
}

// Handler handles role administration endpoints. All routes are admin-gated
// at the service layer.
type Handler struct {
	roles     Service
	logger    *slog.Logger
	validator middleware.JWTValidator
}

func New(svc Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return &Handler{roles: svc, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/roles/grant", h.handleGrant)
		r.Post("/roles/revoke", h.handleRevoke)
		r.Get("/roles/{role}/holders", h.handleHolders)
	})
}

type roleRequest struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, h.roles.Grant)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, h.roles.Revoke)
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request, apply func(context.Context, domain.Address, domain.Address, roles.Role) error) {
	ctx := r.Context()
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := apply(ctx, requestcontext.Actor(ctx), account, roles.Role(req.Role)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role := roles.Role(chi.URLParam(r, "role"))
	holders, err := h.roles.Holders(ctx, requestcontext.Actor(ctx), role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if holders == nil {
		holders = []domain.Address{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]domain.Address{"holders": holders})
}
