package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cac/internal/platform/middleware"
	"cac/internal/registry/models"
	"cac/internal/transport/http/shared"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/requestcontext"
)

// Service defines the registry operations the handler delegates to.
type Service interface {
	Register(ctx context.Context, actor domain.Address, taxIDHash domain.Hash32, metadataURI, displayName string) (*models.Profile, error)
	UpdateMetadata(ctx context.Context, actor domain.Address, metadataURI string) error
	UpdateDocs(ctx context.Context, actor domain.Address, docsURI string) error
	ApproveKyc(ctx context.Context, actor, account domain.Address, approved bool) error
	RejectKyc(ctx context.Context, actor, account domain.Address, reason string) error
	IsRegistered(ctx context.Context, account domain.Address) (bool, error)
	Profile(ctx context.Context, account domain.Address) (*models.Profile, error)
	KycNote(ctx context.Context, account domain.Address) (string, error)
	Operator() domain.Address
}

// Handler handles registry endpoints.
type Handler struct {
	registry  Service
	logger    *slog.Logger
	validator middleware.JWTValidator
}

func New(registry Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return &Handler{registry: registry, logger: logger, validator: validator}
}

// Register mounts the registry routes. Reads are public; mutations require
// an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/profiles/{account}", h.handleProfile)
	r.Get("/registry/registered/{account}", h.handleIsRegistered)
	r.Get("/registry/kyc-note/{account}", h.handleKycNote)
	r.Get("/registry/operator", h.handleOperator)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/registry/register", h.handleRegister)
		r.Post("/registry/metadata", h.handleUpdateMetadata)
		r.Post("/registry/docs", h.handleUpdateDocs)
		r.Post("/registry/kyc/approve", h.handleApproveKyc)
		r.Post("/registry/kyc/reject", h.handleRejectKyc)
	})
}

type registerRequest struct {
	TaxIDHash   string `json:"tax_id_hash"`
	MetadataURI string `json:"metadata_uri"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	taxIDHash, err := domain.ParseHash32(req.TaxIDHash)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	profile, err := h.registry.Register(ctx, actor, taxIDHash, req.MetadataURI, req.DisplayName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, profile)
}

type updateURIRequest struct {
	MetadataURI string `json:"metadata_uri"`
	DocsURI     string `json:"docs_uri"`
}

func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.registry.UpdateMetadata(ctx, requestcontext.Actor(ctx), req.MetadataURI); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateDocs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.registry.UpdateDocs(ctx, requestcontext.Actor(ctx), req.DocsURI); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type kycRequest struct {
	Account  string `json:"account"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleApproveKyc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req kycRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.registry.ApproveKyc(ctx, requestcontext.Actor(ctx), account, req.Approved); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRejectKyc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req kycRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.registry.RejectKyc(ctx, requestcontext.Actor(ctx), account, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	profile, err := h.registry.Profile(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleIsRegistered(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	registered, err := h.registry.IsRegistered(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

func (h *Handler) handleKycNote(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	note, err := h.registry.KycNote(r.Context(), account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"kyc_note": note})
}

func (h *Handler) handleOperator(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"operator": h.registry.Operator().String()})
}
