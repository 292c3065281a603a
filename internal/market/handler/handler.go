package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cac/internal/market/models"
	"cac/internal/platform/middleware"
	"cac/internal/transport/http/shared"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/requestcontext"
)

// Service defines the marketplace operations the handler delegates to.
type Service interface {
	List(ctx context.Context, actor domain.Address, amount, priceWei int64) (*models.Listing, error)
	Cancel(ctx context.Context, actor domain.Address, id int64) error
	Buy(ctx context.Context, actor domain.Address, id int64) error
	Listing(ctx context.Context, id int64) (*models.Listing, error)
	NextID(ctx context.Context) (int64, error)
	ActiveListings(ctx context.Context) ([]*models.Listing, error)
	SellerListings(ctx context.Context, seller domain.Address) ([]*models.Listing, error)
	Custody() domain.Address
}

// Handler handles marketplace endpoints.
type Handler struct {
	market    Service
	logger    *slog.Logger
	validator middleware.JWTValidator
}

func New(market Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return &Handler{market: market, logger: logger, validator: validator}
}

// Register mounts the marketplace routes. Reads are public; mutations require
// an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Get("/market/listings", h.handleActiveListings)
	r.Get("/market/listings/{id}", h.handleListing)
	r.Get("/market/next-id", h.handleNextID)
	r.Get("/market/sellers/{account}/listings", h.handleSellerListings)
	r.Get("/market/custody", h.handleCustody)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))
		r.Post("/market/listings", h.handleList)
		r.Post("/market/listings/{id}/cancel", h.handleCancel)
		r.Post("/market/listings/{id}/buy", h.handleBuy)
	})
}

type listRequest struct {
	Amount   int64 `json:"amount"`
	PriceWei int64 `json:"price_wei"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	listing, err := h.market.List(ctx, requestcontext.Actor(ctx), req.Amount, req.PriceWei)
	if err != nil {
		h.logger.WarnContext(ctx, "list failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, listing)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseListingID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.market.Cancel(ctx, requestcontext.Actor(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseListingID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.market.Buy(ctx, requestcontext.Actor(ctx), id); err != nil {
		h.logger.WarnContext(ctx, "buy failed",
			"request_id", middleware.GetRequestID(ctx),
			"listing_id", id,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseListingID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	listing, err := h.market.Listing(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleNextID(w http.ResponseWriter, r *http.Request) {
	next, err := h.market.NextID(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"next_id": next})
}

func (h *Handler) handleActiveListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.market.ActiveListings(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	shared.WriteJSON(w, http.StatusOK, listings)
}

func (h *Handler) handleSellerListings(w http.ResponseWriter, r *http.Request) {
	seller, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	listings, err := h.market.SellerListings(r.Context(), seller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	shared.WriteJSON(w, http.StatusOK, listings)
}

func (h *Handler) handleCustody(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"custody": h.market.Custody().String()})
}

func parseListingID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid listing id")
	}
	return id, nil
}
