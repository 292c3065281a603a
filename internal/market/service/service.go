// Package service implements the escrow marketplace. Credits under escrow
// live in a dedicated custody account on the ledger; every credit movement
// goes through the ledger's own gated entry points, never around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	mmetrics "cac/internal/market/metrics"
	"cac/internal/market/models"
	"cac/internal/market/store"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	"cac/pkg/platform/sentinel"
	"cac/pkg/requestcontext"
)

// Ledger is the credit-moving dependency. Both calls apply the ledger's own
// compliance gating and allowance accounting.
type Ledger interface {
	Transfer(ctx context.Context, actor, to domain.Address, amount int64) error
	TransferFrom(ctx context.Context, actor, from, to domain.Address, amount int64) error
}

// Payments settles native-currency legs of a trade.
type Payments interface {
	Pay(ctx context.Context, payer, payee domain.Address, wei int64) error
}

// Registry answers registration checks for sellers and buyers.
type Registry interface {
	IsRegistered(ctx context.Context, account domain.Address) (bool, error)
}

// AuditPublisher emits audit events for listing lifecycle transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives the listing state machine. All mutating calls serialize
// through one mutex, so a settlement commits in full before the next call
// observes anything; there is no window for a cancelled or purchased listing
// to be settled twice.
type Service struct {
	mu       sync.Mutex
	listings store.Store
	ledger   Ledger
	payments Payments
	registry Registry
	custody  domain.Address
	audit    AuditPublisher
	logger   *slog.Logger
	metrics  *mmetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *mmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(listings store.Store, ledger Ledger, payments Payments, registry Registry, custody domain.Address, opts ...Option) (*Service, error) {
	if listings == nil {
		return nil, fmt.Errorf("listing store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment service is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if custody.IsZero() {
		return nil, fmt.Errorf("custody address is required")
	}
	svc := &Service{
		listings: listings,
		ledger:   ledger,
		payments: payments,
		registry: registry,
		custody:  custody,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Custody returns the escrow custody address.
func (s *Service) Custody() domain.Address {
	return s.custody
}

// List escrows amount credits from the caller and creates an active listing.
// The caller must be registered and must have approved the custody address
// for at least amount beforehand; the explicit two-step keeps custodial
// pulls bounded.
func (s *Service) List(ctx context.Context, actor domain.Address, amount, priceWei int64) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registered, err := s.registry.IsRegistered(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "seller is not registered")
	}

	listing, err := models.NewListing(actor, amount, priceWei, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	// Escrow pull: custody spends the seller's allowance into itself.
	if err := s.ledger.TransferFrom(ctx, s.custody, actor, s.custody, amount); err != nil {
		return nil, err
	}

	if _, err := s.listings.Create(ctx, listing); err != nil {
		if refundErr := s.ledger.Transfer(ctx, s.custody, actor, amount); refundErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to refund escrow after listing store failure",
				"seller", actor,
				"amount", amount,
				"error", refundErr,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store listing")
	}

	s.emit(ctx, audit.Event{
		Actor:     actor,
		Account:   actor,
		Action:    string(audit.EventListed),
		Amount:    amount,
		PriceWei:  priceWei,
		ListingID: listing.ID,
	})
	if s.metrics != nil {
		s.metrics.ListingsTotal.WithLabelValues("listed").Inc()
	}
	return listing, nil
}

// Cancel returns the escrowed credits to the seller and retires the listing.
// Seller-only, active listings only. The release runs before the terminal
// flip for the same reason as in Buy: a failed release must leave the
// listing cancellable, never cancelled with the credits stranded in custody.
func (s *Service) Cancel(ctx context.Context, actor domain.Address, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !listing.Active() {
		return dErrors.New(dErrors.CodeNotActive, "listing is not active")
	}
	if listing.Seller != actor {
		return dErrors.New(dErrors.CodeNotSeller, "only the seller may cancel")
	}

	if err := s.ledger.Transfer(ctx, s.custody, actor, listing.Amount); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to release escrow on cancel",
				"listing_id", id,
				"seller", actor,
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release escrow")
	}

	now := requestcontext.Now(ctx)
	if err := s.listings.Execute(ctx, id, func(l *models.Listing) error {
		return l.Cancel(now)
	}); err != nil {
		s.reescrow(ctx, actor, listing.Amount)
		return wrapListingErr(err)
	}

	s.emit(ctx, audit.Event{
		Actor:     actor,
		Account:   actor,
		Action:    string(audit.EventCancelled),
		Amount:    listing.Amount,
		ListingID: id,
	})
	if s.metrics != nil {
		s.metrics.ListingsTotal.WithLabelValues("cancelled").Inc()
	}
	return nil
}

// Buy settles an active listing: the buyer's vault pays priceWei to the
// seller and the escrowed credits move from custody to the buyer. Exactly
// priceWei is debited, so there is never an excess to refund. The buyer must
// be registered to receive credits.
//
// Settlement order is payment, then credit release, then terminal flip. The
// release is the fallible leg (it passes the ledger's compliance gate), so
// it runs before anything irreversible: a failed release refunds the payment
// and leaves the listing purchasable, and a failed flip unwinds both legs.
// The service mutex serializes settlements, so no second buy or cancel can
// observe the listing between those steps.
func (s *Service) Buy(ctx context.Context, actor domain.Address, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !listing.Active() {
		return dErrors.New(dErrors.CodeNotActive, "listing is not active")
	}

	registered, err := s.registry.IsRegistered(ctx, actor)
	if err != nil {
		return err
	}
	if !registered {
		return dErrors.New(dErrors.CodeNotRegistered, "buyer is not registered")
	}

	if listing.PriceWei > 0 {
		if err := s.payments.Pay(ctx, actor, listing.Seller, listing.PriceWei); err != nil {
			return err
		}
	}

	if err := s.ledger.Transfer(ctx, s.custody, actor, listing.Amount); err != nil {
		s.compensatePayment(ctx, listing, actor)
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to release escrow on buy",
				"listing_id", id,
				"buyer", actor,
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release escrow")
	}

	now := requestcontext.Now(ctx)
	if err := s.listings.Execute(ctx, id, func(l *models.Listing) error {
		return l.Purchase(now)
	}); err != nil {
		s.reescrow(ctx, actor, listing.Amount)
		s.compensatePayment(ctx, listing, actor)
		return wrapListingErr(err)
	}

	s.emit(ctx, audit.Event{
		Actor:        actor,
		Account:      actor,
		Counterparty: listing.Seller,
		Action:       string(audit.EventPurchased),
		Amount:       listing.Amount,
		PriceWei:     listing.PriceWei,
		PaymentWei:   listing.PriceWei,
		ListingID:    id,
	})
	if s.metrics != nil {
		s.metrics.ListingsTotal.WithLabelValues("purchased").Inc()
		s.metrics.TradeVolumeWei.Add(float64(listing.PriceWei))
		s.metrics.TradeVolumeCredits.Add(float64(listing.Amount))
	}
	return nil
}

// Listing returns the listing with id, any state.
func (s *Service) Listing(ctx context.Context, id int64) (*models.Listing, error) {
	return s.get(ctx, id)
}

// NextID returns the id the next listing will receive.
func (s *Service) NextID(ctx context.Context) (int64, error) {
	return s.listings.NextID(ctx)
}

// ActiveListings returns all listings still open for purchase.
func (s *Service) ActiveListings(ctx context.Context) ([]*models.Listing, error) {
	return s.listings.Active(ctx)
}

// SellerListings returns all of a seller's listings, any state.
func (s *Service) SellerListings(ctx context.Context, seller domain.Address) ([]*models.Listing, error) {
	return s.listings.BySeller(ctx, seller)
}

func (s *Service) get(ctx context.Context, id int64) (*models.Listing, error) {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, wrapListingErr(err)
	}
	return listing, nil
}

// reescrow returns released credits to custody after the listing record
// could not be updated. Best effort: a failure is logged and the caller
// surfaces its own error.
func (s *Service) reescrow(ctx context.Context, from domain.Address, amount int64) {
	if err := s.ledger.Transfer(ctx, from, s.custody, amount); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to re-escrow credits after settlement failure",
			"account", from,
			"amount", amount,
			"error", err,
		)
	}
}

func (s *Service) compensatePayment(ctx context.Context, listing *models.Listing, buyer domain.Address) {
	if listing.PriceWei <= 0 {
		return
	}
	if err := s.payments.Pay(ctx, listing.Seller, buyer, listing.PriceWei); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to refund payment after settlement failure",
			"listing_id", listing.ID,
			"buyer", buyer,
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit market audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func wrapListingErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "listing does not exist")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "listing store failure")
}
