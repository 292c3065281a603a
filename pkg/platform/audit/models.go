package audit

import (
	"time"

	"cac/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: KYC decisions, surrender audit records.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging, indexing and
	// operational visibility. Examples: transfers, listings, deposits.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It doubles as
// the materialized row downstream collaborators query instead of replaying
// history, so it carries the full operation payload.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Actor     domain.Address
	Action    string
	RequestID string

	// Account is the subject account when different from Actor (mint target,
	// KYC subject, transfer source).
	Account      domain.Address
	Counterparty domain.Address

	// Accounting payload. Amount is in whole credits, PriceWei/PaymentWei in
	// native-currency wei. Zero values mean "not applicable".
	Amount     int64
	PriceWei   int64
	PaymentWei int64
	ListingID  int64
	PeriodID   int64

	// Opaque references carried through, never dereferenced.
	EvidenceURI string
	VCHash      domain.Hash32
	Reason      string

	// Profile snapshot attached to surrender audit records so downstream
	// reporting never needs a second lookup.
	DisplayName string
	TaxIDHash   domain.Hash32
	MetadataURI string
}

// AuditEvent names every action the core emits.
type AuditEvent string

const (
	// Registry events.
	EventRegistered  AuditEvent = "registered"
	EventKycApproved AuditEvent = "kyc_approved"
	EventKycDecision AuditEvent = "kyc_decision"

	// Ledger events.
	EventMinted          AuditEvent = "minted"
	EventQuotaSet        AuditEvent = "quota_set"
	EventTransferred     AuditEvent = "transferred"
	EventApproved        AuditEvent = "allowance_approved"
	EventSurrendered     AuditEvent = "surrendered"
	EventSurrenderLogged AuditEvent = "surrender_logged"
	EventRegistrySet     AuditEvent = "registry_set"

	// Marketplace events.
	EventListed    AuditEvent = "listed"
	EventCancelled AuditEvent = "cancelled"
	EventPurchased AuditEvent = "purchased"

	// Payment vault events.
	EventDeposited AuditEvent = "deposited"
	EventWithdrawn AuditEvent = "withdrawn"

	// Role store events.
	EventRoleGranted AuditEvent = "role_granted"
	EventRoleRevoked AuditEvent = "role_revoked"
)

// eventCategories is the single source of truth for event routing.
var eventCategories = map[AuditEvent]EventCategory{
	EventRegistered:      CategoryCompliance,
	EventKycApproved:     CategoryCompliance,
	EventKycDecision:     CategoryCompliance,
	EventSurrendered:     CategoryCompliance,
	EventSurrenderLogged: CategoryCompliance,
	EventRoleGranted:     CategoryCompliance,
	EventRoleRevoked:     CategoryCompliance,

	EventMinted:      CategoryOperations,
	EventQuotaSet:    CategoryOperations,
	EventTransferred: CategoryOperations,
	EventApproved:    CategoryOperations,
	EventRegistrySet: CategoryOperations,
	EventListed:      CategoryOperations,
	EventCancelled:   CategoryOperations,
	EventPurchased:   CategoryOperations,
	EventDeposited:   CategoryOperations,
	EventWithdrawn:   CategoryOperations,
}

// Category returns the routing category for the event, defaulting to
// operations for unknown actions.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
