package models

import (
	"time"
	"unicode/utf8"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// Profile is the compliance record for one account.
//
// Invariants:
//   - Exists is true for every account that ever registered; profiles are
//     never deleted, only re-approved or re-rejected
//   - DisplayName is non-empty and at most 128 characters
//   - TaxIDHash is a well-formed 32-byte digest
//   - KycNote is non-empty only while KycApproved is false and an operator
//     left a reason
//
// Re-registration overwrites the self-service fields but preserves the
// standing KYC decision: the operator's decision is about the legal entity,
// not the metadata blob, and letting a registrant clear their own rejection
// note by re-registering would defeat the review. A fresh review is forced
// by the operator via RejectKyc.
type Profile struct {
	Account     domain.Address `json:"account"`
	DisplayName string         `json:"display_name"`
	TaxIDHash   domain.Hash32  `json:"tax_id_hash"`
	MetadataURI string         `json:"metadata_uri"`
	DocsURI     string         `json:"docs_uri"`
	KycApproved bool           `json:"kyc_approved"`
	KycNote     string         `json:"kyc_note,omitempty"`
	Exists      bool           `json:"exists"`

	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewProfile validates and constructs a fresh profile. KYC starts unapproved.
func NewProfile(account domain.Address, taxIDHash domain.Hash32, metadataURI, displayName string, now time.Time) (*Profile, error) {
	if account.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if utf8.RuneCountInString(displayName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 128 characters or less")
	}
	if taxIDHash.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tax id hash is required")
	}
	return &Profile{
		Account:      account,
		DisplayName:  displayName,
		TaxIDHash:    taxIDHash,
		MetadataURI:  metadataURI,
		Exists:       true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// ApplyRegistration overwrites the self-service fields on re-registration,
// keeping the KYC decision and the original registration time.
func (p *Profile) ApplyRegistration(taxIDHash domain.Hash32, metadataURI, displayName string, now time.Time) {
	p.DisplayName = displayName
	p.TaxIDHash = taxIDHash
	p.MetadataURI = metadataURI
	p.UpdatedAt = now
}

// ApplyKycDecision records an operator decision. Approval clears the note;
// rejection stores the operator's reason.
func (p *Profile) ApplyKycDecision(approved bool, note string, now time.Time) {
	p.KycApproved = approved
	if approved {
		p.KycNote = ""
	} else {
		p.KycNote = note
	}
	p.UpdatedAt = now
}

// IsCompliant reports whether the account may move or retire credits.
func (p *Profile) IsCompliant() bool {
	return p.Exists && p.KycApproved
}
