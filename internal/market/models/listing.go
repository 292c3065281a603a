// Package models defines the marketplace listing and its lifecycle.
package models

import (
	"time"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// Status is the listing lifecycle state. Created is the only non-terminal
// state; a listing never leaves Cancelled or Purchased.
type Status string

const (
	StatusCreated   Status = "created"
	StatusCancelled Status = "cancelled"
	StatusPurchased Status = "purchased"
)

// Listing is an escrowed sell order. IDs are assigned by the store,
// monotonically increasing from 0; an id is never reused or reactivated.
type Listing struct {
	ID        int64          `json:"id"`
	Seller    domain.Address `json:"seller"`
	Amount    int64          `json:"amount"`
	PriceWei  int64          `json:"price_wei"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	ClosedAt  *time.Time     `json:"closed_at,omitempty"`
}

// NewListing validates and builds a listing in the Created state. The id is
// assigned on insert.
func NewListing(seller domain.Address, amount, priceWei int64, now time.Time) (*Listing, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "listing amount must be positive")
	}
	if priceWei < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "listing price cannot be negative")
	}
	return &Listing{
		Seller:    seller,
		Amount:    amount,
		PriceWei:  priceWei,
		Status:    StatusCreated,
		CreatedAt: now,
	}, nil
}

// Active reports whether the listing can still be cancelled or bought.
func (l *Listing) Active() bool {
	return l.Status == StatusCreated
}

// Cancel transitions Created → Cancelled.
func (l *Listing) Cancel(now time.Time) error {
	if !l.Active() {
		return dErrors.New(dErrors.CodeNotActive, "listing is not active")
	}
	l.Status = StatusCancelled
	l.ClosedAt = &now
	return nil
}

// Purchase transitions Created → Purchased.
func (l *Listing) Purchase(now time.Time) error {
	if !l.Active() {
		return dErrors.New(dErrors.CodeNotActive, "listing is not active")
	}
	l.Status = StatusPurchased
	l.ClosedAt = &now
	return nil
}
