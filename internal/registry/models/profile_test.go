package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

var (
	account = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	taxHash = domain.Hash32("0x1111111111111111111111111111111111111111111111111111111111111111")
	now     = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
)

func TestNewProfile(t *testing.T) {
	t.Run("valid profile starts unapproved", func(t *testing.T) {
		p, err := NewProfile(account, taxHash, "ipfs://meta", "Farm A", now)
		require.NoError(t, err)
		assert.True(t, p.Exists)
		assert.False(t, p.KycApproved)
		assert.Equal(t, now, p.RegisteredAt)
	})

	t.Run("empty display name rejected", func(t *testing.T) {
		_, err := NewProfile(account, taxHash, "", "", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("display name over 128 chars rejected", func(t *testing.T) {
		_, err := NewProfile(account, taxHash, "", strings.Repeat("x", 129), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("length limit counts characters, not bytes", func(t *testing.T) {
		_, err := NewProfile(account, taxHash, "", strings.Repeat("ü", 128), now)
		assert.NoError(t, err)

		_, err = NewProfile(account, taxHash, "", strings.Repeat("ü", 129), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("zero tax id hash rejected", func(t *testing.T) {
		_, err := NewProfile(account, domain.ZeroHash, "", "Farm A", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestApplyRegistrationPreservesKyc(t *testing.T) {
	p, err := NewProfile(account, taxHash, "ipfs://meta", "Farm A", now)
	require.NoError(t, err)
	p.ApplyKycDecision(true, "", now)

	later := now.Add(time.Hour)
	p.ApplyRegistration(taxHash, "ipfs://meta2", "Farm A Renamed", later)

	assert.True(t, p.KycApproved)
	assert.Equal(t, "Farm A Renamed", p.DisplayName)
	assert.Equal(t, now, p.RegisteredAt)
	assert.Equal(t, later, p.UpdatedAt)
}

func TestApplyKycDecision(t *testing.T) {
	p, err := NewProfile(account, taxHash, "", "Farm A", now)
	require.NoError(t, err)

	p.ApplyKycDecision(false, "docs incomplete", now)
	assert.False(t, p.KycApproved)
	assert.Equal(t, "docs incomplete", p.KycNote)
	assert.False(t, p.IsCompliant())

	p.ApplyKycDecision(true, "", now)
	assert.True(t, p.KycApproved)
	assert.Empty(t, p.KycNote, "approval clears the standing note")
	assert.True(t, p.IsCompliant())
}
