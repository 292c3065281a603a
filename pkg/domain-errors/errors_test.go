package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store failure")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "store failure")
}

func TestHasCode(t *testing.T) {
	err := New(CodeNotCompliant, "account is not KYC approved")
	assert.True(t, HasCode(err, CodeNotCompliant))
	assert.False(t, HasCode(err, CodeNotRegistered))

	wrapped := fmt.Errorf("calling ledger: %w", err)
	assert.True(t, HasCode(wrapped, CodeNotCompliant))

	assert.False(t, HasCode(errors.New("plain"), CodeNotCompliant))
	assert.False(t, HasCode(nil, CodeNotCompliant))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeInvalidAmount, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeNotRegistered, http.StatusForbidden},
		{CodeNotCompliant, http.StatusForbidden},
		{CodeInsufficientBalance, http.StatusUnprocessableEntity},
		{CodeInsufficientAllowance, http.StatusUnprocessableEntity},
		{CodeQuotaExceeded, http.StatusUnprocessableEntity},
		{CodeNotActive, http.StatusConflict},
		{CodeNotSeller, http.StatusForbidden},
		{CodeInsufficientPayment, http.StatusUnprocessableEntity},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.code))
		})
	}
}
