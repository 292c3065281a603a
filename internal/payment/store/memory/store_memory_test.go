package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/testutil"
)

const (
	payer = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	payee = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestVaultBalances(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Credit(ctx, payer, 100))
	require.NoError(t, store.Debit(ctx, payer, 40))

	balance, err := store.BalanceOf(ctx, payer)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	err = store.Debit(ctx, payer, 61)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientPayment))
}

func TestVaultTransfer(t *testing.T) {
	ctx := context.Background()
	store := New()

	testutil.Given(t, "a payer funded with 100 wei", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, payer, 100))
	})
	testutil.When(t, "70 wei moves to the payee", func(t *testing.T) {
		require.NoError(t, store.Transfer(ctx, payer, payee, 70))
	})
	testutil.Then(t, "balances reflect the transfer and overdrafts fail", func(t *testing.T) {
		from, _ := store.BalanceOf(ctx, payer)
		to, _ := store.BalanceOf(ctx, payee)
		assert.Equal(t, int64(30), from)
		assert.Equal(t, int64(70), to)

		err := store.Transfer(ctx, payer, payee, 31)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientPayment))
	})
}

func TestVaultRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	store := New()

	for _, wei := range []int64{0, -1} {
		assert.True(t, dErrors.HasCode(store.Credit(ctx, payer, wei), dErrors.CodeInvalidAmount))
		assert.True(t, dErrors.HasCode(store.Debit(ctx, payer, wei), dErrors.CodeInvalidAmount))
		assert.True(t, dErrors.HasCode(store.Transfer(ctx, payer, payee, wei), dErrors.CodeInvalidAmount))
	}
}
