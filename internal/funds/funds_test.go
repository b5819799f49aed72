package funds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/pkg/domain"
)

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	owner := domain.MustOwnerAddress("0xf8d6e0586b0a20c7")

	t.Run("withdraw and deposit round trip", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		ledger.Credit(owner, domain.AmountFromDeci(1000))

		require.NoError(t, ledger.Withdraw(ctx, owner, domain.AmountFromDeci(300)))
		assert.Equal(t, domain.AmountFromDeci(700), ledger.Balance(owner))

		require.NoError(t, ledger.Deposit(ctx, owner, domain.AmountFromDeci(300)))
		assert.Equal(t, domain.AmountFromDeci(1000), ledger.Balance(owner))
	})

	t.Run("withdraw beyond balance fails without change", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		ledger.Credit(owner, domain.AmountFromDeci(100))

		err := ledger.Withdraw(ctx, owner, domain.AmountFromDeci(101))
		require.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, domain.AmountFromDeci(100), ledger.Balance(owner))
	})

	t.Run("unknown owner has zero balance", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		err := ledger.Withdraw(ctx, owner, domain.AmountFromDeci(1))
		require.ErrorIs(t, err, ErrInsufficientFunds)
	})
}
