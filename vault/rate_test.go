package vault_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pooltogether/swappable-yield-source/vault"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestTokenToSharesBootstrap(t *testing.T) {
	// First depositor sets a 1:1 rate regardless of backend balance.
	shares, err := vault.TokenToShares(d(100), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.True(t, shares.Equal(d(100)))

	shares, err = vault.TokenToShares(d(100), decimal.Zero, d(999))
	require.NoError(t, err)
	require.True(t, shares.Equal(d(100)))
}

func TestTokenToSharesProRata(t *testing.T) {
	// 100 tokens into a pool of 100 shares backed by 300 tokens:
	// 100 * 100 / 300 = 33, floored.
	shares, err := vault.TokenToShares(d(100), d(100), d(300))
	require.NoError(t, err)
	require.True(t, shares.Equal(d(33)), "got %s", shares)
}

func TestTokenToSharesZeroAmount(t *testing.T) {
	// Zero in, zero out, and no division happens: a zero backend balance
	// must not matter here.
	shares, err := vault.TokenToShares(decimal.Zero, d(5), decimal.Zero)
	require.NoError(t, err)
	require.True(t, shares.IsZero())

	tokens, err := vault.SharesToToken(decimal.Zero, d(5), decimal.Zero)
	require.NoError(t, err)
	require.True(t, tokens.IsZero())
}

func TestTokenToSharesZeroBackendBalance(t *testing.T) {
	_, err := vault.TokenToShares(d(10), d(5), decimal.Zero)
	require.ErrorIs(t, err, vault.ErrBackendBalanceZero)
}

func TestSharesToTokenBootstrap(t *testing.T) {
	tokens, err := vault.SharesToToken(d(42), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.True(t, tokens.Equal(d(42)))
}

func TestSharesToTokenProRata(t *testing.T) {
	tokens, err := vault.SharesToToken(d(100), d(300), d(300))
	require.NoError(t, err)
	require.True(t, tokens.Equal(d(100)))

	tokens, err = vault.SharesToToken(d(100), d(100), d(300))
	require.NoError(t, err)
	require.True(t, tokens.Equal(d(300)))
}

func TestRoundTripNeverGains(t *testing.T) {
	// tokenToShares(sharesToToken(x)) <= x: floor rounding leaks value on
	// round trips but must never manufacture it.
	totals := []struct{ shares, balance int64 }{
		{100, 300},
		{300, 100},
		{7, 13},
		{1_000_000, 999_999},
		{3, 1_000_000_007},
	}
	for _, tt := range totals {
		for _, x := range []int64{1, 2, 10, 99, 12345} {
			tokens, err := vault.SharesToToken(d(x), d(tt.shares), d(tt.balance))
			require.NoError(t, err)
			back, err := vault.TokenToShares(tokens, d(tt.shares), d(tt.balance))
			require.NoError(t, err)
			require.True(t, back.LessThanOrEqual(d(x)),
				"round trip grew %d -> %s with totals %+v", x, back, tt)
		}
	}
}

func TestMantissaImplosion(t *testing.T) {
	// When the backend balance diverges past totalShares * 1e18 the rate
	// mantissa floors to zero and a nonzero deposit converts to zero
	// shares. The conversion reports it; minting callers must reject it.
	hugeBalance := decimal.New(1, 20).Add(d(100)) // > 100 * 1e18
	shares, err := vault.TokenToShares(d(50), d(100), hugeBalance)
	require.NoError(t, err)
	require.True(t, shares.IsZero())
}
