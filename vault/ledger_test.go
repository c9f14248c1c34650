package vault_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pooltogether/swappable-yield-source/domain"
	"github.com/pooltogether/swappable-yield-source/vault"
)

const (
	alice = domain.Address("alice")
	bob   = domain.Address("bob")
	carol = domain.Address("carol")
)

func newLedger() *vault.Ledger {
	return vault.NewLedger(domain.TokenMetadata{Name: "Vault Share", Symbol: "vSHR", Decimals: 18})
}

// requireConserved asserts the ledger invariant: the sum of all balances
// equals the total supply.
func requireConserved(t *testing.T, l *vault.Ledger) {
	t.Helper()
	sum := decimal.Zero
	for _, account := range l.Accounts() {
		sum = sum.Add(l.BalanceOf(account))
	}
	require.True(t, sum.Equal(l.TotalSupply()),
		"balances sum to %s, total supply is %s", sum, l.TotalSupply())
}

func TestLedgerConservation(t *testing.T) {
	l := newLedger()

	steps := []func() error{
		func() error { return l.Mint(alice, d(100)) },
		func() error { return l.Mint(bob, d(40)) },
		func() error { return l.Transfer(alice, carol, d(25)) },
		func() error { return l.Burn(bob, d(10)) },
		func() error { return l.Transfer(carol, bob, d(25)) },
		func() error { return l.Burn(alice, d(75)) },
		func() error { return l.Mint(carol, d(1)) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		requireConserved(t, l)
	}

	require.True(t, l.TotalSupply().Equal(d(56)))
	require.True(t, l.BalanceOf(alice).IsZero())
	require.True(t, l.BalanceOf(bob).Equal(d(55)))
	require.True(t, l.BalanceOf(carol).Equal(d(1)))
}

func TestLedgerBurnInsufficient(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Mint(alice, d(10)))

	err := l.Burn(alice, d(11))
	require.ErrorIs(t, err, vault.ErrInsufficientShares)
	require.True(t, l.BalanceOf(alice).Equal(d(10)))
	requireConserved(t, l)
}

func TestLedgerTransferInsufficient(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Mint(alice, d(10)))

	err := l.Transfer(alice, bob, d(11))
	require.ErrorIs(t, err, vault.ErrInsufficientShares)
	require.True(t, l.BalanceOf(bob).IsZero())
}

func TestLedgerNegativeAmounts(t *testing.T) {
	l := newLedger()
	require.ErrorIs(t, l.Mint(alice, d(-1)), vault.ErrNegativeAmount)
	require.ErrorIs(t, l.Burn(alice, d(-1)), vault.ErrNegativeAmount)
	require.ErrorIs(t, l.Transfer(alice, bob, d(-1)), vault.ErrNegativeAmount)
	require.ErrorIs(t, l.Approve(alice, bob, d(-1)), vault.ErrNegativeAmount)
}

func TestLedgerZeroBalanceIsTerminal(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Mint(alice, d(5)))
	require.NoError(t, l.Burn(alice, d(5)))

	// The entry survives at zero and can be used again.
	require.Contains(t, l.Accounts(), alice)
	require.NoError(t, l.Mint(alice, d(3)))
	require.True(t, l.BalanceOf(alice).Equal(d(3)))
}

func TestLedgerAllowance(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Mint(alice, d(100)))
	require.NoError(t, l.Approve(alice, bob, d(30)))
	require.True(t, l.Allowance(alice, bob).Equal(d(30)))

	require.NoError(t, l.TransferFrom(bob, alice, carol, d(20)))
	require.True(t, l.BalanceOf(carol).Equal(d(20)))
	require.True(t, l.Allowance(alice, bob).Equal(d(10)))
	requireConserved(t, l)

	err := l.TransferFrom(bob, alice, carol, d(11))
	require.ErrorIs(t, err, vault.ErrInsufficientAllowance)
}
