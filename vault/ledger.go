package vault

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"

	"github.com/pooltogether/swappable-yield-source/domain"
)

// Ledger is the mutable-supply share token: per-holder balances, allowances,
// and the aggregate supply. The sum of all balances equals the total supply
// at all times; every mutation preserves that.
//
// The ledger is not safe for concurrent use on its own — the vault serializes
// access to it.
type Ledger struct {
	meta       domain.TokenMetadata
	total      decimal.Decimal
	balances   map[domain.Address]decimal.Decimal
	allowances map[domain.Address]map[domain.Address]decimal.Decimal
}

// NewLedger creates an empty share ledger with fixed descriptive metadata.
func NewLedger(meta domain.TokenMetadata) *Ledger {
	return &Ledger{
		meta:       meta,
		total:      decimal.Zero,
		balances:   make(map[domain.Address]decimal.Decimal),
		allowances: make(map[domain.Address]map[domain.Address]decimal.Decimal),
	}
}

// Metadata returns the share token's name, symbol, and decimals.
func (l *Ledger) Metadata() domain.TokenMetadata { return l.meta }

// TotalSupply returns the aggregate of all minted minus burned shares.
func (l *Ledger) TotalSupply() decimal.Decimal { return l.total }

// BalanceOf returns holder's share balance. A holder that never received
// shares has an implicit zero balance.
func (l *Ledger) BalanceOf(holder domain.Address) decimal.Decimal {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return decimal.Zero
}

// Accounts returns every address that has ever held shares, including those
// back at zero.
func (l *Ledger) Accounts() []domain.Address {
	return maps.Keys(l.balances)
}

// Allowance returns the amount spender may transfer out of owner's balance.
func (l *Ledger) Allowance(owner, spender domain.Address) decimal.Decimal {
	if a, ok := l.allowances[owner][spender]; ok {
		return a
	}
	return decimal.Zero
}

// Mint credits amount shares to `to` and grows the total supply.
func (l *Ledger) Mint(to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "mint")
	}
	l.balances[to] = l.BalanceOf(to).Add(amount)
	l.total = l.total.Add(amount)
	return nil
}

// Burn debits amount shares from `from` and shrinks the total supply.
func (l *Ledger) Burn(from domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "burn")
	}
	balance := l.BalanceOf(from)
	if balance.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientShares, "burn %s from %s holding %s", amount, from, balance)
	}
	l.balances[from] = balance.Sub(amount)
	l.total = l.total.Sub(amount)
	return nil
}

// Transfer moves amount shares between holders. The total supply is
// untouched.
func (l *Ledger) Transfer(from, to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "transfer")
	}
	balance := l.BalanceOf(from)
	if balance.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientShares, "transfer %s from %s holding %s", amount, from, balance)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.BalanceOf(to).Add(amount)
	return nil
}

// Approve sets spender's allowance over owner's balance, replacing any
// previous allowance.
func (l *Ledger) Approve(owner, spender domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "approve")
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[domain.Address]decimal.Decimal)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// TransferFrom moves amount shares from `from` to `to` on spender's
// authority, consuming spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "transfer from")
	}
	allowance := l.Allowance(from, spender)
	if allowance.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientAllowance, "spender %s allowed %s of %s", spender, allowance, amount)
	}
	if err := l.Transfer(from, to, amount); err != nil {
		return err
	}
	if l.allowances[from] == nil {
		l.allowances[from] = make(map[domain.Address]decimal.Decimal)
	}
	l.allowances[from][spender] = allowance.Sub(amount)
	return nil
}
