package mock

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/pooltogether/swappable-yield-source/domain"
	"github.com/pooltogether/swappable-yield-source/vault"
)

// ERC20Token implements vault.ERC20 in memory for testing and demos.
// An optional flat transfer fee makes it behave like a fee-on-transfer
// token: the sender is debited the full amount, the recipient is credited
// amount minus fee. Fee-exempt addresses move funds without deduction.
type ERC20Token struct {
	mu         sync.RWMutex
	meta       domain.TokenMetadata
	fee        decimal.Decimal
	feeExempt  map[domain.Address]bool
	balances   map[domain.Address]decimal.Decimal
	allowances map[domain.Address]map[domain.Address]decimal.Decimal
}

// NewERC20Token creates an empty in-memory token ledger.
func NewERC20Token(meta domain.TokenMetadata) *ERC20Token {
	return &ERC20Token{
		meta:       meta,
		fee:        decimal.Zero,
		feeExempt:  make(map[domain.Address]bool),
		balances:   make(map[domain.Address]decimal.Decimal),
		allowances: make(map[domain.Address]map[domain.Address]decimal.Decimal),
	}
}

// SetTransferFee configures the flat fee deducted from every non-exempt
// transfer (e.g., to test that minted shares track received, not requested,
// amounts).
func (t *ERC20Token) SetTransferFee(fee decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fee = fee
}

// SetFeeExempt marks an address whose transfers (in either direction) skip
// the fee, mirroring real fee-on-transfer tokens that whitelist protocol
// contracts.
func (t *ERC20Token) SetFeeExempt(addr domain.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feeExempt[addr] = true
}

// SimulateMint is a test helper that conjures balance for an address.
func (t *ERC20Token) SimulateMint(to domain.Address, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = t.balance(to).Add(amount)
}

// BalanceOf returns holder's balance.
func (t *ERC20Token) BalanceOf(_ context.Context, holder domain.Address) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance(holder), nil
}

// Transfer moves amount from `from` to `to`, applying the fee unless either
// side is exempt.
func (t *ERC20Token) Transfer(_ context.Context, from, to domain.Address, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(from, to, amount)
}

// Approve sets spender's allowance over owner's balance.
func (t *ERC20Token) Approve(_ context.Context, owner, spender domain.Address, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount.IsNegative() {
		return errors.Errorf("approve negative amount %s", amount)
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[domain.Address]decimal.Decimal)
	}
	t.allowances[owner][spender] = amount
	return nil
}

// TransferFrom moves amount on spender's allowance.
func (t *ERC20Token) TransferFrom(_ context.Context, spender, from, to domain.Address, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance := decimal.Zero
	if a, ok := t.allowances[from][spender]; ok {
		allowance = a
	}
	if allowance.LessThan(amount) {
		return errors.Errorf("spender %s allowed %s of %s", spender, allowance, amount)
	}
	if err := t.transfer(from, to, amount); err != nil {
		return err
	}
	if t.allowances[from] == nil {
		t.allowances[from] = make(map[domain.Address]decimal.Decimal)
	}
	t.allowances[from][spender] = allowance.Sub(amount)
	return nil
}

func (t *ERC20Token) balance(holder domain.Address) decimal.Decimal {
	if b, ok := t.balances[holder]; ok {
		return b
	}
	return decimal.Zero
}

func (t *ERC20Token) transfer(from, to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("transfer negative amount %s", amount)
	}
	balance := t.balance(from)
	if balance.LessThan(amount) {
		return errors.Errorf("%s holds %s, cannot transfer %s", from, balance, amount)
	}
	credited := amount
	if !t.fee.IsZero() && !t.feeExempt[from] && !t.feeExempt[to] {
		credited = amount.Sub(t.fee)
		if credited.IsNegative() {
			credited = decimal.Zero
		}
	}
	t.balances[from] = balance.Sub(amount)
	t.balances[to] = t.balance(to).Add(credited)
	return nil
}

// TokenBank implements vault.TokenResolver over a registry of in-memory
// tokens.
type TokenBank struct {
	mu     sync.RWMutex
	tokens map[domain.Address]*ERC20Token
}

// NewTokenBank creates an empty registry.
func NewTokenBank() *TokenBank {
	return &TokenBank{tokens: make(map[domain.Address]*ERC20Token)}
}

// CreateToken registers a fresh token under addr and returns it.
func (b *TokenBank) CreateToken(addr domain.Address, meta domain.TokenMetadata) *ERC20Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := NewERC20Token(meta)
	b.tokens[addr] = token
	return token
}

// ERC20 resolves a registered token.
func (b *TokenBank) ERC20(token domain.Address) (vault.ERC20, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[token]
	if !ok {
		return nil, errors.Errorf("unknown token %s", token)
	}
	return t, nil
}
