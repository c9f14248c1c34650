package vault

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pooltogether/swappable-yield-source/domain"
)

// YieldSource is the backend-agnostic port for custodying and growing pooled
// deposits. Implementations include lending-market adapters, staking
// adapters, or the in-memory mock. The SwappableVault talks ONLY to this
// interface — never to a specific protocol directly — which is what makes the
// backend swappable at runtime.
//
// Amounts are integer base units of the deposit token. Callers identify
// themselves explicitly: there is no ambient notion of a message sender here,
// so the holder/caller address is always a parameter.
type YieldSource interface {
	// Address returns the adapter's own identity. The vault uses it for
	// same-backend checks, for the receipt-token sweep guard, and in
	// emitted notifications.
	Address() domain.Address

	// DepositToken returns the address of the token this yield source
	// accepts. It MUST be stable for the adapter's lifetime. A replacement
	// backend that fails this probe, or answers with a zero address, is
	// rejected as invalid during migration.
	DepositToken(ctx context.Context) (domain.Address, error)

	// BalanceOfToken returns the current redeemable value credited to
	// holder, denominated in the deposit token. For an interest-bearing
	// backend this grows continuously and independently of share supply.
	BalanceOfToken(ctx context.Context, holder domain.Address) (decimal.Decimal, error)

	// SupplyTokenTo pulls amount of the deposit token from `from` (which
	// must have approved the adapter beforehand) and credits beneficiary.
	SupplyTokenTo(ctx context.Context, from domain.Address, amount decimal.Decimal, beneficiary domain.Address) error

	// RedeemToken redeems amount of the caller's credited value, transfers
	// the proceeds back to the caller, and returns the amount it claims to
	// have transferred. The vault cross-checks that claim against its own
	// observed balance delta.
	RedeemToken(ctx context.Context, caller domain.Address, amount decimal.Decimal) (decimal.Decimal, error)
}

// ERC20 is the transfer primitive for a single fungible token, with standard
// balance/allowance semantics. The spender on TransferFrom must have been
// approved by `from` for at least the requested amount.
type ERC20 interface {
	BalanceOf(ctx context.Context, holder domain.Address) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to domain.Address, amount decimal.Decimal) error
	Approve(ctx context.Context, owner, spender domain.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, from, to domain.Address, amount decimal.Decimal) error
}

// TokenResolver resolves a token address to its transfer primitive. The
// vault resolves its fixed deposit token once at construction and arbitrary
// tokens on demand for the incidental asset sweep.
type TokenResolver interface {
	ERC20(token domain.Address) (ERC20, error)
}

// AccessControl is the capability check gating privileged vault operations.
// The default implementation is an owner plus an optional asset manager;
// consumers with their own access-control system inject theirs instead.
type AccessControl interface {
	IsOwnerOrManager(caller domain.Address) bool
}
