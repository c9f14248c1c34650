package vault

import "github.com/pkg/errors"

// Validation errors: the caller's fault, fully recoverable by the caller.
var (
	// ErrNotAuthorized is returned when a privileged operation is invoked by
	// a caller that is neither the owner nor the asset manager.
	ErrNotAuthorized = errors.New("caller is not owner or asset manager")

	// ErrNegativeAmount is returned when any operation receives a negative
	// token or share amount.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInsufficientShares is returned by burns and transfers that exceed
	// the holder's share balance.
	ErrInsufficientShares = errors.New("insufficient share balance")

	// ErrInsufficientAllowance is returned when a delegated share transfer
	// exceeds the spender's approved allowance.
	ErrInsufficientAllowance = errors.New("insufficient share allowance")

	// ErrInvalidBackend is returned when a replacement yield source is nil,
	// has a zero address, or does not answer its deposit-token probe.
	ErrInvalidBackend = errors.New("invalid yield source")

	// ErrSameBackend is returned when the replacement yield source is the
	// one already active.
	ErrSameBackend = errors.New("yield source is already set")

	// ErrIncompatibleDepositToken is returned when a replacement yield
	// source reports a deposit token different from the vault's.
	ErrIncompatibleDepositToken = errors.New("yield source deposit token mismatch")

	// ErrYieldSourceTokenTransferNotAllowed is returned when the incidental
	// asset sweep targets the active yield source's own receipt token.
	ErrYieldSourceTokenTransferNotAllowed = errors.New("yield source token transfer not allowed")
)

// Invariant-violation errors: a misbehaving backend or a degenerate rate.
// Operations that hit one of these abort and restore all prior state.
var (
	// ErrSharesMustBeNonZero is returned when a nonzero deposit converts to
	// zero shares (extreme rate divergence, see TokenToShares).
	ErrSharesMustBeNonZero = errors.New("shares must be greater than zero")

	// ErrRedeemAmountMismatch is returned when the amount a yield source
	// reports as redeemed differs from the amount the vault actually
	// received. A backend charging an undisclosed exit fee trips this.
	ErrRedeemAmountMismatch = errors.New("redeemed amount does not match received amount")

	// ErrTransferAmountInferior is returned during fund migration when the
	// vault receives less than the old yield source claims to have redeemed.
	ErrTransferAmountInferior = errors.New("received less than reported redeemed amount")

	// ErrBackendBalanceZero is returned when shares are outstanding but the
	// active yield source reports a zero balance, which leaves the exchange
	// rate undefined.
	ErrBackendBalanceZero = errors.New("yield source balance is zero with outstanding shares")
)
