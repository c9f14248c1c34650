package vault

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pooltogether/swappable-yield-source/domain"
)

// SwappableVault deposits pooled funds into a pluggable yield source and
// tracks depositor claims on that backend's value through a mutable-supply
// share ledger. The yield source can be swapped at runtime: the full pooled
// value is redeemed from the old backend and resupplied to the new one in a
// single serialized operation.
//
// Every operation runs under one mutex, so vault state never interleaves
// across goroutines. Against re-entrant backends the defense is ordering:
// ledger burns land before any external call, so a call that re-enters
// observes already-updated balances and cannot double-spend shares. Steps
// that fail after an earlier external side effect carry explicit
// compensating actions, since no surrounding platform rolls them back.
type SwappableVault struct {
	mu sync.Mutex

	addr         domain.Address
	depositToken domain.Address
	tokens       TokenResolver
	token        ERC20
	source       YieldSource
	ledger       *Ledger
	roles        *Roles
	access       AccessControl
	listener     func(Event)
	log          zerolog.Logger
}

// Opt configures optional vault collaborators.
type Opt func(*SwappableVault)

// WithLogger replaces the default global zerolog logger.
func WithLogger(l zerolog.Logger) Opt {
	return func(v *SwappableVault) { v.log = l }
}

// WithListener registers a synchronous observer for emitted events.
func WithListener(fn func(Event)) Opt {
	return func(v *SwappableVault) { v.listener = fn }
}

// WithAccessControl replaces the default owner/asset-manager capability
// check with an external one.
func WithAccessControl(ac AccessControl) Opt {
	return func(v *SwappableVault) { v.access = ac }
}

// New constructs a vault bound to an initial yield source. The source is
// probed for its deposit token, which becomes the vault's fixed deposit
// token for life: every future backend swap must match it.
func New(ctx context.Context, addr, owner domain.Address, meta domain.TokenMetadata, source YieldSource, tokens TokenResolver, opts ...Opt) (*SwappableVault, error) {
	if addr.IsZero() {
		return nil, errors.New("vault address must not be zero")
	}
	if owner.IsZero() {
		return nil, errors.New("vault owner must not be zero")
	}

	depositToken, err := probeBackend(ctx, source)
	if err != nil {
		return nil, err
	}

	token, err := tokens.ERC20(depositToken)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve deposit token %s", depositToken)
	}

	roles := NewRoles(owner)
	v := &SwappableVault{
		addr:         addr,
		depositToken: depositToken,
		tokens:       tokens,
		token:        token,
		source:       source,
		ledger:       NewLedger(meta),
		roles:        roles,
		access:       roles,
		log:          log.Logger,
	}
	for _, o := range opts {
		o(v)
	}

	v.log.Info().
		Str("vault", addr.String()).
		Str("yield_source", source.Address().String()).
		Str("deposit_token", depositToken.String()).
		Str("owner", owner.String()).
		Msg("vault initialized")
	v.emit(Initialized{
		EventMeta: newEventMeta(),
		Backend:   source.Address(),
		Decimals:  meta.Decimals,
		Symbol:    meta.Symbol,
		Name:      meta.Name,
		Owner:     owner,
	})
	return v, nil
}

// probeBackend verifies that a yield source is live and answers its
// deposit-token query with a usable address. Backend validity is determined
// by a successful, well-formed response, not by inspecting the concrete
// type.
func probeBackend(ctx context.Context, source YieldSource) (domain.Address, error) {
	if source == nil || source.Address().IsZero() {
		return domain.ZeroAddress, errors.Wrap(ErrInvalidBackend, "zero address")
	}
	token, err := source.DepositToken(ctx)
	if err != nil {
		return domain.ZeroAddress, errors.Wrapf(ErrInvalidBackend, "deposit token probe: %v", err)
	}
	if token.IsZero() {
		return domain.ZeroAddress, errors.Wrap(ErrInvalidBackend, "zero deposit token")
	}
	return token, nil
}

// Address returns the vault's own identity, the holder of record at every
// yield source.
func (v *SwappableVault) Address() domain.Address { return v.addr }

// DepositToken returns the token the vault accepts, fixed at construction.
func (v *SwappableVault) DepositToken() domain.Address { return v.depositToken }

// Owner returns the privileged principal fixed at initialization.
func (v *SwappableVault) Owner() domain.Address { return v.roles.Owner() }

// AssetManager returns the currently delegated manager, if any.
func (v *SwappableVault) AssetManager() domain.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.roles.AssetManager()
}

// YieldSource returns the currently active backend.
func (v *SwappableVault) YieldSource() YieldSource {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.source
}

// ShareMetadata returns the share token's descriptive metadata.
func (v *SwappableVault) ShareMetadata() domain.TokenMetadata { return v.ledger.Metadata() }

// TotalShares returns the aggregate share supply.
func (v *SwappableVault) TotalShares() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.TotalSupply()
}

// ShareBalanceOf returns holder's share balance.
func (v *SwappableVault) ShareBalanceOf(holder domain.Address) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.BalanceOf(holder)
}

// ShareAccounts returns every address that has ever held shares.
func (v *SwappableVault) ShareAccounts() []domain.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Accounts()
}

// ShareAllowance returns the amount spender may move out of owner's shares.
func (v *SwappableVault) ShareAllowance(owner, spender domain.Address) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Allowance(owner, spender)
}

// TransferShares moves shares from the caller to another holder.
func (v *SwappableVault) TransferShares(caller, to domain.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Transfer(caller, to, amount)
}

// ApproveShares sets spender's allowance over the caller's shares.
func (v *SwappableVault) ApproveShares(caller, spender domain.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Approve(caller, spender, amount)
}

// TransferSharesFrom moves shares between holders on the caller's allowance.
func (v *SwappableVault) TransferSharesFrom(caller, from, to domain.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.TransferFrom(caller, from, to, amount)
}

// CurrentExchangeRateMantissa returns the live backend-balance-per-share
// rate as a 1e18-scaled mantissa. With no shares outstanding the rate is
// 1.0. The value is computed fresh on every call; callers must not cache it.
func (v *SwappableVault) CurrentExchangeRateMantissa(ctx context.Context) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	total := v.ledger.TotalSupply()
	if total.IsZero() {
		return fixedPointScale, nil
	}
	balance, err := v.source.BalanceOfToken(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query yield source balance")
	}
	return calculateMantissa(balance, total)
}

// BalanceOfToken projects depositor's share balance into deposit-token
// units at the current exchange rate.
func (v *SwappableVault) BalanceOfToken(ctx context.Context, depositor domain.Address) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	balance, err := v.source.BalanceOfToken(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query yield source balance")
	}
	return SharesToToken(v.ledger.BalanceOf(depositor), v.ledger.TotalSupply(), balance)
}

// SupplyTokenTo pulls amount of the deposit token from `from`, forwards the
// amount actually received into the active yield source, and mints shares to
// beneficiary at the pre-supply exchange rate. Fee-on-transfer tokens are
// tolerated: the mint is computed from the observed balance delta, not the
// requested amount. A nonzero deposit that converts to zero shares aborts
// with ErrSharesMustBeNonZero and the pulled funds are returned.
//
// Returns the amount of shares minted. Open to any caller.
func (v *SwappableVault) SupplyTokenTo(ctx context.Context, from domain.Address, amount decimal.Decimal, beneficiary domain.Address) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.Wrap(ErrNegativeAmount, "supply")
	}
	if amount.IsZero() {
		return decimal.Zero, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	balanceBefore, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query vault token balance")
	}
	if err := v.token.TransferFrom(ctx, v.addr, from, v.addr, amount); err != nil {
		return decimal.Zero, errors.Wrap(err, "pull deposit")
	}
	balanceAfter, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query vault token balance")
	}
	received := balanceAfter.Sub(balanceBefore)

	// The rate must be read before the supply call below credits the vault,
	// or the deposit would count toward its own exchange rate.
	sourceBalance, err := v.source.BalanceOfToken(ctx, v.addr)
	if err != nil {
		return decimal.Zero, v.returnFunds(ctx, from, received, errors.Wrap(err, "query yield source balance"))
	}
	shares, err := TokenToShares(received, v.ledger.TotalSupply(), sourceBalance)
	if err != nil {
		return decimal.Zero, v.returnFunds(ctx, from, received, err)
	}
	if shares.IsZero() {
		return decimal.Zero, v.returnFunds(ctx, from, received,
			errors.Wrapf(ErrSharesMustBeNonZero, "deposit of %s", received))
	}

	if err := v.supplyToSource(ctx, v.source, received); err != nil {
		return decimal.Zero, v.returnFunds(ctx, from, received, err)
	}

	if err := v.ledger.Mint(beneficiary, shares); err != nil {
		return decimal.Zero, err
	}

	v.log.Info().
		Str("from", from.String()).
		Str("beneficiary", beneficiary.String()).
		Str("received", received.String()).
		Str("shares", shares.String()).
		Msg("tokens supplied")
	return shares, nil
}

// RedeemToken burns the caller's shares worth amount deposit tokens, redeems
// that amount from the active yield source, and pays the proceeds out to the
// caller. The burn lands before the backend call. If the backend's reported
// redeemed amount differs from what the vault actually received, the whole
// operation fails with ErrRedeemAmountMismatch and the burned shares are
// restored — an undisclosed exit fee is surfaced, never absorbed.
//
// Returns the amount reported redeemed. Open to any caller.
func (v *SwappableVault) RedeemToken(ctx context.Context, caller domain.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.Wrap(ErrNegativeAmount, "redeem")
	}
	if amount.IsZero() {
		return decimal.Zero, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	sourceBalance, err := v.source.BalanceOfToken(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query yield source balance")
	}
	shares, err := TokenToShares(amount, v.ledger.TotalSupply(), sourceBalance)
	if err != nil {
		return decimal.Zero, err
	}
	if err := v.ledger.Burn(caller, shares); err != nil {
		return decimal.Zero, err
	}

	balanceBefore, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, v.restoreShares(caller, shares, errors.Wrap(err, "query vault token balance"))
	}
	redeemed, err := v.source.RedeemToken(ctx, v.addr, amount)
	if err != nil {
		return decimal.Zero, v.restoreShares(caller, shares, errors.Wrap(err, "redeem from yield source"))
	}
	balanceAfter, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, v.restoreShares(caller, shares, errors.Wrap(err, "query vault token balance"))
	}
	received := balanceAfter.Sub(balanceBefore)
	if !received.Equal(redeemed) {
		cause := errors.Wrapf(ErrRedeemAmountMismatch, "reported %s, received %s", redeemed, received)
		if supErr := v.supplyToSource(ctx, v.source, received); supErr != nil {
			cause = errors.Wrapf(cause, "additionally failed to re-supply yield source: %v", supErr)
		}
		return decimal.Zero, v.restoreShares(caller, shares, cause)
	}

	if err := v.token.Transfer(ctx, v.addr, caller, received); err != nil {
		cause := errors.Wrap(err, "pay out redeemed tokens")
		if supErr := v.supplyToSource(ctx, v.source, received); supErr != nil {
			cause = errors.Wrapf(cause, "additionally failed to re-supply yield source: %v", supErr)
		}
		return decimal.Zero, v.restoreShares(caller, shares, cause)
	}

	v.log.Info().
		Str("caller", caller.String()).
		Str("redeemed", redeemed.String()).
		Str("shares_burned", shares.String()).
		Msg("tokens redeemed")
	return redeemed, nil
}

// SetYieldSource validates a replacement backend and re-points the vault at
// it WITHOUT moving funds. This is the low-level half of a migration: value
// already held by the previous backend stays there until TransferFunds moves
// it. SwapYieldSource composes both and is the only path that is safe as a
// single unit. Requires the owner-or-manager capability.
func (v *SwappableVault) SetYieldSource(ctx context.Context, caller domain.Address, replacement YieldSource) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwnerOrManager(caller); err != nil {
		return err
	}
	if err := v.validateReplacement(ctx, replacement); err != nil {
		return err
	}

	old := v.source.Address()
	v.source = replacement

	v.log.Info().
		Str("old", old.String()).
		Str("new", replacement.Address().String()).
		Msg("yield source set")
	v.emit(BackendSet{EventMeta: newEventMeta(), Old: old, New: replacement.Address()})
	return nil
}

// TransferFunds redeems the full balance held at `from` and supplies the
// vault's entire resulting token holdings to `to`, without touching the
// active backend pointer. Both backends must match the vault's deposit
// token. Shortfall tolerance is zero: receiving less than `from` reports
// redeemed fails with ErrTransferAmountInferior. Requires the
// owner-or-manager capability.
//
// Returns the amount supplied to `to`.
func (v *SwappableVault) TransferFunds(ctx context.Context, caller domain.Address, from, to YieldSource) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwnerOrManager(caller); err != nil {
		return decimal.Zero, err
	}
	for _, source := range []YieldSource{from, to} {
		token, err := probeBackend(ctx, source)
		if err != nil {
			return decimal.Zero, err
		}
		if token != v.depositToken {
			return decimal.Zero, errors.Wrapf(ErrIncompatibleDepositToken, "backend %s holds %s, vault holds %s",
				source.Address(), token, v.depositToken)
		}
	}

	amount, err := v.transferFundsLocked(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	v.log.Info().
		Str("old", from.Address().String()).
		Str("new", to.Address().String()).
		Str("amount", amount.String()).
		Msg("funds transferred")
	v.emit(FundsTransferred{EventMeta: newEventMeta(), Old: from.Address(), New: to.Address(), Amount: amount})
	return amount, nil
}

// SwapYieldSource runs the full migration protocol as one serialized
// operation: validate the replacement, redeem everything from the active
// backend, sweep the vault's whole token balance (idle dust included) into
// the replacement, and commit the pointer. The share supply is untouched —
// only the custody location changes. Requires the owner-or-manager
// capability.
//
// Returns the amount supplied to the replacement.
func (v *SwappableVault) SwapYieldSource(ctx context.Context, caller domain.Address, replacement YieldSource) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwnerOrManager(caller); err != nil {
		return decimal.Zero, err
	}
	if err := v.validateReplacement(ctx, replacement); err != nil {
		return decimal.Zero, err
	}

	amount, err := v.transferFundsLocked(ctx, v.source, replacement)
	if err != nil {
		return decimal.Zero, err
	}

	old := v.source.Address()
	v.source = replacement

	v.log.Info().
		Str("old", old.String()).
		Str("new", replacement.Address().String()).
		Str("amount", amount.String()).
		Msg("yield source swapped")
	v.emit(BackendSwapped{EventMeta: newEventMeta(), Old: old, New: replacement.Address(), Amount: amount})
	return amount, nil
}

// TransferERC20 sweeps an incidental asset out of the vault's own holdings.
// The active yield source's receipt token is off limits: draining it would
// drain the collateral depositors hold claims on. Requires the
// owner-or-manager capability.
func (v *SwappableVault) TransferERC20(ctx context.Context, caller, token, to domain.Address, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwnerOrManager(caller); err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.Wrap(ErrNegativeAmount, "sweep")
	}
	if token == v.source.Address() {
		return errors.Wrapf(ErrYieldSourceTokenTransferNotAllowed, "token %s", token)
	}

	erc20, err := v.tokens.ERC20(token)
	if err != nil {
		return errors.Wrapf(err, "resolve token %s", token)
	}
	if err := erc20.Transfer(ctx, v.addr, to, amount); err != nil {
		return errors.Wrap(err, "sweep token")
	}

	v.log.Info().
		Str("token", token.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("incidental asset swept")
	v.emit(ERC20Swept{EventMeta: newEventMeta(), From: v.addr, To: to, Amount: amount, Token: token})
	return nil
}

// SetAssetManager delegates the asset-manager capability, or revokes it when
// manager is the zero address. Only the owner may call it, and only the
// default access control honors the delegation.
func (v *SwappableVault) SetAssetManager(ctx context.Context, caller, manager domain.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.roles.Owner() {
		return errors.Wrap(ErrNotAuthorized, "set asset manager")
	}

	old := v.roles.AssetManager()
	v.roles.setManager(manager)

	v.log.Info().
		Str("old", old.String()).
		Str("new", manager.String()).
		Msg("asset manager changed")
	v.emit(AssetManagerChanged{EventMeta: newEventMeta(), Old: old, New: manager})
	return nil
}

// requireOwnerOrManager is the single capability check gating every
// privileged entry point.
func (v *SwappableVault) requireOwnerOrManager(caller domain.Address) error {
	if !v.access.IsOwnerOrManager(caller) {
		return errors.Wrapf(ErrNotAuthorized, "caller %s", caller)
	}
	return nil
}

// validateReplacement runs the migration protocol's validation step: the
// replacement must be live, different from the active backend, and bound to
// the vault's deposit token.
func (v *SwappableVault) validateReplacement(ctx context.Context, replacement YieldSource) error {
	token, err := probeBackend(ctx, replacement)
	if err != nil {
		return err
	}
	if replacement.Address() == v.source.Address() {
		return errors.Wrapf(ErrSameBackend, "%s", replacement.Address())
	}
	if token != v.depositToken {
		return errors.Wrapf(ErrIncompatibleDepositToken, "backend %s holds %s, vault holds %s",
			replacement.Address(), token, v.depositToken)
	}
	return nil
}

// transferFundsLocked is the redeem-then-resupply core of the migration
// protocol. It redeems the full balance held at `from`, verifies the vault
// received at least what `from` reports redeemed, and supplies the vault's
// entire token balance to `to`. Compensating re-supplies put funds back at
// `from` when a later step fails.
func (v *SwappableVault) transferFundsLocked(ctx context.Context, from, to YieldSource) (decimal.Decimal, error) {
	fromBalance, err := from.BalanceOfToken(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query old yield source balance")
	}

	balanceBefore, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query vault token balance")
	}
	redeemed, err := from.RedeemToken(ctx, v.addr, fromBalance)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "redeem full balance")
	}
	balanceAfter, err := v.token.BalanceOf(ctx, v.addr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "query vault token balance")
	}

	// The backend may have accrued a few extra units between the balance
	// query and the redeem call, so received > redeemed is fine. Receiving
	// less means the backend lied about redeemed value.
	received := balanceAfter.Sub(balanceBefore)
	if received.LessThan(redeemed) {
		cause := errors.Wrapf(ErrTransferAmountInferior, "reported %s, received %s", redeemed, received)
		if supErr := v.supplyToSource(ctx, from, received); supErr != nil {
			cause = errors.Wrapf(cause, "additionally failed to re-supply old yield source: %v", supErr)
		}
		return decimal.Zero, cause
	}

	// Sweep the entire held balance, not just the redeemed amount: idle
	// dust already sitting in the vault goes along.
	held := balanceAfter
	if err := v.supplyToSource(ctx, to, held); err != nil {
		cause := errors.Wrap(err, "supply new yield source")
		if supErr := v.supplyToSource(ctx, from, held); supErr != nil {
			cause = errors.Wrapf(cause, "additionally failed to re-supply old yield source: %v", supErr)
		}
		return decimal.Zero, cause
	}
	return held, nil
}

// supplyToSource authorizes and pushes amount of the deposit token from the
// vault into a yield source, crediting the vault's own holding there.
func (v *SwappableVault) supplyToSource(ctx context.Context, source YieldSource, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if err := v.token.Approve(ctx, v.addr, source.Address(), amount); err != nil {
		return errors.Wrap(err, "approve yield source")
	}
	if err := source.SupplyTokenTo(ctx, v.addr, amount, v.addr); err != nil {
		return errors.Wrap(err, "supply yield source")
	}
	return nil
}

// returnFunds hands a pulled deposit back to its sender before surfacing
// cause. Used by supply-side aborts.
func (v *SwappableVault) returnFunds(ctx context.Context, to domain.Address, amount decimal.Decimal, cause error) error {
	if amount.IsZero() {
		return cause
	}
	if rbErr := v.token.Transfer(ctx, v.addr, to, amount); rbErr != nil {
		return errors.Wrapf(cause, "additionally failed to return %s to %s: %v", amount, to, rbErr)
	}
	return cause
}

// restoreShares re-mints shares burned by an aborted redeem before
// surfacing cause.
func (v *SwappableVault) restoreShares(holder domain.Address, shares decimal.Decimal, cause error) error {
	if mintErr := v.ledger.Mint(holder, shares); mintErr != nil {
		return errors.Wrapf(cause, "additionally failed to restore %s shares: %v", shares, mintErr)
	}
	return cause
}

func (v *SwappableVault) emit(e Event) {
	if v.listener != nil {
		v.listener(e)
	}
}
