package mock

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/pooltogether/swappable-yield-source/domain"
)

// MockYieldSource implements vault.YieldSource for testing and demos. It
// keeps per-holder redeemable value backed by an in-memory ERC20Token and
// offers controllable misbehavior: an undisclosed exit fee (the backend
// transfers less than it reports redeemed) and a failing deposit-token
// probe (a dead backend).
type MockYieldSource struct {
	mu        sync.RWMutex
	addr      domain.Address
	tokenAddr domain.Address
	token     *ERC20Token
	holdings    map[domain.Address]decimal.Decimal
	exitFee     decimal.Decimal
	redeemBonus decimal.Decimal
	probeDown   bool
}

// NewMockYieldSource creates a yield source custodying tokenAddr balances on
// the given token ledger.
func NewMockYieldSource(addr, tokenAddr domain.Address, token *ERC20Token) *MockYieldSource {
	return &MockYieldSource{
		addr:        addr,
		tokenAddr:   tokenAddr,
		token:       token,
		holdings:    make(map[domain.Address]decimal.Decimal),
		exitFee:     decimal.Zero,
		redeemBonus: decimal.Zero,
	}
}

// Address returns the adapter's identity.
func (m *MockYieldSource) Address() domain.Address { return m.addr }

// DepositToken returns the accepted token, or an error while the probe is
// simulated down.
func (m *MockYieldSource) DepositToken(_ context.Context) (domain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.probeDown {
		return domain.ZeroAddress, errors.New("yield source not responding")
	}
	return m.tokenAddr, nil
}

// BalanceOfToken returns holder's redeemable value.
func (m *MockYieldSource) BalanceOfToken(_ context.Context, holder domain.Address) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holding(holder), nil
}

// SupplyTokenTo pulls amount from `from` on its allowance and credits
// beneficiary.
func (m *MockYieldSource) SupplyTokenTo(ctx context.Context, from domain.Address, amount decimal.Decimal, beneficiary domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.token.TransferFrom(ctx, m.addr, from, m.addr, amount); err != nil {
		return errors.Wrap(err, "pull supply")
	}
	m.holdings[beneficiary] = m.holding(beneficiary).Add(amount)
	return nil
}

// RedeemToken debits amount from the caller's holding and transfers the
// proceeds back. An exit fee is deducted from the transfer but NOT from the
// reported amount — the silent-fee backend the vault must detect.
func (m *MockYieldSource) RedeemToken(ctx context.Context, caller domain.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.holding(caller)
	if held.LessThan(amount) {
		return decimal.Zero, errors.Errorf("%s holds %s, cannot redeem %s", caller, held, amount)
	}
	m.holdings[caller] = held.Sub(amount)

	transferred := amount.Sub(m.exitFee)
	if transferred.IsNegative() {
		transferred = decimal.Zero
	}
	if !m.redeemBonus.IsZero() {
		m.token.SimulateMint(m.addr, m.redeemBonus)
		transferred = transferred.Add(m.redeemBonus)
	}
	if err := m.token.Transfer(ctx, m.addr, caller, transferred); err != nil {
		return decimal.Zero, errors.Wrap(err, "pay out redemption")
	}
	return amount, nil
}

// SimulateYield is a test helper that accrues yield for a holder: fresh
// tokens materialize in the adapter's custody and the holder's redeemable
// value grows by the same amount.
func (m *MockYieldSource) SimulateYield(holder domain.Address, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token.SimulateMint(m.addr, amount)
	m.holdings[holder] = m.holding(holder).Add(amount)
}

// SetRedeemBonus configures extra tokens delivered on top of every reported
// redemption, simulating yield that accrues between a balance query and the
// redeem call it feeds.
func (m *MockYieldSource) SetRedeemBonus(bonus decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redeemBonus = bonus
}

// SetExitFee configures the undisclosed redemption fee.
func (m *MockYieldSource) SetExitFee(fee decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitFee = fee
}

// SetProbeDown makes DepositToken fail, simulating a dead backend.
func (m *MockYieldSource) SetProbeDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeDown = down
}

func (m *MockYieldSource) holding(holder domain.Address) decimal.Decimal {
	if h, ok := m.holdings[holder]; ok {
		return h
	}
	return decimal.Zero
}
