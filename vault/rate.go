package vault

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// fixedPointScale is the precision of exchange-rate mantissas: rates are
// integer mantissas scaled by 1e18.
var fixedPointScale = decimal.New(1, 18)

// calculateMantissa returns floor(num * 1e18 / den).
func calculateMantissa(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, errors.Wrap(ErrBackendBalanceZero, "calculate mantissa")
	}
	q, _ := num.Shift(18).QuoRem(den, 0)
	return q, nil
}

// mulByMantissa returns floor(x * mantissa / 1e18).
//
// QuoRem with precision 0 is the only safe floor here: decimal division
// rounds at a fixed precision and can round up across an integer boundary,
// which would mint or release value that does not exist.
func mulByMantissa(x, mantissa decimal.Decimal) decimal.Decimal {
	q, _ := x.Mul(mantissa).QuoRem(fixedPointScale, 0)
	return q
}

// TokenToShares converts a deposit-token amount into shares at the rate
// implied by the live pair (totalShares, backendBalance).
//
// When no shares are outstanding the rate bootstraps at 1:1. Otherwise the
// conversion goes through an intermediate 1e18 mantissa, flooring twice, so
// a backend balance that has diverged beyond totalShares * 1e18 collapses
// the mantissa to zero and the conversion yields zero shares for a nonzero
// amount. Minting callers must reject that result (ErrSharesMustBeNonZero)
// instead of accepting a deposit and minting nothing.
//
// The pair must be read at the moment of conversion and never cached: both
// operands move between calls.
func TokenToShares(tokens, totalShares, backendBalance decimal.Decimal) (decimal.Decimal, error) {
	if tokens.IsZero() {
		return decimal.Zero, nil
	}
	if totalShares.IsZero() {
		return tokens, nil
	}
	rate, err := calculateMantissa(totalShares, backendBalance)
	if err != nil {
		return decimal.Zero, err
	}
	return mulByMantissa(tokens, rate), nil
}

// SharesToToken converts a share amount into its deposit-token value at the
// rate implied by (totalShares, backendBalance). Symmetric inverse of
// TokenToShares, with the same floor-rounding discipline; repeated round
// trips leak value downward by at most one base unit per conversion and are
// never allowed to round up.
func SharesToToken(shares, totalShares, backendBalance decimal.Decimal) (decimal.Decimal, error) {
	if shares.IsZero() {
		return decimal.Zero, nil
	}
	if totalShares.IsZero() {
		return shares, nil
	}
	rate, err := calculateMantissa(backendBalance, totalShares)
	if err != nil {
		return decimal.Zero, err
	}
	return mulByMantissa(shares, rate), nil
}
