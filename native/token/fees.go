package token

import "github.com/holiman/uint256"

// Fee rates are expressed in basis points (1 bps = 0.01%).
const (
	// DefaultFeeBps is the transfer fee configured at construction.
	DefaultFeeBps uint32 = 200
	// MaxFeeBps is the policy ceiling enforced on SetFeeRate.
	MaxFeeBps uint32 = 2500
)

var basisPointDenominator = uint256.NewInt(10_000)

// computeFee evaluates the fee owed on a transfer amount. Exempt transfers
// carry no fee. The division truncates toward zero and a fee that would meet
// or exceed the amount is clamped so the net never goes negative.
func computeFee(amount *uint256.Int, bps uint32, exempt bool) *uint256.Int {
	fee := new(uint256.Int)
	if exempt || bps == 0 || amount.IsZero() {
		return fee
	}
	fee.Mul(amount, uint256.NewInt(uint64(bps)))
	fee.Div(fee, basisPointDenominator)
	if fee.Cmp(amount) >= 0 {
		return fee.Set(amount)
	}
	return fee
}
