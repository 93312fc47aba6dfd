package events

import (
	"math/big"
	"strconv"

	"reflectledger/core/types"
	"reflectledger/crypto"
)

const (
	// TypeTransfer is emitted for every balance movement, including sweeps.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted whenever a spender allowance is set or adjusted.
	TypeApproval = "token.approval"
	// TypeFeeRateChanged is emitted when the owner updates the transfer fee.
	TypeFeeRateChanged = "token.fee_rate"
	// TypeFeeReflected is emitted after a taxed transfer with the fee amount
	// redistributed to holders via the reflected-supply shrink.
	TypeFeeReflected = "token.fee_reflected"
	// TypeTradingEnabled marks the one-way launch switch.
	TypeTradingEnabled = "token.trading_enabled"
	// TypeFeeExemption records fee-exemption flag changes.
	TypeFeeExemption = "token.fee_exemption"
	// TypeRewardExclusion records reward-exclusion membership changes.
	TypeRewardExclusion = "token.reward_exclusion"
	// TypeBlacklist records blacklist membership changes.
	TypeBlacklist = "token.blacklist"
	// TypeSweep records an owner sweep of tokens held at the ledger address.
	TypeSweep = "token.sweep"
)

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

type Approval struct {
	Owner   [20]byte
	Spender [20]byte
	Value   *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"value":   formatAmount(e.Value),
	}}
}

type FeeRateChanged struct {
	Bps uint32
}

func (FeeRateChanged) EventType() string { return TypeFeeRateChanged }

func (e FeeRateChanged) Event() *types.Event {
	return &types.Event{Type: TypeFeeRateChanged, Attributes: map[string]string{
		"value": strconv.FormatUint(uint64(e.Bps), 10),
	}}
}

type FeeReflected struct {
	From   [20]byte
	Amount *big.Int
}

func (FeeReflected) EventType() string { return TypeFeeReflected }

func (e FeeReflected) Event() *types.Event {
	return &types.Event{Type: TypeFeeReflected, Attributes: map[string]string{
		"from":   formatAddress(e.From),
		"amount": formatAmount(e.Amount),
	}}
}

type TradingEnabled struct {
	Pair [20]byte
}

func (TradingEnabled) EventType() string { return TypeTradingEnabled }

func (e TradingEnabled) Event() *types.Event {
	return &types.Event{Type: TypeTradingEnabled, Attributes: map[string]string{
		"pair": formatAddress(e.Pair),
	}}
}

type FeeExemption struct {
	Account [20]byte
	Exempt  bool
}

func (FeeExemption) EventType() string { return TypeFeeExemption }

func (e FeeExemption) Event() *types.Event {
	return &types.Event{Type: TypeFeeExemption, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"exempt":  strconv.FormatBool(e.Exempt),
	}}
}

type RewardExclusion struct {
	Account  [20]byte
	Excluded bool
}

func (RewardExclusion) EventType() string { return TypeRewardExclusion }

func (e RewardExclusion) Event() *types.Event {
	return &types.Event{Type: TypeRewardExclusion, Attributes: map[string]string{
		"account":  formatAddress(e.Account),
		"excluded": strconv.FormatBool(e.Excluded),
	}}
}

type Blacklist struct {
	Account [20]byte
	Listed  bool
}

func (Blacklist) EventType() string { return TypeBlacklist }

func (e Blacklist) Event() *types.Event {
	return &types.Event{Type: TypeBlacklist, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"listed":  strconv.FormatBool(e.Listed),
	}}
}

type Sweep struct {
	Token     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

func (Sweep) EventType() string { return TypeSweep }

func (e Sweep) Event() *types.Event {
	return &types.Event{Type: TypeSweep, Attributes: map[string]string{
		"token":     formatAddress(e.Token),
		"recipient": formatAddress(e.Recipient),
		"amount":    formatAmount(e.Amount),
	}}
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.RFLPrefix, addr[:]).String()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
