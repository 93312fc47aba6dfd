package token

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"reflectledger/core/events"
)

// SnapshotKey is the storage key the ledger snapshot is persisted under.
var SnapshotKey = []byte("token/state")

type storedAllowance struct {
	Spender [20]byte
	Amount  *big.Int
}

type storedAccount struct {
	Address        [20]byte
	Reflected      *big.Int
	TrueUnits      *big.Int
	FeeExempt      bool
	RewardExcluded bool
	Blacklisted    bool
	Allowances     []storedAllowance
}

type storedLedger struct {
	Name           string
	Symbol         string
	Owner          [20]byte
	Self           [20]byte
	LiquidityPair  [20]byte
	FeeBps         uint32
	TradingEnabled bool
	ReflectedTotal *big.Int
	Accounts       []storedAccount
	Excluded       [][20]byte
}

// Snapshot serializes the full ledger state into a deterministic RLP blob.
// Accounts and allowances are sorted so identical states always encode to
// identical bytes; the reward-exclusion set keeps its insertion order.
func (l *Ledger) Snapshot() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := storedLedger{
		Name:           l.name,
		Symbol:         l.symbol,
		Owner:          l.owner,
		Self:           l.self,
		LiquidityPair:  l.liquidityPair,
		FeeBps:         l.feeBps,
		TradingEnabled: l.tradingEnabled,
		ReflectedTotal: l.reflectedTotal.ToBig(),
		Excluded:       append([][20]byte{}, l.excluded...),
	}
	stored.Accounts = make([]storedAccount, 0, len(l.accounts))
	for addr, acct := range l.accounts {
		entry := storedAccount{
			Address:        addr,
			Reflected:      acct.reflected.ToBig(),
			TrueUnits:      acct.trueUnits.ToBig(),
			FeeExempt:      acct.feeExempt,
			RewardExcluded: acct.rewardExcluded,
			Blacklisted:    acct.blacklisted,
		}
		entry.Allowances = make([]storedAllowance, 0, len(acct.allowances))
		for spender, amount := range acct.allowances {
			entry.Allowances = append(entry.Allowances, storedAllowance{
				Spender: spender,
				Amount:  amount.ToBig(),
			})
		}
		sort.Slice(entry.Allowances, func(i, j int) bool {
			return bytes.Compare(entry.Allowances[i].Spender[:], entry.Allowances[j].Spender[:]) < 0
		})
		stored.Accounts = append(stored.Accounts, entry)
	}
	sort.Slice(stored.Accounts, func(i, j int) bool {
		return bytes.Compare(stored.Accounts[i].Address[:], stored.Accounts[j].Address[:]) < 0
	})

	return rlp.EncodeToBytes(stored)
}

// RestoreLedger reconstructs a ledger from a snapshot blob and verifies the
// reflected-supply bookkeeping before handing it back.
func RestoreLedger(data []byte) (*Ledger, error) {
	var stored storedLedger
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("token: decode snapshot: %w", err)
	}

	l := &Ledger{
		name:           stored.Name,
		symbol:         stored.Symbol,
		owner:          stored.Owner,
		self:           stored.Self,
		liquidityPair:  stored.LiquidityPair,
		feeBps:         stored.FeeBps,
		tradingEnabled: stored.TradingEnabled,
		accounts:       make(map[[20]byte]*account, len(stored.Accounts)),
		excluded:       append([][20]byte{}, stored.Excluded...),
		foreign:        make(map[[20]byte]ForeignToken),
		emitter:        events.NoopEmitter{},
	}
	l.trueTotal.Mul(
		new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(Decimals))),
		uint256.NewInt(supplyTokens),
	)
	reflectedTotal, err := fromStoredAmount(stored.ReflectedTotal, "reflected total")
	if err != nil {
		return nil, err
	}
	l.reflectedTotal.Set(reflectedTotal)

	reflectedSum := new(uint256.Int)
	for _, entry := range stored.Accounts {
		acct := &account{
			feeExempt:      entry.FeeExempt,
			rewardExcluded: entry.RewardExcluded,
			blacklisted:    entry.Blacklisted,
			allowances:     make(map[[20]byte]*uint256.Int, len(entry.Allowances)),
		}
		reflected, err := fromStoredAmount(entry.Reflected, "reflected balance")
		if err != nil {
			return nil, err
		}
		trueUnits, err := fromStoredAmount(entry.TrueUnits, "true balance")
		if err != nil {
			return nil, err
		}
		acct.reflected.Set(reflected)
		acct.trueUnits.Set(trueUnits)
		for _, allowance := range entry.Allowances {
			amount, err := fromStoredAmount(allowance.Amount, "allowance")
			if err != nil {
				return nil, err
			}
			acct.allowances[allowance.Spender] = amount
		}
		if !acct.rewardExcluded {
			reflectedSum.Add(reflectedSum, &acct.reflected)
		}
		l.accounts[entry.Address] = acct
	}

	// The reflected total must equal the sum of participating reflected
	// balances exactly; anything else means the snapshot is corrupt.
	if reflectedSum.Cmp(&l.reflectedTotal) != 0 {
		return nil, ErrInvariant
	}
	for _, addr := range l.excluded {
		acct, ok := l.accounts[addr]
		if !ok || !acct.rewardExcluded {
			return nil, ErrInvariant
		}
	}

	return l, nil
}

func fromStoredAmount(amount *big.Int, field string) (*uint256.Int, error) {
	if amount == nil {
		return new(uint256.Int), nil
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("token: %s overflows 256 bits: %w", field, ErrArithmetic)
	}
	return value, nil
}
