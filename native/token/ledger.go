package token

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"reflectledger/core/events"
)

// Decimals is the fixed display precision of the token.
const Decimals uint8 = 18

// supplyTokens is the whole-token supply fixed at construction; the true
// total supply is supplyTokens scaled by 10^Decimals. No mint or burn path
// exists, so the figure never changes afterwards.
const supplyTokens uint64 = 1_000_000_000

var zeroAddress [20]byte

// Config carries the construction parameters of a ledger.
type Config struct {
	Name   string
	Symbol string
	// Owner receives the full supply and holds the admin authority. The
	// owner starts fee-exempt but participates in reflections.
	Owner [20]byte
	// LedgerAddress is the ledger's own account, used as the sweep holding
	// address. It is fee-exempt and reward-excluded from construction so
	// sweeps stay deterministic.
	LedgerAddress [20]byte
}

type account struct {
	// reflected is meaningful only while the account is not reward-excluded.
	reflected uint256.Int
	// trueUnits is meaningful only while the account is reward-excluded.
	trueUnits      uint256.Int
	feeExempt      bool
	rewardExcluded bool
	blacklisted    bool
	allowances     map[[20]byte]*uint256.Int
}

// ForeignToken is the capability interface a sweep of a non-native token is
// dispatched through. Implementations are supplied by the embedding system.
type ForeignToken interface {
	BalanceOf(holder [20]byte) *big.Int
	Transfer(to [20]byte, amount *big.Int) bool
}

// Ledger is the reflection token accounting core. Every public operation is
// serialized by the internal mutex and applies atomically: an operation
// either succeeds fully or leaves the state untouched.
//
// Balances live in two unit spaces. Accounts participating in reflections
// store a reflected-space figure whose display value is derived through the
// global rate; reward-excluded accounts store display units directly. Fees
// shrink the reflected total supply, which lowers the rate and implicitly
// raises every participating holder's balance in O(1).
type Ledger struct {
	mu sync.RWMutex

	name   string
	symbol string
	owner  [20]byte
	self   [20]byte

	trueTotal      uint256.Int
	reflectedTotal uint256.Int

	feeBps         uint32
	tradingEnabled bool
	liquidityPair  [20]byte

	accounts map[[20]byte]*account
	// excluded preserves reward-exclusion insertion order; it is the
	// iteration source for the reflection denominator.
	excluded [][20]byte

	foreign map[[20]byte]ForeignToken
	emitter events.Emitter
}

// NewLedger constructs a ledger and allocates the entire supply to the owner.
func NewLedger(cfg Config) (*Ledger, error) {
	name := strings.TrimSpace(cfg.Name)
	symbol := strings.TrimSpace(cfg.Symbol)
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("token: name and symbol required")
	}
	if cfg.Owner == zeroAddress {
		return nil, fmt.Errorf("token: owner address required")
	}
	if cfg.LedgerAddress == zeroAddress {
		return nil, fmt.Errorf("token: ledger address required")
	}
	if cfg.LedgerAddress == cfg.Owner {
		return nil, fmt.Errorf("token: ledger address must differ from owner")
	}

	l := &Ledger{
		name:     name,
		symbol:   symbol,
		owner:    cfg.Owner,
		self:     cfg.LedgerAddress,
		feeBps:   DefaultFeeBps,
		accounts: make(map[[20]byte]*account),
		foreign:  make(map[[20]byte]ForeignToken),
		emitter:  events.NoopEmitter{},
	}
	l.trueTotal.Mul(
		new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(Decimals))),
		uint256.NewInt(supplyTokens),
	)
	// The reflected supply starts at the largest multiple of the true supply
	// representable in 256 bits, which maximizes rate precision and makes the
	// initial rate an exact integer.
	max := new(uint256.Int).Not(new(uint256.Int))
	remainder := new(uint256.Int).Mod(max, &l.trueTotal)
	l.reflectedTotal.Sub(max, remainder)

	ownerAcct := l.ensureAccount(cfg.Owner)
	ownerAcct.reflected.Set(&l.reflectedTotal)
	ownerAcct.feeExempt = true

	selfAcct := l.ensureAccount(cfg.LedgerAddress)
	selfAcct.feeExempt = true
	selfAcct.rewardExcluded = true
	l.excluded = append(l.excluded, cfg.LedgerAddress)

	return l, nil
}

// SetEmitter configures the event emitter. Passing nil restores the no-op
// emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// RegisterForeignToken wires the capability used to sweep a non-native token
// held at the ledger address. A nil mover removes the registration.
func (l *Ledger) RegisterForeignToken(addr [20]byte, mover ForeignToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if mover == nil {
		delete(l.foreign, addr)
		return
	}
	l.foreign[addr] = mover
}

// Name returns the token name fixed at construction.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol fixed at construction.
func (l *Ledger) Symbol() string { return l.symbol }

// Owner returns the admin authority address.
func (l *Ledger) Owner() [20]byte { return l.owner }

// LedgerAddress returns the ledger's own sweep holding address.
func (l *Ledger) LedgerAddress() [20]byte { return l.self }

// TotalSupply returns the fixed true total supply in base units.
func (l *Ledger) TotalSupply() *big.Int {
	return l.trueTotal.ToBig()
}

// TxFee returns the current transfer fee in basis points.
func (l *Ledger) TxFee() uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feeBps
}

// TradingEnabled reports whether the launch switch has been flipped.
func (l *Ledger) TradingEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tradingEnabled
}

// LiquidityPair returns the AMM pair address designated at launch, or the
// zero address before trading is enabled.
func (l *Ledger) LiquidityPair() [20]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.liquidityPair
}

// IsExcludedFromFee reports whether transfers touching the account bypass the
// fee.
func (l *Ledger) IsExcludedFromFee(addr [20]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	return ok && acct.feeExempt
}

// IsExcludedFromReward reports whether the account is outside the reflection
// pool.
func (l *Ledger) IsExcludedFromReward(addr [20]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	return ok && acct.rewardExcluded
}

// IsBlacklisted reports whether the account is barred from transfers.
func (l *Ledger) IsBlacklisted(addr [20]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	return ok && acct.blacklisted
}

// BalanceOf returns the display-unit balance of an account.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bal, err := l.balanceLocked(addr)
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

// Transfer moves amount from the sender to the recipient, applying the
// transfer guard and, when neither party is fee-exempt, the reflection fee.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, value)
}

func (l *Ledger) ensureAccount(addr [20]byte) *account {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &account{allowances: make(map[[20]byte]*uint256.Int)}
		l.accounts[addr] = acct
	}
	return acct
}

// reflectionDenominator is the true supply net of all reward-excluded
// balances. It is recomputed by summation on every use rather than cached so
// exclusion-set changes can never leave a stale figure behind.
func (l *Ledger) reflectionDenominator() uint256.Int {
	denom := l.trueTotal
	for _, addr := range l.excluded {
		if acct, ok := l.accounts[addr]; ok {
			denom.Sub(&denom, &acct.trueUnits)
		}
	}
	return denom
}

// currentRate returns the reflected-to-true conversion rate. The rate is a
// truncating quotient; all conversions in one operation must use a single
// rate read taken before any mutation.
func (l *Ledger) currentRate() (*uint256.Int, error) {
	denom := l.reflectionDenominator()
	if denom.IsZero() {
		return nil, ErrArithmetic
	}
	rate := new(uint256.Int).Div(&l.reflectedTotal, &denom)
	if rate.IsZero() {
		return nil, ErrArithmetic
	}
	return rate, nil
}

func (l *Ledger) balanceLocked(addr [20]byte) (*uint256.Int, error) {
	acct, ok := l.accounts[addr]
	if !ok {
		return new(uint256.Int), nil
	}
	if acct.rewardExcluded {
		return new(uint256.Int).Set(&acct.trueUnits), nil
	}
	if acct.reflected.IsZero() {
		return new(uint256.Int), nil
	}
	rate, err := l.currentRate()
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(&acct.reflected, rate), nil
}

// toReflected converts a true-unit amount into reflected space under the
// supplied rate.
func toReflected(amount, rate *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(amount, rate)
	if overflow {
		return nil, ErrArithmetic
	}
	return out, nil
}

// transferLocked runs the guard and applies the balance movement. The fee is
// never credited to an account: when the sender sits in reflected space the
// debit/credit asymmetry retires fee·rate reflected units from the total
// supply, and when both parties are reward-excluded the fee simply grows the
// reflection denominator. Either way the rate moves in favour of every
// participating holder.
func (l *Ledger) transferLocked(from, to [20]byte, amount *uint256.Int) error {
	exempt, err := l.guardLocked(from, to, amount)
	if err != nil {
		return err
	}
	fee := computeFee(amount, l.feeBps, exempt)
	send := new(uint256.Int).Sub(amount, fee)

	sender := l.ensureAccount(from)
	recipient := l.ensureAccount(to)

	var rAmount, rSend *uint256.Int
	if !sender.rewardExcluded || !recipient.rewardExcluded {
		rate, err := l.currentRate()
		if err != nil {
			return err
		}
		if rAmount, err = toReflected(amount, rate); err != nil {
			return err
		}
		if rSend, err = toReflected(send, rate); err != nil {
			return err
		}
	}

	if sender.rewardExcluded {
		sender.trueUnits.Sub(&sender.trueUnits, amount)
	} else {
		sender.reflected.Sub(&sender.reflected, rAmount)
		l.reflectedTotal.Sub(&l.reflectedTotal, rAmount)
	}
	if recipient.rewardExcluded {
		recipient.trueUnits.Add(&recipient.trueUnits, send)
	} else {
		recipient.reflected.Add(&recipient.reflected, rSend)
		l.reflectedTotal.Add(&l.reflectedTotal, rSend)
	}

	l.emitter.Emit(events.Transfer{From: from, To: to, Amount: amount.ToBig()})
	if !fee.IsZero() {
		l.emitter.Emit(events.FeeReflected{From: from, Amount: fee.ToBig()})
	}
	return nil
}

// ExcludeFromReward snapshots the account's display balance into true units
// and retires its reflected units from the reflected supply. The conversion
// uses the rate read before any mutation. A no-op when already excluded.
func (l *Ledger) excludeFromRewardLocked(addr [20]byte) error {
	acct := l.ensureAccount(addr)
	if acct.rewardExcluded {
		return nil
	}
	if !acct.reflected.IsZero() {
		rate, err := l.currentRate()
		if err != nil {
			return err
		}
		snapshot := new(uint256.Int).Div(&acct.reflected, rate)
		denom := l.reflectionDenominator()
		if snapshot.Cmp(&denom) >= 0 {
			// Excluding the last participating balance would zero the
			// reflection denominator.
			return ErrInvariant
		}
		acct.trueUnits.Set(snapshot)
		l.reflectedTotal.Sub(&l.reflectedTotal, &acct.reflected)
		acct.reflected.Clear()
	}
	acct.rewardExcluded = true
	l.excluded = append(l.excluded, addr)
	l.emitter.Emit(events.RewardExclusion{Account: addr, Excluded: true})
	return nil
}

// includeInRewardLocked converts the snapshotted true balance back into
// reflected units under the then-current rate. A no-op when not excluded.
func (l *Ledger) includeInRewardLocked(addr [20]byte) error {
	acct, ok := l.accounts[addr]
	if !ok || !acct.rewardExcluded {
		return nil
	}
	if !acct.trueUnits.IsZero() {
		rate, err := l.currentRate()
		if err != nil {
			return err
		}
		restored, err := toReflected(&acct.trueUnits, rate)
		if err != nil {
			return err
		}
		acct.reflected.Set(restored)
		l.reflectedTotal.Add(&l.reflectedTotal, restored)
		acct.trueUnits.Clear()
	}
	acct.rewardExcluded = false
	for i, candidate := range l.excluded {
		if candidate == addr {
			l.excluded = append(l.excluded[:i], l.excluded[i+1:]...)
			break
		}
	}
	l.emitter.Emit(events.RewardExclusion{Account: addr, Excluded: false})
	return nil
}

func parseAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrArithmetic
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrArithmetic
	}
	return value, nil
}
