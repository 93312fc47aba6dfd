package token

import (
	"math/big"

	"github.com/holiman/uint256"

	"reflectledger/core/events"
)

// unlimitedAllowance is the sentinel approval that is never consumed by
// TransferFrom.
var unlimitedAllowance = new(uint256.Int).Not(new(uint256.Int))

// Allowance returns the amount a spender may move on behalf of an owner.
func (l *Ledger) Allowance(owner, spender [20]byte) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowanceLocked(owner, spender).ToBig()
}

func (l *Ledger) allowanceLocked(owner, spender [20]byte) *uint256.Int {
	acct, ok := l.accounts[owner]
	if !ok {
		return new(uint256.Int)
	}
	current, ok := acct.allowances[spender]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(current)
}

// Approve sets the spender allowance to an absolute value.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.approveLocked(owner, spender, value)
}

func (l *Ledger) approveLocked(owner, spender [20]byte, value *uint256.Int) error {
	if spender == zeroAddress {
		return ErrInvalidSpender
	}
	acct := l.ensureAccount(owner)
	acct.allowances[spender] = new(uint256.Int).Set(value)
	l.emitter.Emit(events.Approval{Owner: owner, Spender: spender, Value: value.ToBig()})
	return nil
}

// IncreaseAllowance raises the spender allowance additively.
func (l *Ledger) IncreaseAllowance(owner, spender [20]byte, amount *big.Int) error {
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.allowanceLocked(owner, spender)
	next, overflow := new(uint256.Int).AddOverflow(current, value)
	if overflow {
		return ErrArithmetic
	}
	return l.approveLocked(owner, spender, next)
}

// DecreaseAllowance lowers the spender allowance additively and fails rather
// than letting it go negative.
func (l *Ledger) DecreaseAllowance(owner, spender [20]byte, amount *big.Int) error {
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.allowanceLocked(owner, spender)
	if current.Cmp(value) < 0 {
		return ErrAllowanceUnderflow
	}
	return l.approveLocked(owner, spender, new(uint256.Int).Sub(current, value))
}

// TransferFrom moves amount from the token owner to the recipient on the
// authority of the calling spender, consuming allowance unless the unlimited
// sentinel is set. The allowance is only consumed once the transfer itself
// has succeeded, keeping the operation all-or-nothing.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.allowanceLocked(from, spender)
	consume := current.Cmp(unlimitedAllowance) != 0
	if consume && current.Cmp(value) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.transferLocked(from, to, value); err != nil {
		return err
	}
	if consume {
		return l.approveLocked(from, spender, new(uint256.Int).Sub(current, value))
	}
	return nil
}
