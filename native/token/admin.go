package token

import (
	"reflectledger/core/events"
)

func (l *Ledger) requireOwner(caller [20]byte) error {
	if caller != l.owner {
		return ErrUnauthorized
	}
	return nil
}

// EnableTrading flips the launch switch and designates the AMM pair address.
// The switch is one-way; repeated calls only update the pair address.
func (l *Ledger) EnableTrading(caller, pair [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if pair == zeroAddress {
		return ErrInvalidRecipient
	}
	l.tradingEnabled = true
	l.liquidityPair = pair
	l.emitter.Emit(events.TradingEnabled{Pair: pair})
	return nil
}

// SetFeeRate updates the transfer fee, bounded by MaxFeeBps.
func (l *Ledger) SetFeeRate(caller [20]byte, bps uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if bps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	l.feeBps = bps
	l.emitter.Emit(events.FeeRateChanged{Bps: bps})
	return nil
}

// ExcludeFromFee marks an account so transfers touching it carry no fee.
func (l *Ledger) ExcludeFromFee(caller, addr [20]byte) error {
	return l.setFeeExempt(caller, addr, true)
}

// IncludeInFee restores fee deduction for transfers touching the account.
func (l *Ledger) IncludeInFee(caller, addr [20]byte) error {
	return l.setFeeExempt(caller, addr, false)
}

func (l *Ledger) setFeeExempt(caller, addr [20]byte, exempt bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	acct := l.ensureAccount(addr)
	if acct.feeExempt == exempt {
		return nil
	}
	acct.feeExempt = exempt
	l.emitter.Emit(events.FeeExemption{Account: addr, Exempt: exempt})
	return nil
}

// ExcludeFromReward removes an account from the reflection pool.
func (l *Ledger) ExcludeFromReward(caller, addr [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.excludeFromRewardLocked(addr)
}

// IncludeInReward restores an account to the reflection pool.
func (l *Ledger) IncludeInReward(caller, addr [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.includeInRewardLocked(addr)
}

// AddToBlacklist bars an account from sending and receiving.
func (l *Ledger) AddToBlacklist(caller, addr [20]byte) error {
	return l.setBlacklisted(caller, addr, true)
}

// RemoveFromBlacklist lifts the transfer bar on an account.
func (l *Ledger) RemoveFromBlacklist(caller, addr [20]byte) error {
	return l.setBlacklisted(caller, addr, false)
}

func (l *Ledger) setBlacklisted(caller, addr [20]byte, listed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	acct := l.ensureAccount(addr)
	if acct.blacklisted == listed {
		return nil
	}
	acct.blacklisted = listed
	l.emitter.Emit(events.Blacklist{Account: addr, Listed: listed})
	return nil
}

// Sweep moves the full balance a token holds at the ledger address to the
// recipient. The ledger's own token travels the normal fee-exempt transfer
// path; foreign tokens are dispatched through their registered capability.
func (l *Ledger) Sweep(caller, tokenAddr, recipient [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if recipient == zeroAddress {
		return ErrInvalidRecipient
	}

	if tokenAddr == l.self {
		balance, err := l.balanceLocked(l.self)
		if err != nil {
			return err
		}
		if balance.IsZero() {
			return ErrInsufficientBalance
		}
		if err := l.transferLocked(l.self, recipient, balance); err != nil {
			return err
		}
		l.emitter.Emit(events.Sweep{Token: tokenAddr, Recipient: recipient, Amount: balance.ToBig()})
		return nil
	}

	mover, ok := l.foreign[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	balance := mover.BalanceOf(l.self)
	if balance == nil || balance.Sign() <= 0 {
		return ErrInsufficientBalance
	}
	if !mover.Transfer(recipient, balance) {
		return ErrSweepFailed
	}
	l.emitter.Emit(events.Sweep{Token: tokenAddr, Recipient: recipient, Amount: balance})
	return nil
}
