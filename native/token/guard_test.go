package token

import (
	"errors"
	"math/big"
	"testing"
)

func TestGuardPrecedence(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Transfer(testOwner, addr1, tokens(1000)); err != nil {
		t.Fatalf("seed addr1: %v", err)
	}
	if err := l.AddToBlacklist(testOwner, addr2); err != nil {
		t.Fatalf("blacklist addr2: %v", err)
	}

	// The zero-recipient check outranks blacklist and trading checks.
	if err := l.Transfer(addr2, zeroAddress, tokens(1)); err != ErrInvalidRecipient {
		t.Fatalf("zero recipient: got %v, want ErrInvalidRecipient", err)
	}
	// Blacklist outranks the launch switch: a barred party fails with
	// ErrBlacklisted even while trading is disabled.
	if err := l.Transfer(addr2, addr1, tokens(1)); err != ErrBlacklisted {
		t.Fatalf("blacklisted sender: got %v, want ErrBlacklisted", err)
	}
	if err := l.Transfer(addr1, addr2, tokens(1)); err != ErrBlacklisted {
		t.Fatalf("blacklisted recipient: got %v, want ErrBlacklisted", err)
	}
	// Launch switch outranks balance sufficiency.
	if err := l.Transfer(addr3, addr1, tokens(1)); err != ErrTradingNotStarted {
		t.Fatalf("pre-launch: got %v, want ErrTradingNotStarted", err)
	}

	enableTrading(t, l)
	if err := l.Transfer(addr3, addr1, tokens(1)); err != ErrInsufficientBalance {
		t.Fatalf("empty sender: got %v, want ErrInsufficientBalance", err)
	}
}

func TestGuardOwnerBlacklistable(t *testing.T) {
	l := newTestLedger(t)
	if err := l.AddToBlacklist(testOwner, testOwner); err != nil {
		t.Fatalf("blacklist owner: %v", err)
	}
	if err := l.Transfer(testOwner, addr1, tokens(1)); err != ErrBlacklisted {
		t.Fatalf("blacklisted owner transfer: got %v, want ErrBlacklisted", err)
	}
	if err := l.RemoveFromBlacklist(testOwner, testOwner); err != nil {
		t.Fatalf("unblacklist owner: %v", err)
	}
	if err := l.Transfer(testOwner, addr1, tokens(1)); err != nil {
		t.Fatalf("transfer after unblacklist: %v", err)
	}
}

func TestBlacklistRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	enableTrading(t, l)
	if err := l.Transfer(testOwner, addr1, tokens(100)); err != nil {
		t.Fatalf("seed addr1: %v", err)
	}

	if err := l.AddToBlacklist(testOwner, addr1); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if !l.IsBlacklisted(addr1) {
		t.Fatalf("account not reported blacklisted")
	}
	if err := l.Transfer(addr1, addr2, tokens(1)); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("barred transfer: got %v", err)
	}

	if err := l.RemoveFromBlacklist(testOwner, addr1); err != nil {
		t.Fatalf("unblacklist: %v", err)
	}
	if l.IsBlacklisted(addr1) {
		t.Fatalf("account still reported blacklisted")
	}
	if err := l.Transfer(addr1, addr2, tokens(1)); err != nil {
		t.Fatalf("transfer after unblacklist: %v", err)
	}
}

func TestGuardBalanceCheckUsesDisplayUnits(t *testing.T) {
	l := newTestLedger(t)
	enableTrading(t, l)
	if err := l.Transfer(testOwner, addr1, tokens(100)); err != nil {
		t.Fatalf("seed addr1: %v", err)
	}

	// Spending the exact display balance must be allowed.
	bal := mustBalance(t, l, addr1)
	if err := l.Transfer(addr1, addr2, bal); err != nil {
		t.Fatalf("spend full balance: %v", err)
	}
	one := new(big.Int).Add(mustBalance(t, l, addr1), big.NewInt(1))
	if err := l.Transfer(addr1, addr2, one); err != ErrInsufficientBalance {
		t.Fatalf("overspend: got %v, want ErrInsufficientBalance", err)
	}
}
