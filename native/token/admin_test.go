package token

import (
	"math/big"
	"testing"

	"reflectledger/core/events"
)

func TestAdminRequiresOwner(t *testing.T) {
	l := newTestLedger(t)
	intruder := addr3

	checks := []struct {
		name string
		call func() error
	}{
		{"enableTrading", func() error { return l.EnableTrading(intruder, testPair) }},
		{"setFeeRate", func() error { return l.SetFeeRate(intruder, 100) }},
		{"excludeFromFee", func() error { return l.ExcludeFromFee(intruder, addr1) }},
		{"includeInFee", func() error { return l.IncludeInFee(intruder, addr1) }},
		{"excludeFromReward", func() error { return l.ExcludeFromReward(intruder, addr1) }},
		{"includeInReward", func() error { return l.IncludeInReward(intruder, addr1) }},
		{"addToBlacklist", func() error { return l.AddToBlacklist(intruder, addr1) }},
		{"removeFromBlacklist", func() error { return l.RemoveFromBlacklist(intruder, addr1) }},
		{"sweep", func() error { return l.Sweep(intruder, testSelf, addr1) }},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != ErrUnauthorized {
				t.Fatalf("got %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestEnableTrading(t *testing.T) {
	l := newTestLedger(t)
	if err := l.EnableTrading(testOwner, zeroAddress); err != ErrInvalidRecipient {
		t.Fatalf("zero pair: got %v, want ErrInvalidRecipient", err)
	}
	enableTrading(t, l)
	if !l.TradingEnabled() {
		t.Fatalf("trading not enabled")
	}
	if got := l.LiquidityPair(); got != testPair {
		t.Fatalf("pair = %x, want %x", got, testPair)
	}
	// The switch is one-way; a second call only updates the pair.
	other := testAddr(0x77)
	if err := l.EnableTrading(testOwner, other); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if !l.TradingEnabled() {
		t.Fatalf("trading toggled off")
	}
	if got := l.LiquidityPair(); got != other {
		t.Fatalf("pair = %x, want %x", got, other)
	}
}

func TestSetFeeRate(t *testing.T) {
	l := newTestLedger(t)
	if err := l.SetFeeRate(testOwner, MaxFeeBps); err != nil {
		t.Fatalf("set max fee: %v", err)
	}
	if got := l.TxFee(); got != MaxFeeBps {
		t.Fatalf("fee = %d, want %d", got, MaxFeeBps)
	}
	if err := l.SetFeeRate(testOwner, MaxFeeBps+1); err != ErrFeeTooHigh {
		t.Fatalf("above ceiling: got %v, want ErrFeeTooHigh", err)
	}
	if got := l.TxFee(); got != MaxFeeBps {
		t.Fatalf("fee changed on rejected update: %d", got)
	}
	if err := l.SetFeeRate(testOwner, 0); err != nil {
		t.Fatalf("zero fee: %v", err)
	}

	// A zero fee makes every transfer exact.
	enableTrading(t, l)
	if err := l.Transfer(testOwner, addr1, tokens(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := l.Transfer(addr1, addr2, tokens(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := mustBalance(t, l, addr2); got.Cmp(tokens(40)) != 0 {
		t.Fatalf("recipient balance = %s, want %s", got, tokens(40))
	}
}

func TestFeeExemptionFlags(t *testing.T) {
	l := newTestLedger(t)
	sink := &eventSink{}
	l.SetEmitter(sink)

	if err := l.ExcludeFromFee(testOwner, addr1); err != nil {
		t.Fatalf("exclude from fee: %v", err)
	}
	if !l.IsExcludedFromFee(addr1) {
		t.Fatalf("flag not set")
	}
	// Repeating is a silent no-op.
	if err := l.ExcludeFromFee(testOwner, addr1); err != nil {
		t.Fatalf("repeat exclude: %v", err)
	}
	if err := l.IncludeInFee(testOwner, addr1); err != nil {
		t.Fatalf("include in fee: %v", err)
	}
	if l.IsExcludedFromFee(addr1) {
		t.Fatalf("flag not cleared")
	}
	if got := len(sink.ofType(events.TypeFeeExemption)); got != 2 {
		t.Fatalf("fee-exemption events = %d, want 2", got)
	}
}

func TestSweepSelfToken(t *testing.T) {
	l := newTestLedger(t)
	enableTrading(t, l)
	sink := &eventSink{}
	l.SetEmitter(sink)

	// Strand some tokens at the ledger address.
	amount := tokens(12345)
	if err := l.Transfer(testOwner, testSelf, amount); err != nil {
		t.Fatalf("strand tokens: %v", err)
	}

	if err := l.Sweep(testOwner, testSelf, zeroAddress); err != ErrInvalidRecipient {
		t.Fatalf("zero recipient: got %v, want ErrInvalidRecipient", err)
	}
	if err := l.Sweep(testOwner, testSelf, addr1); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// The ledger address is fee-exempt, so the sweep moves the exact amount.
	if got := mustBalance(t, l, addr1); got.Cmp(amount) != 0 {
		t.Fatalf("recipient balance = %s, want %s", got, amount)
	}
	if got := mustBalance(t, l, testSelf); got.Sign() != 0 {
		t.Fatalf("ledger balance not drained: %s", got)
	}
	if got := len(sink.ofType(events.TypeSweep)); got != 1 {
		t.Fatalf("sweep events = %d, want 1", got)
	}

	// Nothing left to sweep.
	if err := l.Sweep(testOwner, testSelf, addr1); err != ErrInsufficientBalance {
		t.Fatalf("empty sweep: got %v, want ErrInsufficientBalance", err)
	}
}

// fakeForeignToken backs sweep tests for non-native tokens.
type fakeForeignToken struct {
	balances map[[20]byte]*big.Int
	fail     bool
}

func (f *fakeForeignToken) BalanceOf(holder [20]byte) *big.Int {
	return f.balances[holder]
}

func (f *fakeForeignToken) Transfer(to [20]byte, amount *big.Int) bool {
	if f.fail {
		return false
	}
	src := f.balances
	if current, ok := src[to]; ok {
		src[to] = new(big.Int).Add(current, amount)
	} else {
		src[to] = new(big.Int).Set(amount)
	}
	return true
}

func TestSweepForeignToken(t *testing.T) {
	l := newTestLedger(t)
	foreignAddr := testAddr(0xaa)

	if err := l.Sweep(testOwner, foreignAddr, addr1); err != ErrUnknownToken {
		t.Fatalf("unregistered token: got %v, want ErrUnknownToken", err)
	}

	mover := &fakeForeignToken{balances: map[[20]byte]*big.Int{
		testSelf: big.NewInt(9000),
	}}
	l.RegisterForeignToken(foreignAddr, mover)

	if err := l.Sweep(testOwner, foreignAddr, addr1); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := mover.balances[addr1]; got == nil || got.Cmp(big.NewInt(9000)) != 0 {
		t.Fatalf("foreign recipient balance = %v, want 9000", got)
	}
}

func TestSweepForeignTokenFailures(t *testing.T) {
	l := newTestLedger(t)
	foreignAddr := testAddr(0xaa)

	empty := &fakeForeignToken{balances: map[[20]byte]*big.Int{}}
	l.RegisterForeignToken(foreignAddr, empty)
	if err := l.Sweep(testOwner, foreignAddr, addr1); err != ErrInsufficientBalance {
		t.Fatalf("empty foreign balance: got %v, want ErrInsufficientBalance", err)
	}

	broken := &fakeForeignToken{
		balances: map[[20]byte]*big.Int{testSelf: big.NewInt(1)},
		fail:     true,
	}
	l.RegisterForeignToken(foreignAddr, broken)
	if err := l.Sweep(testOwner, foreignAddr, addr1); err != ErrSweepFailed {
		t.Fatalf("failed foreign transfer: got %v, want ErrSweepFailed", err)
	}

	l.RegisterForeignToken(foreignAddr, nil)
	if err := l.Sweep(testOwner, foreignAddr, addr1); err != ErrUnknownToken {
		t.Fatalf("deregistered token: got %v, want ErrUnknownToken", err)
	}
}
