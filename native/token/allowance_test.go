package token

import (
	"math/big"
	"testing"

	"reflectledger/core/events"
)

// eventSink collects emitted events for assertions.
type eventSink struct {
	events []events.Event
}

func (s *eventSink) Emit(evt events.Event) {
	s.events = append(s.events, evt)
}

func (s *eventSink) ofType(eventType string) []events.Event {
	var out []events.Event
	for _, evt := range s.events {
		if evt.EventType() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func maxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

func TestApproveAndAllowance(t *testing.T) {
	l := newTestLedger(t)
	if got := l.Allowance(testOwner, addr1); got.Sign() != 0 {
		t.Fatalf("initial allowance = %s, want 0", got)
	}
	if err := l.Approve(testOwner, addr1, tokens(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(tokens(500)) != 0 {
		t.Fatalf("allowance = %s, want %s", got, tokens(500))
	}
	// Approve is absolute, not additive.
	if err := l.Approve(testOwner, addr1, tokens(100)); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(tokens(100)) != 0 {
		t.Fatalf("allowance = %s, want %s", got, tokens(100))
	}
}

func TestApproveRejectsZeroSpender(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Approve(testOwner, zeroAddress, tokens(1)); err != ErrInvalidSpender {
		t.Fatalf("expected ErrInvalidSpender, got %v", err)
	}
}

func TestIncreaseDecreaseAllowance(t *testing.T) {
	l := newTestLedger(t)
	if err := l.IncreaseAllowance(testOwner, addr1, tokens(300)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := l.IncreaseAllowance(testOwner, addr1, tokens(200)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(tokens(500)) != 0 {
		t.Fatalf("allowance = %s, want %s", got, tokens(500))
	}
	if err := l.DecreaseAllowance(testOwner, addr1, tokens(450)); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(tokens(50)) != 0 {
		t.Fatalf("allowance = %s, want %s", got, tokens(50))
	}
	if err := l.DecreaseAllowance(testOwner, addr1, tokens(51)); err != ErrAllowanceUnderflow {
		t.Fatalf("underflow: got %v, want ErrAllowanceUnderflow", err)
	}
}

func TestIncreaseAllowanceOverflow(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Approve(testOwner, addr1, maxUint256()); err != nil {
		t.Fatalf("approve max: %v", err)
	}
	if err := l.IncreaseAllowance(testOwner, addr1, big.NewInt(1)); err != ErrArithmetic {
		t.Fatalf("overflow: got %v, want ErrArithmetic", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	l := newTestLedger(t)
	sink := &eventSink{}
	l.SetEmitter(sink)

	if err := l.Approve(testOwner, addr1, tokens(1000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(addr1, testOwner, addr2, tokens(400)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(tokens(600)) != 0 {
		t.Fatalf("residual allowance = %s, want %s", got, tokens(600))
	}
	if got := mustBalance(t, l, addr2); got.Cmp(tokens(400)) != 0 {
		t.Fatalf("recipient balance = %s, want %s", got, tokens(400))
	}

	// Consuming the allowance goes through the approval path, so the reset
	// is announced as a second Approval event.
	approvals := sink.ofType(events.TypeApproval)
	if len(approvals) != 2 {
		t.Fatalf("approval events = %d, want 2", len(approvals))
	}
	last, ok := approvals[len(approvals)-1].(events.Approval)
	if !ok {
		t.Fatalf("unexpected event type %T", approvals[len(approvals)-1])
	}
	if last.Value.Cmp(tokens(600)) != 0 {
		t.Fatalf("reset approval value = %s, want %s", last.Value, tokens(600))
	}
}

func TestTransferFromInsufficientAllowance(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Approve(testOwner, addr1, tokens(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(addr1, testOwner, addr2, tokens(101)); err != ErrInsufficientAllowance {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	// The allowance check runs before the transfer, so balances are intact.
	if got := mustBalance(t, l, addr2); got.Sign() != 0 {
		t.Fatalf("recipient balance moved: %s", got)
	}
}

func TestTransferFromFailedTransferKeepsAllowance(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Approve(addr1, addr2, tokens(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// addr1 has no balance, so the inner transfer fails after the allowance
	// check passed. The allowance must survive.
	if err := l.TransferFrom(addr2, addr1, addr3, tokens(50)); err != ErrTradingNotStarted {
		t.Fatalf("expected ErrTradingNotStarted, got %v", err)
	}
	if got := l.Allowance(addr1, addr2); got.Cmp(tokens(100)) != 0 {
		t.Fatalf("allowance = %s, want %s", got, tokens(100))
	}
}

func TestTransferFromUnlimitedAllowance(t *testing.T) {
	l := newTestLedger(t)
	sink := &eventSink{}
	l.SetEmitter(sink)

	if err := l.Approve(testOwner, addr1, maxUint256()); err != nil {
		t.Fatalf("approve max: %v", err)
	}
	if err := l.TransferFrom(addr1, testOwner, addr2, tokens(400)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := l.Allowance(testOwner, addr1); got.Cmp(maxUint256()) != 0 {
		t.Fatalf("unlimited allowance was consumed: %s", got)
	}
	// No reset approval is emitted for the unlimited sentinel.
	if approvals := sink.ofType(events.TypeApproval); len(approvals) != 1 {
		t.Fatalf("approval events = %d, want 1", len(approvals))
	}
}
