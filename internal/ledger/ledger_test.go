package ledger

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

var (
	collection = addr(1)
	alice      = addr(0xa1)
	bob        = addr(0xb0)
)

func newLedger() *Ledger {
	return New(storage.NewMemory())
}

func TestIssueSequential(t *testing.T) {
	l := newLedger()

	first, err := l.Issue(collection, alice, 3)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if first != 1 {
		t.Errorf("first id = %d, want 1", first)
	}

	second, err := l.Issue(collection, bob, 2)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if second != 4 {
		t.Errorf("second run start = %d, want 4", second)
	}

	for id := types.TokenID(1); id <= 3; id++ {
		owner, err := l.OwnerOf(collection, id)
		if err != nil || owner != alice {
			t.Errorf("OwnerOf(%d) = %v, %v; want alice", id, owner, err)
		}
	}
	if owner, _ := l.OwnerOf(collection, 5); owner != bob {
		t.Errorf("OwnerOf(5) = %v, want bob", owner)
	}
}

func TestIssueZeroCount(t *testing.T) {
	l := newLedger()
	if _, err := l.Issue(collection, alice, 0); err == nil {
		t.Error("expected error for zero count")
	}
}

func TestTransferAndDestroy(t *testing.T) {
	l := newLedger()
	if _, err := l.Issue(collection, alice, 1); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := l.Transfer(collection, bob, alice, 1); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := l.Transfer(collection, alice, bob, 1); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if owner, _ := l.OwnerOf(collection, 1); owner != bob {
		t.Errorf("owner after transfer = %v, want bob", owner)
	}

	if err := l.Destroy(collection, 1); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := l.OwnerOf(collection, 1); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken after destroy, got %v", err)
	}
	if err := l.Destroy(collection, 1); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("double destroy should fail, got %v", err)
	}
}

func TestFungibleBalances(t *testing.T) {
	l := newLedger()

	if err := l.IssueAmount(collection, alice, 0, 100); err != nil {
		t.Fatalf("IssueAmount: %v", err)
	}
	if err := l.TransferAmount(collection, alice, bob, 0, 30); err != nil {
		t.Fatalf("TransferAmount: %v", err)
	}
	if err := l.TransferAmount(collection, alice, bob, 0, 1000); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := l.DestroyAmount(collection, bob, 0, 10); err != nil {
		t.Fatalf("DestroyAmount: %v", err)
	}

	if bal, _ := l.BalanceOf(collection, alice, 0); bal != 70 {
		t.Errorf("alice balance = %d, want 70", bal)
	}
	if bal, _ := l.BalanceOf(collection, bob, 0); bal != 20 {
		t.Errorf("bob balance = %d, want 20", bal)
	}
}

func TestNativeFunds(t *testing.T) {
	l := newLedger()

	if err := l.Credit(alice, 500); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := l.Debit(alice, 200); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := l.Debit(alice, 1000); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if bal, _ := l.NativeBalance(alice); bal != 300 {
		t.Errorf("balance = %d, want 300", bal)
	}
}

func TestTransferFromUsesIDZero(t *testing.T) {
	l := newLedger()
	currency := addr(0xcc)

	if err := l.IssueAmount(currency, alice, 0, 50); err != nil {
		t.Fatalf("IssueAmount: %v", err)
	}
	if err := l.TransferFrom(currency, alice, bob, 20); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if bal, _ := l.BalanceOf(currency, bob, 0); bal != 20 {
		t.Errorf("bob currency balance = %d, want 20", bal)
	}
}

func TestRoles(t *testing.T) {
	l := newLedger()

	if l.IsAdministrator(alice, collection) {
		t.Error("no grants yet")
	}
	if err := l.AddAdministrator(collection, alice); err != nil {
		t.Fatalf("AddAdministrator: %v", err)
	}
	if !l.IsAdministrator(alice, collection) {
		t.Error("granted admin should hold")
	}
	if l.IsAdministrator(alice, addr(9)) {
		t.Error("admin grant is per collection")
	}
	if err := l.RemoveAdministrator(collection, alice); err != nil {
		t.Fatalf("RemoveAdministrator: %v", err)
	}
	if l.IsAdministrator(alice, collection) {
		t.Error("revoked admin should not hold")
	}

	if err := l.AddMember(bob); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if !l.IsActiveMember(bob) || l.IsActiveMember(alice) {
		t.Error("membership should apply only to bob")
	}
}

func TestDelegation(t *testing.T) {
	l := newLedger()

	if l.IsDelegateFor(alice, bob, collection) {
		t.Error("no delegation yet")
	}
	if err := l.AddDelegate(collection, alice, bob); err != nil {
		t.Fatalf("AddDelegate: %v", err)
	}
	if !l.IsDelegateFor(alice, bob, collection) {
		t.Error("scoped delegation should hold")
	}
	if l.IsDelegateFor(alice, bob, addr(9)) {
		t.Error("scoped delegation must not leak to other collections")
	}

	// Global delegation applies everywhere.
	if err := l.AddDelegate(types.Address{}, bob, alice); err != nil {
		t.Fatalf("AddDelegate global: %v", err)
	}
	if !l.IsDelegateFor(bob, alice, collection) || !l.IsDelegateFor(bob, alice, addr(9)) {
		t.Error("global delegation should apply to every collection")
	}
}
