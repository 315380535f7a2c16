package claims

import (
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	"github.com/Klingon-tech/klingnet-claims/internal/ledger"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

func TestAirdropAdminGate(t *testing.T) {
	e := newEnv(t)
	e.initClaim(t, 1, baseConfig())

	if _, err := e.engine.Airdrop(alice, collection, 1, []types.Address{bob}, []uint32{1}); !errors.Is(err, ErrNotAdministrator) {
		t.Errorf("expected ErrNotAdministrator, got %v", err)
	}
}

func TestAirdropValidation(t *testing.T) {
	e := newEnv(t)
	e.initClaim(t, 1, baseConfig())

	if _, err := e.engine.Airdrop(admin, collection, 1, []types.Address{alice, bob}, []uint32{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := e.engine.Airdrop(admin, collection, 1, []types.Address{alice}, []uint32{0}); !errors.Is(err, ErrZeroCount) {
		t.Errorf("expected ErrZeroCount, got %v", err)
	}
	if _, err := e.engine.Airdrop(admin, collection, 1,
		[]types.Address{alice, bob}, []uint32{math.MaxUint32, 2}); !errors.Is(err, ErrCountOverflow) {
		t.Errorf("expected ErrCountOverflow, got %v", err)
	}
}

func TestAirdropBypassesWindowAndPayment(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig() // price 1000, but airdrops never charge
	cfg.StartTime = 2_000_000
	e.initClaim(t, 1, cfg)

	results, err := e.engine.Airdrop(admin, collection, 1, []types.Address{alice, bob}, []uint32{2, 1})
	if err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if results[0].First != 1 || results[0].Count != 2 {
		t.Errorf("result 0 = %+v, want first 1 count 2", results[0])
	}
	if results[1].First != 3 {
		t.Errorf("result 1 first = %d, want 3", results[1].First)
	}
	if owner, _ := e.led.OwnerOf(collection, 2); owner != alice {
		t.Errorf("unit 2 owner = %v, want alice", owner)
	}
	if owner, _ := e.led.OwnerOf(collection, 3); owner != bob {
		t.Errorf("unit 3 owner = %v, want bob", owner)
	}

	claim, _ := e.engine.GetClaim(collection, 1)
	if claim.Total != 3 {
		t.Errorf("Total = %d, want 3", claim.Total)
	}
}

func TestAirdropRaisesTotalMax(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.TotalMax = 1
	e.initClaim(t, 1, cfg)

	if _, err := e.engine.Airdrop(admin, collection, 1, []types.Address{alice}, []uint32{3}); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	claim, _ := e.engine.GetClaim(collection, 1)
	if claim.Total != 3 || claim.TotalMax != 3 {
		t.Errorf("Total/TotalMax = %d/%d, want 3/3", claim.Total, claim.TotalMax)
	}
}

// haltingIssuer issues normally for a set number of calls, then refuses.
type haltingIssuer struct {
	*ledger.Ledger
	allowed int
	calls   int
}

func (h *haltingIssuer) Issue(collection, to types.Address, count uint32) (types.TokenID, error) {
	h.calls++
	if h.calls > h.allowed {
		return 0, errors.New("issuance offline")
	}
	return h.Ledger.Issue(collection, to, count)
}

func TestAirdropPartialFailureReconcilesTotal(t *testing.T) {
	db := storage.NewMemory()
	led := ledger.New(storage.NewPrefixDB(db, []byte("ledger/")))
	store := NewStore(storage.NewPrefixDB(db, []byte("claims/")))

	engine := NewEngine(store, &haltingIssuer{Ledger: led, allowed: 1}, led, led, Params{
		Fees:         fees.Schedule{MintFee: 100, MintFeeMerkle: 250},
		FeeRecipient: feeRecipient,
		Now:          func() int64 { return 1 },
	})
	if err := led.AddAdministrator(collection, admin); err != nil {
		t.Fatalf("AddAdministrator: %v", err)
	}
	cfg := baseConfig()
	cfg.WalletMax = 5
	if err := engine.InitializeClaim(admin, collection, 1, cfg); err != nil {
		t.Fatalf("InitializeClaim: %v", err)
	}

	results, err := engine.Airdrop(admin, collection, 1, []types.Address{alice, bob}, []uint32{2, 1})
	if err == nil {
		t.Fatal("expected issue failure on the second recipient")
	}
	if len(results) != 1 || results[0].Count != 2 {
		t.Fatalf("results = %+v, want the first issuance only", results)
	}

	// The issued count covers only what actually went out, and the failed
	// recipient's wallet counter was rolled back.
	claim, _ := engine.GetClaim(collection, 1)
	if claim.Total != 2 {
		t.Errorf("Total = %d, want 2", claim.Total)
	}
	count, err := engine.MintCount(collection, 1, alice)
	if err != nil || count != 2 {
		t.Errorf("alice MintCount = %d, %v; want 2", count, err)
	}
	count, err = engine.MintCount(collection, 1, bob)
	if err != nil || count != 0 {
		t.Errorf("bob MintCount = %d, %v; want 0", count, err)
	}
}

func TestAirdropCountsTowardWalletCap(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	cfg.WalletMax = 2
	e.initClaim(t, 1, cfg)
	e.fund(t, alice, 1_000)

	if _, err := e.engine.Airdrop(admin, collection, 1, []types.Address{alice, alice}, []uint32{1, 1}); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	count, err := e.engine.MintCount(collection, 1, alice)
	if err != nil || count != 2 {
		t.Fatalf("MintCount = %d, %v; want 2", count, err)
	}

	// The airdropped units fill the recipient's cap.
	if _, err := e.engine.Mint(MintRequest{Caller: alice, Collection: collection, ClaimID: 1, Count: 1, Payment: 1_000}); !errors.Is(err, ErrWalletLimit) {
		t.Errorf("expected ErrWalletLimit, got %v", err)
	}
}
