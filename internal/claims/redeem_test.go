package claims

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	"github.com/Klingon-tech/klingnet-claims/internal/ledger"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
)

var assets = addr(5)

func uniqueSinkSpec() *burn.Spec {
	return &burn.Spec{Groups: []burn.Group{{
		RequiredCount: 1,
		Items: []burn.Item{{
			Collection:  assets,
			Asset:       burn.AssetUnique,
			Destruction: burn.DestroySink,
			Predicate:   burn.PredicateAny,
		}},
	}}}
}

func TestSetBurnRequirements(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	if err := e.engine.SetBurnRequirements(alice, collection, 1, uniqueSinkSpec()); !errors.Is(err, ErrNotAdministrator) {
		t.Errorf("expected ErrNotAdministrator, got %v", err)
	}
	if err := e.engine.SetBurnRequirements(admin, collection, 99, uniqueSinkSpec()); err == nil {
		t.Error("expected error for missing claim")
	}
	if err := e.engine.SetBurnRequirements(admin, collection, 1, &burn.Spec{}); err == nil {
		t.Error("expected validation error for empty spec")
	}
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	got, err := e.engine.GetBurnRequirements(collection, 1)
	if err != nil {
		t.Fatalf("GetBurnRequirements: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0].RequiredCount != 1 {
		t.Errorf("stored spec = %+v", got)
	}
}

func TestGetBurnRequirementsNone(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	e.initClaim(t, 1, cfg)

	if _, err := e.engine.GetBurnRequirements(collection, 1); !errors.Is(err, burn.ErrNoSpec) {
		t.Errorf("expected ErrNoSpec, got %v", err)
	}
}

func TestRedeemWithoutSpec(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	_, err := e.engine.Redeem(RedeemRequest{Caller: alice, Collection: collection, ClaimID: 1, Multiplier: 1})
	if !errors.Is(err, burn.ErrNoSpec) {
		t.Errorf("expected ErrNoSpec, got %v", err)
	}
}

func TestRedeemSinkTransfer(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	tokenID, err := e.led.Issue(assets, alice, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}
	e.fund(t, alice, 1_000)

	res, err := e.engine.Redeem(RedeemRequest{
		Caller:     alice,
		Collection: collection,
		ClaimID:    1,
		Multiplier: 1,
		Submissions: []burn.Submission{
			{GroupIndex: 0, ItemIndex: 0, TokenID: tokenID},
		},
		Payment: 1_000,
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("Count = %d, want 1", res.Count)
	}

	// The surrendered asset moved to the sink; the reward is owned by alice.
	owner, err := e.led.OwnerOf(assets, tokenID)
	if err != nil || owner != sink {
		t.Errorf("surrendered asset owner = %v, %v; want sink", owner, err)
	}
	owner, err = e.led.OwnerOf(collection, res.First)
	if err != nil || owner != alice {
		t.Errorf("reward owner = %v, %v; want alice", owner, err)
	}
	claim, _ := e.engine.GetClaim(collection, 1)
	if claim.Total != 1 {
		t.Errorf("Total = %d, want 1", claim.Total)
	}
}

func TestRedeemWrongOwner(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	tokenID, err := e.led.Issue(assets, bob, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}
	e.fund(t, alice, 1_000)

	_, err = e.engine.Redeem(RedeemRequest{
		Caller:      alice,
		Collection:  collection,
		ClaimID:     1,
		Multiplier:  1,
		Submissions: []burn.Submission{{TokenID: tokenID}},
		Payment:     1_000,
	})
	if !errors.Is(err, burn.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	// Nothing issued, nothing taken.
	claim, _ := e.engine.GetClaim(collection, 1)
	if claim.Total != 0 {
		t.Errorf("Total = %d, want 0", claim.Total)
	}
	if owner, _ := e.led.OwnerOf(assets, tokenID); owner != bob {
		t.Errorf("asset owner = %v, want untouched bob", owner)
	}
}

func TestRedeemFungibleNativeDestroy(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	spec := &burn.Spec{Groups: []burn.Group{{
		RequiredCount: 1,
		Items: []burn.Item{{
			Collection:  assets,
			Asset:       burn.AssetFungible,
			Destruction: burn.DestroyNative,
			Amount:      10,
			Predicate:   burn.PredicateAny,
		}},
	}}}
	if err := e.engine.SetBurnRequirements(admin, collection, 1, spec); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	if err := e.led.IssueAmount(assets, alice, 7, 25); err != nil {
		t.Fatalf("IssueAmount: %v", err)
	}
	e.fund(t, alice, 1_000)

	// Oversupplied amount: only the required quantity is consumed.
	_, err := e.engine.Redeem(RedeemRequest{
		Caller:      alice,
		Collection:  collection,
		ClaimID:     1,
		Multiplier:  1,
		Submissions: []burn.Submission{{TokenID: 7, Amount: 17}},
		Payment:     1_000,
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if bal, _ := e.led.BalanceOf(assets, alice, 7); bal != 15 {
		t.Errorf("remaining balance = %d, want 15", bal)
	}
}

func TestRedeemAggregateBalanceShortfall(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	spec := &burn.Spec{Groups: []burn.Group{{
		RequiredCount: 1,
		Items: []burn.Item{{
			Collection:  assets,
			Asset:       burn.AssetFungible,
			Destruction: burn.DestroySink,
			Amount:      10,
			Predicate:   burn.PredicateAny,
		}},
	}}}
	if err := e.engine.SetBurnRequirements(admin, collection, 1, spec); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	if err := e.led.IssueAmount(assets, alice, 3, 10); err != nil {
		t.Fatalf("IssueAmount: %v", err)
	}
	e.fund(t, alice, 1_000)

	// Two sets draw 20 units from the same balance of 10. The shortfall
	// must be caught before anything reaches the sink.
	_, err := e.engine.Redeem(RedeemRequest{
		Caller:     alice,
		Collection: collection,
		ClaimID:    1,
		Multiplier: 2,
		Submissions: []burn.Submission{
			{TokenID: 3, Amount: 10},
			{TokenID: 3, Amount: 10},
		},
		Payment: 1_000,
	})
	if !errors.Is(err, burn.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if bal, _ := e.led.BalanceOf(assets, alice, 3); bal != 10 {
		t.Errorf("alice balance = %d, want untouched 10", bal)
	}
	if bal, _ := e.led.BalanceOf(assets, sink, 3); bal != 0 {
		t.Errorf("sink balance = %d, want 0", bal)
	}
	claim, _ := e.engine.GetClaim(collection, 1)
	if claim.Total != 0 {
		t.Errorf("Total = %d, want 0", claim.Total)
	}
}

func TestRedeemIssueFailureRefunds(t *testing.T) {
	db := storage.NewMemory()
	led := ledger.New(storage.NewPrefixDB(db, []byte("ledger/")))
	store := NewStore(storage.NewPrefixDB(db, []byte("claims/")))

	engine := NewEngine(store, &failingIssuer{led}, led, led, Params{
		Fees:         fees.Schedule{MintFee: 100, MintFeeMerkle: 250},
		FeeRecipient: feeRecipient,
		Sink:         sink,
		Now:          func() int64 { return 1 },
	})
	if err := led.AddAdministrator(collection, admin); err != nil {
		t.Fatalf("AddAdministrator: %v", err)
	}
	cfg := baseConfig()
	cfg.Price = 0
	if err := engine.InitializeClaim(admin, collection, 1, cfg); err != nil {
		t.Fatalf("InitializeClaim: %v", err)
	}
	spec := uniqueSinkSpec()
	spec.Groups[0].Items[0].Destruction = burn.DestroyNone
	if err := engine.SetBurnRequirements(admin, collection, 1, spec); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	tokenID, err := led.Issue(assets, alice, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}
	if err := led.Credit(alice, 1_000); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	_, err = engine.Redeem(RedeemRequest{
		Caller:      alice,
		Collection:  collection,
		ClaimID:     1,
		Multiplier:  1,
		Submissions: []burn.Submission{{TokenID: tokenID}},
		Payment:     1_000,
	})
	if err == nil {
		t.Fatal("expected issue failure")
	}

	// The fee debit was refunded and the reservation rolled back.
	if bal, _ := led.NativeBalance(alice); bal != 1_000 {
		t.Errorf("alice balance = %d, want restored 1000", bal)
	}
	if bal, _ := led.NativeBalance(feeRecipient); bal != 0 {
		t.Errorf("fee recipient balance = %d, want 0", bal)
	}
	claim, _ := engine.GetClaim(collection, 1)
	if claim.Total != 0 {
		t.Errorf("Total = %d, want rolled back 0", claim.Total)
	}
}

func TestRedeemProofOfControl(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	spec := uniqueSinkSpec()
	spec.Groups[0].Items[0].Destruction = burn.DestroyNone
	if err := e.engine.SetBurnRequirements(admin, collection, 1, spec); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	tokenID, err := e.led.Issue(assets, alice, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}
	e.fund(t, alice, 1_000)

	if _, err := e.engine.Redeem(RedeemRequest{
		Caller:      alice,
		Collection:  collection,
		ClaimID:     1,
		Multiplier:  1,
		Submissions: []burn.Submission{{TokenID: tokenID}},
		Payment:     1_000,
	}); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	// Proof of control consumes nothing.
	if owner, _ := e.led.OwnerOf(assets, tokenID); owner != alice {
		t.Errorf("asset owner = %v, want retained by alice", owner)
	}
}

func TestRedeemMultiplier(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)

	spec := &burn.Spec{Groups: []burn.Group{{
		RequiredCount: 1,
		Items: []burn.Item{{
			Collection:  assets,
			Asset:       burn.AssetFungible,
			Destruction: burn.DestroyNative,
			Amount:      5,
			Predicate:   burn.PredicateAny,
		}},
	}}}
	if err := e.engine.SetBurnRequirements(admin, collection, 1, spec); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	if err := e.led.IssueAmount(assets, alice, 0, 100); err != nil {
		t.Fatalf("IssueAmount: %v", err)
	}
	e.fund(t, alice, 1_000)

	res, err := e.engine.Redeem(RedeemRequest{
		Caller:     alice,
		Collection: collection,
		ClaimID:    1,
		Multiplier: 3,
		Submissions: []burn.Submission{
			{TokenID: 0, Amount: 5},
			{TokenID: 0, Amount: 5},
			{TokenID: 0, Amount: 5},
		},
		Payment: 1_000,
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Count != 3 {
		t.Errorf("Count = %d, want one unit per whole set", res.Count)
	}
	if bal, _ := e.led.BalanceOf(assets, alice, 0); bal != 85 {
		t.Errorf("remaining balance = %d, want 85", bal)
	}
}

func TestRedeemMemberWaiver(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}
	if err := e.led.AddMember(alice); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	tokenID, err := e.led.Issue(assets, alice, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}

	res, err := e.engine.Redeem(RedeemRequest{
		Caller:      alice,
		Collection:  collection,
		ClaimID:     1,
		Multiplier:  1,
		Submissions: []burn.Submission{{TokenID: tokenID}},
	})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Charged != 0 {
		t.Errorf("member Charged = %d, want 0", res.Charged)
	}
}

func TestRedeemWindowClosed(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	cfg.EndTime = 500_000
	e.initClaim(t, 1, cfg)
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	_, err := e.engine.Redeem(RedeemRequest{Caller: alice, Collection: collection, ClaimID: 1, Multiplier: 1})
	if !errors.Is(err, ErrClaimInactive) {
		t.Errorf("expected ErrClaimInactive, got %v", err)
	}
}

func TestRedeemBatchPartialSuccess(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Price = 0
	e.initClaim(t, 1, cfg)
	e.initClaim(t, 2, cfg) // no burn spec attached
	if err := e.engine.SetBurnRequirements(admin, collection, 1, uniqueSinkSpec()); err != nil {
		t.Fatalf("SetBurnRequirements: %v", err)
	}

	tokenID, err := e.led.Issue(assets, alice, 1)
	if err != nil {
		t.Fatalf("Issue asset: %v", err)
	}
	e.fund(t, alice, 1_000)

	results, charged := e.engine.RedeemBatch(alice, 1_000, []RedeemEntry{
		{Collection: collection, ClaimID: 1, Multiplier: 1, Submissions: []burn.Submission{{TokenID: tokenID}}},
		{Collection: collection, ClaimID: 2, Multiplier: 1},
	})
	if !results[0].OK {
		t.Errorf("entry 0 = %+v, want ok", results[0])
	}
	if results[1].OK || results[1].Reason == "" {
		t.Errorf("entry 1 = %+v, want skipped with reason", results[1])
	}
	if charged != 100 {
		t.Errorf("charged = %d, want single redemption fee 100", charged)
	}
}
