package burn

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/pkg/merkle"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Evaluation errors. Each failure mode is distinct so callers can tell a
// malformed bundle from an ineligible token from a control problem.
var (
	ErrNoSpec           = errors.New("claim has no burn requirements")
	ErrSubmissionCount  = errors.New("submission count does not match requirements")
	ErrGroupCount       = errors.New("wrong submission count for group")
	ErrUnknownItem      = errors.New("submission references unknown group or item")
	ErrWrongAsset       = errors.New("submitted token does not exist in item collection")
	ErrWrongAmount      = errors.New("submitted amount below required quantity")
	ErrIneligibleToken  = errors.New("token ineligible for item predicate")
	ErrNotAuthorized    = errors.New("caller does not control submitted token")
	ErrZeroMultiplier   = errors.New("redemption multiplier must be positive")
	ErrUniqueMultiplier = errors.New("multiplier must be 1 when burning unique assets")
	ErrDuplicateToken   = errors.New("unique token submitted more than once")
)

// Submission is one caller-supplied token referencing a spec item.
type Submission struct {
	GroupIndex uint32        `json:"group"`
	ItemIndex  uint32        `json:"item"`
	TokenID    types.TokenID `json:"token_id"`
	// Amount is the fungible quantity supplied; ignored for unique items.
	Amount uint64 `json:"amount,omitempty"`
	// Proof backs PredicateMerkle items.
	Proof []types.Hash `json:"proof,omitempty"`
}

// TokenReader is the narrow view of the collection primitive the evaluator
// needs: existence, ownership, and fungible balances.
type TokenReader interface {
	OwnerOf(collection types.Address, id types.TokenID) (types.Address, error)
	BalanceOf(collection, owner types.Address, id types.TokenID) (uint64, error)
}

// Destruction is one planned consumption, resolved and authorized. The
// engine executes the plan only after its own state is committed.
type Destruction struct {
	Collection types.Address
	Kind       DestructionKind
	Asset      AssetKind
	TokenID    types.TokenID
	// Amount is the fungible quantity to consume.
	Amount uint64
	// Leftover is supplied fungible quantity beyond the requirement; it is
	// left with the owner rather than rejecting the call.
	Leftover uint64
}

// Plan is the validated outcome of an evaluation.
type Plan struct {
	Destructions []Destruction
}

// Evaluate checks a submitted bundle against spec for m whole-set
// redemptions by caller. It returns a destruction plan on success and a
// distinct sentinel error for each failure mode. Nothing is consumed here;
// execution is the engine's job.
func Evaluate(spec *Spec, subs []Submission, m uint32, caller types.Address, reader TokenReader) (*Plan, error) {
	if m == 0 {
		return nil, ErrZeroMultiplier
	}
	if spec.HasUnique() && m != 1 {
		return nil, ErrUniqueMultiplier
	}

	expected := uint64(m) * spec.RequiredPerSet()
	if uint64(len(subs)) != expected {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrSubmissionCount, len(subs), expected)
	}

	// Per-group tally: each group must receive exactly m x RequiredCount
	// submissions.
	perGroup := make([]uint64, len(spec.Groups))
	for _, sub := range subs {
		if int(sub.GroupIndex) >= len(spec.Groups) {
			return nil, fmt.Errorf("%w: group %d", ErrUnknownItem, sub.GroupIndex)
		}
		perGroup[sub.GroupIndex]++
	}
	for gi, g := range spec.Groups {
		want := uint64(m) * uint64(g.RequiredCount)
		if perGroup[gi] != want {
			return nil, fmt.Errorf("%w: group %d has %d, needs %d", ErrGroupCount, gi, perGroup[gi], want)
		}
	}

	plan := &Plan{Destructions: make([]Destruction, 0, len(subs))}
	seen := make(map[uniqueKey]bool)
	need := make(map[uniqueKey]uint64)

	for si, sub := range subs {
		g := spec.Groups[sub.GroupIndex]
		if int(sub.ItemIndex) >= len(g.Items) {
			return nil, fmt.Errorf("%w: group %d item %d", ErrUnknownItem, sub.GroupIndex, sub.ItemIndex)
		}
		item := g.Items[sub.ItemIndex]

		if err := checkPredicate(item, sub); err != nil {
			return nil, fmt.Errorf("submission %d: %w", si, err)
		}

		d := Destruction{
			Collection: item.Collection,
			Kind:       item.Destruction,
			Asset:      item.Asset,
			TokenID:    sub.TokenID,
		}

		switch item.Asset {
		case AssetUnique:
			key := uniqueKey{item.Collection, sub.TokenID}
			if seen[key] {
				return nil, fmt.Errorf("submission %d: %w", si, ErrDuplicateToken)
			}
			seen[key] = true

			owner, err := reader.OwnerOf(item.Collection, sub.TokenID)
			if err != nil {
				return nil, fmt.Errorf("submission %d: %w", si, ErrWrongAsset)
			}
			if owner != caller {
				return nil, fmt.Errorf("submission %d: %w", si, ErrNotAuthorized)
			}

		case AssetFungible:
			if sub.Amount < item.Amount {
				return nil, fmt.Errorf("submission %d: %w: have %d, need %d", si, ErrWrongAmount, sub.Amount, item.Amount)
			}
			balance, err := reader.BalanceOf(item.Collection, caller, sub.TokenID)
			if err != nil {
				return nil, fmt.Errorf("submission %d: %w", si, ErrWrongAsset)
			}
			// Submissions drawing on the same balance consume it
			// cumulatively; the running total must stay within what the
			// caller holds or execution would fail partway through.
			key := uniqueKey{item.Collection, sub.TokenID}
			need[key] += item.Amount
			if balance < need[key] {
				return nil, fmt.Errorf("submission %d: %w: have %d, need %d", si, ErrNotAuthorized, balance, need[key])
			}
			d.Amount = item.Amount
			d.Leftover = sub.Amount - item.Amount
		}

		plan.Destructions = append(plan.Destructions, d)
	}

	return plan, nil
}

type uniqueKey struct {
	collection types.Address
	id         types.TokenID
}

// checkPredicate evaluates the item's eligibility rule for the submitted
// identifier.
func checkPredicate(item Item, sub Submission) error {
	switch item.Predicate {
	case PredicateAny:
		return nil
	case PredicateRange:
		if sub.TokenID < item.MinID || sub.TokenID > item.MaxID {
			return fmt.Errorf("%w: token %d outside [%d,%d]", ErrIneligibleToken, sub.TokenID, item.MinID, item.MaxID)
		}
		return nil
	case PredicateMerkle:
		if !merkle.Verify(item.MerkleRoot, merkle.TokenLeaf(sub.TokenID), sub.Proof) {
			return fmt.Errorf("%w: token %d fails commitment proof", ErrIneligibleToken, sub.TokenID)
		}
		return nil
	default:
		return fmt.Errorf("%w: predicate %d", ErrUnknownItem, item.Predicate)
	}
}
