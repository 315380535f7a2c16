// Package burn validates redemption submissions against a claim's
// required-asset specification.
//
// A specification is an ordered list of groups. Groups are AND-combined;
// the items inside a group are alternatives, of which RequiredCount must be
// satisfied. Each item names a target collection, how the surrendered asset
// is destroyed, and an eligibility predicate for the submitted identifier.
package burn

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// AssetKind distinguishes unique units from fungible balances.
type AssetKind uint8

const (
	AssetUnique AssetKind = iota
	AssetFungible
)

// DestructionKind selects how a qualifying asset is consumed.
type DestructionKind uint8

const (
	// DestroySink transfers the asset to an unrecoverable sink address.
	DestroySink DestructionKind = iota
	// DestroyNative invokes the collection's own destroy entry point.
	DestroyNative
	// DestroyNone performs no destruction; proven control of the asset
	// suffices.
	DestroyNone
)

// PredicateKind selects the eligibility rule for submitted identifiers.
type PredicateKind uint8

const (
	// PredicateAny accepts any identifier from the item's collection.
	PredicateAny PredicateKind = iota
	// PredicateRange accepts identifiers in [MinID, MaxID].
	PredicateRange
	// PredicateMerkle accepts identifiers provable against the item's
	// commitment root.
	PredicateMerkle
)

// Item is one alternative within a group.
type Item struct {
	Collection  types.Address   `json:"collection"`
	Asset       AssetKind       `json:"asset"`
	Destruction DestructionKind `json:"destruction"`
	// Amount is the required quantity per submission for fungible items;
	// ignored for unique items.
	Amount    uint64        `json:"amount,omitempty"`
	Predicate PredicateKind `json:"predicate"`
	MinID     types.TokenID `json:"min_id,omitempty"`
	MaxID     types.TokenID `json:"max_id,omitempty"`
	// MerkleRoot is the per-item commitment root for PredicateMerkle.
	MerkleRoot types.Hash `json:"merkle_root,omitempty"`
}

// Group requires RequiredCount of its items to be satisfied.
type Group struct {
	RequiredCount uint32 `json:"required_count"`
	Items         []Item `json:"items"`
}

// Spec is the full burn requirement attached to a claim.
type Spec struct {
	Groups []Group `json:"groups"`
}

// Validate rejects malformed specifications at configuration time.
func (s *Spec) Validate() error {
	if len(s.Groups) == 0 {
		return fmt.Errorf("burn spec requires at least one group")
	}
	for gi, g := range s.Groups {
		if g.RequiredCount == 0 {
			return fmt.Errorf("group %d: required count must be positive", gi)
		}
		if int(g.RequiredCount) > len(g.Items) {
			return fmt.Errorf("group %d: required count %d exceeds %d items", gi, g.RequiredCount, len(g.Items))
		}
		for ii, item := range g.Items {
			if item.Collection.IsZero() {
				return fmt.Errorf("group %d item %d: collection is required", gi, ii)
			}
			if item.Asset == AssetFungible && item.Amount == 0 {
				return fmt.Errorf("group %d item %d: fungible amount must be positive", gi, ii)
			}
			switch item.Predicate {
			case PredicateAny:
			case PredicateRange:
				if item.MaxID < item.MinID {
					return fmt.Errorf("group %d item %d: range max below min", gi, ii)
				}
			case PredicateMerkle:
				if item.MerkleRoot.IsZero() {
					return fmt.Errorf("group %d item %d: merkle predicate requires a root", gi, ii)
				}
			default:
				return fmt.Errorf("group %d item %d: unknown predicate kind %d", gi, ii, item.Predicate)
			}
		}
	}
	return nil
}

// RequiredPerSet returns the number of submissions one whole-set
// redemption needs.
func (s *Spec) RequiredPerSet() uint64 {
	var total uint64
	for _, g := range s.Groups {
		total += uint64(g.RequiredCount)
	}
	return total
}

// HasUnique reports whether any item in the spec targets a unique asset.
func (s *Spec) HasUnique() bool {
	for _, g := range s.Groups {
		for _, item := range g.Items {
			if item.Asset == AssetUnique {
				return true
			}
		}
	}
	return false
}
