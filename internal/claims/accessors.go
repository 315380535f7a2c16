package claims

import (
	"errors"

	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/internal/locator"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// GetClaim returns a claim record by id.
func (e *Engine) GetClaim(collection types.Address, id types.ClaimID) (*Claim, error) {
	return e.store.GetClaim(collection, id)
}

// GetClaimForToken resolves a previously issued identifier back to the
// claim that issued it, by searching each claim's allocation window.
func (e *Engine) GetClaimForToken(collection types.Address, token types.TokenID) (types.ClaimID, *Claim, error) {
	var (
		foundID types.ClaimID
		found   *Claim
	)
	err := e.store.ForEachClaim(collection, func(id types.ClaimID, c *Claim) error {
		w, werr := e.store.GetWindow(collection, id)
		if werr != nil {
			return werr
		}
		if _, ok := w.RelativeOf(uint64(token), c.Total); ok {
			foundID = id
			found = c
			return errStopIteration
		}
		return nil
	})
	if err != nil && err != errStopIteration {
		return 0, nil, err
	}
	if found == nil {
		return 0, nil, ErrTokenNotFound
	}
	return foundID, found, nil
}

// GetBurnRequirements returns a claim's burn-requirement specification.
// Returns burn.ErrNoSpec when the claim has none.
func (e *Engine) GetBurnRequirements(collection types.Address, id types.ClaimID) (*burn.Spec, error) {
	if _, err := e.store.GetClaim(collection, id); err != nil {
		return nil, err
	}
	return e.store.GetBurnSpec(collection, id)
}

// MintCount returns the units issued to an identity under a claim.
func (e *Engine) MintCount(collection types.Address, id types.ClaimID, identity types.Address) (uint32, error) {
	if _, err := e.store.GetClaim(collection, id); err != nil {
		return 0, err
	}
	return e.store.WalletCount(collection, id, identity)
}

// CheckIndices reports, for each allow-list index, whether it has already
// been issued against.
func (e *Engine) CheckIndices(collection types.Address, id types.ClaimID, indices []uint32) ([]bool, error) {
	if _, err := e.store.GetClaim(collection, id); err != nil {
		return nil, err
	}
	consumed := make([]bool, len(indices))
	for i, leafIndex := range indices {
		c, err := e.store.LeafConsumed(collection, id, leafIndex)
		if err != nil {
			return nil, err
		}
		consumed[i] = c
	}
	return consumed, nil
}

// TokenLocator builds the externally visible locator string for an issued
// unit: the claim's segments plus any token-level extensions, indexed by
// the 1-based claim-relative position unless the claim is uniform.
func (e *Engine) TokenLocator(collection types.Address, token types.TokenID) (string, error) {
	id, claim, err := e.GetClaimForToken(collection, token)
	if err != nil {
		return "", err
	}
	w, err := e.store.GetWindow(collection, id)
	if err != nil {
		return "", err
	}
	rel, ok := w.RelativeOf(uint64(token), claim.Total)
	if !ok {
		return "", ErrTokenNotFound
	}

	parts := claim.Location
	segments, err := e.store.TokenSegments(collection, token)
	if err != nil {
		return "", err
	}
	if len(segments) > 0 {
		parts = append(append([]string{}, parts...), segments...)
	}
	return locator.Build(claim.Kind, e.params.Gateway, parts, claim.Identical, rel), nil
}

// ExtendClaimLocation appends a segment to a claim's base locator without
// rewriting earlier segments. Admin-gated.
func (e *Engine) ExtendClaimLocation(caller, collection types.Address, id types.ClaimID, segment string) error {
	if !e.roles.IsAdministrator(caller, collection) {
		return ErrNotAdministrator
	}
	claim, err := e.store.GetClaim(collection, id)
	if err != nil {
		return err
	}
	claim.Location = append(claim.Location, segment)
	return e.store.PutClaim(collection, id, claim)
}

// ExtendTokenLocation appends a segment to one token's locator. Admin-gated.
func (e *Engine) ExtendTokenLocation(caller, collection types.Address, token types.TokenID, segment string) error {
	if !e.roles.IsAdministrator(caller, collection) {
		return ErrNotAdministrator
	}
	if _, _, err := e.GetClaimForToken(collection, token); err != nil {
		return err
	}
	segments, err := e.store.TokenSegments(collection, token)
	if err != nil {
		return err
	}
	return e.store.PutTokenSegments(collection, token, append(segments, segment))
}

// errStopIteration is a sentinel for early ForEach exit; never returned to
// callers.
var errStopIteration = errors.New("stop iteration")
