package claims

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Airdrop performs administrative issuance. It bypasses proofs, payment,
// and the activity window, but still advances the issued count and
// per-wallet counters exactly like a normal reservation, and it never
// leaves the total cap below the issued count: an airdrop that outgrows
// the cap raises the cap to match. A batch that would overflow the
// fixed-width issued counter is rejected outright. Counters commit one
// recipient at a time, so an issuance failure partway through stops the
// batch with the issued count matching what actually went out.
func (e *Engine) Airdrop(caller, collection types.Address, id types.ClaimID, recipients []types.Address, counts []uint32) ([]MintResult, error) {
	if !e.roles.IsAdministrator(caller, collection) {
		return nil, ErrNotAdministrator
	}
	if len(recipients) != len(counts) {
		return nil, ErrLengthMismatch
	}

	claim, err := e.store.GetClaim(collection, id)
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, c := range counts {
		if c == 0 {
			return nil, ErrZeroCount
		}
		total += uint64(c)
	}
	if total > math.MaxUint32-uint64(claim.Total) {
		return nil, ErrCountOverflow
	}

	trackWallets := !claim.merkleGated() && claim.WalletMax > 0
	results := make([]MintResult, 0, len(recipients))
	for i, r := range recipients {
		prior := *claim
		rel := claim.Total
		claim.Total += counts[i]
		if claim.Total > claim.TotalMax {
			claim.TotalMax = claim.Total
		}

		// Stage this recipient's counter effects, with an undo batch to
		// reverse them if the collection refuses to issue.
		batch := e.store.NewBatch()
		undo := e.store.NewBatch()
		if err := e.store.StageClaim(batch, collection, id, claim); err != nil {
			return results, err
		}
		if err := e.store.StageClaim(undo, collection, id, &prior); err != nil {
			return results, err
		}
		if trackWallets {
			wc, err := e.store.WalletCount(collection, id, r)
			if err != nil {
				return results, err
			}
			if err := e.store.StageWalletCount(batch, collection, id, r, wc+counts[i]); err != nil {
				return results, err
			}
			if err := e.store.StageWalletCount(undo, collection, id, r, wc); err != nil {
				return results, err
			}
		}
		if err := batch.Commit(); err != nil {
			return results, fmt.Errorf("commit airdrop: %w", err)
		}

		first, err := e.coll.Issue(collection, r, counts[i])
		if err != nil {
			*claim = prior
			if uerr := undo.Commit(); uerr != nil {
				e.log.Error().Err(uerr).Msg("airdrop rollback failed")
			}
			return results, fmt.Errorf("collection issue: %w", err)
		}
		w, werr := e.store.GetWindow(collection, id)
		if werr != nil {
			return results, werr
		}
		w.Record(uint64(first), rel)
		if werr := e.store.PutWindow(collection, id, w); werr != nil {
			return results, werr
		}
		results = append(results, MintResult{First: first, Count: counts[i]})
	}

	e.log.Info().
		Str("collection", collection.String()).
		Uint64("claim", uint64(id)).
		Uint64("units", total).
		Msg("airdrop issued")
	return results, nil
}
