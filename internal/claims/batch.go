package claims

import (
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// BatchEntry is one sub-operation of a multi-claim reservation.
type BatchEntry struct {
	Collection  types.Address
	ClaimID     types.ClaimID
	Count       uint32
	LeafIndices []uint32
	Proofs      [][]types.Hash
	MintFor     types.Address
}

// BatchResult reports one sub-operation's outcome. Failed sub-operations
// are skipped, not fatal: their reason is recorded and their share of the
// payment is never taken.
type BatchResult struct {
	OK      bool          `json:"ok"`
	Reason  string        `json:"reason,omitempty"`
	First   types.TokenID `json:"first,omitempty"`
	Count   uint32        `json:"count,omitempty"`
	Charged uint64        `json:"charged,omitempty"`
}

// MintBatch performs several single-claim reservations in one call. The
// batch is deliberately not all-or-nothing: an exhausted or ineligible
// sub-claim is skipped while the rest complete, and only fulfilled
// sub-operations are charged against the supplied payment. The caller's
// unspent remainder is never debited.
func (e *Engine) MintBatch(caller types.Address, payment uint64, entries []BatchEntry) ([]BatchResult, uint64) {
	results := make([]BatchResult, len(entries))
	remaining := payment
	var charged uint64

	for i, entry := range entries {
		req := MintRequest{
			Caller:      caller,
			Collection:  entry.Collection,
			ClaimID:     entry.ClaimID,
			Count:       entry.Count,
			LeafIndices: entry.LeafIndices,
			Proofs:      entry.Proofs,
			MintFor:     entry.MintFor,
			Payment:     remaining,
		}
		res, err := e.mint(req, false)
		if err != nil {
			results[i] = BatchResult{Reason: err.Error()}
			continue
		}
		results[i] = BatchResult{OK: true, First: res.First, Count: res.Count, Charged: res.Charged}
		remaining -= res.Charged
		charged += res.Charged
	}

	return results, charged
}
