package claims

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/merkle"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// MintRequest is a single-claim reservation.
type MintRequest struct {
	Caller     types.Address
	Collection types.Address
	ClaimID    types.ClaimID
	Count      uint32
	// LeafIndices and Proofs back allow-list-gated claims; one entry per
	// requested unit.
	LeafIndices []uint32
	Proofs      [][]types.Hash
	// MintFor is the benefit recipient; zero means the caller mints for
	// itself.
	MintFor types.Address
	// Payment is the native amount supplied with the call. Only the
	// computed charge is ever taken; excess stays with the caller.
	Payment uint64
}

// MintResult reports a successful reservation.
type MintResult struct {
	// First is the absolute identifier of the first issued unit; the run
	// is contiguous.
	First types.TokenID `json:"first"`
	Count uint32        `json:"count"`
	// Charged is the native amount actually taken from the caller.
	Charged uint64 `json:"charged"`
}

// Mint reserves and issues units against a claim for the caller (or a
// recipient the caller is a delegate for). Checks run in a fixed order,
// each with its own failure reason, and all counter writes commit before
// the collection is invoked.
func (e *Engine) Mint(req MintRequest) (*MintResult, error) {
	return e.mint(req, false)
}

// MintProxy reserves on behalf of req.MintFor without a delegation check.
// The platform fee always applies on this path, regardless of the caller's
// or recipient's membership status, so memberships cannot be laundered
// through a proxy.
func (e *Engine) MintProxy(req MintRequest) (*MintResult, error) {
	return e.mint(req, true)
}

func (e *Engine) mint(req MintRequest, proxy bool) (*MintResult, error) {
	recipient := req.MintFor
	if recipient.IsZero() {
		recipient = req.Caller
	}
	if req.Count == 0 {
		return nil, ErrZeroCount
	}

	claim, err := e.store.GetClaim(req.Collection, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if !claim.windowOpen(e.params.Now()) {
		return nil, ErrClaimInactive
	}

	res, err := e.checkAndStage(req.Collection, req.ClaimID, claim, recipient, req.Count, req.LeafIndices, req.Proofs)
	if err != nil {
		return nil, err
	}

	if !proxy && req.Caller != recipient {
		if !e.roles.IsDelegateFor(req.Caller, recipient, req.Collection) {
			return nil, ErrNotDelegate
		}
	}

	waived := !proxy && req.Caller == recipient && e.roles.IsActiveMember(req.Caller)
	quote, err := e.params.Fees.QuoteMint(claim.Price, req.Count, claim.Currency.IsZero(), claim.merkleGated(), waived)
	if err != nil {
		return nil, err
	}
	if req.Payment < quote.Native {
		return nil, fmt.Errorf("%w: supplied %d, need %d", ErrInsufficientPayment, req.Payment, quote.Native)
	}

	first, err := e.commitAndIssue(req.Collection, req.ClaimID, claim, recipient, req.Caller, req.Count, res, quote)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("collection", req.Collection.String()).
		Uint64("claim", uint64(req.ClaimID)).
		Str("recipient", recipient.String()).
		Uint32("count", req.Count).
		Uint64("first", uint64(first)).
		Bool("proxy", proxy).
		Msg("minted")

	return &MintResult{First: first, Count: req.Count, Charged: quote.Native}, nil
}

// reservation carries the staged effects of an eligibility check.
type reservation struct {
	batch    storage.Batch
	relStart uint32
	// undo restores the pre-reservation state if settlement fails after
	// the batch committed.
	undo storage.Batch
}

// checkAndStage runs the eligibility checks for count units to recipient and
// stages all counter and consumption-record writes. The claim's Total is
// advanced in memory; nothing is committed yet.
func (e *Engine) checkAndStage(collection types.Address, id types.ClaimID, claim *Claim, recipient types.Address, count uint32, leafIndices []uint32, proofs [][]types.Hash) (*reservation, error) {
	res := &reservation{
		batch:    e.store.NewBatch(),
		undo:     e.store.NewBatch(),
		relStart: claim.Total,
	}
	prior := *claim

	if claim.merkleGated() {
		if len(leafIndices) != int(count) || len(proofs) != int(count) {
			return nil, ErrLengthMismatch
		}
		inRequest := make(map[uint32]bool, count)
		for i, leafIndex := range leafIndices {
			if inRequest[leafIndex] {
				return nil, fmt.Errorf("%w: index %d", ErrIndexConsumed, leafIndex)
			}
			inRequest[leafIndex] = true

			if !merkle.Verify(claim.MerkleRoot, merkle.Leaf(recipient, leafIndex), proofs[i]) {
				return nil, fmt.Errorf("%w: index %d", ErrInvalidProof, leafIndex)
			}
			consumed, err := e.store.LeafConsumed(collection, id, leafIndex)
			if err != nil {
				return nil, err
			}
			if consumed {
				return nil, fmt.Errorf("%w: index %d", ErrIndexConsumed, leafIndex)
			}
			if err := e.store.StageLeaf(res.batch, collection, id, leafIndex); err != nil {
				return nil, err
			}
			if err := res.undo.Delete(leafKey(collection, id, leafIndex)); err != nil {
				return nil, err
			}
		}
	} else if claim.WalletMax > 0 {
		wc, err := e.store.WalletCount(collection, id, recipient)
		if err != nil {
			return nil, err
		}
		if wc+count < wc || wc+count > claim.WalletMax {
			return nil, fmt.Errorf("%w: have %d of %d", ErrWalletLimit, wc, claim.WalletMax)
		}
		if err := e.store.StageWalletCount(res.batch, collection, id, recipient, wc+count); err != nil {
			return nil, err
		}
		if err := e.store.StageWalletCount(res.undo, collection, id, recipient, wc); err != nil {
			return nil, err
		}
	}

	if claim.Total+count < claim.Total {
		return nil, ErrCountOverflow
	}
	if claim.Total+count > claim.TotalMax {
		return nil, fmt.Errorf("%w: issued %d, cap %d, requested %d", ErrTotalLimit, claim.Total, claim.TotalMax, count)
	}

	claim.Total += count
	if err := e.store.StageClaim(res.batch, collection, id, claim); err != nil {
		return nil, err
	}
	if err := e.store.StageClaim(res.undo, collection, id, &prior); err != nil {
		return nil, err
	}
	return res, nil
}

// commitAndIssue commits the staged reservation, settles payment, invokes
// the collection, and records the allocation breakpoint. Settlement failure
// rolls the committed counters back so nothing is spent.
func (e *Engine) commitAndIssue(collection types.Address, id types.ClaimID, claim *Claim, recipient, payer types.Address, count uint32, res *reservation, quote fees.Quote) (types.TokenID, error) {
	if err := res.batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit reservation: %w", err)
	}

	if err := e.settle(claim, payer, quote); err != nil {
		if uerr := res.undo.Commit(); uerr != nil {
			e.log.Error().Err(uerr).Msg("reservation rollback failed")
		}
		return 0, err
	}

	first, err := e.coll.Issue(collection, recipient, count)
	if err != nil {
		e.unsettle(claim, payer, quote)
		if uerr := res.undo.Commit(); uerr != nil {
			e.log.Error().Err(uerr).Msg("reservation rollback failed")
		}
		return 0, fmt.Errorf("collection issue: %w", err)
	}

	w, err := e.store.GetWindow(collection, id)
	if err != nil {
		return 0, err
	}
	w.Record(uint64(first), res.relStart)
	if err := e.store.PutWindow(collection, id, w); err != nil {
		return 0, err
	}
	return first, nil
}

// unsettle reverses a completed settlement, best effort.
func (e *Engine) unsettle(claim *Claim, payer types.Address, quote fees.Quote) {
	if claim.Currency.IsZero() && quote.Price > 0 {
		if err := e.funds.Debit(claim.Recipient, quote.Price); err != nil {
			e.log.Error().Err(err).Msg("unsettle: recipient debit failed")
		}
	}
	if quote.Pulled > 0 {
		if err := e.funds.TransferFrom(claim.Currency, claim.Recipient, payer, quote.Pulled); err != nil {
			e.log.Error().Err(err).Msg("unsettle: pull reversal failed")
		}
	}
	if quote.Fee > 0 {
		if err := e.funds.Debit(e.params.FeeRecipient, quote.Fee); err != nil {
			e.log.Error().Err(err).Msg("unsettle: fee debit failed")
		}
	}
	if quote.Native > 0 {
		if err := e.funds.Credit(payer, quote.Native); err != nil {
			e.log.Error().Err(err).Msg("unsettle: payer refund failed")
		}
	}
}
