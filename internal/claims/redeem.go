package claims

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// RedeemRequest is a single-claim burn redemption. Each whole-set
// satisfaction of the claim's burn requirements issues one unit, so
// Multiplier units are issued on success.
type RedeemRequest struct {
	Caller      types.Address
	Collection  types.Address
	ClaimID     types.ClaimID
	Multiplier  uint32
	Submissions []burn.Submission
	Payment     uint64
}

// Redeem validates the submitted burn bundle against the claim's
// requirements, consumes the qualifying assets, and issues units to the
// caller. Quota writes commit before any destruction or issuance call.
func (e *Engine) Redeem(req RedeemRequest) (*MintResult, error) {
	claim, err := e.store.GetClaim(req.Collection, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if !claim.windowOpen(e.params.Now()) {
		return nil, ErrClaimInactive
	}

	spec, err := e.store.GetBurnSpec(req.Collection, req.ClaimID)
	if err != nil {
		return nil, err
	}

	plan, err := burn.Evaluate(spec, req.Submissions, req.Multiplier, req.Caller, e.coll)
	if err != nil {
		return nil, err
	}

	res, err := e.checkAndStage(req.Collection, req.ClaimID, claim, req.Caller, req.Multiplier, nil, nil)
	if err != nil {
		return nil, err
	}

	waived := e.roles.IsActiveMember(req.Caller)
	quote, err := e.params.Fees.QuoteMint(claim.Price, req.Multiplier, claim.Currency.IsZero(), false, waived)
	if err != nil {
		return nil, err
	}
	if req.Payment < quote.Native {
		return nil, fmt.Errorf("%w: supplied %d, need %d", ErrInsufficientPayment, req.Payment, quote.Native)
	}

	if err := res.batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	if err := e.settle(claim, req.Caller, quote); err != nil {
		if uerr := res.undo.Commit(); uerr != nil {
			e.log.Error().Err(uerr).Msg("redemption rollback failed")
		}
		return nil, err
	}

	if err := e.execute(plan, req.Caller); err != nil {
		e.unsettle(claim, req.Caller, quote)
		if uerr := res.undo.Commit(); uerr != nil {
			e.log.Error().Err(uerr).Msg("redemption rollback failed")
		}
		return nil, err
	}

	first, err := e.coll.Issue(req.Collection, req.Caller, req.Multiplier)
	if err != nil {
		// Consumed assets are already gone, but the payment and the
		// reservation can still be returned.
		e.unsettle(claim, req.Caller, quote)
		if uerr := res.undo.Commit(); uerr != nil {
			e.log.Error().Err(uerr).Msg("redemption rollback failed")
		}
		return nil, fmt.Errorf("collection issue: %w", err)
	}
	w, err := e.store.GetWindow(req.Collection, req.ClaimID)
	if err != nil {
		return nil, err
	}
	w.Record(uint64(first), res.relStart)
	if err := e.store.PutWindow(req.Collection, req.ClaimID, w); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("collection", req.Collection.String()).
		Uint64("claim", uint64(req.ClaimID)).
		Str("redeemer", req.Caller.String()).
		Uint32("multiplier", req.Multiplier).
		Int("burned", len(plan.Destructions)).
		Msg("redeemed")

	return &MintResult{First: first, Count: req.Multiplier, Charged: quote.Native}, nil
}

// execute carries out a validated destruction plan. Fungible leftovers
// beyond the requirement are simply never touched.
func (e *Engine) execute(plan *burn.Plan, owner types.Address) error {
	for _, d := range plan.Destructions {
		var err error
		switch d.Kind {
		case burn.DestroySink:
			if d.Asset == burn.AssetUnique {
				err = e.coll.Transfer(d.Collection, owner, e.params.Sink, d.TokenID)
			} else {
				err = e.coll.TransferAmount(d.Collection, owner, e.params.Sink, d.TokenID, d.Amount)
			}
		case burn.DestroyNative:
			if d.Asset == burn.AssetUnique {
				err = e.coll.Destroy(d.Collection, d.TokenID)
			} else {
				err = e.coll.DestroyAmount(d.Collection, owner, d.TokenID, d.Amount)
			}
		case burn.DestroyNone:
			// Proven control is enough; nothing is consumed.
		}
		if err != nil {
			return fmt.Errorf("%w: token %d: %v", burn.ErrNotAuthorized, d.TokenID, err)
		}
	}
	return nil
}

// RedeemEntry is one sub-operation of a multi-claim redemption.
type RedeemEntry struct {
	Collection  types.Address
	ClaimID     types.ClaimID
	Multiplier  uint32
	Submissions []burn.Submission
}

// RedeemBatch performs several redemptions in one call with the same
// partial-success policy as MintBatch: unsatisfiable sub-claims are
// skipped, the rest complete, and only fulfilled sub-operations are
// charged.
func (e *Engine) RedeemBatch(caller types.Address, payment uint64, entries []RedeemEntry) ([]BatchResult, uint64) {
	results := make([]BatchResult, len(entries))
	remaining := payment
	var charged uint64

	for i, entry := range entries {
		req := RedeemRequest{
			Caller:      caller,
			Collection:  entry.Collection,
			ClaimID:     entry.ClaimID,
			Multiplier:  entry.Multiplier,
			Submissions: entry.Submissions,
			Payment:     remaining,
		}
		res, err := e.Redeem(req)
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
