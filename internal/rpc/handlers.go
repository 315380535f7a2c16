package rpc

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/internal/claims"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// ── Claim endpoints ─────────────────────────────────────────────────────

func (s *Server) handleClaimInitialize(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params ClaimConfigParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.InitializeClaim(caller, collection, params.ClaimID, params.Config); err != nil {
		return nil, engineError(err)
	}
	return AckResult{OK: true}, nil
}

func (s *Server) handleClaimUpdate(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params ClaimConfigParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.UpdateClaim(caller, collection, params.ClaimID, params.Config); err != nil {
		return nil, engineError(err)
	}
	return AckResult{OK: true}, nil
}

func (s *Server) handleClaimGet(req *Request) (interface{}, *Error) {
	var params ClaimParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	claim, err := s.engine.GetClaim(collection, params.ClaimID)
	if err != nil {
		return nil, engineError(err)
	}
	return &ClaimResult{ClaimID: params.ClaimID, Claim: claim}, nil
}

func (s *Server) handleClaimGetForToken(req *Request) (interface{}, *Error) {
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, claim, err := s.engine.GetClaimForToken(collection, params.TokenID)
	if err != nil {
		return nil, engineError(err)
	}
	return &ClaimResult{ClaimID: id, Claim: claim}, nil
}

func (s *Server) handleClaimGetUserMints(req *Request) (interface{}, *Error) {
	var params UserMintsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	count, err := s.engine.MintCount(collection, params.ClaimID, addr)
	if err != nil {
		return nil, engineError(err)
	}
	return &UserMintsResult{Count: count}, nil
}

func (s *Server) handleClaimCheckIndices(req *Request) (interface{}, *Error) {
	var params CheckIndicesParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	consumed, err := s.engine.CheckIndices(collection, params.ClaimID, params.Indices)
	if err != nil {
		return nil, engineError(err)
	}
	return &CheckIndicesResult{Consumed: consumed}, nil
}

func (s *Server) handleClaimMint(req *Request, caller types.Address, proxy bool) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params MintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	mintFor, rpcErr := parseOptionalAddress(params.MintFor, "mint_for")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(params.LeafIndices) != len(params.Proofs) {
		return nil, &Error{Code: CodeInvalidParams, Message: "leaf_indices and proofs must have equal length"}
	}

	mreq := claims.MintRequest{
		Caller:      caller,
		Collection:  collection,
		ClaimID:     params.ClaimID,
		Count:       params.Count,
		LeafIndices: params.LeafIndices,
		Proofs:      params.Proofs,
		MintFor:     mintFor,
		Payment:     params.Payment,
	}

	var (
		res *claims.MintResult
		err error
	)
	if proxy {
		res, err = s.engine.MintProxy(mreq)
	} else {
		res, err = s.engine.Mint(mreq)
	}
	if err != nil {
		return nil, engineError(err)
	}
	return res, nil
}

func (s *Server) handleClaimMintBatch(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params MintBatchParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Entries) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "entries required"}
	}

	entries := make([]claims.BatchEntry, len(params.Entries))
	for i, e := range params.Entries {
		collection, rpcErr := parseAddress(e.Collection, fmt.Sprintf("entries[%d].collection", i))
		if rpcErr != nil {
			return nil, rpcErr
		}
		mintFor, rpcErr := parseOptionalAddress(e.MintFor, fmt.Sprintf("entries[%d].mint_for", i))
		if rpcErr != nil {
			return nil, rpcErr
		}
		if len(e.LeafIndices) != len(e.Proofs) {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("entries[%d]: leaf_indices and proofs must have equal length", i)}
		}
		entries[i] = claims.BatchEntry{
			Collection:  collection,
			ClaimID:     e.ClaimID,
			Count:       e.Count,
			LeafIndices: e.LeafIndices,
			Proofs:      e.Proofs,
			MintFor:     mintFor,
		}
	}

	results, charged := s.engine.MintBatch(caller, params.Payment, entries)
	return &BatchMintResult{Results: results, Charged: charged}, nil
}

func (s *Server) handleClaimAirdrop(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params AirdropParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(params.Recipients) != len(params.Counts) {
		return nil, &Error{Code: CodeInvalidParams, Message: "recipients and counts must have equal length"}
	}
	recipients := make([]types.Address, len(params.Recipients))
	for i, r := range params.Recipients {
		addr, rpcErr := parseAddress(r, fmt.Sprintf("recipients[%d]", i))
		if rpcErr != nil {
			return nil, rpcErr
		}
		recipients[i] = addr
	}
	results, err := s.engine.Airdrop(caller, collection, params.ClaimID, recipients, params.Counts)
	if err != nil {
		return nil, engineError(err)
	}
	return &AirdropResult{Results: results}, nil
}

func (s *Server) handleClaimTokenLocator(req *Request) (interface{}, *Error) {
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	loc, err := s.engine.TokenLocator(collection, params.TokenID)
	if err != nil {
		return nil, engineError(err)
	}
	return &LocatorResult{Locator: loc}, nil
}

func (s *Server) handleClaimExtendLocation(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params ExtendParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Segment == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "segment is required"}
	}
	if err := s.engine.ExtendClaimLocation(caller, collection, params.ClaimID, params.Segment); err != nil {
		return nil, engineError(err)
	}
	return AckResult{OK: true}, nil
}

func (s *Server) handleClaimExtendTokenLocation(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params ExtendParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Segment == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "segment is required"}
	}
	if err := s.engine.ExtendTokenLocation(caller, collection, params.TokenID, params.Segment); err != nil {
		return nil, engineError(err)
	}
	return AckResult{OK: true}, nil
}

// ── Burn endpoints ──────────────────────────────────────────────────────

func (s *Server) handleBurnSetRequirements(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params BurnSpecParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetBurnRequirements(caller, collection, params.ClaimID, &params.Spec); err != nil {
		return nil, engineError(err)
	}
	return AckResult{OK: true}, nil
}

func (s *Server) handleBurnGetRequirements(req *Request) (interface{}, *Error) {
	var params ClaimParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	spec, err := s.engine.GetBurnRequirements(collection, params.ClaimID)
	if err != nil {
		return nil, engineError(err)
	}
	return spec, nil
}

func (s *Server) handleBurnRedeem(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params RedeemParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	res, err := s.engine.Redeem(claims.RedeemRequest{
		Caller:      caller,
		Collection:  collection,
		ClaimID:     params.ClaimID,
		Multiplier:  params.Multiplier,
		Submissions: params.Submissions,
		Payment:     params.Payment,
	})
	if err != nil {
		return nil, engineError(err)
	}
	return res, nil
}

func (s *Server) handleBurnRedeemBatch(req *Request, caller types.Address) (interface{}, *Error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var params RedeemBatchParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Entries) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "entries required"}
	}

	entries := make([]claims.RedeemEntry, len(params.Entries))
	for i, e := range params.Entries {
		collection, rpcErr := parseAddress(e.Collection, fmt.Sprintf("entries[%d].collection", i))
		if rpcErr != nil {
			return nil, rpcErr
		}
		entries[i] = claims.RedeemEntry{
			Collection:  collection,
			ClaimID:     e.ClaimID,
			Multiplier:  e.Multiplier,
			Submissions: e.Submissions,
		}
	}

	results, charged := s.engine.RedeemBatch(caller, params.Payment, entries)
	return &BatchMintResult{Results: results, Charged: charged}, nil
}

// ── Ledger endpoints ────────────────────────────────────────────────────

func (s *Server) handleLedgerGetBalance(req *Request) (interface{}, *Error) {
	if s.ledger == nil {
		return nil, &Error{Code: CodeNotFound, Message: "ledger queries not enabled"}
	}
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.ledger.NativeBalance(addr)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &BalanceResult{Balance: balance}, nil
}

func (s *Server) handleLedgerGetTokenBalance(req *Request) (interface{}, *Error) {
	if s.ledger == nil {
		return nil, &Error{Code: CodeNotFound, Message: "ledger queries not enabled"}
	}
	var params BalanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.ledger.BalanceOf(collection, addr, params.TokenID)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &BalanceResult{Balance: balance}, nil
}

func (s *Server) handleLedgerOwnerOf(req *Request) (interface{}, *Error) {
	if s.ledger == nil {
		return nil, &Error{Code: CodeNotFound, Message: "ledger queries not enabled"}
	}
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	collection, rpcErr := parseAddress(params.Collection, "collection")
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := s.ledger.OwnerOf(collection, params.TokenID)
	if err != nil {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("token not found: %v", err)}
	}
	return &OwnerResult{Owner: owner.String()}, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// parseAddress decodes a required hex address parameter.
func parseAddress(s, field string) (types.Address, *Error) {
	if s == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: field + " is required"}
	}
	addr, err := types.HexToAddress(s)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: must be 20-byte hex", field)}
	}
	return addr, nil
}

// parseOptionalAddress decodes an address parameter that may be absent.
func parseOptionalAddress(s, field string) (types.Address, *Error) {
	if s == "" {
		return types.Address{}, nil
	}
	return parseAddress(s, field)
}

// engineError maps engine failures onto JSON-RPC error codes: unknown
// records are CodeNotFound, everything else is a rejected operation with
// the engine's reason preserved.
func engineError(err error) *Error {
	switch {
	case errors.Is(err, claims.ErrClaimNotFound),
		errors.Is(err, claims.ErrTokenNotFound),
		errors.Is(err, storage.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	default:
		return &Error{Code: CodeRejected, Message: err.Error()}
	}
}
