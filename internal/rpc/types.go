package rpc

import (
	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/internal/claims"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnauthorized   = -32001
	CodeRejected       = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// ClaimParam addresses one claim.
type ClaimParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
}

// TokenParam addresses one issued unit.
type TokenParam struct {
	Collection string        `json:"collection"`
	TokenID    types.TokenID `json:"token_id"`
}

// ClaimConfigParam is used by claim_initialize and claim_update.
type ClaimConfigParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
	Config     claims.Config `json:"config"`
}

// UserMintsParam is used by claim_getUserMints.
type UserMintsParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
	Address    string        `json:"address"`
}

// CheckIndicesParam is used by claim_checkIndices.
type CheckIndicesParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
	Indices    []uint32      `json:"indices"`
}

// MintParam is used by claim_mint and claim_mintProxy.
type MintParam struct {
	Collection  string         `json:"collection"`
	ClaimID     types.ClaimID  `json:"claim_id"`
	Count       uint32         `json:"count"`
	LeafIndices []uint32       `json:"leaf_indices,omitempty"`
	Proofs      [][]types.Hash `json:"proofs,omitempty"`
	MintFor     string         `json:"mint_for,omitempty"`
	Payment     uint64         `json:"payment"`
}

// MintBatchParam is used by claim_mintBatch.
type MintBatchParam struct {
	Payment uint64           `json:"payment"`
	Entries []MintEntryParam `json:"entries"`
}

// MintEntryParam is one sub-operation of claim_mintBatch.
type MintEntryParam struct {
	Collection  string         `json:"collection"`
	ClaimID     types.ClaimID  `json:"claim_id"`
	Count       uint32         `json:"count"`
	LeafIndices []uint32       `json:"leaf_indices,omitempty"`
	Proofs      [][]types.Hash `json:"proofs,omitempty"`
	MintFor     string         `json:"mint_for,omitempty"`
}

// AirdropParam is used by claim_airdrop.
type AirdropParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
	Recipients []string      `json:"recipients"`
	Counts     []uint32      `json:"counts"`
}

// ExtendParam is used by claim_extendLocation and claim_extendTokenLocation.
type ExtendParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id,omitempty"`
	TokenID    types.TokenID `json:"token_id,omitempty"`
	Segment    string        `json:"segment"`
}

// BurnSpecParam is used by burn_setRequirements.
type BurnSpecParam struct {
	Collection string        `json:"collection"`
	ClaimID    types.ClaimID `json:"claim_id"`
	Spec       burn.Spec     `json:"spec"`
}

// RedeemParam is used by burn_redeem.
type RedeemParam struct {
	Collection  string            `json:"collection"`
	ClaimID     types.ClaimID     `json:"claim_id"`
	Multiplier  uint32            `json:"multiplier"`
	Submissions []burn.Submission `json:"submissions"`
	Payment     uint64            `json:"payment"`
}

// RedeemBatchParam is used by burn_redeemBatch.
type RedeemBatchParam struct {
	Payment uint64             `json:"payment"`
	Entries []RedeemEntryParam `json:"entries"`
}

// RedeemEntryParam is one sub-operation of burn_redeemBatch.
type RedeemEntryParam struct {
	Collection  string            `json:"collection"`
	ClaimID     types.ClaimID     `json:"claim_id"`
	Multiplier  uint32            `json:"multiplier"`
	Submissions []burn.Submission `json:"submissions"`
}

// AddressParam is used by ledger_getBalance.
type AddressParam struct {
	Address string `json:"address"`
}

// BalanceParam is used by ledger_getTokenBalance.
type BalanceParam struct {
	Collection string        `json:"collection"`
	Address    string        `json:"address"`
	TokenID    types.TokenID `json:"token_id"`
}

// ── Result types ────────────────────────────────────────────────────────

// ClaimResult is returned by claim_get and claim_getForToken.
type ClaimResult struct {
	ClaimID types.ClaimID `json:"claim_id"`
	Claim   *claims.Claim `json:"claim"`
}

// UserMintsResult is returned by claim_getUserMints.
type UserMintsResult struct {
	Count uint32 `json:"count"`
}

// CheckIndicesResult is returned by claim_checkIndices.
type CheckIndicesResult struct {
	Consumed []bool `json:"consumed"`
}

// BatchMintResult is returned by claim_mintBatch and burn_redeemBatch.
type BatchMintResult struct {
	Results []claims.BatchResult `json:"results"`
	Charged uint64               `json:"charged"`
}

// AirdropResult is returned by claim_airdrop.
type AirdropResult struct {
	Results []claims.MintResult `json:"results"`
}

// LocatorResult is returned by claim_tokenLocator.
type LocatorResult struct {
	Locator string `json:"locator"`
}

// BalanceResult is returned by the ledger balance endpoints.
type BalanceResult struct {
	Balance uint64 `json:"balance"`
}

// OwnerResult is returned by ledger_ownerOf.
type OwnerResult struct {
	Owner string `json:"owner"`
}

// AckResult is returned by state-changing endpoints with no other payload.
type AckResult struct {
	OK bool `json:"ok"`
}
