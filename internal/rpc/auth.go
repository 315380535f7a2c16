package rpc

import (
	"encoding/hex"
	"net/http"

	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Authentication headers. The signature is a Schnorr signature over the
// BLAKE3 hash of the raw request body, so the signed payload and the
// executed payload cannot diverge.
const (
	HeaderPubKey    = "X-Klingnet-Pubkey"
	HeaderSignature = "X-Klingnet-Signature"
)

// SignBody produces the header values for an authenticated request body.
func SignBody(key *crypto.PrivateKey, body []byte) (pubKeyHex, sigHex string, err error) {
	digest := crypto.Hash(body)
	sig, err := key.Sign(digest[:])
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(key.PublicKey()), hex.EncodeToString(sig), nil
}

// callerFromRequest derives the caller address from the auth headers.
// Requests without both headers are anonymous (zero address, no error);
// requests with malformed or unverifiable headers are rejected.
func callerFromRequest(r *http.Request, body []byte) (types.Address, *Error) {
	pubKeyHex := r.Header.Get(HeaderPubKey)
	sigHex := r.Header.Get(HeaderSignature)
	if pubKeyHex == "" && sigHex == "" {
		return types.Address{}, nil
	}

	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pubKey) != 33 {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "invalid public key header"}
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "invalid signature header"}
	}

	digest := crypto.Hash(body)
	if !crypto.VerifySignature(digest[:], sig, pubKey) {
		return types.Address{}, &Error{Code: CodeUnauthorized, Message: "signature does not match request body"}
	}
	return crypto.AddressFromPubKey(pubKey), nil
}

// requireCaller rejects anonymous callers on state-changing endpoints.
func requireCaller(caller types.Address) *Error {
	if caller.IsZero() {
		return &Error{Code: CodeUnauthorized, Message: "authenticated request required"}
	}
	return nil
}
