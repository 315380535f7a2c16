package types

// ClaimID identifies a claim within a collection. Claim IDs are assigned by
// the collection administrator at initialization and are never reused.
type ClaimID uint64

// TokenID is the serial number of an issued unit within its collection.
// The claims engine observes these values from the collection's own issuance
// counter; it never assigns them itself.
type TokenID uint64
