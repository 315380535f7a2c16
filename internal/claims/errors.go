package claims

import "errors"

// Configuration errors: rejected before any state changes.
var (
	ErrClaimExists      = errors.New("claim already initialized")
	ErrClaimNotFound    = errors.New("claim not found")
	ErrInvalidWindow    = errors.New("claim end time must be after start time")
	ErrRootWalletMax    = errors.New("merkle root and per-wallet cap are mutually exclusive")
	ErrCurrencyChange   = errors.New("claim currency cannot be changed")
	ErrNotAdministrator = errors.New("caller is not a collection administrator")
	ErrLengthMismatch   = errors.New("parallel parameter arrays differ in length")
)

// Reservation errors: rejected at check time, no partial charge. Each
// failure mode has its own stable reason so clients can branch on cause.
var (
	ErrClaimInactive       = errors.New("claim is outside its activity window")
	ErrInvalidProof        = errors.New("could not verify allow-list proof")
	ErrIndexConsumed       = errors.New("allow-list index already issued")
	ErrWalletLimit         = errors.New("per-wallet issuance limit exceeded")
	ErrTotalLimit          = errors.New("claim total cap exceeded")
	ErrNotDelegate         = errors.New("caller is not a delegate for the recipient")
	ErrInsufficientPayment = errors.New("insufficient payment supplied")
	ErrCountOverflow       = errors.New("issued count would overflow")
	ErrZeroCount           = errors.New("requested count must be positive")
	ErrTokenNotFound       = errors.New("token was not issued through any claim")
)
