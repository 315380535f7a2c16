package claims

import (
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	klog "github.com/Klingon-tech/klingnet-claims/internal/log"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
	"github.com/rs/zerolog"
)

// Collections is the token-collection primitive the engine issues against.
// Issue returns the first identifier of a contiguous run of count units;
// the collection's counter may advance between engine calls due to
// unrelated issuance.
type Collections interface {
	Issue(collection, to types.Address, count uint32) (types.TokenID, error)
	OwnerOf(collection types.Address, id types.TokenID) (types.Address, error)
	Transfer(collection, from, to types.Address, id types.TokenID) error
	Destroy(collection types.Address, id types.TokenID) error
	BalanceOf(collection, owner types.Address, id types.TokenID) (uint64, error)
	TransferAmount(collection, from, to types.Address, id types.TokenID, amount uint64) error
	DestroyAmount(collection, from types.Address, id types.TokenID, amount uint64) error
}

// Funds moves payment. Debit takes supplied native payment from the caller,
// Credit pays out, TransferFrom pulls fungible-token prices.
type Funds interface {
	Debit(from types.Address, amount uint64) error
	Credit(to types.Address, amount uint64) error
	TransferFrom(currency, payer, recipient types.Address, amount uint64) error
}

// Roles answers the access-control, membership, and delegation predicates.
// All three are external collaborators; the engine only consumes their
// verdicts.
type Roles interface {
	IsAdministrator(caller, collection types.Address) bool
	IsActiveMember(identity types.Address) bool
	// IsDelegateFor reports whether caller may reserve on behalf of
	// recipient for the given collection (implementations may also honor
	// a global delegation).
	IsDelegateFor(caller, recipient, collection types.Address) bool
}

// Params holds engine-level configuration.
type Params struct {
	// Fees is the platform fee schedule.
	Fees fees.Schedule
	// FeeRecipient receives the platform-fee portion of payments.
	FeeRecipient types.Address
	// Gateway is the prefix prepended by gateway-kind locators.
	Gateway string
	// Sink receives assets consumed by sink-transfer destruction.
	Sink types.Address
	// Now supplies ledger time; defaults to wall clock.
	Now func() int64
}

// Engine is the claim/redemption accounting engine. Every exported method
// is one atomic operation: all quota and consumption writes commit before
// any collection or currency call, so re-entrant callbacks observe updated
// counters and cannot double-spend.
type Engine struct {
	store  *Store
	coll   Collections
	funds  Funds
	roles  Roles
	params Params
	log    zerolog.Logger
}

// NewEngine creates an engine over the given store and collaborators.
func NewEngine(store *Store, coll Collections, funds Funds, roles Roles, params Params) *Engine {
	if params.Now == nil {
		params.Now = func() int64 { return time.Now().Unix() }
	}
	return &Engine{
		store:  store,
		coll:   coll,
		funds:  funds,
		roles:  roles,
		params: params,
		log:    klog.WithComponent("claims"),
	}
}

// InitializeClaim creates a new claim. Admin-gated; rejects recreation over
// an existing claim id and any invalid configuration, before any state
// changes.
func (e *Engine) InitializeClaim(caller, collection types.Address, id types.ClaimID, cfg Config) error {
	if !e.roles.IsAdministrator(caller, collection) {
		return ErrNotAdministrator
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	exists, err := e.store.HasClaim(collection, id)
	if err != nil {
		return err
	}
	if exists {
		return ErrClaimExists
	}

	claim := &Claim{
		MerkleRoot: cfg.MerkleRoot,
		Location:   []string{cfg.Location},
		TotalMax:   cfg.TotalMax,
		WalletMax:  cfg.WalletMax,
		StartTime:  cfg.StartTime,
		EndTime:    cfg.EndTime,
		Kind:       cfg.Kind,
		Identical:  cfg.Identical,
		Price:      cfg.Price,
		Recipient:  cfg.Recipient,
		Currency:   cfg.Currency,
	}
	if err := e.store.PutClaim(collection, id, claim); err != nil {
		return err
	}

	e.log.Info().
		Str("collection", collection.String()).
		Uint64("claim", uint64(id)).
		Uint32("total_max", cfg.TotalMax).
		Bool("merkle", claim.merkleGated()).
		Msg("claim initialized")
	return nil
}

// UpdateClaim modifies an existing claim. The currency handle is immutable,
// and a total cap below the issued count is clamped up to the issued count
// rather than shrinking history away. Clamping is idempotent.
func (e *Engine) UpdateClaim(caller, collection types.Address, id types.ClaimID, cfg Config) error {
	if !e.roles.IsAdministrator(caller, collection) {
		return ErrNotAdministrator
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	claim, err := e.store.GetClaim(collection, id)
	if err != nil {
		return err
	}
	if cfg.Currency != claim.Currency {
		return ErrCurrencyChange
	}

	totalMax := cfg.TotalMax
	if totalMax < claim.Total {
		totalMax = claim.Total
	}

	claim.MerkleRoot = cfg.MerkleRoot
	claim.Location = []string{cfg.Location}
	claim.TotalMax = totalMax
	claim.WalletMax = cfg.WalletMax
	claim.StartTime = cfg.StartTime
	claim.EndTime = cfg.EndTime
	claim.Kind = cfg.Kind
	claim.Identical = cfg.Identical
	claim.Price = cfg.Price
	claim.Recipient = cfg.Recipient

	return e.store.PutClaim(collection, id, claim)
}

// SetBurnRequirements attaches (or replaces) a claim's burn-requirement
// specification. Admin-gated; the spec is validated before storage.
func (e *Engine) SetBurnRequirements(caller, collection types.Address, id types.ClaimID, spec *burn.Spec) error {
	if !e.roles.IsAdministrator(caller, collection) {
		return ErrNotAdministrator
	}
	if _, err := e.store.GetClaim(collection, id); err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	return e.store.PutBurnSpec(collection, id, spec)
}

// settle moves a computed quote from the payer: the price portion to the
// claim's recipient (native credit or fungible pull) and the fee portion to
// the platform fee recipient. The native amount was already debited.
func (e *Engine) settle(claim *Claim, payer types.Address, quote fees.Quote) error {
	if quote.Native > 0 {
		if err := e.funds.Debit(payer, quote.Native); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientPayment, err)
		}
	}
	if quote.Pulled > 0 {
		if err := e.funds.TransferFrom(claim.Currency, payer, claim.Recipient, quote.Pulled); err != nil {
			// Undo the native debit so a failed pull charges nothing.
			if quote.Native > 0 {
				if cerr := e.funds.Credit(payer, quote.Native); cerr != nil {
					return fmt.Errorf("refund after failed pull: %v: %w", cerr, err)
				}
			}
			return fmt.Errorf("%w: %v", ErrInsufficientPayment, err)
		}
	}
	if nativePrice := claim.Currency.IsZero(); nativePrice && quote.Price > 0 {
		if err := e.funds.Credit(claim.Recipient, quote.Price); err != nil {
			return err
		}
	}
	if quote.Fee > 0 {
		if err := e.funds.Credit(e.params.FeeRecipient, quote.Fee); err != nil {
			return err
		}
	}
	return nil
}
