package claims

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/internal/burn"
	"github.com/Klingon-tech/klingnet-claims/internal/locator"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Key prefixes. Claim IDs and token IDs are big-endian so iteration order
// matches numeric order.
var (
	prefixClaim  = []byte("c/") // c/<collection><claimID>            -> Claim JSON
	prefixLeaf   = []byte("x/") // x/<collection><claimID><leafIndex> -> consumed marker
	prefixWallet = []byte("w/") // w/<collection><claimID><identity>  -> uint32 count
	prefixAlloc  = []byte("a/") // a/<collection><claimID>            -> locator.Window JSON
	prefixExtend = []byte("u/") // u/<collection><tokenID>            -> []string JSON
	prefixBurn   = []byte("r/") // r/<collection><claimID>            -> burn.Spec JSON
)

// Store persists all claim registry state: claim records, consumed
// allow-list leaves, per-wallet counters, allocation windows, burn
// requirements, and token locator extensions.
type Store struct {
	db storage.DB
}

// NewStore creates a claim store on the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// NewBatch returns a write batch for staging a reservation's mutations.
// All staged writes commit atomically when the DB supports it.
func (s *Store) NewBatch() storage.Batch {
	if b, ok := s.db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return storage.NewPrefixDB(s.db, nil).NewBatch()
}

// ── Claims ──────────────────────────────────────────────────────────────

// GetClaim loads a claim record. Returns ErrClaimNotFound if absent.
func (s *Store) GetClaim(collection types.Address, id types.ClaimID) (*Claim, error) {
	data, err := s.db.Get(claimKey(collection, id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim get: %w", err)
	}
	var c Claim
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("claim unmarshal: %w", err)
	}
	return &c, nil
}

// HasClaim checks whether a claim exists.
func (s *Store) HasClaim(collection types.Address, id types.ClaimID) (bool, error) {
	return s.db.Has(claimKey(collection, id))
}

// PutClaim stores a claim record directly.
func (s *Store) PutClaim(collection types.Address, id types.ClaimID, c *Claim) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("claim marshal: %w", err)
	}
	return s.db.Put(claimKey(collection, id), data)
}

// StageClaim stages a claim record into a write batch.
func (s *Store) StageClaim(b storage.Batch, collection types.Address, id types.ClaimID, c *Claim) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("claim marshal: %w", err)
	}
	return b.Put(claimKey(collection, id), data)
}

// ForEachClaim iterates over all claims of a collection.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEachClaim(collection types.Address, fn func(types.ClaimID, *Claim) error) error {
	prefix := append(append([]byte{}, prefixClaim...), collection[:]...)
	return s.db.ForEach(prefix, func(key, value []byte) error {
		if len(key) < len(prefix)+8 {
			return nil // Malformed key, skip.
		}
		id := types.ClaimID(binary.BigEndian.Uint64(key[len(prefix):]))
		var c Claim
		if err := json.Unmarshal(value, &c); err != nil {
			return nil // Skip corrupt entries.
		}
		return fn(id, &c)
	})
}

// ── Allow-list leaf consumption ─────────────────────────────────────────

// LeafConsumed checks whether an allow-list index was already issued.
func (s *Store) LeafConsumed(collection types.Address, id types.ClaimID, leafIndex uint32) (bool, error) {
	return s.db.Has(leafKey(collection, id, leafIndex))
}

// StageLeaf marks an allow-list index consumed in a write batch.
func (s *Store) StageLeaf(b storage.Batch, collection types.Address, id types.ClaimID, leafIndex uint32) error {
	return b.Put(leafKey(collection, id, leafIndex), []byte{1})
}

// ── Per-wallet counters ─────────────────────────────────────────────────

// WalletCount returns the units issued to an identity under a claim.
func (s *Store) WalletCount(collection types.Address, id types.ClaimID, identity types.Address) (uint32, error) {
	data, err := s.db.Get(walletKey(collection, id, identity))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("wallet count get: %w", err)
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("wallet count: malformed value")
	}
	return binary.BigEndian.Uint32(data), nil
}

// StageWalletCount stages an identity's issued count in a write batch.
func (s *Store) StageWalletCount(b storage.Batch, collection types.Address, id types.ClaimID, identity types.Address, count uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], count)
	return b.Put(walletKey(collection, id, identity), buf[:])
}

// ── Allocation windows ──────────────────────────────────────────────────

// GetWindow loads a claim's identifier allocation window. A claim with no
// issuance yet gets an empty window.
func (s *Store) GetWindow(collection types.Address, id types.ClaimID) (*locator.Window, error) {
	data, err := s.db.Get(allocKey(collection, id))
	if errors.Is(err, storage.ErrNotFound) {
		return &locator.Window{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("window get: %w", err)
	}
	var w locator.Window
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("window unmarshal: %w", err)
	}
	return &w, nil
}

// PutWindow stores a claim's allocation window.
func (s *Store) PutWindow(collection types.Address, id types.ClaimID, w *locator.Window) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("window marshal: %w", err)
	}
	return s.db.Put(allocKey(collection, id), data)
}

// ── Token locator extensions ────────────────────────────────────────────

// TokenSegments returns the extension segments appended to one token's
// locator, or nil if none.
func (s *Store) TokenSegments(collection types.Address, token types.TokenID) ([]string, error) {
	data, err := s.db.Get(extendKey(collection, token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token segments get: %w", err)
	}
	var segments []string
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("token segments unmarshal: %w", err)
	}
	return segments, nil
}

// PutTokenSegments stores a token's locator extension segments.
func (s *Store) PutTokenSegments(collection types.Address, token types.TokenID, segments []string) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("token segments marshal: %w", err)
	}
	return s.db.Put(extendKey(collection, token), data)
}

// ── Burn requirements ───────────────────────────────────────────────────

// GetBurnSpec loads a claim's burn requirements.
// Returns burn.ErrNoSpec if the claim has none.
func (s *Store) GetBurnSpec(collection types.Address, id types.ClaimID) (*burn.Spec, error) {
	data, err := s.db.Get(burnKey(collection, id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, burn.ErrNoSpec
	}
	if err != nil {
		return nil, fmt.Errorf("burn spec get: %w", err)
	}
	var spec burn.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("burn spec unmarshal: %w", err)
	}
	return &spec, nil
}

// PutBurnSpec stores a claim's burn requirements.
func (s *Store) PutBurnSpec(collection types.Address, id types.ClaimID, spec *burn.Spec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("burn spec marshal: %w", err)
	}
	return s.db.Put(burnKey(collection, id), data)
}

// ── Keys ────────────────────────────────────────────────────────────────

func claimKey(collection types.Address, id types.ClaimID) []byte {
	key := make([]byte, len(prefixClaim)+types.AddressSize+8)
	n := copy(key, prefixClaim)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	return key
}

func leafKey(collection types.Address, id types.ClaimID, leafIndex uint32) []byte {
	key := make([]byte, len(prefixLeaf)+types.AddressSize+8+4)
	n := copy(key, prefixLeaf)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	binary.BigEndian.PutUint32(key[n+8:], leafIndex)
	return key
}

func walletKey(collection types.Address, id types.ClaimID, identity types.Address) []byte {
	key := make([]byte, len(prefixWallet)+types.AddressSize+8+types.AddressSize)
	n := copy(key, prefixWallet)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	copy(key[n+8:], identity[:])
	return key
}

func allocKey(collection types.Address, id types.ClaimID) []byte {
	key := make([]byte, len(prefixAlloc)+types.AddressSize+8)
	n := copy(key, prefixAlloc)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	return key
}

func extendKey(collection types.Address, token types.TokenID) []byte {
	key := make([]byte, len(prefixExtend)+types.AddressSize+8)
	n := copy(key, prefixExtend)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(token))
	return key
}

func burnKey(collection types.Address, id types.ClaimID) []byte {
	key := make([]byte, len(prefixBurn)+types.AddressSize+8)
	n := copy(key, prefixBurn)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	return key
}
