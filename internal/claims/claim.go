// Package claims implements the claim registry, quota enforcement, and the
// issuance engine built on top of them.
//
// A claim is an issuance campaign scoped to one collection: caps, an
// activity window, a price, and optionally an allow-list commitment root or
// a burn requirement. Claims are created once, consumed incrementally, and
// never deleted — halting a claim is done by clamping its cap.
package claims

import (
	"github.com/Klingon-tech/klingnet-claims/internal/locator"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Claim is the stored per-claim record.
type Claim struct {
	// MerkleRoot gates issuance on allow-list proofs when nonzero.
	MerkleRoot types.Hash `json:"merkle_root"`
	// Location holds the locator string segments; Extend appends to it.
	Location []string `json:"location"`
	// TotalMax caps total issuance. Never allowed below Total.
	TotalMax uint32 `json:"total_max"`
	// WalletMax caps issuance per identity; zero disables the cap.
	// Mutually exclusive with MerkleRoot.
	WalletMax uint32 `json:"wallet_max"`
	// StartTime/EndTime bound the activity window (unix seconds). A zero
	// bound is open-ended; both zero disables the window entirely.
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
	// Kind selects locator presentation (verbatim or gateway-prefixed).
	Kind locator.Kind `json:"kind"`
	// Identical makes every unit of the claim share one locator string.
	Identical bool `json:"identical"`
	// Price is the per-unit price in Currency units.
	Price uint64 `json:"price"`
	// Recipient receives the price portion of every payment.
	Recipient types.Address `json:"recipient"`
	// Currency is the fungible payment token handle; zero means native.
	// Immutable after initialization.
	Currency types.Address `json:"currency"`
	// Total is the running issued count.
	Total uint32 `json:"total"`
}

// Config carries caller-supplied claim parameters for initialize/update.
type Config struct {
	MerkleRoot types.Hash    `json:"merkle_root"`
	Location   string        `json:"location"`
	TotalMax   uint32        `json:"total_max"`
	WalletMax  uint32        `json:"wallet_max"`
	StartTime  int64         `json:"start_time"`
	EndTime    int64         `json:"end_time"`
	Kind       locator.Kind  `json:"kind"`
	Identical  bool          `json:"identical"`
	Price      uint64        `json:"price"`
	Recipient  types.Address `json:"recipient"`
	Currency   types.Address `json:"currency"`
}

// validate applies the configuration rules shared by initialize and update.
func (c *Config) validate() error {
	if !c.Kind.Valid() {
		return locator.ErrInvalidKind
	}
	if c.EndTime != 0 && c.EndTime <= c.StartTime {
		return ErrInvalidWindow
	}
	if !c.MerkleRoot.IsZero() && c.WalletMax != 0 {
		return ErrRootWalletMax
	}
	return nil
}

// windowOpen reports whether the claim accepts issuance at the given time.
func (c *Claim) windowOpen(now int64) bool {
	if c.StartTime != 0 && now < c.StartTime {
		return false
	}
	if c.EndTime != 0 && now >= c.EndTime {
		return false
	}
	return true
}

// merkleGated reports whether issuance requires allow-list proofs.
func (c *Claim) merkleGated() bool {
	return !c.MerkleRoot.IsZero()
}
