// Package fees computes the required payment for issuance requests.
//
// Two orthogonal charges apply: the claim's configured unit price (paid to
// the claim's payment recipient in the claim's currency) and a flat per-unit
// platform fee, always paid in native currency. The fee has two tiers:
// allow-list-verified issuance pays the higher rate, reflecting the extra
// proof-verification cost. Rates are environment-specific and come from
// configuration, never hardcoded.
package fees

import (
	"errors"
	"math"
)

// ErrAmountOverflow is returned when a quote would exceed uint64 range.
var ErrAmountOverflow = errors.New("payment amount overflow")

// Schedule holds the configured per-unit platform fee tiers.
type Schedule struct {
	MintFee       uint64 // per unit, standard issuance
	MintFeeMerkle uint64 // per unit, allow-list verified issuance
}

// PerUnit returns the platform fee for one unit at the given tier.
func (s Schedule) PerUnit(merkleGated bool) uint64 {
	if merkleGated {
		return s.MintFeeMerkle
	}
	return s.MintFee
}

// Quote is the required payment for a single issuance request.
type Quote struct {
	// Price is the unit-price portion, denominated in the claim's
	// currency (native or fungible).
	Price uint64
	// Fee is the platform-fee portion, always native.
	Fee uint64
	// Native is the native amount the caller must supply up front:
	// the fee plus the price when the price is native-denominated.
	Native uint64
	// Pulled is the fungible amount transferred from the caller when the
	// price is denominated in a fungible token; zero otherwise.
	Pulled uint64
}

// QuoteMint computes the payment required for count units.
//
// An active member is waived the platform fee on the direct-caller path
// only; the caller passes waived=false on delegated and proxy paths so the
// fee always applies there.
func (s Schedule) QuoteMint(unitPrice uint64, count uint32, nativePrice, merkleGated, waived bool) (Quote, error) {
	n := uint64(count)

	price, err := mulCheck(unitPrice, n)
	if err != nil {
		return Quote{}, err
	}

	var fee uint64
	if !waived {
		fee, err = mulCheck(s.PerUnit(merkleGated), n)
		if err != nil {
			return Quote{}, err
		}
	}

	q := Quote{Price: price, Fee: fee}
	if nativePrice {
		q.Native, err = addCheck(price, fee)
		if err != nil {
			return Quote{}, err
		}
	} else {
		q.Native = fee
		q.Pulled = price
	}
	return q, nil
}

func mulCheck(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrAmountOverflow
	}
	return a * b, nil
}

func addCheck(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
