// Package ledger is the host-side implementation of the collaborator
// capabilities the claims engine consumes: token collections, fungible
// currencies, native balances, and the role predicates. The engine core
// never depends on this package; claimd and the tests wire it in.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Ledger errors.
var (
	ErrUnknownToken        = errors.New("token does not exist")
	ErrNotOwner            = errors.New("sender does not own token")
	ErrInsufficientFunds   = errors.New("insufficient native funds")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Key prefixes.
var (
	prefixCounter = []byte("n/") // n/<collection>                    -> next token id
	prefixOwner   = []byte("o/") // o/<collection><tokenID>           -> owner address
	prefixBalance = []byte("f/") // f/<collection><tokenID><owner>    -> uint64 amount
	prefixNative  = []byte("b/") // b/<address>                       -> uint64 native balance
)

// Ledger persists collections, balances, and roles in a key-value store.
type Ledger struct {
	db storage.DB
}

// New creates a ledger on the given database.
func New(db storage.DB) *Ledger {
	return &Ledger{db: db}
}

// ── Collections ─────────────────────────────────────────────────────────

// Issue creates count sequential units in a collection owned by to and
// returns the first identifier.
func (l *Ledger) Issue(collection, to types.Address, count uint32) (types.TokenID, error) {
	if count == 0 {
		return 0, fmt.Errorf("issue count must be positive")
	}
	next, err := l.counter(collection)
	if err != nil {
		return 0, err
	}
	first := next
	for i := uint32(0); i < count; i++ {
		if err := l.db.Put(ownerKey(collection, types.TokenID(next)), to.Bytes()); err != nil {
			return 0, err
		}
		next++
	}
	if err := l.putCounter(collection, next); err != nil {
		return 0, err
	}
	return types.TokenID(first), nil
}

// OwnerOf returns a unit's owner. Returns ErrUnknownToken for identifiers
// never issued or already destroyed.
func (l *Ledger) OwnerOf(collection types.Address, id types.TokenID) (types.Address, error) {
	data, err := l.db.Get(ownerKey(collection, id))
	if errors.Is(err, storage.ErrNotFound) {
		return types.Address{}, ErrUnknownToken
	}
	if err != nil {
		return types.Address{}, err
	}
	var owner types.Address
	copy(owner[:], data)
	return owner, nil
}

// Transfer moves a unit between owners. The from address must own it.
func (l *Ledger) Transfer(collection, from, to types.Address, id types.TokenID) error {
	owner, err := l.OwnerOf(collection, id)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwner
	}
	return l.db.Put(ownerKey(collection, id), to.Bytes())
}

// Destroy removes a unit permanently.
func (l *Ledger) Destroy(collection types.Address, id types.TokenID) error {
	if _, err := l.OwnerOf(collection, id); err != nil {
		return err
	}
	return l.db.Delete(ownerKey(collection, id))
}

// BalanceOf returns an owner's fungible balance for one token id.
func (l *Ledger) BalanceOf(collection, owner types.Address, id types.TokenID) (uint64, error) {
	return l.amount(balanceKey(collection, id, owner))
}

// IssueAmount credits fungible units of a token id to an owner.
func (l *Ledger) IssueAmount(collection, to types.Address, id types.TokenID, amount uint64) error {
	return l.addAmount(balanceKey(collection, id, to), amount)
}

// TransferAmount moves fungible units between owners.
func (l *Ledger) TransferAmount(collection, from, to types.Address, id types.TokenID, amount uint64) error {
	if err := l.subAmount(balanceKey(collection, id, from), amount, ErrInsufficientBalance); err != nil {
		return err
	}
	return l.addAmount(balanceKey(collection, id, to), amount)
}

// DestroyAmount removes fungible units from an owner permanently.
func (l *Ledger) DestroyAmount(collection, from types.Address, id types.TokenID, amount uint64) error {
	return l.subAmount(balanceKey(collection, id, from), amount, ErrInsufficientBalance)
}

// NextTokenID returns the collection's next identifier, for observation in
// tests and diagnostics.
func (l *Ledger) NextTokenID(collection types.Address) (types.TokenID, error) {
	next, err := l.counter(collection)
	if err != nil {
		return 0, err
	}
	return types.TokenID(next), nil
}

// ── Funds ───────────────────────────────────────────────────────────────

// NativeBalance returns an address's native balance.
func (l *Ledger) NativeBalance(addr types.Address) (uint64, error) {
	return l.amount(nativeKey(addr))
}

// Credit adds native funds to an address.
func (l *Ledger) Credit(to types.Address, amount uint64) error {
	return l.addAmount(nativeKey(to), amount)
}

// Debit removes native funds from an address.
func (l *Ledger) Debit(from types.Address, amount uint64) error {
	return l.subAmount(nativeKey(from), amount, ErrInsufficientFunds)
}

// TransferFrom pulls fungible currency units from payer to recipient. The
// currency handle addresses a collection whose id-0 balance acts as the
// fungible supply.
func (l *Ledger) TransferFrom(currency, payer, recipient types.Address, amount uint64) error {
	return l.TransferAmount(currency, payer, recipient, 0, amount)
}

// ── Helpers ─────────────────────────────────────────────────────────────

func (l *Ledger) counter(collection types.Address) (uint64, error) {
	data, err := l.db.Get(counterKey(collection))
	if errors.Is(err, storage.ErrNotFound) {
		return 1, nil // Token ids start at 1.
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *Ledger) putCounter(collection types.Address, next uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	return l.db.Put(counterKey(collection), buf[:])
}

func (l *Ledger) amount(key []byte) (uint64, error) {
	data, err := l.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("malformed amount value")
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *Ledger) addAmount(key []byte, amount uint64) error {
	current, err := l.amount(key)
	if err != nil {
		return err
	}
	if current > ^uint64(0)-amount {
		return fmt.Errorf("amount overflow")
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], current+amount)
	return l.db.Put(key, buf[:])
}

func (l *Ledger) subAmount(key []byte, amount uint64, insufficient error) error {
	current, err := l.amount(key)
	if err != nil {
		return err
	}
	if current < amount {
		return fmt.Errorf("%w: have %d, need %d", insufficient, current, amount)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], current-amount)
	return l.db.Put(key, buf[:])
}

func counterKey(collection types.Address) []byte {
	key := make([]byte, len(prefixCounter)+types.AddressSize)
	n := copy(key, prefixCounter)
	copy(key[n:], collection[:])
	return key
}

func ownerKey(collection types.Address, id types.TokenID) []byte {
	key := make([]byte, len(prefixOwner)+types.AddressSize+8)
	n := copy(key, prefixOwner)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	return key
}

func balanceKey(collection types.Address, id types.TokenID, owner types.Address) []byte {
	key := make([]byte, len(prefixBalance)+types.AddressSize+8+types.AddressSize)
	n := copy(key, prefixBalance)
	n += copy(key[n:], collection[:])
	binary.BigEndian.PutUint64(key[n:], uint64(id))
	copy(key[n+8:], owner[:])
	return key
}

func nativeKey(addr types.Address) []byte {
	key := make([]byte, len(prefixNative)+types.AddressSize)
	n := copy(key, prefixNative)
	copy(key[n:], addr[:])
	return key
}
