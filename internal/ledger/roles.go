package ledger

import (
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Role key prefixes.
var (
	prefixAdmin    = []byte("ra/") // ra/<collection><address>           -> marker
	prefixMember   = []byte("rm/") // rm/<address>                       -> marker
	prefixDelegate = []byte("rd/") // rd/<collection><caller><recipient> -> marker
)

// IsAdministrator reports whether caller administers a collection.
func (l *Ledger) IsAdministrator(caller, collection types.Address) bool {
	has, err := l.db.Has(adminKey(collection, caller))
	return err == nil && has
}

// AddAdministrator grants caller administration of a collection.
func (l *Ledger) AddAdministrator(collection, addr types.Address) error {
	return l.db.Put(adminKey(collection, addr), []byte{1})
}

// RemoveAdministrator revokes administration of a collection.
func (l *Ledger) RemoveAdministrator(collection, addr types.Address) error {
	return l.db.Delete(adminKey(collection, addr))
}

// IsActiveMember reports whether an identity holds an active membership.
func (l *Ledger) IsActiveMember(identity types.Address) bool {
	has, err := l.db.Has(memberKey(identity))
	return err == nil && has
}

// AddMember marks an identity as an active member.
func (l *Ledger) AddMember(identity types.Address) error {
	return l.db.Put(memberKey(identity), []byte{1})
}

// RemoveMember clears an identity's membership.
func (l *Ledger) RemoveMember(identity types.Address) error {
	return l.db.Delete(memberKey(identity))
}

// IsDelegateFor reports whether caller may reserve on behalf of recipient
// for a collection. A delegation registered against the zero collection is
// global and applies to every collection.
func (l *Ledger) IsDelegateFor(caller, recipient, collection types.Address) bool {
	if has, err := l.db.Has(delegateKey(collection, caller, recipient)); err == nil && has {
		return true
	}
	has, err := l.db.Has(delegateKey(types.Address{}, caller, recipient))
	return err == nil && has
}

// AddDelegate registers caller as a delegate for recipient. Use the zero
// collection for a global delegation.
func (l *Ledger) AddDelegate(collection, caller, recipient types.Address) error {
	return l.db.Put(delegateKey(collection, caller, recipient), []byte{1})
}

// RemoveDelegate revokes a delegation.
func (l *Ledger) RemoveDelegate(collection, caller, recipient types.Address) error {
	return l.db.Delete(delegateKey(collection, caller, recipient))
}

func adminKey(collection, addr types.Address) []byte {
	key := make([]byte, len(prefixAdmin)+2*types.AddressSize)
	n := copy(key, prefixAdmin)
	n += copy(key[n:], collection[:])
	copy(key[n:], addr[:])
	return key
}

func memberKey(identity types.Address) []byte {
	key := make([]byte, len(prefixMember)+types.AddressSize)
	n := copy(key, prefixMember)
	copy(key[n:], identity[:])
	return key
}

func delegateKey(collection, caller, recipient types.Address) []byte {
	key := make([]byte, len(prefixDelegate)+3*types.AddressSize)
	n := copy(key, prefixDelegate)
	n += copy(key[n:], collection[:])
	n += copy(key[n:], caller[:])
	copy(key[n:], recipient[:])
	return key
}
