package tokens

import (
	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
)

const (
	// MaxPropertyKeyLength is the maximum byte length of a property key.
	MaxPropertyKeyLength = 256

	// MaxPropertyValueLength is the maximum byte length of a property value.
	MaxPropertyValueLength = 32768

	// MaxPropertiesPerTarget is the maximum number of properties a token or a
	// collection may carry.
	MaxPropertiesPerTarget = 64
)

type (
	PropertyKey   string
	PropertyValue string
)

// Property is a single key/value metadata entry.
type Property struct {
	Key   PropertyKey
	Value PropertyValue
}

// Validate checks the key against the size and character constraints. Keys are
// restricted to a URL-safe alphabet so they can travel through API paths and
// event payloads unescaped.
func (k PropertyKey) Validate() error {
	if len(k) == 0 {
		return errors.Wrap(errs.InvalidPropertyKey, "key is empty")
	}
	if len(k) > MaxPropertyKeyLength {
		return errors.Wrapf(errs.PropertyKeyTooLong, "key length %d exceeds %d", len(k), MaxPropertyKeyLength)
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return errors.Wrapf(errs.InvalidPropertyKey, "invalid character %q at position %d", c, i)
		}
	}
	return nil
}

// Properties is the bounded property map of a token or a collection.
type Properties map[PropertyKey]PropertyValue

// TrySet inserts or replaces a property, enforcing key validity, value size
// and the per-target entry limit.
func (p Properties) TrySet(key PropertyKey, value PropertyValue) error {
	if err := key.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if len(value) > MaxPropertyValueLength {
		return errors.Wrapf(errs.PropertyValueTooLong, "value length %d exceeds %d", len(value), MaxPropertyValueLength)
	}
	if _, exists := p[key]; !exists && len(p) >= MaxPropertiesPerTarget {
		return errors.Wrapf(errs.PropertyLimitReached, "target already has %d properties", len(p))
	}
	p[key] = value
	return nil
}

// Remove deletes a property, reporting whether it was present.
func (p Properties) Remove(key PropertyKey) bool {
	if _, exists := p[key]; !exists {
		return false
	}
	delete(p, key)
	return true
}

func (p Properties) Clone() Properties {
	clone := make(Properties, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// PropertyMutation is one entry of a batch property edit. A nil Value deletes
// the key, a non-nil Value sets it.
type PropertyMutation struct {
	Key   PropertyKey
	Value *PropertyValue
}

// PropertyPermission gates writes to a property key on tokens of a collection.
// The zero value is fully closed, which is also the default for keys without a
// recorded permission.
type PropertyPermission struct {
	// Mutable permits changing or deleting the property after its first write.
	// Immutability is absolute: once an immutable property is written, no role
	// can ever change it.
	Mutable bool

	// CollectionAdmin permits writes by the collection owner and admins.
	CollectionAdmin bool

	// TokenOwner permits writes by the (possibly indirect) token owner.
	TokenOwner bool
}

// PropertyKeyPermission pairs a key with the permission to record for it.
type PropertyKeyPermission struct {
	Key        PropertyKey
	Permission PropertyPermission
}

// PropertyPermissions maps property keys to their collection-level permission
// records.
type PropertyPermissions map[PropertyKey]PropertyPermission

func (p PropertyPermissions) Clone() PropertyPermissions {
	clone := make(PropertyPermissions, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// PropertyScope namespaces auxiliary properties. Aux properties are reserved
// for system bookkeeping (e.g. proxy-internal structured data) and bypass the
// user property limits and permission records.
type PropertyScope string
