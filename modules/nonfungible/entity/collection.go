package entity

import (
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// AccessMode restricts who may mint, transfer, approve or burn in a collection.
type AccessMode string

const (
	// AccessNormal places no account restriction.
	AccessNormal AccessMode = "normal"
	// AccessAllowList restricts participation to allow-listed accounts.
	AccessAllowList AccessMode = "allowlist"
)

// CollectionLimits are the owner-configurable hard limits of a collection.
// A zero value means "unlimited" for the numeric limits.
type CollectionLimits struct {
	// TokenLimit caps the number of live tokens in the collection.
	TokenLimit uint32

	// AccountTokenOwnershipLimit caps the number of tokens a single account
	// may directly own in the collection.
	AccountTokenOwnershipLimit uint32

	// OwnerCanTransfer lets the collection owner and admins move or burn
	// tokens they do not own, without an allowance.
	OwnerCanTransfer bool

	// TransfersEnabled gates all transfers in the collection.
	TransfersEnabled bool
}

// NestingPermission controls who may nest tokens under tokens of this
// collection, and which collections' tokens may be nested.
type NestingPermission struct {
	// TokenOwner permits the (possibly indirect) owner of the parent token.
	TokenOwner bool

	// CollectionAdmin permits the collection owner and admins.
	CollectionAdmin bool

	// Restricted, when non-nil, limits the collections whose tokens may be
	// nested under tokens of this collection.
	Restricted []tokens.CollectionId
}

// AllowsCollection reports whether children from the given collection may be
// nested, per the Restricted list.
func (n NestingPermission) AllowsCollection(id tokens.CollectionId) bool {
	if n.Restricted == nil {
		return true
	}
	return lo.Contains(n.Restricted, id)
}

// CollectionPermissions is the collection-level access policy.
type CollectionPermissions struct {
	Access AccessMode

	// MintMode permits public minting by allow-listed accounts.
	MintMode bool

	Nesting NestingPermission

	// IgnoresAllowance makes every delegated transfer/burn pass the allowance
	// gate for this collection. Explicit policy flag for sponsored
	// cross-account flows.
	IgnoresAllowance bool

	// IgnoresOwnedAmount lets a non-owner set an allowance on a token.
	// Companion escape valve to IgnoresAllowance.
	IgnoresOwnedAmount bool
}

// Collection is the registry entry of a token collection, including its
// mint/burn counters.
type Collection struct {
	Id          tokens.CollectionId
	Owner       tokens.AccountId
	Name        string
	Description string

	// TokensMinted is monotonic and never decremented; token ids are assigned
	// from it. TokensBurnt only grows. Live supply is the difference.
	TokensMinted uint32
	TokensBurnt  uint32

	Limits      CollectionLimits
	Permissions CollectionPermissions
}

// TotalSupply returns the number of live tokens.
func (c *Collection) TotalSupply() uint32 {
	return c.TokensMinted - c.TokensBurnt
}
