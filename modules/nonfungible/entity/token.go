package entity

import (
	"github.com/gaze-network/uint128"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// TokenData is the item record of a live token. A row exists iff the token has
// been minted and not burned.
type TokenData struct {
	CollectionId tokens.CollectionId
	TokenId      tokens.TokenId
	Owner        tokens.AccountId
}

// Address returns the fully qualified reference of the token.
func (t *TokenData) Address() tokens.TokenAddress {
	return tokens.TokenAddress{CollectionId: t.CollectionId, TokenId: t.TokenId}
}

// MintItem describes one token to create in a mint batch.
type MintItem struct {
	Owner      tokens.AccountId
	Properties []tokens.Property

	// Amount must be 0 (no-op) or 1 for non-fungible items. The field exists
	// so the external surface stays shape-compatible with fungible mints.
	Amount uint128.Uint128
}
