package tokens

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
)

// CollectionId identifies a collection. Assigned sequentially, starting at 1.
type CollectionId uint32

// TokenId identifies a token within a collection. 1-based and monotonically
// increasing; an id is never reused after the token is burned.
type TokenId uint32

func (c CollectionId) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

func (t TokenId) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// AccountId is an opaque account address. It is either a wallet address or the
// synthetic account of a token (see TokenAddress.Account).
type AccountId string

// ZeroAccount is the burn/mint address used in ERC-721-shaped logs.
const ZeroAccount = AccountId("0x0000000000000000000000000000000000000000")

func (a AccountId) String() string {
	return string(a)
}

// TokenAddress is a fully qualified token reference.
type TokenAddress struct {
	CollectionId CollectionId
	TokenId      TokenId
}

func (a TokenAddress) String() string {
	return fmt.Sprintf("%d:%d", a.CollectionId, a.TokenId)
}

// NewTokenAddressFromString parses a "<collection>:<token>" pair.
func NewTokenAddressFromString(s string) (TokenAddress, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TokenAddress{}, errors.Wrapf(errs.InvalidArgument, "invalid token address %q", s)
	}
	collectionId, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return TokenAddress{}, errors.Wrapf(errs.InvalidArgument, "invalid collection id %q", parts[0])
	}
	tokenId, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return TokenAddress{}, errors.Wrapf(errs.InvalidArgument, "invalid token id %q", parts[1])
	}
	return TokenAddress{
		CollectionId: CollectionId(collectionId),
		TokenId:      TokenId(tokenId),
	}, nil
}

// tokenAccountPrefix namespaces synthetic token accounts so they can never
// collide with wallet addresses.
const tokenAccountPrefix = "nested:"

// Account returns the synthetic account owned by this token. Nesting a token
// under another is expressed by setting its owner to this account, which lets
// token-owned tokens flow through the same ownership machinery as
// wallet-owned ones.
func (a TokenAddress) Account() AccountId {
	return AccountId(tokenAccountPrefix + a.String())
}

// TokenFromAccount reverses Account. The second return value reports whether
// the account is a synthetic token account at all.
func TokenFromAccount(account AccountId) (TokenAddress, bool) {
	s, ok := strings.CutPrefix(string(account), tokenAccountPrefix)
	if !ok {
		return TokenAddress{}, false
	}
	address, err := NewTokenAddressFromString(s)
	if err != nil {
		return TokenAddress{}, false
	}
	return address, true
}

// IsTokenAccount reports whether the account is the synthetic account of a token.
func (a AccountId) IsTokenAccount() bool {
	_, ok := TokenFromAccount(a)
	return ok
}
