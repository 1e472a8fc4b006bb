package ledger_test

import (
	"context"
	"math"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	"github.com/tokenforge/nestledger/modules/nonfungible/repository/memory"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

const (
	alice = tokens.AccountId("alice")
	bob   = tokens.AccountId("bob")
	carol = tokens.AccountId("carol")
)

var one = uint128.From64(1)

type fixture struct {
	ctx    context.Context
	repo   *memory.Repository
	ledger *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewRepository()
	return &fixture{
		ctx:    context.Background(),
		repo:   repo,
		ledger: ledger.New(repo),
	}
}

func (f *fixture) initCollection(t *testing.T, params ledger.InitCollectionParams) tokens.CollectionId {
	t.Helper()
	if params.Owner == "" {
		params.Owner = alice
	}
	id, err := f.ledger.InitCollection(f.ctx, params)
	require.NoError(t, err)
	return id
}

func (f *fixture) mint(t *testing.T, collection tokens.CollectionId, sender, owner tokens.AccountId) tokens.TokenId {
	t.Helper()
	token, err := f.ledger.CreateItem(f.ctx, collection, sender, entity.MintItem{Owner: owner}, budget.NewLimited(5))
	require.NoError(t, err)
	return token
}

// assertBalanceInvariant checks AccountBalance == |Owned| for the account,
// with the balance entry absent at zero.
func (f *fixture) assertBalanceInvariant(t *testing.T, collection tokens.CollectionId, account tokens.AccountId) {
	t.Helper()
	balance, err := f.repo.GetAccountBalance(f.ctx, collection, account)
	require.NoError(t, err)
	owned, err := f.repo.GetAccountTokens(f.ctx, collection, account)
	require.NoError(t, err)
	assert.Equal(t, int(balance), len(owned))
}

func TestMintContiguousRange(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	items := []entity.MintItem{{Owner: bob}, {Owner: bob}, {Owner: carol}}
	minted, err := f.ledger.CreateMultipleItems(f.ctx, collection, alice, items, budget.NewLimited(5))
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenId{1, 2, 3}, minted)

	all, err := f.repo.GetCollectionTokens(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenId{1, 2, 3}, all)

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stored.TokensMinted)
	assert.Equal(t, uint32(3), stored.TotalSupply())

	f.assertBalanceInvariant(t, collection, bob)
	f.assertBalanceInvariant(t, collection, carol)

	logs, err := f.repo.GetTokenLogs(f.ctx, collection, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entity.LogTransfer, logs[0].Kind)
	assert.Equal(t, tokens.ZeroAccount, logs[0].From)
	assert.Equal(t, bob, logs[0].To)
}

func TestMintOverflowAtMaxMinted(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	stored.TokensMinted = math.MaxUint32
	stored.TokensBurnt = math.MaxUint32 // keep the supply invariant intact
	require.NoError(t, f.repo.UpdateCollection(f.ctx, stored))

	_, err = f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.ArithmeticOverflow)
}

func TestMintAmountValidation(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	_, err := f.ledger.CreateMultipleItemsEx(f.ctx, collection, alice, []entity.MintItem{
		{Owner: bob, Amount: uint128.From64(2)},
	}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NonfungibleItemsHaveNoAmount)

	// zero amount is an accepted no-op
	minted, err := f.ledger.CreateMultipleItemsEx(f.ctx, collection, alice, []entity.MintItem{
		{Owner: bob, Amount: uint128.Zero},
	}, budget.NewLimited(5))
	require.NoError(t, err)
	assert.Empty(t, minted)
}

func TestTokenLimit(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Limits: lo.ToPtr(entity.CollectionLimits{TokenLimit: 2, TransfersEnabled: true}),
	})

	f.mint(t, collection, alice, bob)
	f.mint(t, collection, alice, bob)

	_, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.CollectionTokenLimitExceeded)

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stored.TotalSupply())
}

func TestAccountTokenOwnershipLimit(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Limits: lo.ToPtr(entity.CollectionLimits{AccountTokenOwnershipLimit: 1, TransfersEnabled: true}),
	})

	f.mint(t, collection, alice, bob)

	// the batch limit check runs before any mutation
	_, err := f.ledger.CreateMultipleItems(f.ctx, collection, alice, []entity.MintItem{{Owner: bob}}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.AccountTokenLimitExceeded)

	balance, err := f.repo.GetAccountBalance(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), balance)
}

func TestPublicMintGate(t *testing.T) {
	f := newFixture(t)

	closed := f.initCollection(t, ledger.InitCollectionParams{})
	_, err := f.ledger.CreateItem(f.ctx, closed, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.PublicMintingNotAllowed)

	open := f.initCollection(t, ledger.InitCollectionParams{
		Permissions: lo.ToPtr(entity.CollectionPermissions{
			Access:   entity.AccessAllowList,
			MintMode: true,
			Nesting:  entity.NestingPermission{TokenOwner: true},
		}),
	})
	_, err = f.ledger.CreateItem(f.ctx, open, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.AddressNotInAllowlist)

	require.NoError(t, f.ledger.AddToAllowList(f.ctx, open, alice, bob))
	token, err := f.ledger.CreateItem(f.ctx, open, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	require.NoError(t, err)
	assert.Equal(t, tokens.TokenId(1), token)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	require.NoError(t, f.ledger.Transfer(f.ctx, collection, bob, carol, token, one, budget.NewLimited(5)))

	data, err := f.repo.GetToken(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, carol, data.Owner)

	// the sender's balance entry disappears at zero instead of storing 0
	balance, err := f.repo.GetAccountBalance(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Zero(t, balance)
	owned, err := f.repo.GetAccountTokens(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Empty(t, owned)

	f.assertBalanceInvariant(t, collection, carol)
}

func TestTransferNotOwner(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	err := f.ledger.Transfer(f.ctx, collection, carol, alice, token, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NoPermission)
}

func TestTransfersDisabled(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Limits: lo.ToPtr(entity.CollectionLimits{TransfersEnabled: false}),
	})
	token := f.mint(t, collection, alice, bob)

	err := f.ledger.Transfer(f.ctx, collection, bob, carol, token, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.TransferNotAllowed)
}

func TestSelfTransferClearsAllowanceOnly(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))

	require.NoError(t, f.ledger.Transfer(f.ctx, collection, bob, bob, token, one, budget.NewLimited(5)))

	balance, err := f.repo.GetAccountBalance(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), balance)

	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, allowance)
}

func TestTransferRoundTripDoesNotRestoreAllowance(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))

	require.NoError(t, f.ledger.Transfer(f.ctx, collection, bob, carol, token, one, budget.NewLimited(5)))
	require.NoError(t, f.ledger.Transfer(f.ctx, collection, carol, bob, token, one, budget.NewLimited(5)))

	// balances and ownership round-trip
	balance, err := f.repo.GetAccountBalance(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), balance)
	owned, err := f.repo.GetAccountTokens(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenId{token}, owned)

	// the approval does not
	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, allowance)
}

func TestTransferFromViaAllowance(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))
	require.NoError(t, f.ledger.TransferFrom(f.ctx, collection, carol, bob, alice, token, one, budget.NewLimited(5)))

	data, err := f.repo.GetToken(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, alice, data.Owner)

	ownedByBob, err := f.repo.GetAccountTokens(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Empty(t, ownedByBob)
	ownedByAlice, err := f.repo.GetAccountTokens(f.ctx, collection, alice)
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenId{token}, ownedByAlice)

	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, allowance)
}

func TestTransferFromWithoutApproval(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	err := f.ledger.TransferFrom(f.ctx, collection, carol, bob, alice, token, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.ApprovedValueTooLow)
}

func TestTransferFromWithIgnoresAllowance(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Permissions: lo.ToPtr(entity.CollectionPermissions{
			Access:           entity.AccessNormal,
			Nesting:          entity.NestingPermission{TokenOwner: true},
			IgnoresAllowance: true,
		}),
	})
	token := f.mint(t, collection, alice, bob)

	// no approval recorded, the collection-level escape valve carries it
	require.NoError(t, f.ledger.TransferFrom(f.ctx, collection, carol, bob, alice, token, one, budget.NewLimited(5)))

	data, err := f.repo.GetToken(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, alice, data.Owner)
}

func TestTransferFromByAdminWithOwnerCanTransfer(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Limits: lo.ToPtr(entity.CollectionLimits{TransfersEnabled: true, OwnerCanTransfer: true}),
	})
	token := f.mint(t, collection, alice, bob)

	require.NoError(t, f.ledger.TransferFrom(f.ctx, collection, alice, bob, carol, token, one, budget.NewLimited(5)))

	data, err := f.repo.GetToken(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, carol, data.Owner)
}

func TestSetAllowance(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	// non-owner cannot approve
	err := f.ledger.SetAllowance(f.ctx, collection, carol, token, alice)
	assert.ErrorIs(t, err, errs.CantApproveMoreThanOwned)

	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))
	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, carol, allowance)

	// replacing keeps a single active approval
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, alice))
	allowance, err = f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, alice, allowance)

	// empty spender clears the slot
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, ""))
	allowance, err = f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, allowance)
}

func TestSetAllowanceByNonOwnerWithIgnoresOwnedAmount(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{
		Permissions: lo.ToPtr(entity.CollectionPermissions{
			Access:             entity.AccessNormal,
			Nesting:            entity.NestingPermission{TokenOwner: true},
			IgnoresOwnedAmount: true,
		}),
	})
	token := f.mint(t, collection, alice, bob)

	// carol owns nothing, the collection-level escape valve lets her approve
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, carol, token, alice))
	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, alice, allowance)
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)
	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))

	require.NoError(t, f.ledger.Burn(f.ctx, collection, bob, token, one))

	_, err := f.repo.GetToken(f.ctx, collection, token)
	assert.ErrorIs(t, err, errs.NotFound)

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.TokensBurnt)
	assert.Zero(t, stored.TotalSupply())

	balance, err := f.repo.GetAccountBalance(f.ctx, collection, bob)
	require.NoError(t, err)
	assert.Zero(t, balance)

	allowance, err := f.repo.GetAllowance(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, allowance)

	// a fresh mint never reuses the burned id
	next := f.mint(t, collection, alice, bob)
	assert.Equal(t, tokens.TokenId(2), next)
}

func TestBurnFromViaAllowance(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	err := f.ledger.BurnFrom(f.ctx, collection, carol, bob, token, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.ApprovedValueTooLow)

	require.NoError(t, f.ledger.SetAllowance(f.ctx, collection, bob, token, carol))
	require.NoError(t, f.ledger.BurnFrom(f.ctx, collection, carol, bob, token, one, budget.NewLimited(5)))

	_, err = f.repo.GetToken(f.ctx, collection, token)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestNestedMintAndRecursiveBurn(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	parent := f.mint(t, collection, alice, alice)
	parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}

	child, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)

	children, err := f.repo.GetTokenChildren(f.ctx, collection, parent)
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenAddress{{CollectionId: collection, TokenId: child}}, children)

	// the parent cannot be burned while the child hangs off it
	err = f.ledger.Burn(f.ctx, collection, alice, parent, one)
	assert.ErrorIs(t, err, errs.CantBurnNftWithChildren)

	result, err := f.ledger.BurnRecursively(f.ctx, collection, alice, parent, budget.NewLimited(5), budget.NewLimited(5))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), result.TokensBurned)
	assert.Equal(t, uint64(2), result.Cost)

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stored.TokensBurnt)
	assert.Zero(t, stored.TotalSupply())

	_, err = f.repo.GetToken(f.ctx, collection, parent)
	assert.ErrorIs(t, err, errs.NotFound)
	_, err = f.repo.GetToken(f.ctx, collection, child)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestBurnChildThenParent(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	parent := f.mint(t, collection, alice, alice)
	parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}
	child, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)

	// the child's owner for burn purposes is the parent's synthetic account,
	// so burning it goes through burn_from by the indirect owner
	require.NoError(t, f.ledger.BurnFrom(f.ctx, collection, alice, parentAddress.Account(), child, one, budget.NewLimited(5)))
	require.NoError(t, f.ledger.Burn(f.ctx, collection, alice, parent, one))

	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, stored.TotalSupply())
}

func TestRecursiveBurnExhaustedBudgetLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	parent := f.mint(t, collection, alice, alice)
	parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}
	child, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)

	_, err = f.ledger.BurnRecursively(f.ctx, collection, alice, parent, budget.NewLimited(0), budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.DepthLimit)

	// one unit covers the parent but not the child's node
	_, err = f.ledger.BurnRecursively(f.ctx, collection, alice, parent, budget.NewLimited(1), budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.DepthLimit)

	// nothing was burned by the failed attempts
	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, stored.TokensBurnt)
	_, err = f.repo.GetToken(f.ctx, collection, child)
	require.NoError(t, err)
	_, err = f.repo.GetToken(f.ctx, collection, parent)
	require.NoError(t, err)
}

func TestRecursiveBurnBreadthBudgetLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	parent := f.mint(t, collection, alice, alice)
	parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}
	first, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)
	second, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)

	// one breadth unit covers the first child edge but not the second
	_, err = f.ledger.BurnRecursively(f.ctx, collection, alice, parent, budget.NewLimited(10), budget.NewLimited(1))
	assert.ErrorIs(t, err, errs.BreadthLimit)

	// the first child's burn was rolled back with the rest
	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, stored.TokensBurnt)
	for _, token := range []tokens.TokenId{parent, first, second} {
		_, err = f.repo.GetToken(f.ctx, collection, token)
		require.NoError(t, err)
	}

	// two units cover both edges
	result, err := f.ledger.BurnRecursively(f.ctx, collection, alice, parent, budget.NewLimited(10), budget.NewLimited(2))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), result.TokensBurned)
}

func TestNestingCycleRejected(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	parent := f.mint(t, collection, alice, alice)
	parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}
	child, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: parentAddress.Account()}, budget.NewLimited(5))
	require.NoError(t, err)
	childAddress := tokens.TokenAddress{CollectionId: collection, TokenId: child}

	// moving the parent under its own child would close a cycle
	err = f.ledger.Transfer(f.ctx, collection, alice, childAddress.Account(), parent, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.OuroborosDetected)

	// nesting a token under itself is the degenerate cycle
	err = f.ledger.Transfer(f.ctx, collection, alice, parentAddress.Account(), parent, one, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.OuroborosDetected)
}

func TestNestingPolicy(t *testing.T) {
	f := newFixture(t)

	t.Run("owner only by default", func(t *testing.T) {
		collection := f.initCollection(t, ledger.InitCollectionParams{})
		parent := f.mint(t, collection, alice, bob)
		parentAddress := tokens.TokenAddress{CollectionId: collection, TokenId: parent}

		// carol neither owns the parent nor administers the collection
		mine := f.initCollection(t, ledger.InitCollectionParams{Owner: carol})
		token, err := f.ledger.CreateItem(f.ctx, mine, carol, entity.MintItem{Owner: carol}, budget.NewLimited(5))
		require.NoError(t, err)
		err = f.ledger.Transfer(f.ctx, mine, carol, parentAddress.Account(), token, one, budget.NewLimited(5))
		assert.ErrorIs(t, err, errs.UserIsNotAllowedToNest)
	})

	t.Run("restricted source collections", func(t *testing.T) {
		restricted := f.initCollection(t, ledger.InitCollectionParams{
			Permissions: lo.ToPtr(entity.CollectionPermissions{
				Access:  entity.AccessNormal,
				Nesting: entity.NestingPermission{TokenOwner: true, Restricted: []tokens.CollectionId{}},
			}),
		})
		parent := f.mint(t, restricted, alice, alice)
		parentAddress := tokens.TokenAddress{CollectionId: restricted, TokenId: parent}

		other := f.initCollection(t, ledger.InitCollectionParams{})
		token := f.mint(t, other, alice, alice)
		err := f.ledger.Transfer(f.ctx, other, alice, parentAddress.Account(), token, one, budget.NewLimited(5))
		assert.ErrorIs(t, err, errs.SourceCollectionIsNotAllowedToNest)
	})
}

func TestNestingDepthBudget(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	// chain of four tokens, each nested under the previous one
	owner := alice
	var last tokens.TokenAddress
	for i := 0; i < 4; i++ {
		token, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: owner}, budget.NewLimited(10))
		require.NoError(t, err)
		last = tokens.TokenAddress{CollectionId: collection, TokenId: token}
		owner = last.Account()
	}

	// nesting one more with a tight budget cannot resolve the topmost owner
	_, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{Owner: last.Account()}, budget.NewLimited(2))
	assert.ErrorIs(t, err, errs.DepthLimit)
}

func TestImmutablePropertyLifecycle(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	require.NoError(t, f.ledger.SetTokenPropertyPermissions(f.ctx, collection, alice, []tokens.PropertyKeyPermission{
		{Key: "color", Permission: tokens.PropertyPermission{Mutable: false, TokenOwner: true}},
	}))

	// setting at mint time is allowed through the creation path
	token, err := f.ledger.CreateItem(f.ctx, collection, alice, entity.MintItem{
		Owner:      bob,
		Properties: []tokens.Property{{Key: "color", Value: "red"}},
	}, budget.NewLimited(5))
	require.NoError(t, err)

	props, err := f.repo.GetTokenProperties(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("red"), props["color"])

	// immutable once set, even for the owner the permission names
	err = f.ledger.SetTokenProperties(f.ctx, collection, bob, token, []tokens.Property{{Key: "color", Value: "blue"}}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NoPermission)
	err = f.ledger.DeleteTokenProperties(f.ctx, collection, bob, token, []tokens.PropertyKey{"color"}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NoPermission)

	props, err = f.repo.GetTokenProperties(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("red"), props["color"])
}

func TestMutablePropertyRoundTrip(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	require.NoError(t, f.ledger.SetTokenPropertyPermissions(f.ctx, collection, alice, []tokens.PropertyKeyPermission{
		{Key: "note", Permission: tokens.PropertyPermission{Mutable: true, TokenOwner: true}},
	}))
	token := f.mint(t, collection, alice, bob)

	require.NoError(t, f.ledger.SetTokenProperties(f.ctx, collection, bob, token, []tokens.Property{{Key: "note", Value: "hi"}}, budget.NewLimited(5)))
	props, err := f.repo.GetTokenProperties(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("hi"), props["note"])

	require.NoError(t, f.ledger.DeleteTokenProperties(f.ctx, collection, bob, token, []tokens.PropertyKey{"note"}, budget.NewLimited(5)))
	props, err = f.repo.GetTokenProperties(f.ctx, collection, token)
	require.NoError(t, err)
	assert.NotContains(t, props, tokens.PropertyKey("note"))
}

func TestPropertyDefaultClosed(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	// no permission record exists for the key, so even the collection owner
	// cannot write it
	err := f.ledger.SetTokenProperties(f.ctx, collection, alice, token, []tokens.Property{{Key: "color", Value: "red"}}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NoPermission)
}

func TestPropertyBatchIsAtomic(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	require.NoError(t, f.ledger.SetTokenPropertyPermissions(f.ctx, collection, alice, []tokens.PropertyKeyPermission{
		{Key: "a", Permission: tokens.PropertyPermission{Mutable: true, TokenOwner: true}},
	}))
	token := f.mint(t, collection, alice, bob)

	// the second key has no permission record, failing the whole batch
	err := f.ledger.SetTokenProperties(f.ctx, collection, bob, token, []tokens.Property{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
	}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.NoPermission)

	props, err := f.repo.GetTokenProperties(f.ctx, collection, token)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestImmutablePermissionCannotBeReplaced(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	require.NoError(t, f.ledger.SetTokenPropertyPermissions(f.ctx, collection, alice, []tokens.PropertyKeyPermission{
		{Key: "color", Permission: tokens.PropertyPermission{Mutable: false, TokenOwner: true}},
	}))

	err := f.ledger.SetTokenPropertyPermissions(f.ctx, collection, alice, []tokens.PropertyKeyPermission{
		{Key: "color", Permission: tokens.PropertyPermission{Mutable: true, TokenOwner: true}},
	})
	assert.ErrorIs(t, err, errs.ConflictSetting)
}

func TestAuxProperties(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	require.NoError(t, f.ledger.SetAuxProperty(f.ctx, collection, token, "proxy", "pending", "1"))
	value, err := f.repo.GetAuxProperty(f.ctx, collection, token, "proxy", "pending")
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("1"), value)

	// cleared together with the token on burn
	require.NoError(t, f.ledger.Burn(f.ctx, collection, bob, token, one))
	_, err = f.repo.GetAuxProperty(f.ctx, collection, token, "proxy", "pending")
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestCollectionProperties(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	err := f.ledger.SetCollectionProperties(f.ctx, collection, bob, []tokens.Property{{Key: "site", Value: "https"}})
	assert.ErrorIs(t, err, errs.NoPermission)

	require.NoError(t, f.ledger.SetCollectionProperties(f.ctx, collection, alice, []tokens.Property{{Key: "site", Value: "https"}}))
	props, err := f.repo.GetCollectionProperties(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("https"), props["site"])

	require.NoError(t, f.ledger.DeleteCollectionProperties(f.ctx, collection, alice, []tokens.PropertyKey{"site"}))
	props, err = f.repo.GetCollectionProperties(f.ctx, collection)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestDestroyCollection(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	token := f.mint(t, collection, alice, bob)

	err := f.ledger.DestroyCollection(f.ctx, collection, alice)
	assert.ErrorIs(t, err, errs.CollectionNotEmpty)

	require.NoError(t, f.ledger.Burn(f.ctx, collection, bob, token, one))
	require.NoError(t, f.ledger.DestroyCollection(f.ctx, collection, alice))

	_, err = f.repo.GetCollection(f.ctx, collection)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestCollectionAdministration(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	// bob cannot mint until he is an admin
	_, err := f.ledger.CreateItem(f.ctx, collection, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.PublicMintingNotAllowed)

	require.NoError(t, f.ledger.AddCollectionAdmin(f.ctx, collection, alice, bob))
	_, err = f.ledger.CreateItem(f.ctx, collection, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	require.NoError(t, err)

	require.NoError(t, f.ledger.RemoveCollectionAdmin(f.ctx, collection, alice, bob))
	_, err = f.ledger.CreateItem(f.ctx, collection, bob, entity.MintItem{Owner: bob}, budget.NewLimited(5))
	assert.ErrorIs(t, err, errs.PublicMintingNotAllowed)
}

func TestChangeCollectionOwner(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})

	err := f.ledger.ChangeCollectionOwner(f.ctx, collection, bob, bob)
	assert.ErrorIs(t, err, errs.NoPermission)

	require.NoError(t, f.ledger.ChangeCollectionOwner(f.ctx, collection, alice, bob))
	stored, err := f.repo.GetCollection(f.ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, bob, stored.Owner)
}

func TestSetCollectionLimitsBelowSupply(t *testing.T) {
	f := newFixture(t)
	collection := f.initCollection(t, ledger.InitCollectionParams{})
	f.mint(t, collection, alice, bob)
	f.mint(t, collection, alice, bob)

	err := f.ledger.SetCollectionLimits(f.ctx, collection, alice, entity.CollectionLimits{TokenLimit: 1, TransfersEnabled: true})
	assert.ErrorIs(t, err, errs.ConflictSetting)
}
