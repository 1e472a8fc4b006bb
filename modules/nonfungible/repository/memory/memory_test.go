package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

func TestTransactionCommitPersists(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.Begin(ctx))
	id, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "alice", Name: "first"})
	require.NoError(t, err)
	assert.Equal(t, tokens.CollectionId(1), id)
	require.NoError(t, repo.Commit(ctx))

	collection, err := repo.GetCollection(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", collection.Name)
	assert.Equal(t, tokens.AccountId("alice"), collection.Owner)
}

func TestTransactionRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.Begin(ctx))
	id, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "alice"})
	require.NoError(t, err)
	require.NoError(t, repo.Commit(ctx))

	require.NoError(t, repo.Begin(ctx))
	require.NoError(t, repo.CreateToken(ctx, &entity.TokenData{CollectionId: id, TokenId: 1, Owner: "bob"}))
	require.NoError(t, repo.SetAccountBalance(ctx, id, "bob", 1))
	require.NoError(t, repo.SetOwned(ctx, id, "bob", 1))
	require.NoError(t, repo.Rollback(ctx))

	_, err = repo.GetToken(ctx, id, 1)
	assert.True(t, errors.Is(err, errs.NotFound))

	balance, err := repo.GetAccountBalance(ctx, id, "bob")
	require.NoError(t, err)
	assert.Zero(t, balance)

	owned, err := repo.GetAccountTokens(ctx, id, "bob")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestTransactionRollbackRestoresOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	id, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "alice"})
	require.NoError(t, err)
	require.NoError(t, repo.CreateToken(ctx, &entity.TokenData{CollectionId: id, TokenId: 1, Owner: "alice"}))

	props := make(tokens.Properties)
	require.NoError(t, props.TrySet("color", "red"))
	require.NoError(t, repo.SetTokenProperties(ctx, id, 1, props))

	require.NoError(t, repo.Begin(ctx))
	require.NoError(t, repo.SetTokenOwner(ctx, id, 1, "bob"))
	mutated := make(tokens.Properties)
	require.NoError(t, mutated.TrySet("color", "blue"))
	require.NoError(t, repo.SetTokenProperties(ctx, id, 1, mutated))
	require.NoError(t, repo.Rollback(ctx))

	data, err := repo.GetToken(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, tokens.AccountId("alice"), data.Owner)

	restored, err := repo.GetTokenProperties(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, tokens.PropertyValue("red"), restored["color"])
}

func TestBeginTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.Begin(ctx))
	assert.ErrorIs(t, repo.Begin(ctx), ErrTxAlreadyExists)
}

func TestCollectionIdsAreSequential(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	first, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "alice"})
	require.NoError(t, err)
	second, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "bob"})
	require.NoError(t, err)
	assert.Equal(t, tokens.CollectionId(1), first)
	assert.Equal(t, tokens.CollectionId(2), second)
}

func TestChildEdgesSortedEnumeration(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.AddTokenChild(ctx, 1, 1, tokens.TokenAddress{CollectionId: 2, TokenId: 5}))
	require.NoError(t, repo.AddTokenChild(ctx, 1, 1, tokens.TokenAddress{CollectionId: 1, TokenId: 9}))
	require.NoError(t, repo.AddTokenChild(ctx, 1, 1, tokens.TokenAddress{CollectionId: 1, TokenId: 2}))

	children, err := repo.GetTokenChildren(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, tokens.TokenAddress{CollectionId: 1, TokenId: 2}, children[0])
	assert.Equal(t, tokens.TokenAddress{CollectionId: 1, TokenId: 9}, children[1])
	assert.Equal(t, tokens.TokenAddress{CollectionId: 2, TokenId: 5}, children[2])

	has, err := repo.HasTokenChildren(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, repo.RemoveTokenChild(ctx, 1, 1, tokens.TokenAddress{CollectionId: 2, TokenId: 5}))
	children, err = repo.GetTokenChildren(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestEventsAssignedIncreasingIds(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.CreateEvents(ctx, []*entity.Event{
		{CollectionId: 1, TokenId: 1, Kind: entity.EventItemCreated},
		{CollectionId: 1, TokenId: 1, Kind: entity.EventTransfer},
	}))

	events, err := repo.GetTokenEvents(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Id, events[1].Id)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestConcurrentReadsDuringTransaction(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	id, err := repo.CreateCollection(ctx, &entity.Collection{Owner: "alice"})
	require.NoError(t, err)
	require.NoError(t, repo.CreateToken(ctx, &entity.TokenData{CollectionId: id, TokenId: 1, Owner: "alice"}))
	require.NoError(t, repo.SetOwned(ctx, id, "alice", 1))
	require.NoError(t, repo.SetAccountBalance(ctx, id, "alice", 1))

	// Query handlers read the ownership maps while the ledger mutates them
	// inside a transaction. Run both sides in parallel; the race detector
	// catches an unguarded map access.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := repo.GetAccountTokens(ctx, id, "alice"); err != nil {
					return
				}
				if _, err := repo.GetAccountBalance(ctx, id, "bob"); err != nil {
					return
				}
				if _, err := repo.GetTokenChildren(ctx, id, 1); err != nil {
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		require.NoError(t, repo.Begin(ctx))
		require.NoError(t, repo.RemoveOwned(ctx, id, "alice", 1))
		require.NoError(t, repo.SetOwned(ctx, id, "bob", 1))
		require.NoError(t, repo.SetTokenOwner(ctx, id, 1, "bob"))
		require.NoError(t, repo.Rollback(ctx))
	}
	close(done)
	wg.Wait()

	owned, err := repo.GetAccountTokens(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, []tokens.TokenId{1}, owned)
}

func TestClearCollectionPrefixes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.CreateToken(ctx, &entity.TokenData{CollectionId: 1, TokenId: 1, Owner: "alice"}))
	require.NoError(t, repo.CreateToken(ctx, &entity.TokenData{CollectionId: 2, TokenId: 1, Owner: "alice"}))
	require.NoError(t, repo.SetAccountBalance(ctx, 1, "alice", 1))
	require.NoError(t, repo.SetAccountBalance(ctx, 2, "alice", 1))
	require.NoError(t, repo.SetAllowance(ctx, 1, 1, "bob"))

	require.NoError(t, repo.ClearCollectionTokens(ctx, 1))
	require.NoError(t, repo.ClearCollectionOwnership(ctx, 1))
	require.NoError(t, repo.ClearCollectionAllowances(ctx, 1))

	_, err := repo.GetToken(ctx, 1, 1)
	assert.True(t, errors.Is(err, errs.NotFound))

	// the sibling collection is untouched
	data, err := repo.GetToken(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, tokens.AccountId("alice"), data.Owner)

	balance, err := repo.GetAccountBalance(ctx, 2, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), balance)
}
