package datagateway

import (
	"context"

	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// NonfungibleDataGateway is the storage surface of the token ledger. Each
// method group corresponds to one logical storage map; the ledger never
// depends on a concrete storage engine.
type NonfungibleDataGateway interface {
	NonfungibleReaderDataGateway
	NonfungibleWriterDataGateway
}

type NonfungibleReaderDataGateway interface {
	// Collection registry.
	GetCollection(ctx context.Context, id tokens.CollectionId) (*entity.Collection, error)
	IsCollectionAdmin(ctx context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error)
	IsAllowlisted(ctx context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error)

	// Item data.
	GetToken(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (*entity.TokenData, error)
	GetCollectionTokens(ctx context.Context, collection tokens.CollectionId) ([]tokens.TokenId, error)

	// Ownership index.
	GetAccountBalance(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId) (uint32, error)
	GetAccountTokens(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId) ([]tokens.TokenId, error)

	// Nesting edges.
	HasTokenChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (bool, error)
	GetTokenChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]tokens.TokenAddress, error)

	// Allowance table. An empty AccountId means no allowance is set.
	GetAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.AccountId, error)

	// Property store.
	GetTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.Properties, error)
	GetCollectionProperties(ctx context.Context, collection tokens.CollectionId) (tokens.Properties, error)
	GetPropertyPermissions(ctx context.Context, collection tokens.CollectionId) (tokens.PropertyPermissions, error)
	GetAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) (tokens.PropertyValue, error)
	GetAuxProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope) (tokens.Properties, error)

	// Event streams.
	GetTokenEvents(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Event, error)
	GetTokenLogs(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Erc721Log, error)
}

type NonfungibleWriterDataGateway interface {
	// Begin starts a storage transaction. All write operations done after this call must call Commit() to persist the changes.
	Begin(ctx context.Context) error
	// Commit commits the storage transaction. All changes made after Begin() will be persisted.
	Commit(ctx context.Context) error
	// Rollback rolls back the storage transaction. All changes made after Begin() will be discarded.
	Rollback(ctx context.Context) error

	// Collection registry.
	CreateCollection(ctx context.Context, collection *entity.Collection) (tokens.CollectionId, error)
	UpdateCollection(ctx context.Context, collection *entity.Collection) error
	// DeleteCollection removes the collection row together with its admin and
	// allow-list entries.
	DeleteCollection(ctx context.Context, id tokens.CollectionId) error
	SetCollectionAdmin(ctx context.Context, id tokens.CollectionId, account tokens.AccountId, admin bool) error
	SetAllowlisted(ctx context.Context, id tokens.CollectionId, account tokens.AccountId, allowed bool) error

	// Item data.
	CreateToken(ctx context.Context, data *entity.TokenData) error
	SetTokenOwner(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, owner tokens.AccountId) error
	DeleteToken(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error

	// Ownership index. A zero balance removes the entry instead of storing 0.
	SetAccountBalance(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, balance uint32) error
	SetOwned(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error
	RemoveOwned(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error

	// Nesting edges.
	AddTokenChild(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error
	RemoveTokenChild(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error

	// Allowance table.
	SetAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, spender tokens.AccountId) error
	RemoveAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error

	// Property store. Set* replaces the whole bounded map of the target.
	SetTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, properties tokens.Properties) error
	DeleteTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error
	SetCollectionProperties(ctx context.Context, collection tokens.CollectionId, properties tokens.Properties) error
	SetPropertyPermissions(ctx context.Context, collection tokens.CollectionId, permissions tokens.PropertyPermissions) error
	SetAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey, value tokens.PropertyValue) error
	RemoveAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) error
	ClearAuxProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error

	// Collection teardown, one prefix-clear per storage map.
	ClearCollectionTokens(ctx context.Context, collection tokens.CollectionId) error
	ClearCollectionOwnership(ctx context.Context, collection tokens.CollectionId) error
	ClearCollectionChildren(ctx context.Context, collection tokens.CollectionId) error
	ClearCollectionAllowances(ctx context.Context, collection tokens.CollectionId) error
	ClearCollectionProperties(ctx context.Context, collection tokens.CollectionId) error

	// Event streams.
	CreateEvents(ctx context.Context, events []*entity.Event) error
	CreateLogs(ctx context.Context, logs []*entity.Erc721Log) error
}
