// Package memory implements the nonfungible data gateway on plain maps with
// snapshot-based transactions. It backs the ledger's unit tests and local
// tooling; production deployments use the postgres repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/datagateway"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

var _ datagateway.NonfungibleDataGateway = (*Repository)(nil)

type accountKey struct {
	collection tokens.CollectionId
	account    tokens.AccountId
}

type ownedKey struct {
	collection tokens.CollectionId
	account    tokens.AccountId
	token      tokens.TokenId
}

type childKey struct {
	parent tokens.TokenAddress
	child  tokens.TokenAddress
}

type auxKey struct {
	token tokens.TokenAddress
	scope tokens.PropertyScope
	key   tokens.PropertyKey
}

// state is one consistent snapshot of every storage map.
type state struct {
	nextCollectionId tokens.CollectionId
	collections      map[tokens.CollectionId]entity.Collection
	admins           map[accountKey]struct{}
	allowlist        map[accountKey]struct{}
	items            map[tokens.TokenAddress]entity.TokenData
	balances         map[accountKey]uint32
	owned            map[ownedKey]struct{}
	children         map[childKey]struct{}
	allowances       map[tokens.TokenAddress]tokens.AccountId
	tokenProps       map[tokens.TokenAddress]tokens.Properties
	collectionProps  map[tokens.CollectionId]tokens.Properties
	propPermissions  map[tokens.CollectionId]tokens.PropertyPermissions
	aux              map[auxKey]tokens.PropertyValue
	events           []*entity.Event
	logs             []*entity.Erc721Log
	nextEventId      uint64
	nextLogId        uint64
}

func newState() *state {
	return &state{
		nextCollectionId: 1,
		collections:      make(map[tokens.CollectionId]entity.Collection),
		admins:           make(map[accountKey]struct{}),
		allowlist:        make(map[accountKey]struct{}),
		items:            make(map[tokens.TokenAddress]entity.TokenData),
		balances:         make(map[accountKey]uint32),
		owned:            make(map[ownedKey]struct{}),
		children:         make(map[childKey]struct{}),
		allowances:       make(map[tokens.TokenAddress]tokens.AccountId),
		tokenProps:       make(map[tokens.TokenAddress]tokens.Properties),
		collectionProps:  make(map[tokens.CollectionId]tokens.Properties),
		propPermissions:  make(map[tokens.CollectionId]tokens.PropertyPermissions),
		aux:              make(map[auxKey]tokens.PropertyValue),
		nextEventId:      1,
		nextLogId:        1,
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextCollectionId = s.nextCollectionId
	c.nextEventId = s.nextEventId
	c.nextLogId = s.nextLogId
	for k, v := range s.collections {
		c.collections[k] = v
	}
	for k := range s.admins {
		c.admins[k] = struct{}{}
	}
	for k := range s.allowlist {
		c.allowlist[k] = struct{}{}
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k := range s.owned {
		c.owned[k] = struct{}{}
	}
	for k := range s.children {
		c.children[k] = struct{}{}
	}
	for k, v := range s.allowances {
		c.allowances[k] = v
	}
	for k, v := range s.tokenProps {
		c.tokenProps[k] = v.Clone()
	}
	for k, v := range s.collectionProps {
		c.collectionProps[k] = v.Clone()
	}
	for k, v := range s.propPermissions {
		c.propPermissions[k] = v.Clone()
	}
	for k, v := range s.aux {
		c.aux[k] = v
	}
	c.events = append(c.events, s.events...)
	c.logs = append(c.logs, s.logs...)
	return c
}

// Repository holds the live state and, while a transaction is open, the
// snapshot to restore on rollback. The ledger serializes mutations on its own
// lock, but the query path reads the same maps from concurrent requests, so
// every accessor takes mu.
type Repository struct {
	mu       sync.RWMutex
	state    *state
	snapshot *state
}

func NewRepository() *Repository {
	return &Repository{state: newState()}
}

var ErrTxAlreadyExists = errors.New("Transaction already exists. Call Commit() or Rollback() first.")

func (r *Repository) Begin(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot != nil {
		return errors.WithStack(ErrTxAlreadyExists)
	}
	r.snapshot = r.state.clone()
	return nil
}

func (r *Repository) Commit(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	return nil
}

func (r *Repository) Rollback(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return nil
	}
	r.state = r.snapshot
	r.snapshot = nil
	return nil
}

// ---- collection registry ----

func (r *Repository) GetCollection(_ context.Context, id tokens.CollectionId) (*entity.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	collection, ok := r.state.collections[id]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &collection, nil
}

func (r *Repository) CreateCollection(_ context.Context, collection *entity.Collection) (tokens.CollectionId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.state.nextCollectionId
	r.state.nextCollectionId++
	stored := *collection
	stored.Id = id
	r.state.collections[id] = stored
	return id, nil
}

func (r *Repository) UpdateCollection(_ context.Context, collection *entity.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.collections[collection.Id]; !ok {
		return errors.WithStack(errs.NotFound)
	}
	r.state.collections[collection.Id] = *collection
	return nil
}

func (r *Repository) DeleteCollection(_ context.Context, id tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.collections, id)
	for k := range r.state.admins {
		if k.collection == id {
			delete(r.state.admins, k)
		}
	}
	for k := range r.state.allowlist {
		if k.collection == id {
			delete(r.state.allowlist, k)
		}
	}
	return nil
}

func (r *Repository) IsCollectionAdmin(_ context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.state.admins[accountKey{collection: id, account: account}]
	return ok, nil
}

func (r *Repository) SetCollectionAdmin(_ context.Context, id tokens.CollectionId, account tokens.AccountId, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if admin {
		r.state.admins[accountKey{collection: id, account: account}] = struct{}{}
	} else {
		delete(r.state.admins, accountKey{collection: id, account: account})
	}
	return nil
}

func (r *Repository) IsAllowlisted(_ context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.state.allowlist[accountKey{collection: id, account: account}]
	return ok, nil
}

func (r *Repository) SetAllowlisted(_ context.Context, id tokens.CollectionId, account tokens.AccountId, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if allowed {
		r.state.allowlist[accountKey{collection: id, account: account}] = struct{}{}
	} else {
		delete(r.state.allowlist, accountKey{collection: id, account: account})
	}
	return nil
}

// ---- item data ----

func (r *Repository) GetToken(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) (*entity.TokenData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.state.items[tokens.TokenAddress{CollectionId: collection, TokenId: token}]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &data, nil
}

func (r *Repository) GetCollectionTokens(_ context.Context, collection tokens.CollectionId) ([]tokens.TokenId, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []tokens.TokenId
	for address := range r.state.items {
		if address.CollectionId == collection {
			ids = append(ids, address.TokenId)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Repository) CreateToken(_ context.Context, data *entity.TokenData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.items[data.Address()] = *data
	return nil
}

func (r *Repository) SetTokenOwner(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, owner tokens.AccountId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	address := tokens.TokenAddress{CollectionId: collection, TokenId: token}
	data, ok := r.state.items[address]
	if !ok {
		return errors.WithStack(errs.NotFound)
	}
	data.Owner = owner
	r.state.items[address] = data
	return nil
}

func (r *Repository) DeleteToken(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.items, tokens.TokenAddress{CollectionId: collection, TokenId: token})
	return nil
}

// ---- ownership index ----

func (r *Repository) GetAccountBalance(_ context.Context, collection tokens.CollectionId, account tokens.AccountId) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.balances[accountKey{collection: collection, account: account}], nil
}

func (r *Repository) GetAccountTokens(_ context.Context, collection tokens.CollectionId, account tokens.AccountId) ([]tokens.TokenId, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []tokens.TokenId
	for k := range r.state.owned {
		if k.collection == collection && k.account == account {
			ids = append(ids, k.token)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Repository) SetAccountBalance(_ context.Context, collection tokens.CollectionId, account tokens.AccountId, balance uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accountKey{collection: collection, account: account}
	if balance == 0 {
		delete(r.state.balances, key)
		return nil
	}
	r.state.balances[key] = balance
	return nil
}

func (r *Repository) SetOwned(_ context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.owned[ownedKey{collection: collection, account: account, token: token}] = struct{}{}
	return nil
}

func (r *Repository) RemoveOwned(_ context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.owned, ownedKey{collection: collection, account: account, token: token})
	return nil
}

// ---- nesting edges ----

func (r *Repository) HasTokenChildren(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parent := tokens.TokenAddress{CollectionId: collection, TokenId: token}
	for k := range r.state.children {
		if k.parent == parent {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) GetTokenChildren(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]tokens.TokenAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parent := tokens.TokenAddress{CollectionId: collection, TokenId: token}
	var children []tokens.TokenAddress
	for k := range r.state.children {
		if k.parent == parent {
			children = append(children, k.child)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].CollectionId != children[j].CollectionId {
			return children[i].CollectionId < children[j].CollectionId
		}
		return children[i].TokenId < children[j].TokenId
	})
	return children, nil
}

func (r *Repository) AddTokenChild(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.children[childKey{parent: tokens.TokenAddress{CollectionId: collection, TokenId: token}, child: child}] = struct{}{}
	return nil
}

func (r *Repository) RemoveTokenChild(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.children, childKey{parent: tokens.TokenAddress{CollectionId: collection, TokenId: token}, child: child})
	return nil
}

// ---- allowance table ----

func (r *Repository) GetAllowance(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.AccountId, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.allowances[tokens.TokenAddress{CollectionId: collection, TokenId: token}], nil
}

func (r *Repository) SetAllowance(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, spender tokens.AccountId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.allowances[tokens.TokenAddress{CollectionId: collection, TokenId: token}] = spender
	return nil
}

func (r *Repository) RemoveAllowance(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.allowances, tokens.TokenAddress{CollectionId: collection, TokenId: token})
	return nil
}

// ---- property store ----

func (r *Repository) GetTokenProperties(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.Properties, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	props, ok := r.state.tokenProps[tokens.TokenAddress{CollectionId: collection, TokenId: token}]
	if !ok {
		return make(tokens.Properties), nil
	}
	return props.Clone(), nil
}

func (r *Repository) SetTokenProperties(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, properties tokens.Properties) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.tokenProps[tokens.TokenAddress{CollectionId: collection, TokenId: token}] = properties.Clone()
	return nil
}

func (r *Repository) DeleteTokenProperties(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.tokenProps, tokens.TokenAddress{CollectionId: collection, TokenId: token})
	return nil
}

func (r *Repository) GetCollectionProperties(_ context.Context, collection tokens.CollectionId) (tokens.Properties, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	props, ok := r.state.collectionProps[collection]
	if !ok {
		return make(tokens.Properties), nil
	}
	return props.Clone(), nil
}

func (r *Repository) SetCollectionProperties(_ context.Context, collection tokens.CollectionId, properties tokens.Properties) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.collectionProps[collection] = properties.Clone()
	return nil
}

func (r *Repository) GetPropertyPermissions(_ context.Context, collection tokens.CollectionId) (tokens.PropertyPermissions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	permissions, ok := r.state.propPermissions[collection]
	if !ok {
		return make(tokens.PropertyPermissions), nil
	}
	return permissions.Clone(), nil
}

func (r *Repository) SetPropertyPermissions(_ context.Context, collection tokens.CollectionId, permissions tokens.PropertyPermissions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.propPermissions[collection] = permissions.Clone()
	return nil
}

func (r *Repository) GetAuxProperty(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) (tokens.PropertyValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.state.aux[auxKey{token: tokens.TokenAddress{CollectionId: collection, TokenId: token}, scope: scope, key: key}]
	if !ok {
		return "", errors.WithStack(errs.NotFound)
	}
	return value, nil
}

func (r *Repository) GetAuxProperties(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope) (tokens.Properties, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	address := tokens.TokenAddress{CollectionId: collection, TokenId: token}
	props := make(tokens.Properties)
	for k, v := range r.state.aux {
		if k.token == address && k.scope == scope {
			props[k.key] = v
		}
	}
	return props, nil
}

func (r *Repository) SetAuxProperty(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey, value tokens.PropertyValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.aux[auxKey{token: tokens.TokenAddress{CollectionId: collection, TokenId: token}, scope: scope, key: key}] = value
	return nil
}

func (r *Repository) RemoveAuxProperty(_ context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.aux, auxKey{token: tokens.TokenAddress{CollectionId: collection, TokenId: token}, scope: scope, key: key})
	return nil
}

func (r *Repository) ClearAuxProperties(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	address := tokens.TokenAddress{CollectionId: collection, TokenId: token}
	for k := range r.state.aux {
		if k.token == address {
			delete(r.state.aux, k)
		}
	}
	return nil
}

// ---- collection teardown ----

func (r *Repository) ClearCollectionTokens(_ context.Context, collection tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for address := range r.state.items {
		if address.CollectionId == collection {
			delete(r.state.items, address)
		}
	}
	for address := range r.state.tokenProps {
		if address.CollectionId == collection {
			delete(r.state.tokenProps, address)
		}
	}
	for k := range r.state.aux {
		if k.token.CollectionId == collection {
			delete(r.state.aux, k)
		}
	}
	return nil
}

func (r *Repository) ClearCollectionOwnership(_ context.Context, collection tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.state.balances {
		if k.collection == collection {
			delete(r.state.balances, k)
		}
	}
	for k := range r.state.owned {
		if k.collection == collection {
			delete(r.state.owned, k)
		}
	}
	return nil
}

func (r *Repository) ClearCollectionChildren(_ context.Context, collection tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.state.children {
		if k.parent.CollectionId == collection {
			delete(r.state.children, k)
		}
	}
	return nil
}

func (r *Repository) ClearCollectionAllowances(_ context.Context, collection tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for address := range r.state.allowances {
		if address.CollectionId == collection {
			delete(r.state.allowances, address)
		}
	}
	return nil
}

func (r *Repository) ClearCollectionProperties(_ context.Context, collection tokens.CollectionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.collectionProps, collection)
	delete(r.state.propPermissions, collection)
	return nil
}

// ---- event streams ----

func (r *Repository) CreateEvents(_ context.Context, events []*entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range events {
		stored := *event
		stored.Id = r.state.nextEventId
		r.state.nextEventId++
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		r.state.events = append(r.state.events, &stored)
	}
	return nil
}

func (r *Repository) CreateLogs(_ context.Context, logs []*entity.Erc721Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, log := range logs {
		stored := *log
		stored.Id = r.state.nextLogId
		r.state.nextLogId++
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		r.state.logs = append(r.state.logs, &stored)
	}
	return nil
}

func (r *Repository) GetTokenEvents(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*entity.Event
	for _, event := range r.state.events {
		if event.CollectionId == collection && event.TokenId == token {
			result = append(result, event)
		}
	}
	return result, nil
}

func (r *Repository) GetTokenLogs(_ context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Erc721Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*entity.Erc721Log
	for _, log := range r.state.logs {
		if log.CollectionId == collection && log.TokenId == token {
			result = append(result, log)
		}
	}
	return result, nil
}
