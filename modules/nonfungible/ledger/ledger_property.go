package ledger

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

// ModifyTokenProperties applies a batch of set/delete mutations to a token's
// properties. All keys in one call are applied atomically.
func (l *Ledger) ModifyTokenProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, mutations []tokens.PropertyMutation, b budget.Budget) error {
	b = orUnlimited(b)
	return l.withTx(ctx, func(ctx context.Context) error {
		coll, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		return l.modifyTokenProperties(ctx, coll, sender, token, mutations, false, b)
	})
}

// SetTokenProperties sets the given properties on a token.
func (l *Ledger) SetTokenProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, properties []tokens.Property, b budget.Budget) error {
	mutations := lo.Map(properties, func(property tokens.Property, _ int) tokens.PropertyMutation {
		return tokens.PropertyMutation{Key: property.Key, Value: lo.ToPtr(property.Value)}
	})
	return l.ModifyTokenProperties(ctx, collection, sender, token, mutations, b)
}

// DeleteTokenProperties deletes the given property keys from a token.
func (l *Ledger) DeleteTokenProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, keys []tokens.PropertyKey, b budget.Budget) error {
	mutations := lo.Map(keys, func(key tokens.PropertyKey, _ int) tokens.PropertyMutation {
		return tokens.PropertyMutation{Key: key}
	})
	return l.ModifyTokenProperties(ctx, collection, sender, token, mutations, b)
}

// modifyTokenProperties is the engine behind every token property write,
// including the creation path of mint. isCreate relaxes the authorization for
// initial sets only.
//
// Authorization is resolved at most once per call for each of the two roles,
// via memoized closures, so a batch of keys pays for one admin lookup and one
// ownership-chain walk at most.
func (l *Ledger) modifyTokenProperties(ctx context.Context, collection *entity.Collection, sender tokens.AccountId, token tokens.TokenId, mutations []tokens.PropertyMutation, isCreate bool, b budget.Budget) error {
	if _, err := l.getToken(ctx, collection.Id, token); err != nil {
		return err
	}
	properties, err := l.dg.GetTokenProperties(ctx, collection.Id, token)
	if err != nil {
		return errors.Wrap(err, "failed to get token properties")
	}
	permissions, err := l.dg.GetPropertyPermissions(ctx, collection.Id)
	if err != nil {
		return errors.Wrap(err, "failed to get property permissions")
	}

	var adminMemo, ownerMemo *bool
	isAdmin := func() (bool, error) {
		if adminMemo == nil {
			privileged, err := l.isOwnerOrAdmin(ctx, collection, sender)
			if err != nil {
				return false, err
			}
			adminMemo = &privileged
		}
		return *adminMemo, nil
	}
	isOwner := func() (bool, error) {
		if ownerMemo == nil {
			owns, err := l.isIndirectOwner(ctx, tokens.TokenAddress{CollectionId: collection.Id, TokenId: token}, sender, b)
			if err != nil {
				return false, err
			}
			ownerMemo = &owns
		}
		return *ownerMemo, nil
	}

	for _, mutation := range mutations {
		if err := mutation.Key.Validate(); err != nil {
			return err
		}
		permission := permissions[mutation.Key]

		// immutability is absolute: once a key without the mutable flag holds
		// a value, nobody can change or delete it
		if _, exists := properties[mutation.Key]; exists && !permission.Mutable {
			return errors.Wrapf(errs.NoPermission, "property %s is immutable", mutation.Key)
		}

		allowed := false
		if isCreate && mutation.Value != nil && (permission.CollectionAdmin || permission.TokenOwner) {
			allowed = true
		}
		if !allowed && permission.CollectionAdmin {
			allowed, err = isAdmin()
			if err != nil {
				return err
			}
		}
		if !allowed && permission.TokenOwner {
			allowed, err = isOwner()
			if err != nil {
				return err
			}
		}
		if !allowed {
			return errors.Wrapf(errs.NoPermission, "property %s is not writable by %s", mutation.Key, sender)
		}

		if mutation.Value != nil {
			if err := properties.TrySet(mutation.Key, *mutation.Value); err != nil {
				return err
			}
			l.emitEvent(&entity.Event{
				CollectionId: collection.Id,
				TokenId:      token,
				Kind:         entity.EventTokenPropertySet,
				From:         sender,
				PropertyKey:  mutation.Key,
			})
		} else if properties.Remove(mutation.Key) {
			l.emitEvent(&entity.Event{
				CollectionId: collection.Id,
				TokenId:      token,
				Kind:         entity.EventTokenPropertyDeleted,
				From:         sender,
				PropertyKey:  mutation.Key,
			})
		}
	}

	if err := l.dg.SetTokenProperties(ctx, collection.Id, token, properties); err != nil {
		return errors.Wrap(err, "failed to set token properties")
	}
	return nil
}

// SetTokenPropertyPermissions records collection-level permissions for token
// property keys. A permission already recorded without the mutable flag can
// never be replaced.
func (l *Ledger) SetTokenPropertyPermissions(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, permissions []tokens.PropertyKeyPermission) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		coll, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, coll, sender); err != nil {
			return err
		}

		recorded, err := l.dg.GetPropertyPermissions(ctx, collection)
		if err != nil {
			return errors.Wrap(err, "failed to get property permissions")
		}
		for _, entry := range permissions {
			if err := entry.Key.Validate(); err != nil {
				return err
			}
			if existing, ok := recorded[entry.Key]; ok && !existing.Mutable {
				return errors.Wrapf(errs.ConflictSetting, "permission for property %s is immutable", entry.Key)
			}
			recorded[entry.Key] = entry.Permission
			l.emitEvent(&entity.Event{
				CollectionId: collection,
				Kind:         entity.EventPropertyPermissionSet,
				From:         sender,
				PropertyKey:  entry.Key,
			})
		}
		if err := l.dg.SetPropertyPermissions(ctx, collection, recorded); err != nil {
			return errors.Wrap(err, "failed to set property permissions")
		}
		return nil
	})
}

// SetCollectionProperties sets properties on the collection itself. Owner and
// admins only; collection properties carry no per-key permission records.
func (l *Ledger) SetCollectionProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, properties []tokens.Property) error {
	return l.modifyCollectionProperties(ctx, collection, sender, lo.Map(properties, func(property tokens.Property, _ int) tokens.PropertyMutation {
		return tokens.PropertyMutation{Key: property.Key, Value: lo.ToPtr(property.Value)}
	}))
}

// DeleteCollectionProperties deletes property keys from the collection.
func (l *Ledger) DeleteCollectionProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, keys []tokens.PropertyKey) error {
	return l.modifyCollectionProperties(ctx, collection, sender, lo.Map(keys, func(key tokens.PropertyKey, _ int) tokens.PropertyMutation {
		return tokens.PropertyMutation{Key: key}
	}))
}

func (l *Ledger) modifyCollectionProperties(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, mutations []tokens.PropertyMutation) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		coll, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, coll, sender); err != nil {
			return err
		}

		properties, err := l.dg.GetCollectionProperties(ctx, collection)
		if err != nil {
			return errors.Wrap(err, "failed to get collection properties")
		}
		for _, mutation := range mutations {
			if err := mutation.Key.Validate(); err != nil {
				return err
			}
			if mutation.Value != nil {
				if err := properties.TrySet(mutation.Key, *mutation.Value); err != nil {
					return err
				}
				l.emitEvent(&entity.Event{
					CollectionId: collection,
					Kind:         entity.EventCollectionPropertySet,
					From:         sender,
					PropertyKey:  mutation.Key,
				})
			} else if properties.Remove(mutation.Key) {
				l.emitEvent(&entity.Event{
					CollectionId: collection,
					Kind:         entity.EventCollectionPropertyDeleted,
					From:         sender,
					PropertyKey:  mutation.Key,
				})
			}
		}
		if err := l.dg.SetCollectionProperties(ctx, collection, properties); err != nil {
			return errors.Wrap(err, "failed to set collection properties")
		}
		return nil
	})
}

// SetAuxProperty writes a scoped auxiliary property on a token. Aux
// properties are system bookkeeping: unbounded, unpermissioned and invisible
// to the user property limits.
func (l *Ledger) SetAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey, value tokens.PropertyValue) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		if _, err := l.getToken(ctx, collection, token); err != nil {
			return err
		}
		if err := l.dg.SetAuxProperty(ctx, collection, token, scope, key, value); err != nil {
			return errors.Wrap(err, "failed to set aux property")
		}
		return nil
	})
}

// RemoveAuxProperty removes a scoped auxiliary property from a token.
func (l *Ledger) RemoveAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		if _, err := l.getToken(ctx, collection, token); err != nil {
			return err
		}
		if err := l.dg.RemoveAuxProperty(ctx, collection, token, scope, key); err != nil {
			return errors.Wrap(err, "failed to remove aux property")
		}
		return nil
	})
}
