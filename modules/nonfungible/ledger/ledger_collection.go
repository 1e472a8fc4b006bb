package ledger

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// InitCollectionParams describes a new collection. Nil Limits/Permissions take
// the defaults: transfers enabled, normal access, owner-permitted nesting.
type InitCollectionParams struct {
	Owner       tokens.AccountId
	Name        string
	Description string
	Limits      *entity.CollectionLimits
	Permissions *entity.CollectionPermissions
}

func (l *Ledger) InitCollection(ctx context.Context, params InitCollectionParams) (tokens.CollectionId, error) {
	if params.Owner == "" || params.Owner.IsTokenAccount() {
		return 0, errors.Wrap(errs.InvalidArgument, "collection owner must be a wallet account")
	}

	collection := &entity.Collection{
		Owner:       params.Owner,
		Name:        params.Name,
		Description: params.Description,
		Limits: lo.FromPtrOr(params.Limits, entity.CollectionLimits{
			TransfersEnabled: true,
		}),
		Permissions: lo.FromPtrOr(params.Permissions, entity.CollectionPermissions{
			Access:  entity.AccessNormal,
			Nesting: entity.NestingPermission{TokenOwner: true},
		}),
	}

	var id tokens.CollectionId
	err := l.withTx(ctx, func(ctx context.Context) error {
		assigned, err := l.dg.CreateCollection(ctx, collection)
		if err != nil {
			return errors.Wrap(err, "failed to create collection")
		}
		id = assigned
		l.emitEvent(&entity.Event{
			CollectionId: id,
			Kind:         entity.EventCollectionCreated,
			To:           params.Owner,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DestroyCollection removes an empty collection together with every storage
// map keyed by it. Only the collection owner may destroy it.
func (l *Ledger) DestroyCollection(ctx context.Context, id tokens.CollectionId, sender tokens.AccountId) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if sender != collection.Owner {
			return errors.Wrapf(errs.NoPermission, "account %s is not the collection owner", sender)
		}
		if collection.TotalSupply() != 0 {
			return errors.Wrapf(errs.CollectionNotEmpty, "collection has %d live tokens", collection.TotalSupply())
		}

		for _, clear := range []func(context.Context, tokens.CollectionId) error{
			l.dg.ClearCollectionTokens,
			l.dg.ClearCollectionOwnership,
			l.dg.ClearCollectionChildren,
			l.dg.ClearCollectionAllowances,
			l.dg.ClearCollectionProperties,
		} {
			if err := clear(ctx, id); err != nil {
				return errors.Wrap(err, "failed to clear collection storage")
			}
		}
		if err := l.dg.DeleteCollection(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete collection")
		}
		l.emitEvent(&entity.Event{
			CollectionId: id,
			Kind:         entity.EventCollectionDestroyed,
			From:         sender,
		})
		return nil
	})
}

// SetCollectionLimits replaces the collection limits. The token limit cannot
// be set below the current live supply.
func (l *Ledger) SetCollectionLimits(ctx context.Context, id tokens.CollectionId, sender tokens.AccountId, limits entity.CollectionLimits) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, collection, sender); err != nil {
			return err
		}
		if limits.TokenLimit != 0 && limits.TokenLimit < collection.TotalSupply() {
			return errors.Wrapf(errs.ConflictSetting, "token limit %d is below the live supply %d", limits.TokenLimit, collection.TotalSupply())
		}
		collection.Limits = limits
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection")
		}
		return nil
	})
}

func (l *Ledger) SetCollectionPermissions(ctx context.Context, id tokens.CollectionId, sender tokens.AccountId, permissions entity.CollectionPermissions) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, collection, sender); err != nil {
			return err
		}
		collection.Permissions = permissions
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection")
		}
		return nil
	})
}

// ChangeCollectionOwner hands the collection to another wallet account. Owner
// only; admins cannot reassign ownership.
func (l *Ledger) ChangeCollectionOwner(ctx context.Context, id tokens.CollectionId, sender, newOwner tokens.AccountId) error {
	if newOwner == "" || newOwner.IsTokenAccount() {
		return errors.Wrap(errs.InvalidArgument, "collection owner must be a wallet account")
	}
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if sender != collection.Owner {
			return errors.Wrapf(errs.NoPermission, "account %s is not the collection owner", sender)
		}
		collection.Owner = newOwner
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection")
		}
		return nil
	})
}

func (l *Ledger) AddCollectionAdmin(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId) error {
	return l.setCollectionAdmin(ctx, id, sender, account, true)
}

func (l *Ledger) RemoveCollectionAdmin(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId) error {
	return l.setCollectionAdmin(ctx, id, sender, account, false)
}

func (l *Ledger) setCollectionAdmin(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId, admin bool) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, collection, sender); err != nil {
			return err
		}
		if err := l.dg.SetCollectionAdmin(ctx, id, account, admin); err != nil {
			return errors.Wrap(err, "failed to set collection admin")
		}
		return nil
	})
}

func (l *Ledger) AddToAllowList(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId) error {
	return l.setAllowlisted(ctx, id, sender, account, true)
}

func (l *Ledger) RemoveFromAllowList(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId) error {
	return l.setAllowlisted(ctx, id, sender, account, false)
}

func (l *Ledger) setAllowlisted(ctx context.Context, id tokens.CollectionId, sender, account tokens.AccountId, allowed bool) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, id)
		if err != nil {
			return err
		}
		if err := l.requireOwnerOrAdmin(ctx, collection, sender); err != nil {
			return err
		}
		if err := l.dg.SetAllowlisted(ctx, id, account, allowed); err != nil {
			return errors.Wrap(err, "failed to set allow list entry")
		}
		return nil
	})
}

func (l *Ledger) requireOwnerOrAdmin(ctx context.Context, collection *entity.Collection, account tokens.AccountId) error {
	privileged, err := l.isOwnerOrAdmin(ctx, collection, account)
	if err != nil {
		return err
	}
	if !privileged {
		return errors.Wrapf(errs.NoPermission, "account %s is not the collection owner or admin", account)
	}
	return nil
}
