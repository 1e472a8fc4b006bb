package ledger

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

// Burn destroys a single token owned by the sender. The token must have no
// nested children.
func (l *Ledger) Burn(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, amount uint128.Uint128) error {
	skip, err := checkAmount(amount)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		data, err := l.getToken(ctx, collection.Id, token)
		if err != nil {
			return err
		}
		if data.Owner != sender {
			return errors.Wrapf(errs.NoPermission, "account %s does not own token %d", sender, token)
		}
		if err := l.checkAllowlisted(ctx, collection, sender); err != nil {
			return err
		}
		if err := l.requireNoChildren(ctx, collection.Id, token); err != nil {
			return err
		}
		if err := l.burnUnchecked(ctx, collection, data); err != nil {
			return err
		}
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection counters")
		}
		return nil
	})
}

// BurnFrom destroys a token on behalf of its owner, gated by the same
// delegation rules as TransferFrom.
func (l *Ledger) BurnFrom(ctx context.Context, collection tokens.CollectionId, spender, from tokens.AccountId, token tokens.TokenId, amount uint128.Uint128, b budget.Budget) error {
	skip, err := checkAmount(amount)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	b = orUnlimited(b)
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		data, err := l.getToken(ctx, collection.Id, token)
		if err != nil {
			return err
		}
		if data.Owner != from {
			return errors.Wrapf(errs.NoPermission, "account %s does not own token %d", from, token)
		}
		if err := l.checkAllowed(ctx, collection, spender, from, token, b); err != nil {
			return err
		}
		if err := l.checkAllowlisted(ctx, collection, from); err != nil {
			return err
		}
		if err := l.requireNoChildren(ctx, collection.Id, token); err != nil {
			return err
		}
		if err := l.burnUnchecked(ctx, collection, data); err != nil {
			return err
		}
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection counters")
		}
		return nil
	})
}

// BurnResult reports the outcome of a recursive burn: how many tokens were
// destroyed and the cost of the work per the ledger's cost function.
type BurnResult struct {
	TokensBurned uint32
	Cost         uint64
}

// BurnRecursively destroys a token and its whole nested subtree, children
// first, inside one transaction. selfBudget is consumed once per burned node,
// breadthBudget once per child edge; exhausting either rolls back every burn
// performed so far.
func (l *Ledger) BurnRecursively(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, selfBudget, breadthBudget budget.Budget) (*BurnResult, error) {
	selfBudget = orUnlimited(selfBudget)
	breadthBudget = orUnlimited(breadthBudget)

	var burned uint32
	err := l.withTx(ctx, func(ctx context.Context) error {
		cache := make(map[tokens.CollectionId]*entity.Collection)
		root, err := l.loadCollection(ctx, cache, collection)
		if err != nil {
			return err
		}
		data, err := l.getToken(ctx, collection, token)
		if err != nil {
			return err
		}
		if data.Owner != sender {
			return errors.Wrapf(errs.NoPermission, "account %s does not own token %d", sender, token)
		}
		if err := l.checkAllowlisted(ctx, root, sender); err != nil {
			return err
		}

		n, err := l.burnSubtree(ctx, cache, tokens.TokenAddress{CollectionId: collection, TokenId: token}, selfBudget, breadthBudget)
		if err != nil {
			return err
		}
		burned = n

		for _, touched := range cache {
			if err := l.dg.UpdateCollection(ctx, touched); err != nil {
				return errors.Wrap(err, "failed to update collection counters")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BurnResult{TokensBurned: burned, Cost: l.costFn(burned)}, nil
}

// burnSubtree is the pre-order depth-first teardown. Children may live in
// other collections, so counters are accumulated per collection in cache.
func (l *Ledger) burnSubtree(ctx context.Context, cache map[tokens.CollectionId]*entity.Collection, address tokens.TokenAddress, selfBudget, breadthBudget budget.Budget) (uint32, error) {
	if !selfBudget.Consume() {
		return 0, errors.WithStack(errs.DepthLimit)
	}

	children, err := l.dg.GetTokenChildren(ctx, address.CollectionId, address.TokenId)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get token children")
	}
	var burned uint32
	for _, child := range children {
		if !breadthBudget.Consume() {
			return 0, errors.WithStack(errs.BreadthLimit)
		}
		n, err := l.burnSubtree(ctx, cache, child, selfBudget, breadthBudget)
		if err != nil {
			return 0, err
		}
		burned += n
	}

	collection, err := l.loadCollection(ctx, cache, address.CollectionId)
	if err != nil {
		return 0, err
	}
	data, err := l.getToken(ctx, address.CollectionId, address.TokenId)
	if err != nil {
		return 0, err
	}
	if err := l.burnUnchecked(ctx, collection, data); err != nil {
		return 0, err
	}
	return burned + 1, nil
}

// burnUnchecked tears a single token down across every storage map. All
// permission and children checks are the caller's responsibility.
func (l *Ledger) burnUnchecked(ctx context.Context, collection *entity.Collection, data *entity.TokenData) error {
	address := data.Address()

	if err := l.decrementBalance(ctx, collection.Id, data.Owner, data.TokenId); err != nil {
		return err
	}
	if err := l.unnest(ctx, data.Owner, address); err != nil {
		return err
	}

	allowance, err := l.dg.GetAllowance(ctx, collection.Id, data.TokenId)
	if err != nil {
		return errors.Wrap(err, "failed to get allowance")
	}
	if allowance != "" {
		if err := l.clearAllowance(ctx, collection.Id, data.TokenId, true); err != nil {
			return err
		}
	}

	if err := l.dg.DeleteToken(ctx, collection.Id, data.TokenId); err != nil {
		return errors.Wrap(err, "failed to delete token")
	}
	if err := l.dg.DeleteTokenProperties(ctx, collection.Id, data.TokenId); err != nil {
		return errors.Wrap(err, "failed to delete token properties")
	}
	if err := l.dg.ClearAuxProperties(ctx, collection.Id, data.TokenId); err != nil {
		return errors.Wrap(err, "failed to clear aux properties")
	}

	collection.TokensBurnt++
	l.emitEvent(&entity.Event{
		CollectionId: collection.Id,
		TokenId:      data.TokenId,
		Kind:         entity.EventItemDestroyed,
		From:         data.Owner,
	})
	l.emitTransferLog(collection.Id, data.TokenId, data.Owner, tokens.ZeroAccount)
	return nil
}

func (l *Ledger) requireNoChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	has, err := l.dg.HasTokenChildren(ctx, collection, token)
	if err != nil {
		return errors.Wrap(err, "failed to check token children")
	}
	if has {
		return errors.Wrapf(errs.CantBurnNftWithChildren, "token %d", token)
	}
	return nil
}

func (l *Ledger) loadCollection(ctx context.Context, cache map[tokens.CollectionId]*entity.Collection, id tokens.CollectionId) (*entity.Collection, error) {
	if collection, ok := cache[id]; ok {
		return collection, nil
	}
	collection, err := l.getCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = collection
	return collection, nil
}
