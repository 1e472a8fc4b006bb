package ledger

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

// CreateItem mints one token and returns its assigned id.
func (l *Ledger) CreateItem(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, item entity.MintItem, b budget.Budget) (tokens.TokenId, error) {
	ids, err := l.CreateMultipleItems(ctx, collection, sender, []entity.MintItem{item}, b)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// CreateMultipleItems mints a batch of tokens. A zero item amount is
// normalized to one, so callers that never think in amounts get one token per
// item.
func (l *Ledger) CreateMultipleItems(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, items []entity.MintItem, b budget.Budget) ([]tokens.TokenId, error) {
	normalized := make([]entity.MintItem, len(items))
	for i, item := range items {
		if item.Amount.IsZero() {
			item.Amount = uint128.From64(1)
		}
		normalized[i] = item
	}
	return l.CreateMultipleItemsEx(ctx, collection, sender, normalized, b)
}

// CreateMultipleItemsEx mints a pre-typed batch. Amounts are interpreted
// strictly: zero items are accepted no-ops that mint nothing, one mints a
// token, anything else fails the whole batch. Either every token in the batch
// is created with consistent indices, or none are.
func (l *Ledger) CreateMultipleItemsEx(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, items []entity.MintItem, b budget.Budget) ([]tokens.TokenId, error) {
	b = orUnlimited(b)

	live := make([]entity.MintItem, 0, len(items))
	for _, item := range items {
		skip, err := checkAmount(item.Amount)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if item.Owner == "" {
			return nil, errors.Wrap(errs.InvalidArgument, "item owner is empty")
		}
		live = append(live, item)
	}
	if len(live) == 0 {
		return nil, nil
	}

	var minted []tokens.TokenId
	err := l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}

		if err := l.checkMintPermission(ctx, collection, sender, live); err != nil {
			return err
		}

		// the new ids form the contiguous range (first, first+n]
		first := collection.TokensMinted
		n := uint32(len(live))
		if uint64(first)+uint64(n) > math.MaxUint32 {
			return errors.Wrapf(errs.ArithmeticOverflow, "minting %d tokens past id %d", n, first)
		}
		if limit := collection.Limits.TokenLimit; limit != 0 && collection.TotalSupply()+n > limit {
			return errors.Wrapf(errs.CollectionTokenLimitExceeded, "limit is %d", limit)
		}

		// per-owner deltas are aggregated before any mutation so a limit
		// violation fails the batch with nothing written
		deltas := make(map[tokens.AccountId]uint32)
		for _, item := range live {
			deltas[item.Owner]++
		}
		if limit := collection.Limits.AccountTokenOwnershipLimit; limit != 0 {
			for owner, delta := range deltas {
				balance, err := l.dg.GetAccountBalance(ctx, collection.Id, owner)
				if err != nil {
					return errors.Wrap(err, "failed to get account balance")
				}
				if balance+delta > limit {
					return errors.Wrapf(errs.AccountTokenLimitExceeded, "account %s would own %d tokens, limit is %d", owner, balance+delta, limit)
				}
			}
		}

		for i, item := range live {
			address := tokens.TokenAddress{CollectionId: collection.Id, TokenId: tokens.TokenId(first + uint32(i) + 1)}
			if err := l.checkNesting(ctx, sender, address, item.Owner, b); err != nil {
				return err
			}
		}

		for i, item := range live {
			token := tokens.TokenId(first + uint32(i) + 1)
			address := tokens.TokenAddress{CollectionId: collection.Id, TokenId: token}
			if err := l.dg.CreateToken(ctx, &entity.TokenData{
				CollectionId: collection.Id,
				TokenId:      token,
				Owner:        item.Owner,
			}); err != nil {
				return errors.Wrap(err, "failed to create token")
			}
			if err := l.nest(ctx, item.Owner, address); err != nil {
				return err
			}
			if err := l.incrementBalance(ctx, collection, item.Owner, token); err != nil {
				return err
			}
			if len(item.Properties) > 0 {
				mutations := make([]tokens.PropertyMutation, 0, len(item.Properties))
				for _, property := range item.Properties {
					value := property.Value
					mutations = append(mutations, tokens.PropertyMutation{Key: property.Key, Value: &value})
				}
				if err := l.modifyTokenProperties(ctx, collection, sender, token, mutations, true, b); err != nil {
					return err
				}
			}
			l.emitEvent(&entity.Event{
				CollectionId: collection.Id,
				TokenId:      token,
				Kind:         entity.EventItemCreated,
				To:           item.Owner,
			})
			l.emitTransferLog(collection.Id, token, tokens.ZeroAccount, item.Owner)
			minted = append(minted, token)
		}

		collection.TokensMinted = first + n
		if err := l.dg.UpdateCollection(ctx, collection); err != nil {
			return errors.Wrap(err, "failed to update collection counters")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// checkMintPermission gates minting: the collection owner and admins may
// always mint; everyone else needs the public-mint flag and, for allow-listed
// collections, listed sender and target owners.
func (l *Ledger) checkMintPermission(ctx context.Context, collection *entity.Collection, sender tokens.AccountId, items []entity.MintItem) error {
	privileged, err := l.isOwnerOrAdmin(ctx, collection, sender)
	if err != nil {
		return err
	}
	if privileged {
		return nil
	}
	if !collection.Permissions.MintMode {
		return errors.WithStack(errs.PublicMintingNotAllowed)
	}
	accounts := make([]tokens.AccountId, 0, len(items)+1)
	accounts = append(accounts, sender)
	for _, item := range items {
		accounts = append(accounts, item.Owner)
	}
	return l.checkAllowlisted(ctx, collection, accounts...)
}
