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

// Transfer moves a token from its current owner to another account. The
// sender must be the recorded owner.
func (l *Ledger) Transfer(ctx context.Context, collection tokens.CollectionId, sender, to tokens.AccountId, token tokens.TokenId, amount uint128.Uint128, b budget.Budget) error {
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
		return l.transfer(ctx, collection, sender, sender, to, token, b)
	})
}

// TransferFrom moves a token on behalf of its owner, gated by the allowance
// and delegation rules of checkAllowed.
func (l *Ledger) TransferFrom(ctx context.Context, collection tokens.CollectionId, spender, from, to tokens.AccountId, token tokens.TokenId, amount uint128.Uint128, b budget.Budget) error {
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
		if err := l.checkAllowed(ctx, collection, spender, from, token, b); err != nil {
			return err
		}
		return l.transfer(ctx, collection, spender, from, to, token, b)
	})
}

// transfer performs the ownership move inside an open transaction. sender is
// the acting account (owner or approved spender), from the recorded owner.
func (l *Ledger) transfer(ctx context.Context, collection *entity.Collection, sender, from, to tokens.AccountId, token tokens.TokenId, b budget.Budget) error {
	if !collection.Limits.TransfersEnabled {
		return errors.WithStack(errs.TransferNotAllowed)
	}
	data, err := l.getToken(ctx, collection.Id, token)
	if err != nil {
		return err
	}
	if data.Owner != from {
		return errors.Wrapf(errs.NoPermission, "account %s does not own token %d", from, token)
	}
	if to == "" {
		return errors.Wrap(errs.InvalidArgument, "receiver is empty")
	}
	if err := l.checkAllowlisted(ctx, collection, from, to); err != nil {
		return err
	}

	address := tokens.TokenAddress{CollectionId: collection.Id, TokenId: token}
	if err := l.checkNesting(ctx, sender, address, to, b); err != nil {
		return err
	}

	// self-transfer skips the balance re-accounting but still clears the
	// allowance and re-evaluates nesting
	if from != to {
		if err := l.incrementBalance(ctx, collection, to, token); err != nil {
			return err
		}
		if err := l.decrementBalance(ctx, collection.Id, from, token); err != nil {
			return err
		}
		if err := l.unnest(ctx, from, address); err != nil {
			return err
		}
		if err := l.nest(ctx, to, address); err != nil {
			return err
		}
		if err := l.dg.SetTokenOwner(ctx, collection.Id, token, to); err != nil {
			return errors.Wrap(err, "failed to set token owner")
		}
	}

	if err := l.clearAllowance(ctx, collection.Id, token, false); err != nil {
		return err
	}
	l.emitEvent(&entity.Event{
		CollectionId: collection.Id,
		TokenId:      token,
		Kind:         entity.EventTransfer,
		From:         from,
		To:           to,
		Spender:      sender,
	})
	l.emitTransferLog(collection.Id, token, from, to)
	return nil
}

// checkAllowed decides whether spender may move or burn a token owned by
// from. The first matching rule wins; if none match the call fails with
// ApprovedValueTooLow.
func (l *Ledger) checkAllowed(ctx context.Context, collection *entity.Collection, spender, from tokens.AccountId, token tokens.TokenId, b budget.Budget) error {
	if spender == from {
		return nil
	}
	if collection.Limits.OwnerCanTransfer {
		privileged, err := l.isOwnerOrAdmin(ctx, collection, spender)
		if err != nil {
			return err
		}
		if privileged {
			return nil
		}
	}
	if address, ok := tokens.TokenFromAccount(from); ok {
		owns, err := l.isIndirectOwner(ctx, address, spender, b)
		if err != nil {
			return err
		}
		if owns {
			return nil
		}
	}
	allowance, err := l.dg.GetAllowance(ctx, collection.Id, token)
	if err != nil {
		return errors.Wrap(err, "failed to get allowance")
	}
	if allowance != "" && allowance == spender {
		return nil
	}
	if collection.Permissions.IgnoresAllowance {
		return nil
	}
	return errors.Wrapf(errs.ApprovedValueTooLow, "account %s has no approval for token %d", spender, token)
}
