package ledger

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// SetAllowance grants spender the right to move or burn the token, replacing
// any previous approval. An empty spender clears the slot. Mirrors ERC-721: at
// most one active approval per token, and replacing it resets the previous
// one first.
func (l *Ledger) SetAllowance(ctx context.Context, collection tokens.CollectionId, sender tokens.AccountId, token tokens.TokenId, spender tokens.AccountId) error {
	return l.withTx(ctx, func(ctx context.Context) error {
		collection, err := l.getCollection(ctx, collection)
		if err != nil {
			return err
		}
		data, err := l.getToken(ctx, collection.Id, token)
		if err != nil {
			return err
		}

		accounts := []tokens.AccountId{sender}
		if spender != "" {
			accounts = append(accounts, spender)
		}
		if err := l.checkAllowlisted(ctx, collection, accounts...); err != nil {
			return err
		}

		if data.Owner != sender && !collection.Permissions.IgnoresOwnedAmount {
			return errors.Wrapf(errs.CantApproveMoreThanOwned, "account %s does not own token %d", sender, token)
		}

		previous, err := l.dg.GetAllowance(ctx, collection.Id, token)
		if err != nil {
			return errors.Wrap(err, "failed to get allowance")
		}
		if previous != "" && previous != spender {
			l.emitEvent(&entity.Event{
				CollectionId: collection.Id,
				TokenId:      token,
				Kind:         entity.EventApprovalCancelled,
				From:         data.Owner,
				Spender:      previous,
			})
		}

		if spender == "" {
			if previous == "" {
				return nil
			}
			if err := l.dg.RemoveAllowance(ctx, collection.Id, token); err != nil {
				return errors.Wrap(err, "failed to remove allowance")
			}
			l.emitApprovalLog(collection.Id, token, data.Owner, tokens.ZeroAccount)
			return nil
		}

		if err := l.dg.SetAllowance(ctx, collection.Id, token, spender); err != nil {
			return errors.Wrap(err, "failed to set allowance")
		}
		l.emitEvent(&entity.Event{
			CollectionId: collection.Id,
			TokenId:      token,
			Kind:         entity.EventApproved,
			From:         data.Owner,
			Spender:      spender,
		})
		l.emitApprovalLog(collection.Id, token, data.Owner, spender)
		return nil
	})
}

// clearAllowance removes any recorded approval for the token. When emitReset
// is set and an approval existed, an approval-reset event and a zero-address
// Approval log are emitted.
func (l *Ledger) clearAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, emitReset bool) error {
	allowance, err := l.dg.GetAllowance(ctx, collection, token)
	if err != nil {
		return errors.Wrap(err, "failed to get allowance")
	}
	if allowance == "" {
		return nil
	}
	if err := l.dg.RemoveAllowance(ctx, collection, token); err != nil {
		return errors.Wrap(err, "failed to remove allowance")
	}
	if emitReset {
		data, err := l.getToken(ctx, collection, token)
		if err != nil {
			return err
		}
		l.emitEvent(&entity.Event{
			CollectionId: collection,
			TokenId:      token,
			Kind:         entity.EventApprovalCancelled,
			From:         data.Owner,
			Spender:      allowance,
		})
		l.emitApprovalLog(collection, token, data.Owner, tokens.ZeroAccount)
	}
	return nil
}
