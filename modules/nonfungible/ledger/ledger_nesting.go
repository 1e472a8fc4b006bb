package ledger

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

// resolveTopmostOwner walks the ownership chain upward from an account until it
// reaches a wallet account. Each hop through a token account consumes one unit
// of budget.
func (l *Ledger) resolveTopmostOwner(ctx context.Context, account tokens.AccountId, b budget.Budget) (tokens.AccountId, error) {
	current := account
	for {
		address, ok := tokens.TokenFromAccount(current)
		if !ok {
			return current, nil
		}
		if !b.Consume() {
			return "", errors.WithStack(errs.DepthLimit)
		}
		data, err := l.getToken(ctx, address.CollectionId, address.TokenId)
		if err != nil {
			return "", err
		}
		current = data.Owner
	}
}

// TopmostOwner resolves the wallet account that ultimately owns the token
// through any chain of nesting.
func (l *Ledger) TopmostOwner(ctx context.Context, token tokens.TokenAddress, b budget.Budget) (tokens.AccountId, error) {
	b = orUnlimited(b)
	data, err := l.getToken(ctx, token.CollectionId, token.TokenId)
	if err != nil {
		return "", err
	}
	return l.resolveTopmostOwner(ctx, data.Owner, b)
}

// isIndirectOwner reports whether account appears anywhere on the ownership
// chain of the token, including as its direct owner.
func (l *Ledger) isIndirectOwner(ctx context.Context, token tokens.TokenAddress, account tokens.AccountId, b budget.Budget) (bool, error) {
	data, err := l.getToken(ctx, token.CollectionId, token.TokenId)
	if err != nil {
		return false, err
	}
	current := data.Owner
	for {
		if current == account {
			return true, nil
		}
		address, ok := tokens.TokenFromAccount(current)
		if !ok {
			return false, nil
		}
		if !b.Consume() {
			return false, errors.WithStack(errs.DepthLimit)
		}
		parent, err := l.getToken(ctx, address.CollectionId, address.TokenId)
		if err != nil {
			return false, err
		}
		current = parent.Owner
	}
}

// checkNesting validates that child may become owned by newOwner. It is a
// no-op when newOwner is a wallet account. For a token account it enforces the
// parent collection's nesting policy, verifies the whole parent ancestry is
// live, and rejects edges that would make the child its own ancestor.
func (l *Ledger) checkNesting(ctx context.Context, sender tokens.AccountId, child tokens.TokenAddress, newOwner tokens.AccountId, b budget.Budget) error {
	parent, ok := tokens.TokenFromAccount(newOwner)
	if !ok {
		return nil
	}

	collection, err := l.getCollection(ctx, parent.CollectionId)
	if err != nil {
		return err
	}
	policy := collection.Permissions.Nesting
	if !policy.AllowsCollection(child.CollectionId) {
		return errors.Wrapf(errs.SourceCollectionIsNotAllowedToNest, "collection %d", child.CollectionId)
	}

	// One walk over the parent's ancestry detects ouroboros edges and resolves
	// the topmost wallet owner for the policy check below.
	current := parent
	var topmost tokens.AccountId
	for {
		if current == child {
			return errors.Wrapf(errs.OuroborosDetected, "token %s would own its own ancestor", child)
		}
		data, err := l.getToken(ctx, current.CollectionId, current.TokenId)
		if err != nil {
			return err
		}
		address, ok := tokens.TokenFromAccount(data.Owner)
		if !ok {
			topmost = data.Owner
			break
		}
		if !b.Consume() {
			return errors.WithStack(errs.DepthLimit)
		}
		current = address
	}

	allowed := false
	if policy.CollectionAdmin {
		privileged, err := l.isOwnerOrAdmin(ctx, collection, sender)
		if err != nil {
			return err
		}
		allowed = privileged
	}
	if !allowed && policy.TokenOwner && topmost == sender {
		allowed = true
	}
	if !allowed {
		return errors.Wrapf(errs.UserIsNotAllowedToNest, "account %s under token %s", sender, parent)
	}
	return nil
}

// nest records the parent-child edge when owner is a token account.
func (l *Ledger) nest(ctx context.Context, owner tokens.AccountId, child tokens.TokenAddress) error {
	parent, ok := tokens.TokenFromAccount(owner)
	if !ok {
		return nil
	}
	if err := l.dg.AddTokenChild(ctx, parent.CollectionId, parent.TokenId, child); err != nil {
		return errors.Wrap(err, "failed to add child edge")
	}
	return nil
}

// unnest erases the parent-child edge when owner is a token account.
func (l *Ledger) unnest(ctx context.Context, owner tokens.AccountId, child tokens.TokenAddress) error {
	parent, ok := tokens.TokenFromAccount(owner)
	if !ok {
		return nil
	}
	if err := l.dg.RemoveTokenChild(ctx, parent.CollectionId, parent.TokenId, child); err != nil {
		return errors.Wrap(err, "failed to remove child edge")
	}
	return nil
}
