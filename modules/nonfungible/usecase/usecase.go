// Package usecase exposes the read-only query surface of the token ledger to
// the API layer. Mutations go through the ledger directly; queries here read
// the storage maps without budgets, except where a nesting walk is involved.
package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/datagateway"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
	"golang.org/x/sync/errgroup"
)

type Usecase struct {
	dg     datagateway.NonfungibleReaderDataGateway
	ledger *ledger.Ledger
}

func New(dg datagateway.NonfungibleReaderDataGateway, l *ledger.Ledger) *Usecase {
	return &Usecase{dg: dg, ledger: l}
}

func (u *Usecase) GetCollection(ctx context.Context, id tokens.CollectionId) (*entity.Collection, error) {
	collection, err := u.dg.GetCollection(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, errors.Wrapf(errs.CollectionNotFound, "collection %d", id)
		}
		return nil, errors.Wrap(err, "failed to get collection")
	}
	return collection, nil
}

func (u *Usecase) TotalSupply(ctx context.Context, id tokens.CollectionId) (uint32, error) {
	collection, err := u.GetCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	return collection.TotalSupply(), nil
}

func (u *Usecase) TokenExists(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (bool, error) {
	_, err := u.dg.GetToken(ctx, collection, token)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to get token")
	}
	return true, nil
}

func (u *Usecase) TokenOwner(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.AccountId, error) {
	data, err := u.dg.GetToken(ctx, collection, token)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return "", errors.Wrapf(errs.TokenNotFound, "token %d:%d", collection, token)
		}
		return "", errors.Wrap(err, "failed to get token")
	}
	return data.Owner, nil
}

// TopmostOwner resolves the wallet account at the top of the token's nesting
// chain. The walk is budgeted like every other traversal.
func (u *Usecase) TopmostOwner(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, b budget.Budget) (tokens.AccountId, error) {
	return u.ledger.TopmostOwner(ctx, tokens.TokenAddress{CollectionId: collection, TokenId: token}, b)
}

func (u *Usecase) TokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.Properties, error) {
	if _, err := u.dg.GetToken(ctx, collection, token); err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, errors.Wrapf(errs.TokenNotFound, "token %d:%d", collection, token)
		}
		return nil, errors.Wrap(err, "failed to get token")
	}
	properties, err := u.dg.GetTokenProperties(ctx, collection, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token properties")
	}
	return properties, nil
}

func (u *Usecase) CollectionProperties(ctx context.Context, id tokens.CollectionId) (tokens.Properties, error) {
	if _, err := u.GetCollection(ctx, id); err != nil {
		return nil, err
	}
	properties, err := u.dg.GetCollectionProperties(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get collection properties")
	}
	return properties, nil
}

func (u *Usecase) AccountTokens(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId) ([]tokens.TokenId, error) {
	ids, err := u.dg.GetAccountTokens(ctx, collection, account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account tokens")
	}
	return ids, nil
}

func (u *Usecase) CollectionTokens(ctx context.Context, collection tokens.CollectionId) ([]tokens.TokenId, error) {
	ids, err := u.dg.GetCollectionTokens(ctx, collection)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get collection tokens")
	}
	return ids, nil
}

func (u *Usecase) TokenChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]tokens.TokenAddress, error) {
	children, err := u.dg.GetTokenChildren(ctx, collection, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token children")
	}
	return children, nil
}

func (u *Usecase) Allowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.AccountId, error) {
	spender, err := u.dg.GetAllowance(ctx, collection, token)
	if err != nil {
		return "", errors.Wrap(err, "failed to get allowance")
	}
	return spender, nil
}

func (u *Usecase) TokenEvents(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Event, error) {
	events, err := u.dg.GetTokenEvents(ctx, collection, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token events")
	}
	return events, nil
}

func (u *Usecase) TokenLogs(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Erc721Log, error) {
	logs, err := u.dg.GetTokenLogs(ctx, collection, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token logs")
	}
	return logs, nil
}

// TokenSummary is the aggregate view served by the token detail endpoint.
type TokenSummary struct {
	Collection tokens.CollectionId
	Token      tokens.TokenId
	Owner      tokens.AccountId
	Properties tokens.Properties
	Children   []tokens.TokenAddress
	Allowance  tokens.AccountId
}

// GetTokenSummary fans the independent reads out concurrently.
func (u *Usecase) GetTokenSummary(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (*TokenSummary, error) {
	summary := TokenSummary{Collection: collection, Token: token}

	owner, err := u.TokenOwner(ctx, collection, token)
	if err != nil {
		return nil, err
	}
	summary.Owner = owner

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		properties, err := u.dg.GetTokenProperties(egctx, collection, token)
		if err != nil {
			return errors.Wrap(err, "failed to get token properties")
		}
		summary.Properties = properties
		return nil
	})
	eg.Go(func() error {
		children, err := u.dg.GetTokenChildren(egctx, collection, token)
		if err != nil {
			return errors.Wrap(err, "failed to get token children")
		}
		summary.Children = children
		return nil
	})
	eg.Go(func() error {
		allowance, err := u.dg.GetAllowance(egctx, collection, token)
		if err != nil {
			return errors.Wrap(err, "failed to get allowance")
		}
		summary.Allowance = allowance
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.WithStack(err)
	}
	return &summary, nil
}
