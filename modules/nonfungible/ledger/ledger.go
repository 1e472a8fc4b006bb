// Package ledger implements the nested-ownership token state machine: mint,
// transfer, burn and allowance over the storage maps exposed by the data
// gateway. Every mutating operation runs inside one storage transaction and
// either commits all of its writes or none of them.
package ledger

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/datagateway"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
	"github.com/tokenforge/nestledger/pkg/logger"
)

// CostFn converts the number of tokens burned by a recursive burn into a cost
// figure for fee accounting. The default is linear per token.
type CostFn func(tokensBurned uint32) uint64

type Option func(*Ledger)

// WithCostFn overrides the recursive-burn cost formula.
func WithCostFn(fn CostFn) Option {
	return func(l *Ledger) {
		l.costFn = fn
	}
}

// Ledger is the token state machine. Operations are serialized: execution is
// deterministic single-threaded state-transition logic, so a mutex stands in
// for the host's execution pipeline.
type Ledger struct {
	mu sync.Mutex
	dg datagateway.NonfungibleDataGateway

	costFn CostFn

	// event buffers of the transaction in flight, flushed before commit
	events []*entity.Event
	logs   []*entity.Erc721Log
}

func New(dg datagateway.NonfungibleDataGateway, opts ...Option) *Ledger {
	l := &Ledger{
		dg: dg,
		costFn: func(tokensBurned uint32) uint64 {
			return uint64(tokensBurned)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// withTx runs fn inside one storage transaction, flushing buffered events and
// logs before commit. Any error from fn rolls the whole transaction back.
func (l *Ledger) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = l.events[:0]
	l.logs = l.logs[:0]

	if err := l.dg.Begin(ctx); err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := l.dg.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	if len(l.events) > 0 {
		if err := l.dg.CreateEvents(ctx, l.events); err != nil {
			return errors.Wrap(err, "failed to insert events")
		}
	}
	if len(l.logs) > 0 {
		if err := l.dg.CreateLogs(ctx, l.logs); err != nil {
			return errors.Wrap(err, "failed to insert logs")
		}
	}
	if err := l.dg.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (l *Ledger) emitEvent(event *entity.Event) {
	l.events = append(l.events, event)
}

func (l *Ledger) emitTransferLog(collection tokens.CollectionId, token tokens.TokenId, from, to tokens.AccountId) {
	l.logs = append(l.logs, &entity.Erc721Log{
		CollectionId: collection,
		TokenId:      token,
		Kind:         entity.LogTransfer,
		From:         from,
		To:           to,
	})
}

func (l *Ledger) emitApprovalLog(collection tokens.CollectionId, token tokens.TokenId, owner, approved tokens.AccountId) {
	l.logs = append(l.logs, &entity.Erc721Log{
		CollectionId: collection,
		TokenId:      token,
		Kind:         entity.LogApproval,
		From:         owner,
		To:           approved,
	})
}

// getCollection remaps the gateway's generic not-found into the domain kind.
func (l *Ledger) getCollection(ctx context.Context, id tokens.CollectionId) (*entity.Collection, error) {
	collection, err := l.dg.GetCollection(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, errors.Wrapf(errs.CollectionNotFound, "collection %d", id)
		}
		return nil, errors.Wrap(err, "failed to get collection")
	}
	return collection, nil
}

func (l *Ledger) getToken(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (*entity.TokenData, error) {
	data, err := l.dg.GetToken(ctx, collection, token)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, errors.Wrapf(errs.TokenNotFound, "token %d:%d", collection, token)
		}
		return nil, errors.Wrap(err, "failed to get token")
	}
	return data, nil
}

func (l *Ledger) isOwnerOrAdmin(ctx context.Context, collection *entity.Collection, account tokens.AccountId) (bool, error) {
	if account == collection.Owner {
		return true, nil
	}
	admin, err := l.dg.IsCollectionAdmin(ctx, collection.Id, account)
	if err != nil {
		return false, errors.Wrap(err, "failed to check collection admin")
	}
	return admin, nil
}

// checkAllowlisted enforces the allow-list access mode for wallet accounts.
// Token accounts are gated by the nesting policy instead, and the collection
// owner and admins are always allowed.
func (l *Ledger) checkAllowlisted(ctx context.Context, collection *entity.Collection, accounts ...tokens.AccountId) error {
	if collection.Permissions.Access != entity.AccessAllowList {
		return nil
	}
	for _, account := range accounts {
		if account.IsTokenAccount() {
			continue
		}
		privileged, err := l.isOwnerOrAdmin(ctx, collection, account)
		if err != nil {
			return err
		}
		if privileged {
			continue
		}
		listed, err := l.dg.IsAllowlisted(ctx, collection.Id, account)
		if err != nil {
			return errors.Wrap(err, "failed to check allow list")
		}
		if !listed {
			return errors.Wrapf(errs.AddressNotInAllowlist, "account %s", account)
		}
	}
	return nil
}

// incrementBalance adds one directly-owned token to the account, enforcing the
// per-account ownership limit.
func (l *Ledger) incrementBalance(ctx context.Context, collection *entity.Collection, account tokens.AccountId, token tokens.TokenId) error {
	balance, err := l.dg.GetAccountBalance(ctx, collection.Id, account)
	if err != nil {
		return errors.Wrap(err, "failed to get account balance")
	}
	if limit := collection.Limits.AccountTokenOwnershipLimit; limit != 0 && balance+1 > limit {
		return errors.Wrapf(errs.AccountTokenLimitExceeded, "account %s would own %d tokens, limit is %d", account, balance+1, limit)
	}
	if err := l.dg.SetAccountBalance(ctx, collection.Id, account, balance+1); err != nil {
		return errors.Wrap(err, "failed to set account balance")
	}
	if err := l.dg.SetOwned(ctx, collection.Id, account, token); err != nil {
		return errors.Wrap(err, "failed to set owned entry")
	}
	return nil
}

// decrementBalance removes one directly-owned token from the account. The
// balance entry disappears entirely at zero.
func (l *Ledger) decrementBalance(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error {
	balance, err := l.dg.GetAccountBalance(ctx, collection, account)
	if err != nil {
		return errors.Wrap(err, "failed to get account balance")
	}
	if balance == 0 {
		return errors.Wrapf(errs.ArithmeticOverflow, "balance underflow for account %s", account)
	}
	if err := l.dg.SetAccountBalance(ctx, collection, account, balance-1); err != nil {
		return errors.Wrap(err, "failed to set account balance")
	}
	if err := l.dg.RemoveOwned(ctx, collection, account, token); err != nil {
		return errors.Wrap(err, "failed to remove owned entry")
	}
	return nil
}

// checkAmount validates an NFT amount. Zero is an accepted no-op (reported via
// skip), one is a normal operation, anything else is rejected.
func checkAmount(amount uint128.Uint128) (skip bool, err error) {
	if amount.IsZero() {
		return true, nil
	}
	if !amount.Equals64(1) {
		return false, errors.Wrapf(errs.NonfungibleItemsHaveNoAmount, "amount %s", amount)
	}
	return false, nil
}

func orUnlimited(b budget.Budget) budget.Budget {
	if b == nil {
		return budget.Unlimited()
	}
	return b
}
