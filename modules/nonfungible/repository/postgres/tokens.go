package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

func (r *Repository) GetToken(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (*entity.TokenData, error) {
	data := entity.TokenData{CollectionId: collection, TokenId: token}
	err := r.q().QueryRow(ctx, `SELECT owner FROM nonfungible_tokens WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)).Scan(&data.Owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "failed to query token")
	}
	return &data, nil
}

func (r *Repository) GetCollectionTokens(ctx context.Context, collection tokens.CollectionId) ([]tokens.TokenId, error) {
	rows, err := r.q().Query(ctx, `SELECT token_id FROM nonfungible_tokens WHERE collection_id = $1 ORDER BY token_id`, int64(collection))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query collection tokens")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[tokens.TokenId])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect token ids")
	}
	return ids, nil
}

func (r *Repository) CreateToken(ctx context.Context, data *entity.TokenData) error {
	_, err := r.q().Exec(ctx, `
		INSERT INTO nonfungible_tokens (collection_id, token_id, owner) VALUES ($1, $2, $3)`,
		int64(data.CollectionId), int64(data.TokenId), data.Owner)
	if err != nil {
		return errors.Wrap(err, "failed to insert token")
	}
	return nil
}

func (r *Repository) SetTokenOwner(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, owner tokens.AccountId) error {
	tag, err := r.q().Exec(ctx, `UPDATE nonfungible_tokens SET owner = $3 WHERE collection_id = $1 AND token_id = $2`,
		int64(collection), int64(token), owner)
	if err != nil {
		return errors.Wrap(err, "failed to update token owner")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) DeleteToken(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_tokens WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)); err != nil {
		return errors.Wrap(err, "failed to delete token")
	}
	return nil
}

func (r *Repository) GetAccountBalance(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId) (uint32, error) {
	var balance uint32
	err := r.q().QueryRow(ctx, `SELECT balance FROM nonfungible_balances WHERE collection_id = $1 AND account = $2`, int64(collection), account).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to query account balance")
	}
	return balance, nil
}

func (r *Repository) GetAccountTokens(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId) ([]tokens.TokenId, error) {
	rows, err := r.q().Query(ctx, `SELECT token_id FROM nonfungible_owned WHERE collection_id = $1 AND account = $2 ORDER BY token_id`, int64(collection), account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query owned tokens")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[tokens.TokenId])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect token ids")
	}
	return ids, nil
}

func (r *Repository) SetAccountBalance(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, balance uint32) error {
	var err error
	if balance == 0 {
		_, err = r.q().Exec(ctx, `DELETE FROM nonfungible_balances WHERE collection_id = $1 AND account = $2`, int64(collection), account)
	} else {
		_, err = r.q().Exec(ctx, `
			INSERT INTO nonfungible_balances (collection_id, account, balance) VALUES ($1, $2, $3)
			ON CONFLICT (collection_id, account) DO UPDATE SET balance = EXCLUDED.balance`,
			int64(collection), account, balance)
	}
	if err != nil {
		return errors.Wrap(err, "failed to set account balance")
	}
	return nil
}

func (r *Repository) SetOwned(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error {
	_, err := r.q().Exec(ctx, `
		INSERT INTO nonfungible_owned (collection_id, account, token_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, int64(collection), account, int64(token))
	if err != nil {
		return errors.Wrap(err, "failed to insert owned entry")
	}
	return nil
}

func (r *Repository) RemoveOwned(ctx context.Context, collection tokens.CollectionId, account tokens.AccountId, token tokens.TokenId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_owned WHERE collection_id = $1 AND account = $2 AND token_id = $3`, int64(collection), account, int64(token)); err != nil {
		return errors.Wrap(err, "failed to delete owned entry")
	}
	return nil
}

func (r *Repository) HasTokenChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (bool, error) {
	var exists bool
	err := r.q().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nonfungible_token_children WHERE collection_id = $1 AND token_id = $2)`, int64(collection), int64(token)).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to query token children")
	}
	return exists, nil
}

func (r *Repository) GetTokenChildren(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]tokens.TokenAddress, error) {
	rows, err := r.q().Query(ctx, `
		SELECT child_collection_id, child_token_id FROM nonfungible_token_children
		WHERE collection_id = $1 AND token_id = $2
		ORDER BY child_collection_id, child_token_id`, int64(collection), int64(token))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query token children")
	}
	children, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tokens.TokenAddress, error) {
		var child tokens.TokenAddress
		err := row.Scan(&child.CollectionId, &child.TokenId)
		return child, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect token children")
	}
	return children, nil
}

func (r *Repository) AddTokenChild(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error {
	_, err := r.q().Exec(ctx, `
		INSERT INTO nonfungible_token_children (collection_id, token_id, child_collection_id, child_token_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`, int64(collection), int64(token), int64(child.CollectionId), int64(child.TokenId))
	if err != nil {
		return errors.Wrap(err, "failed to insert child edge")
	}
	return nil
}

func (r *Repository) RemoveTokenChild(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, child tokens.TokenAddress) error {
	_, err := r.q().Exec(ctx, `
		DELETE FROM nonfungible_token_children
		WHERE collection_id = $1 AND token_id = $2 AND child_collection_id = $3 AND child_token_id = $4`,
		int64(collection), int64(token), int64(child.CollectionId), int64(child.TokenId))
	if err != nil {
		return errors.Wrap(err, "failed to delete child edge")
	}
	return nil
}

func (r *Repository) GetAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.AccountId, error) {
	var spender tokens.AccountId
	err := r.q().QueryRow(ctx, `SELECT spender FROM nonfungible_allowances WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)).Scan(&spender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to query allowance")
	}
	return spender, nil
}

func (r *Repository) SetAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, spender tokens.AccountId) error {
	_, err := r.q().Exec(ctx, `
		INSERT INTO nonfungible_allowances (collection_id, token_id, spender) VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, token_id) DO UPDATE SET spender = EXCLUDED.spender`,
		int64(collection), int64(token), spender)
	if err != nil {
		return errors.Wrap(err, "failed to set allowance")
	}
	return nil
}

func (r *Repository) RemoveAllowance(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_allowances WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)); err != nil {
		return errors.Wrap(err, "failed to delete allowance")
	}
	return nil
}

func (r *Repository) ClearCollectionTokens(ctx context.Context, collection tokens.CollectionId) error {
	for _, query := range []string{
		`DELETE FROM nonfungible_tokens WHERE collection_id = $1`,
		`DELETE FROM nonfungible_token_properties WHERE collection_id = $1`,
		`DELETE FROM nonfungible_aux_properties WHERE collection_id = $1`,
	} {
		if _, err := r.q().Exec(ctx, query, int64(collection)); err != nil {
			return errors.Wrap(err, "failed to clear collection tokens")
		}
	}
	return nil
}

func (r *Repository) ClearCollectionOwnership(ctx context.Context, collection tokens.CollectionId) error {
	for _, query := range []string{
		`DELETE FROM nonfungible_balances WHERE collection_id = $1`,
		`DELETE FROM nonfungible_owned WHERE collection_id = $1`,
	} {
		if _, err := r.q().Exec(ctx, query, int64(collection)); err != nil {
			return errors.Wrap(err, "failed to clear collection ownership")
		}
	}
	return nil
}

func (r *Repository) ClearCollectionChildren(ctx context.Context, collection tokens.CollectionId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_token_children WHERE collection_id = $1`, int64(collection)); err != nil {
		return errors.Wrap(err, "failed to clear collection children")
	}
	return nil
}

func (r *Repository) ClearCollectionAllowances(ctx context.Context, collection tokens.CollectionId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_allowances WHERE collection_id = $1`, int64(collection)); err != nil {
		return errors.Wrap(err, "failed to clear collection allowances")
	}
	return nil
}

func (r *Repository) ClearCollectionProperties(ctx context.Context, collection tokens.CollectionId) error {
	for _, query := range []string{
		`DELETE FROM nonfungible_collection_properties WHERE collection_id = $1`,
		`DELETE FROM nonfungible_property_permissions WHERE collection_id = $1`,
	} {
		if _, err := r.q().Exec(ctx, query, int64(collection)); err != nil {
			return errors.Wrap(err, "failed to clear collection properties")
		}
	}
	return nil
}
