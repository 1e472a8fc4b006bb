package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

const collectionColumns = `owner, name, description, tokens_minted, tokens_burnt,
	token_limit, account_token_ownership_limit, owner_can_transfer, transfers_enabled,
	access_mode, mint_mode, nesting_token_owner, nesting_collection_admin, nesting_restricted,
	ignores_allowance, ignores_owned_amount`

func scanCollection(row pgx.Row, id tokens.CollectionId) (*entity.Collection, error) {
	var (
		collection entity.Collection
		restricted []int32
	)
	collection.Id = id
	err := row.Scan(
		&collection.Owner,
		&collection.Name,
		&collection.Description,
		&collection.TokensMinted,
		&collection.TokensBurnt,
		&collection.Limits.TokenLimit,
		&collection.Limits.AccountTokenOwnershipLimit,
		&collection.Limits.OwnerCanTransfer,
		&collection.Limits.TransfersEnabled,
		&collection.Permissions.Access,
		&collection.Permissions.MintMode,
		&collection.Permissions.Nesting.TokenOwner,
		&collection.Permissions.Nesting.CollectionAdmin,
		&restricted,
		&collection.Permissions.IgnoresAllowance,
		&collection.Permissions.IgnoresOwnedAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "failed to scan collection")
	}
	if restricted != nil {
		collection.Permissions.Nesting.Restricted = lo.Map(restricted, func(id int32, _ int) tokens.CollectionId {
			return tokens.CollectionId(id)
		})
	}
	return &collection, nil
}

func restrictedParam(permissions entity.CollectionPermissions) []int32 {
	if permissions.Nesting.Restricted == nil {
		return nil
	}
	return lo.Map(permissions.Nesting.Restricted, func(id tokens.CollectionId, _ int) int32 {
		return int32(id)
	})
}

func (r *Repository) GetCollection(ctx context.Context, id tokens.CollectionId) (*entity.Collection, error) {
	row := r.q().QueryRow(ctx, `SELECT `+collectionColumns+` FROM nonfungible_collections WHERE id = $1`, int64(id))
	return scanCollection(row, id)
}

func (r *Repository) CreateCollection(ctx context.Context, collection *entity.Collection) (tokens.CollectionId, error) {
	var id int64
	err := r.q().QueryRow(ctx, `
		INSERT INTO nonfungible_collections (`+collectionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		collection.Owner,
		collection.Name,
		collection.Description,
		collection.TokensMinted,
		collection.TokensBurnt,
		collection.Limits.TokenLimit,
		collection.Limits.AccountTokenOwnershipLimit,
		collection.Limits.OwnerCanTransfer,
		collection.Limits.TransfersEnabled,
		collection.Permissions.Access,
		collection.Permissions.MintMode,
		collection.Permissions.Nesting.TokenOwner,
		collection.Permissions.Nesting.CollectionAdmin,
		restrictedParam(collection.Permissions),
		collection.Permissions.IgnoresAllowance,
		collection.Permissions.IgnoresOwnedAmount,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert collection")
	}
	return tokens.CollectionId(id), nil
}

func (r *Repository) UpdateCollection(ctx context.Context, collection *entity.Collection) error {
	tag, err := r.q().Exec(ctx, `
		UPDATE nonfungible_collections SET
			owner = $2, name = $3, description = $4, tokens_minted = $5, tokens_burnt = $6,
			token_limit = $7, account_token_ownership_limit = $8, owner_can_transfer = $9, transfers_enabled = $10,
			access_mode = $11, mint_mode = $12, nesting_token_owner = $13, nesting_collection_admin = $14,
			nesting_restricted = $15, ignores_allowance = $16, ignores_owned_amount = $17
		WHERE id = $1`,
		int64(collection.Id),
		collection.Owner,
		collection.Name,
		collection.Description,
		collection.TokensMinted,
		collection.TokensBurnt,
		collection.Limits.TokenLimit,
		collection.Limits.AccountTokenOwnershipLimit,
		collection.Limits.OwnerCanTransfer,
		collection.Limits.TransfersEnabled,
		collection.Permissions.Access,
		collection.Permissions.MintMode,
		collection.Permissions.Nesting.TokenOwner,
		collection.Permissions.Nesting.CollectionAdmin,
		restrictedParam(collection.Permissions),
		collection.Permissions.IgnoresAllowance,
		collection.Permissions.IgnoresOwnedAmount,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update collection")
	}
	if tag.RowsAffected() == 0 {
		return errors.WithStack(errs.NotFound)
	}
	return nil
}

func (r *Repository) DeleteCollection(ctx context.Context, id tokens.CollectionId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_collection_admins WHERE collection_id = $1`, int64(id)); err != nil {
		return errors.Wrap(err, "failed to delete collection admins")
	}
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_allowlist WHERE collection_id = $1`, int64(id)); err != nil {
		return errors.Wrap(err, "failed to delete allow list")
	}
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_collections WHERE id = $1`, int64(id)); err != nil {
		return errors.Wrap(err, "failed to delete collection")
	}
	return nil
}

func (r *Repository) IsCollectionAdmin(ctx context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error) {
	var exists bool
	err := r.q().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nonfungible_collection_admins WHERE collection_id = $1 AND account = $2)`, int64(id), account).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to query collection admin")
	}
	return exists, nil
}

func (r *Repository) SetCollectionAdmin(ctx context.Context, id tokens.CollectionId, account tokens.AccountId, admin bool) error {
	var err error
	if admin {
		_, err = r.q().Exec(ctx, `
			INSERT INTO nonfungible_collection_admins (collection_id, account) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, int64(id), account)
	} else {
		_, err = r.q().Exec(ctx, `DELETE FROM nonfungible_collection_admins WHERE collection_id = $1 AND account = $2`, int64(id), account)
	}
	if err != nil {
		return errors.Wrap(err, "failed to set collection admin")
	}
	return nil
}

func (r *Repository) IsAllowlisted(ctx context.Context, id tokens.CollectionId, account tokens.AccountId) (bool, error) {
	var exists bool
	err := r.q().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nonfungible_allowlist WHERE collection_id = $1 AND account = $2)`, int64(id), account).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to query allow list")
	}
	return exists, nil
}

func (r *Repository) SetAllowlisted(ctx context.Context, id tokens.CollectionId, account tokens.AccountId, allowed bool) error {
	var err error
	if allowed {
		_, err = r.q().Exec(ctx, `
			INSERT INTO nonfungible_allowlist (collection_id, account) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, int64(id), account)
	} else {
		_, err = r.q().Exec(ctx, `DELETE FROM nonfungible_allowlist WHERE collection_id = $1 AND account = $2`, int64(id), account)
	}
	if err != nil {
		return errors.Wrap(err, "failed to set allow list entry")
	}
	return nil
}
