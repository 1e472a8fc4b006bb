package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

func collectProperties(rows pgx.Rows) (tokens.Properties, error) {
	defer rows.Close()
	properties := make(tokens.Properties)
	for rows.Next() {
		var (
			key   tokens.PropertyKey
			value tokens.PropertyValue
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan property")
		}
		properties[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate properties")
	}
	return properties, nil
}

func (r *Repository) GetTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) (tokens.Properties, error) {
	rows, err := r.q().Query(ctx, `SELECT key, value FROM nonfungible_token_properties WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query token properties")
	}
	return collectProperties(rows)
}

// SetTokenProperties replaces the whole bounded map of the token.
func (r *Repository) SetTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, properties tokens.Properties) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_token_properties WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)); err != nil {
		return errors.Wrap(err, "failed to clear token properties")
	}
	if len(properties) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, value := range properties {
		batch.Queue(`INSERT INTO nonfungible_token_properties (collection_id, token_id, key, value) VALUES ($1, $2, $3, $4)`,
			int64(collection), int64(token), key, value)
	}
	results := r.q().SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "failed to insert token property")
		}
	}
	return nil
}

func (r *Repository) DeleteTokenProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_token_properties WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)); err != nil {
		return errors.Wrap(err, "failed to delete token properties")
	}
	return nil
}

func (r *Repository) GetCollectionProperties(ctx context.Context, collection tokens.CollectionId) (tokens.Properties, error) {
	rows, err := r.q().Query(ctx, `SELECT key, value FROM nonfungible_collection_properties WHERE collection_id = $1`, int64(collection))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query collection properties")
	}
	return collectProperties(rows)
}

func (r *Repository) SetCollectionProperties(ctx context.Context, collection tokens.CollectionId, properties tokens.Properties) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_collection_properties WHERE collection_id = $1`, int64(collection)); err != nil {
		return errors.Wrap(err, "failed to clear collection properties")
	}
	if len(properties) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, value := range properties {
		batch.Queue(`INSERT INTO nonfungible_collection_properties (collection_id, key, value) VALUES ($1, $2, $3)`,
			int64(collection), key, value)
	}
	results := r.q().SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "failed to insert collection property")
		}
	}
	return nil
}

func (r *Repository) GetPropertyPermissions(ctx context.Context, collection tokens.CollectionId) (tokens.PropertyPermissions, error) {
	rows, err := r.q().Query(ctx, `SELECT key, mutable, collection_admin, token_owner FROM nonfungible_property_permissions WHERE collection_id = $1`, int64(collection))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query property permissions")
	}
	defer rows.Close()
	permissions := make(tokens.PropertyPermissions)
	for rows.Next() {
		var (
			key        tokens.PropertyKey
			permission tokens.PropertyPermission
		)
		if err := rows.Scan(&key, &permission.Mutable, &permission.CollectionAdmin, &permission.TokenOwner); err != nil {
			return nil, errors.Wrap(err, "failed to scan property permission")
		}
		permissions[key] = permission
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate property permissions")
	}
	return permissions, nil
}

func (r *Repository) SetPropertyPermissions(ctx context.Context, collection tokens.CollectionId, permissions tokens.PropertyPermissions) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_property_permissions WHERE collection_id = $1`, int64(collection)); err != nil {
		return errors.Wrap(err, "failed to clear property permissions")
	}
	if len(permissions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, permission := range permissions {
		batch.Queue(`INSERT INTO nonfungible_property_permissions (collection_id, key, mutable, collection_admin, token_owner) VALUES ($1, $2, $3, $4, $5)`,
			int64(collection), key, permission.Mutable, permission.CollectionAdmin, permission.TokenOwner)
	}
	results := r.q().SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "failed to insert property permission")
		}
	}
	return nil
}

func (r *Repository) GetAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) (tokens.PropertyValue, error) {
	var value tokens.PropertyValue
	err := r.q().QueryRow(ctx, `
		SELECT value FROM nonfungible_aux_properties
		WHERE collection_id = $1 AND token_id = $2 AND scope = $3 AND key = $4`,
		int64(collection), int64(token), scope, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.WithStack(errs.NotFound)
		}
		return "", errors.Wrap(err, "failed to query aux property")
	}
	return value, nil
}

func (r *Repository) GetAuxProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope) (tokens.Properties, error) {
	rows, err := r.q().Query(ctx, `
		SELECT key, value FROM nonfungible_aux_properties
		WHERE collection_id = $1 AND token_id = $2 AND scope = $3`,
		int64(collection), int64(token), scope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query aux properties")
	}
	return collectProperties(rows)
}

func (r *Repository) SetAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey, value tokens.PropertyValue) error {
	_, err := r.q().Exec(ctx, `
		INSERT INTO nonfungible_aux_properties (collection_id, token_id, scope, key, value) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection_id, token_id, scope, key) DO UPDATE SET value = EXCLUDED.value`,
		int64(collection), int64(token), scope, key, value)
	if err != nil {
		return errors.Wrap(err, "failed to set aux property")
	}
	return nil
}

func (r *Repository) RemoveAuxProperty(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId, scope tokens.PropertyScope, key tokens.PropertyKey) error {
	_, err := r.q().Exec(ctx, `
		DELETE FROM nonfungible_aux_properties
		WHERE collection_id = $1 AND token_id = $2 AND scope = $3 AND key = $4`,
		int64(collection), int64(token), scope, key)
	if err != nil {
		return errors.Wrap(err, "failed to delete aux property")
	}
	return nil
}

func (r *Repository) ClearAuxProperties(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM nonfungible_aux_properties WHERE collection_id = $1 AND token_id = $2`, int64(collection), int64(token)); err != nil {
		return errors.Wrap(err, "failed to clear aux properties")
	}
	return nil
}
