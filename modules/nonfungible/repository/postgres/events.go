package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

func (r *Repository) CreateEvents(ctx context.Context, events []*entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO nonfungible_events (collection_id, token_id, kind, from_account, to_account, spender, property_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			int64(event.CollectionId), int64(event.TokenId), event.Kind, event.From, event.To, event.Spender, event.PropertyKey)
	}
	results := r.q().SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "failed to insert event")
		}
	}
	return nil
}

func (r *Repository) CreateLogs(ctx context.Context, logs []*entity.Erc721Log) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		batch.Queue(`
			INSERT INTO nonfungible_erc721_logs (collection_id, token_id, kind, from_account, to_account)
			VALUES ($1, $2, $3, $4, $5)`,
			int64(log.CollectionId), int64(log.TokenId), log.Kind, log.From, log.To)
	}
	results := r.q().SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "failed to insert log")
		}
	}
	return nil
}

func (r *Repository) GetTokenEvents(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Event, error) {
	rows, err := r.q().Query(ctx, `
		SELECT id, collection_id, token_id, kind, from_account, to_account, spender, property_key, created_at
		FROM nonfungible_events
		WHERE collection_id = $1 AND token_id = $2
		ORDER BY id`, int64(collection), int64(token))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Event, error) {
		var event entity.Event
		err := row.Scan(&event.Id, &event.CollectionId, &event.TokenId, &event.Kind, &event.From, &event.To, &event.Spender, &event.PropertyKey, &event.CreatedAt)
		return &event, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect events")
	}
	return events, nil
}

func (r *Repository) GetTokenLogs(ctx context.Context, collection tokens.CollectionId, token tokens.TokenId) ([]*entity.Erc721Log, error) {
	rows, err := r.q().Query(ctx, `
		SELECT id, collection_id, token_id, kind, from_account, to_account, created_at
		FROM nonfungible_erc721_logs
		WHERE collection_id = $1 AND token_id = $2
		ORDER BY id`, int64(collection), int64(token))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query logs")
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Erc721Log, error) {
		var log entity.Erc721Log
		err := row.Scan(&log.Id, &log.CollectionId, &log.TokenId, &log.Kind, &log.From, &log.To, &log.CreatedAt)
		return &log, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect logs")
	}
	return logs, nil
}
