package postgres

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aussiebroadwan/domainvault/internal/vault/store"
)

// repo stores records of one kind in table. The record's own JSON is the
// document; id and owner are mirrored into columns for lookups.
type repo[T any] struct {
	pool  *pgxpool.Pool
	table string
	idOf  func(T) string
	stamp func(rec *T, id, owner string)
}

func (r *repo[T]) List(ctx context.Context, userID string) ([]T, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT document FROM %s WHERE user_id = $1 ORDER BY created_at, id`, r.table),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", r.table, err)
	}

	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", r.table, err)
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("postgres: decode %s: %w", r.table, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *repo[T]) Save(ctx context.Context, userID string, rec T) (T, error) {
	var saved T
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if id := r.idOf(rec); id != "" {
			r.stamp(&rec, id, userID)
			doc, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			tag, err := tx.Exec(ctx,
				fmt.Sprintf(`UPDATE %s SET document = $3, updated_at = now() WHERE id = $1 AND user_id = $2`, r.table),
				id, userID, string(doc),
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				saved = rec
				return nil
			}
		}

		r.stamp(&rec, uuid.NewString(), userID)
		doc, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (id, user_id, document) VALUES ($1, $2, $3)`, r.table),
			r.idOf(rec), userID, string(doc),
		)
		if err != nil {
			return err
		}
		saved = rec
		return nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("postgres: save %s: %w", r.table, err)
	}
	return saved, nil
}

func (r *repo[T]) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.table),
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
