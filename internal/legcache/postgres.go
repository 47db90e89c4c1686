package legcache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is a durable leg cache. It survives restarts and is shared by
// every instance pointed at the same database and graph namespace.
type Postgres struct {
	db        *sql.DB
	namespace string
}

// NewPostgres wraps an existing database handle. Call InitSchema once
// before first use.
func NewPostgres(db *sql.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

// InitSchema creates the leg_costs table if it does not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS leg_costs (
		namespace   TEXT             NOT NULL,
		origin_node BIGINT           NOT NULL,
		dest_node   BIGINT           NOT NULL,
		cost        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (namespace, origin_node, dest_node)
	);`)
	if err != nil {
		return fmt.Errorf("leg cache schema: %w", err)
	}
	return nil
}

// GetMany implements Cache with a single array-bound query.
func (c *Postgres) GetMany(ctx context.Context, from int64, to []int64) (map[int64]float64, error) {
	if len(to) == 0 {
		return map[int64]float64{}, nil
	}

	rows, err := c.db.QueryContext(ctx, `
	SELECT dest_node, cost
	FROM leg_costs
	WHERE namespace = $1
		AND origin_node = $2
		AND dest_node = ANY($3::bigint[]);`,
		c.namespace, from, to)
	if err != nil {
		return nil, fmt.Errorf("leg cache select: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64, len(to))
	for rows.Next() {
		var dest int64
		var cost float64
		if err := rows.Scan(&dest, &cost); err != nil {
			return nil, fmt.Errorf("leg cache scan: %w", err)
		}
		out[dest] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leg cache rows: %w", err)
	}
	return out, nil
}

// PutMany implements Cache with an upsert per leg inside one transaction.
func (c *Postgres) PutMany(ctx context.Context, from int64, costs map[int64]float64) error {
	if len(costs) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("leg cache begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO leg_costs (namespace, origin_node, dest_node, cost)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (namespace, origin_node, dest_node) DO UPDATE
	SET cost = EXCLUDED.cost;`)
	if err != nil {
		return fmt.Errorf("leg cache prepare: %w", err)
	}
	defer stmt.Close()

	for dest, cost := range costs {
		if _, err := stmt.ExecContext(ctx, c.namespace, from, dest, cost); err != nil {
			return fmt.Errorf("leg cache upsert %d->%d: %w", from, dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("leg cache commit: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *Postgres) Close() error {
	return c.db.Close()
}
