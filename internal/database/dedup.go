package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE for "relation does not exist".
const undefinedTableCode = "42P01"

// ColumnValues returns the set of values stored in one column of one
// table. A table that does not yet exist (first run) yields an empty set,
// not an error.
func (db *DB) ColumnValues(ctx context.Context, table, column string) (map[string]struct{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		pgx.Identifier{column}.Sanitize(),
		pgx.Identifier{table}.Sanitize())

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to query %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	values := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s: %w", table, column, err)
		}
		values[v] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}

	return values, nil
}
