package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// copyThreshold is the row count from which Table.Insert switches from a
// multi-row INSERT to COPY. A single INSERT is capped at 65535 bind
// parameters.
const copyThreshold = 500

// rowValues flattens rows into cols order.
func rowValues[T any](cols []string, rows []*T) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		data := StructToMap(row)
		values := make([]any, len(cols))
		for i, col := range cols {
			values[i] = data[col]
		}
		out[r] = values
	}
	return out
}

// CopyFrom bulk-loads values into table with the COPY protocol.
// It requires a transaction in ctx.
func (m *TxManager) CopyFrom(ctx context.Context, table string, cols []string, values [][]any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires transaction context", table)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(values))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}
