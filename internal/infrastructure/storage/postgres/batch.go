package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CopyRows bulk-inserts rows with the COPY protocol. Stocktake lines for a
// whole bar go in this way. It must run inside a transaction.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires a transaction", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, row := range rows {
		for i, v := range row {
			if d, ok := v.(decimal.Decimal); ok {
				n, err := numeric(d)
				if err != nil {
					return 0, err
				}
				row[i] = n
			}
		}
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// numeric converts for the binary COPY protocol.
func numeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("encode numeric %s: %w", d, err)
	}
	return n, nil
}

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// ExecBatch sends every query in one round-trip and returns the summed
// affected row count. It must run inside a transaction.
func (m *TxManager) ExecBatch(ctx context.Context, queries []BatchQuery) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("batch requires a transaction")
	}
	if len(queries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for i := range queries {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("batch query %d: %w", i, err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}
