package store

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/metricshub/internal/errors"
)

const systemColumns = "id, group_key, cpu_usage, memory_usage, cpu_temp, recorded_at, client_timestamp"

const stockColumns = "id, symbol, price, change_percent, recorded_at, client_timestamp"

// LatestSystem returns the most recently inserted resource record, or nil
// when the store is empty
func (r *repository) LatestSystem(ctx context.Context) (*SystemRecord, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+systemColumns+`
        FROM system_metrics
        ORDER BY id DESC
        LIMIT 1
    `)

	rec, err := scanSystem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return rec, nil
}

// SystemHistory returns up to limit most recent resource records, oldest
// first, for charting
func (r *repository) SystemHistory(ctx context.Context, limit int) ([]*SystemRecord, error) {
	if limit <= 0 {
		limit = DefaultSystemHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT `+systemColumns+`
        FROM (
            SELECT `+systemColumns+`
            FROM system_metrics
            ORDER BY id DESC
            LIMIT ?
        )
        ORDER BY id ASC
    `, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return collectSystem(rows)
}

// SystemTable returns resource records most recent first for tabular
// display, optionally filtered to one group key
func (r *repository) SystemTable(ctx context.Context, groupKey string, limit int) ([]*SystemRecord, error) {
	if limit <= 0 {
		limit = DefaultTableLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if groupKey != "" {
		rows, err = r.db.QueryContext(ctx, `
            SELECT `+systemColumns+`
            FROM system_metrics
            WHERE group_key = ?
            ORDER BY id DESC
            LIMIT ?
        `, groupKey, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
            SELECT `+systemColumns+`
            FROM system_metrics
            ORDER BY id DESC
            LIMIT ?
        `, limit)
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return collectSystem(rows)
}

// LatestStocks returns the most recent record for each distinct symbol
func (r *repository) LatestStocks(ctx context.Context) ([]*StockRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT s1.id, s1.symbol, s1.price, s1.change_percent, s1.recorded_at, s1.client_timestamp
        FROM stock_metrics s1
        JOIN (
            SELECT symbol, MAX(id) AS max_id
            FROM stock_metrics
            GROUP BY symbol
        ) s2 ON s1.symbol = s2.symbol AND s1.id = s2.max_id
        ORDER BY s1.symbol
    `)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return collectStock(rows)
}

// StockHistory returns up to limit records per symbol, oldest first. With a
// symbol filter the window covers that symbol only; without one every
// symbol gets its own window rather than competing for a global cap.
func (r *repository) StockHistory(ctx context.Context, symbol string, limit int) ([]*StockRecord, error) {
	if limit <= 0 {
		limit = DefaultStockHistoryLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if symbol != "" {
		rows, err = r.db.QueryContext(ctx, `
            SELECT `+stockColumns+`
            FROM (
                SELECT `+stockColumns+`
                FROM stock_metrics
                WHERE symbol = ?
                ORDER BY id DESC
                LIMIT ?
            )
            ORDER BY id ASC
        `, symbol, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
            WITH ranked AS (
                SELECT `+stockColumns+`,
                       ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY id DESC) AS rn
                FROM stock_metrics
            )
            SELECT `+stockColumns+`
            FROM ranked
            WHERE rn <= ?
            ORDER BY symbol, id ASC
        `, limit)
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return collectStock(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSystem(row scanner) (*SystemRecord, error) {
	var (
		rec        SystemRecord
		groupKey   sql.NullString
		recordedAt sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &groupKey, &rec.CPUUsage, &rec.MemoryUsage,
		&rec.CPUTemp, &recordedAt, &rec.ClientTimestamp,
	); err != nil {
		return nil, err
	}
	rec.GroupKey = groupKey.String
	rec.RecordedAt = recordedAt.String

	return &rec, nil
}

func scanStock(row scanner) (*StockRecord, error) {
	var (
		rec        StockRecord
		symbol     sql.NullString
		recordedAt sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &symbol, &rec.Price, &rec.ChangePercent,
		&recordedAt, &rec.ClientTimestamp,
	); err != nil {
		return nil, err
	}
	rec.Symbol = symbol.String
	rec.RecordedAt = recordedAt.String

	return &rec, nil
}

func collectSystem(rows *sql.Rows) ([]*SystemRecord, error) {
	recs := []*SystemRecord{}
	for rows.Next() {
		rec, err := scanSystem(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return recs, nil
}

func collectStock(rows *sql.Rows) ([]*StockRecord, error) {
	recs := []*StockRecord{}
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return recs, nil
}
