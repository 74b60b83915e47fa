package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/metricshub/internal/errors"
	"codeberg.org/mutker/metricshub/internal/logger"
)

type repository struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the metrics database and runs pending migrations
func New(cfg Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Msgf("Initializing metrics store at: %s", cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Metrics store initialized")

	return &repository{db: db}, nil
}

// NewWithDB wraps an already open database handle. Migrations are the
// caller's responsibility; tests use this with sqlmock.
func NewWithDB(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertSystem(ctx context.Context, rec *SystemRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	groupKey := rec.GroupKey
	if groupKey == "" {
		groupKey = UnknownGroupKey
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO system_metrics (
            group_key, cpu_usage, memory_usage, cpu_temp,
            recorded_at, client_timestamp
        ) VALUES (?, ?, ?, ?, ?, ?)
    `,
		groupKey,
		rec.CPUUsage,
		rec.MemoryUsage,
		rec.CPUTemp,
		now(),
		rec.ClientTimestamp,
	)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) InsertStocks(ctx context.Context, recs []*StockRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO stock_metrics (
            symbol, price, change_percent, recorded_at, client_timestamp
        ) VALUES (?, ?, ?, ?, ?)
    `)
	if err != nil {
		rollback(tx)
		return 0, errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	recordedAt := now()
	inserted := 0
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.Symbol,
			rec.Price,
			rec.ChangePercent,
			recordedAt,
			rec.ClientTimestamp,
		); err != nil {
			rollback(tx)
			return 0, errFactory.Wrap(ErrTransactionFailed, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, errFactory.Wrap(ErrTransactionFailed, err)
	}

	return inserted, nil
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM system_metrics").Scan(&c.System); err != nil {
		return Counts{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stock_metrics").Scan(&c.Stock); err != nil {
		return Counts{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	return c, nil
}

// PruneBefore deletes rows older than the cutoff (TimeLayout formatted)
// from both families and reclaims the freed pages
func (r *repository) PruneBefore(ctx context.Context, cutoff string) (Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted Counts

	res, err := r.db.ExecContext(ctx, "DELETE FROM system_metrics WHERE recorded_at < ?", cutoff)
	if err != nil {
		return Counts{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	deleted.System, _ = res.RowsAffected()

	res, err = r.db.ExecContext(ctx, "DELETE FROM stock_metrics WHERE recorded_at < ?", cutoff)
	if err != nil {
		return Counts{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	deleted.Stock, _ = res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, "VACUUM"); err != nil {
		return deleted, errFactory.Wrap(ErrStorageAccess, err)
	}

	logger.Info().
		Int64("system_deleted", deleted.System).
		Int64("stock_deleted", deleted.Stock).
		Str("cutoff", cutoff).
		Msg("Pruned old records")

	return deleted, nil
}

func (r *repository) ClearStocks(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM stock_metrics")
	if err != nil {
		return 0, errFactory.Wrap(ErrStorageAccess, err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, "VACUUM"); err != nil {
		return deleted, errFactory.Wrap(ErrStorageAccess, err)
	}

	return deleted, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(TimeLayout)
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error().Err(err).Msg("Failed to roll back transaction")
	}
}
