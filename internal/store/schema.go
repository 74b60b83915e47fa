package store

import (
	"database/sql"

	"codeberg.org/mutker/metricshub/internal/errors"
	"codeberg.org/mutker/metricshub/internal/logger"
)

const (
	// SchemaVersion is the newest migration known to this build
	SchemaVersion = 2

	createVersionTableSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );`

	createBaseTablesSQL = `
	   CREATE TABLE IF NOT EXISTS system_metrics (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       group_key    TEXT,
	       cpu_usage    REAL,
	       memory_usage REAL,
	       recorded_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	   );
	   CREATE TABLE IF NOT EXISTS stock_metrics (
	       id             INTEGER PRIMARY KEY AUTOINCREMENT,
	       symbol         TEXT,
	       price          REAL,
	       change_percent REAL,
	       recorded_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	   );`
)

// schemaV2Columns are added after the initial release. Additive only:
// existing rows keep NULL for the new columns.
var schemaV2Columns = []struct {
	table      string
	column     string
	definition string
}{
	{"system_metrics", "cpu_temp", "cpu_temp REAL"},
	{"system_metrics", "client_timestamp", "client_timestamp TEXT"},
	{"stock_metrics", "client_timestamp", "client_timestamp TEXT"},
}

// Migrate brings the schema up to SchemaVersion. Migrations are additive
// and idempotent; tables are never dropped or rebuilt.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(createVersionTableSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	logger.Debug().
		Int("version", version).
		Bool("init_db", version == 0).
		Msg("Current schema version")

	if version < 1 {
		if err := applyMigration(db, 1, func(tx *sql.Tx) error {
			_, err := tx.Exec(createBaseTablesSQL)
			return err
		}); err != nil {
			return err
		}
	}

	if version < 2 {
		var missing []string
		for _, col := range schemaV2Columns {
			exists, err := columnExists(db, col.table, col.column)
			if err != nil {
				return err
			}
			if !exists {
				missing = append(missing, "ALTER TABLE "+col.table+" ADD COLUMN "+col.definition)
			}
		}
		if err := applyMigration(db, 2, func(tx *sql.Tx) error {
			for _, stmt := range missing {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(db *sql.DB, version int, apply func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback migration")
			}
		}
	}()

	if err := apply(tx); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Version int
			Error   string
		}{
			Version: version,
			Error:   err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, version); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Version int
			Phase   string
			Error   string
		}{
			Version: version,
			Phase:   "record_version",
			Error:   err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	committed = true

	logger.Info().
		Int("version", version).
		Msg("Schema migration applied")

	return nil
}

// GetSchemaVersion returns the newest applied migration, 0 for a fresh
// database
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return version, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return false, errFactory.Wrap(ErrSchemaMigrationFailed, err)
		}
		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}
