package store_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/metricshub/internal/store"
)

func TestInsertSystemStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO system_metrics")).
		WillReturnError(fmt.Errorf("disk I/O error"))

	repo := store.NewWithDB(db)
	err = repo.InsertSystem(context.Background(), &store.SystemRecord{GroupKey: "host-a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStocksRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO stock_metrics")).
		ExpectExec().
		WillReturnError(fmt.Errorf("database is locked"))
	mock.ExpectRollback()

	repo := store.NewWithDB(db)
	inserted, err := repo.InsertStocks(context.Background(), []*store.StockRecord{
		{Symbol: "AAPL"},
	})
	require.Error(t, err)
	assert.Zero(t, inserted, "no partial commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStocksCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO stock_metrics"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(fmt.Errorf("commit failed"))

	repo := store.NewWithDB(db)
	inserted, err := repo.InsertStocks(context.Background(), []*store.StockRecord{
		{Symbol: "AAPL"},
	})
	require.Error(t, err)
	assert.Zero(t, inserted)
}

func TestLatestSystemQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, group_key")).
		WillReturnError(fmt.Errorf("no such table: system_metrics"))

	repo := store.NewWithDB(db)
	_, err = repo.LatestSystem(context.Background())
	require.Error(t, err)
}
