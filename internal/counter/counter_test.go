package counter_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/counter"
	"github.com/glacierhq/glacier/internal/warehouse"
)

type mockAdapter struct {
	warehouse.BaseSQLAdapter
}

func (m *mockAdapter) Connect(context.Context, config.ConnectionConfig) error { return nil }

func newAdapter(t *testing.T) (*mockAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &mockAdapter{warehouse.BaseSQLAdapter{DB: db}}, mock
}

func TestCountWrapsStatement(t *testing.T) {
	adapter, mock := newAdapter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(SELECT \* FROM prod_users\) AS glacier_count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1234))

	job := counter.Start(context.Background(), adapter, "SELECT * FROM prod_users;", nil)
	total, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountPropagatesError(t *testing.T) {
	adapter, mock := newAdapter(t)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(fmt.Errorf("timeout"))

	job := counter.Start(context.Background(), adapter, "SELECT * FROM t", nil)
	_, err := job.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
