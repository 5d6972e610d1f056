package warehouse_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/warehouse"
)

func newMockAdapter(t *testing.T) (*warehouse.BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &warehouse.BaseSQLAdapter{DB: db}, mock
}

func TestQueryMaterializesRows(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery("SELECT id, name FROM prod_users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "ada").
			AddRow(2, "grace"))

	result, err := adapter.Query(context.Background(), "SELECT id, name FROM prod_users")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, result.Columns)
	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, "ada", result.Rows[0][1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryPropagatesErrors(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("relation does not exist"))

	_, err := adapter.Query(context.Background(), "SELECT * FROM missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestExecReportsAffectedRows(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectExec("DELETE FROM prod_users").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := adapter.Exec(context.Background(), "DELETE FROM prod_users WHERE inactive")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestDisconnectedAdapter(t *testing.T) {
	adapter := &warehouse.BaseSQLAdapter{}

	assert.False(t, adapter.IsConnected())
	assert.NoError(t, adapter.Close())

	_, err := adapter.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)

	_, err = adapter.Exec(context.Background(), "SELECT 1")
	assert.Error(t, err)

	assert.Error(t, adapter.Ping(context.Background()))
}

func TestRegistry(t *testing.T) {
	warehouse.Register("fake", func(logger *slog.Logger) warehouse.Adapter {
		return &fakeAdapter{}
	})

	adapter, err := warehouse.New("fake", nil)
	require.NoError(t, err)
	assert.NotNil(t, adapter)
	assert.Contains(t, warehouse.List(), "fake")

	_, err = warehouse.New("nope", nil)
	require.Error(t, err)

	var unknown *warehouse.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Type)
}

type fakeAdapter struct {
	warehouse.BaseSQLAdapter
}

func (f *fakeAdapter) Connect(context.Context, config.ConnectionConfig) error { return nil }

func TestInfoRunsVersionQuery(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	adapter.VersionQuery = "SELECT version()"

	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.3"))

	info, err := adapter.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.3", info)
}
