package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-dev/rowboat/pkg/adapter"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := New(nil)
	a.DB = db
	return a, mock
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		want string
	}{
		{
			name: "defaults",
			cfg:  adapter.Config{Database: "app"},
			want: "host=localhost port=5432 dbname=app sslmode=prefer",
		},
		{
			name: "full config",
			cfg: adapter.Config{
				Host:     "db.internal",
				Port:     5433,
				Database: "app",
				Username: "svc",
				Password: "secret",
				Options:  map[string]string{"sslmode": "require"},
			},
			want: "host=db.internal port=5433 dbname=app sslmode=require user=svc password=secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}

func TestAdapter_GetColumns(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}).
			AddRow("id", "integer", "NO").
			AddRow("name", "text", "YES"))
	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	cols, err := a.GetColumns(context.Background(), "public", "users")
	require.NoError(t, err)

	require.Len(t, cols, 2)
	assert.Equal(t, core.Column{Name: "id", DataType: "integer", Nullable: false, PrimaryKey: true}, cols[0])
	assert.Equal(t, core.Column{Name: "name", DataType: "text", Nullable: true, PrimaryKey: false}, cols[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetColumns_TableNotFound(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}))

	_, err := a.GetColumns(context.Background(), "public", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAdapter_GetPrimaryKeyColumns_None(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("public", "logs").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))

	pk, err := a.GetPrimaryKeyColumns(context.Background(), "public", "logs")
	require.NoError(t, err)
	assert.Empty(t, pk)
}

func TestAdapter_ListDatabases(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM pg_database").
		WillReturnRows(sqlmock.NewRows([]string{"datname"}).
			AddRow("app").
			AddRow("postgres"))

	names, err := a.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "postgres"}, names)
}

func TestAdapter_ListSchemaObjects(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "table_type"}).
			AddRow("public", "users", "BASE TABLE").
			AddRow("public", "active_users", "VIEW"))

	objects, err := a.ListSchemaObjects(context.Background())
	require.NoError(t, err)

	require.Len(t, objects, 2)
	assert.Equal(t, core.SchemaObject{Schema: "public", Name: "users", ObjectType: "table"}, objects[0])
	assert.Equal(t, core.SchemaObject{Schema: "public", Name: "active_users", ObjectType: "view"}, objects[1])
}

func TestAdapter_NotConnected(t *testing.T) {
	a := New(nil)

	var cerr *core.ConnectivityError
	_, err := a.GetColumns(context.Background(), "public", "users")
	assert.ErrorAs(t, err, &cerr)
	_, err = a.ListDatabases(context.Background())
	assert.ErrorAs(t, err, &cerr)
}

func TestAdapter_Registered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))
	assert.Equal(t, "postgres", New(nil).Dialect().Name)
}
